package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/repository/firestore"
	"github.com/gaprio/gaprio/pkg/repository/memory"
	"github.com/gaprio/gaprio/pkg/repository/rdb"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

var userIDSeq = time.Now().UnixNano() % 1_000_000_000

// newUserID returns a user ID unused by other tests, so that suites can share
// a persistent database.
func newUserID() int64 {
	return atomic.AddInt64(&userIDSeq, 1)
}

type repoFactory struct {
	name    string
	newRepo func(t *testing.T) interfaces.Repository
}

func newMemoryRepository(t *testing.T) interfaces.Repository {
	return memory.New()
}

func newSQLiteRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	repo, err := rdb.NewSQLite(context.Background(), filepath.Join(t.TempDir(), "gaprio.db"), rdb.WithMigrate())
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newPostgresRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	url := os.Getenv("TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}

	repo, err := rdb.NewPostgres(context.Background(), url, rdb.WithMigrate())
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func newFirestoreRepository(t *testing.T) interfaces.Repository {
	t.Helper()

	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	if projectID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID not set")
	}
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	ctx := context.Background()
	repo, err := firestore.New(ctx, projectID, databaseID,
		firestore.WithCollectionPrefix("test_"+uuid.NewString()[:8]))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})
	return repo
}

func allBackends() []repoFactory {
	return []repoFactory{
		{name: "Memory", newRepo: newMemoryRepository},
		{name: "SQLite", newRepo: newSQLiteRepository},
		{name: "Postgres", newRepo: newPostgresRepository},
		{name: "Firestore", newRepo: newFirestoreRepository},
	}
}
