package config

import (
	"context"
	"log/slog"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/repository/firestore"
	"github.com/gaprio/gaprio/pkg/repository/memory"
	"github.com/gaprio/gaprio/pkg/repository/rdb"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// Repository holds CLI flags for repository backend configuration
type Repository struct {
	backend          string
	databaseURL      string
	sqlitePath       string
	projectID        string
	databaseID       string
	collectionPrefix string
	autoMigrate      bool
}

// Flags returns CLI flags for repository configuration
func (r *Repository) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "repository-backend",
			Usage:       "Repository backend type (memory, postgres, sqlite or firestore)",
			Category:    "Repository",
			Value:       BackendSQLite,
			Sources:     cli.EnvVars("GAPRIO_REPOSITORY_BACKEND"),
			Destination: &r.backend,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "PostgreSQL connection URL (required when using postgres backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("GAPRIO_DATABASE_URL"),
			Destination: &r.databaseURL,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "SQLite database file path",
			Category:    "Repository",
			Value:       "gaprio.db",
			Sources:     cli.EnvVars("GAPRIO_SQLITE_PATH"),
			Destination: &r.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "firestore-project-id",
			Usage:       "Firestore Project ID (required when using firestore backend)",
			Category:    "Repository",
			Sources:     cli.EnvVars("GAPRIO_FIRESTORE_PROJECT_ID"),
			Destination: &r.projectID,
		},
		&cli.StringFlag{
			Name:        "firestore-database-id",
			Usage:       "Firestore Database ID",
			Category:    "Repository",
			Sources:     cli.EnvVars("GAPRIO_FIRESTORE_DATABASE_ID"),
			Destination: &r.databaseID,
		},
		&cli.StringFlag{
			Name:        "firestore-collection-prefix",
			Usage:       "Prefix of Firestore collection names",
			Category:    "Repository",
			Sources:     cli.EnvVars("GAPRIO_FIRESTORE_COLLECTION_PREFIX"),
			Destination: &r.collectionPrefix,
		},
		&cli.BoolFlag{
			Name:        "auto-migrate",
			Usage:       "Apply SQL schema migrations on startup",
			Category:    "Repository",
			Sources:     cli.EnvVars("GAPRIO_AUTO_MIGRATE"),
			Destination: &r.autoMigrate,
		},
	}
}

func (r Repository) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("backend", r.backend),
		slog.Int("database-url.len", len(r.databaseURL)),
		slog.String("sqlite-path", r.sqlitePath),
		slog.String("firestore-project-id", r.projectID),
		slog.String("firestore-database-id", r.databaseID),
	)
}

// Backend returns the configured backend type
func (r *Repository) Backend() string {
	return r.backend
}

// ProjectID returns the Firestore project ID
func (r *Repository) ProjectID() string {
	return r.projectID
}

// DatabaseID returns the Firestore database ID
func (r *Repository) DatabaseID() string {
	return r.databaseID
}

// CollectionPrefix returns the Firestore collection prefix
func (r *Repository) CollectionPrefix() string {
	return r.collectionPrefix
}

// SQL returns the dialect and DSN of a relational backend
func (r *Repository) SQL() (rdb.Dialect, string, error) {
	switch r.backend {
	case BackendPostgres:
		if r.databaseURL == "" {
			return "", "", goerr.Wrap(ErrMissingParameter, "database-url is required when using postgres backend")
		}
		return rdb.DialectPostgres, r.databaseURL, nil
	case BackendSQLite:
		if r.sqlitePath == "" {
			return "", "", goerr.Wrap(ErrMissingParameter, "sqlite-path is required when using sqlite backend")
		}
		return rdb.DialectSQLite, r.sqlitePath, nil
	default:
		return "", "", goerr.Wrap(ErrInvalidBackend, "backend is not relational", goerr.V(BackendKey, r.backend))
	}
}

// Configure initializes and returns a repository based on the configured backend.
// The caller is responsible for calling Close() on the returned repository.
func (r *Repository) Configure(ctx context.Context) (interfaces.Repository, error) {
	switch r.backend {
	case BackendPostgres, BackendSQLite:
		dialect, dsn, err := r.SQL()
		if err != nil {
			return nil, err
		}
		var opts []rdb.Option
		if r.autoMigrate {
			opts = append(opts, rdb.WithMigrate())
		}
		repo, err := rdb.New(ctx, dialect, dsn, opts...)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize SQL repository", goerr.V(BackendKey, r.backend))
		}
		logging.Default().Info("Using SQL repository", "dialect", dialect, "auto_migrate", r.autoMigrate)
		return repo, nil

	case BackendFirestore:
		if r.projectID == "" {
			return nil, goerr.Wrap(ErrMissingParameter, "firestore-project-id is required when using firestore backend")
		}
		repo, err := firestore.New(ctx, r.projectID, r.databaseID, firestore.WithCollectionPrefix(r.collectionPrefix))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize firestore repository")
		}
		logging.Default().Info("Using Firestore repository",
			"project_id", r.projectID,
			"database_id", r.databaseID,
		)
		return repo, nil

	case BackendMemory:
		logging.Default().Info("Using in-memory repository (development mode)")
		return memory.New(), nil

	default:
		return nil, goerr.Wrap(ErrInvalidBackend, "unknown backend", goerr.V(BackendKey, r.backend))
	}
}
