package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestExpireOldByAge(t *testing.T) {
	ctx := context.Background()
	repo := newSuggestedActionRepository()

	old, err := repo.Create(ctx, model.NewSuggestedAction(1, types.PlatformSlack, "C1", "created long ago", "t", nil, ""))
	gt.NoError(t, err).Required()
	recent, err := repo.Create(ctx, model.NewSuggestedAction(1, types.PlatformSlack, "C1", "created recently", "t", nil, ""))
	gt.NoError(t, err).Required()

	now := time.Now().UTC()
	repo.actions[old.ID].CreatedAt = now.Add(-30 * time.Hour)
	repo.actions[recent.ID].CreatedAt = now.Add(-1 * time.Hour)

	n, err := repo.ExpireOld(ctx, 24*time.Hour)
	gt.NoError(t, err).Required()
	gt.Number(t, n).Equal(1)

	got, err := repo.Get(ctx, old.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(types.ActionStatusExpired)

	got, err = repo.Get(ctx, recent.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.Status).Equal(types.ActionStatusPending)
}

func TestReturnedActionsAreCopies(t *testing.T) {
	ctx := context.Background()
	repo := newSuggestedActionRepository()

	created, err := repo.Create(ctx, model.NewSuggestedAction(1, types.PlatformSlack, "C1", "context text", "t", model.Params{"k": "v"}, ""))
	gt.NoError(t, err).Required()

	created.SuggestedParams["k"] = "mutated"
	created.Status = types.ActionStatusExecuted

	got, err := repo.Get(ctx, created.ID)
	gt.NoError(t, err).Required()
	gt.Value(t, got.SuggestedParams["k"]).Equal("v")
	gt.Value(t, got.Status).Equal(types.ActionStatusPending)
}
