package repository_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func newTestAction(userID int64, tool string) *model.SuggestedAction {
	return model.NewSuggestedAction(userID, types.PlatformSlack, "C1",
		"Can someone file a ticket for the login bug?",
		tool, model.Params{"summary": "Login bug"}, "Create Jira issue")
}

func runSuggestedActionRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Create returns pending record without edits or result", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "jira.createIssue"))
		gt.NoError(t, err).Required()

		gt.Value(t, created.ID).NotEqual(int64(0))
		gt.Value(t, created.UserID).Equal(userID)
		gt.Value(t, created.SourcePlatform).Equal(types.PlatformSlack)
		gt.Value(t, created.SourceChannel).Equal("C1")
		gt.Value(t, created.SuggestedTool).Equal("jira.createIssue")
		gt.Value(t, created.SuggestedParams["summary"]).Equal("Login bug")
		gt.Value(t, created.Description).Equal("Create Jira issue")
		gt.Value(t, created.Status).Equal(types.ActionStatusPending)
		gt.Value(t, created.EditedParams).Nil()
		gt.Value(t, created.ExecutionResult).Nil()
		gt.Value(t, created.ExecutedAt).Nil()
		gt.Bool(t, created.CreatedAt.IsZero()).False()
	})

	t.Run("Create ignores caller supplied status", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		action := newTestAction(newUserID(), "tool")
		action.Status = types.ActionStatusExecuted
		created, err := repo.SuggestedAction().Create(ctx, action)
		gt.NoError(t, err).Required()
		gt.Value(t, created.Status).Equal(types.ActionStatusPending)
	})

	t.Run("Get returns nil for missing record", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.SuggestedAction().Get(context.Background(), 987654321)
		gt.NoError(t, err).Required()
		gt.Value(t, got).Nil()
	})

	t.Run("Get and ListByUser return identical values", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "tool"))
		gt.NoError(t, err).Required()

		byID, err := repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		list, err := repo.SuggestedAction().ListByUser(ctx, userID, "", 0)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(1).Required()

		gt.Value(t, list[0].ID).Equal(byID.ID)
		gt.Value(t, list[0].SuggestedParams).Equal(byID.SuggestedParams)
		gt.Value(t, list[0].Status).Equal(byID.Status)
		gt.Value(t, list[0].SourceContext).Equal(byID.SourceContext)
		gt.Bool(t, list[0].CreatedAt.Equal(byID.CreatedAt)).True()
	})

	t.Run("structured params round-trip", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		params := model.Params{
			"summary": "Login bug",
			"labels":  []any{"auth", "urgent"},
			"fields":  map[string]any{"priority": "High", "points": 3.0},
		}
		action := newTestAction(newUserID(), "jira.createIssue")
		action.SuggestedParams = params

		created, err := repo.SuggestedAction().Create(ctx, action)
		gt.NoError(t, err).Required()

		got, err := repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.SuggestedParams).Equal(params)

		edited := model.Params{"summary": "Login bug (edited)", "fields": map[string]any{"priority": "Low"}}
		gt.NoError(t, repo.SuggestedAction().UpdateParams(ctx, created.ID, edited)).Required()

		got, err = repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.EditedParams).Equal(edited)
		gt.Value(t, got.ResolvedParams()).Equal(edited)
		gt.Value(t, got.SuggestedParams).Equal(params)
	})

	t.Run("CreateMany inserts all actions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		batch := []*model.SuggestedAction{
			newTestAction(userID, "a"),
			newTestAction(userID, "b"),
			newTestAction(userID, "c"),
		}
		n, err := repo.SuggestedAction().CreateMany(ctx, batch)
		gt.NoError(t, err).Required()
		gt.Number(t, n).Equal(3)
		for _, action := range batch {
			gt.Value(t, action.ID).NotEqual(int64(0))
			gt.Value(t, action.Status).Equal(types.ActionStatusPending)
		}
		gt.Bool(t, batch[0].ID < batch[1].ID && batch[1].ID < batch[2].ID).True()

		list, err := repo.SuggestedAction().ListByUser(ctx, userID, types.ActionStatusPending, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, list).Length(3).Required()
		// Same creation time: newest ID first
		gt.Value(t, list[0].SuggestedTool).Equal("c")
		gt.Value(t, list[2].SuggestedTool).Equal("a")
	})

	t.Run("CreateMany with empty input is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		n, err := repo.SuggestedAction().CreateMany(context.Background(), nil)
		gt.NoError(t, err).Required()
		gt.Number(t, n).Equal(0)
	})

	t.Run("ListByUser filters, orders and limits", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()
		otherID := newUserID()

		var ids []int64
		for _, tool := range []string{"first", "second", "third"} {
			created, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, tool))
			gt.NoError(t, err).Required()
			ids = append(ids, created.ID)
			time.Sleep(5 * time.Millisecond)
		}
		_, err := repo.SuggestedAction().Create(ctx, newTestAction(otherID, "other"))
		gt.NoError(t, err).Required()

		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, ids[1], types.ActionStatusRejected, nil)).Required()

		all, err := repo.SuggestedAction().ListByUser(ctx, userID, "", 0)
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(3).Required()
		gt.Value(t, all[0].SuggestedTool).Equal("third")
		gt.Value(t, all[1].SuggestedTool).Equal("second")
		gt.Value(t, all[2].SuggestedTool).Equal("first")

		pending, err := repo.SuggestedAction().ListByUser(ctx, userID, types.ActionStatusPending, 0)
		gt.NoError(t, err).Required()
		gt.Array(t, pending).Length(2)

		limited, err := repo.SuggestedAction().ListByUser(ctx, userID, "", 1)
		gt.NoError(t, err).Required()
		gt.Array(t, limited).Length(1).Required()
		gt.Value(t, limited[0].SuggestedTool).Equal("third")

		none, err := repo.SuggestedAction().ListByUser(ctx, newUserID(), "", 0)
		gt.NoError(t, err).Required()
		gt.Array(t, none).Length(0)
	})

	t.Run("CountPending counts only the user's pending actions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		a1, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "a"))
		gt.NoError(t, err).Required()
		_, err = repo.SuggestedAction().Create(ctx, newTestAction(userID, "b"))
		gt.NoError(t, err).Required()
		_, err = repo.SuggestedAction().Create(ctx, newTestAction(newUserID(), "c"))
		gt.NoError(t, err).Required()

		count, err := repo.SuggestedAction().CountPending(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Number(t, count).Equal(2)

		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, a1.ID, types.ActionStatusRejected, nil)).Required()
		count, err = repo.SuggestedAction().CountPending(ctx, userID)
		gt.NoError(t, err).Required()
		gt.Number(t, count).Equal(1)
	})

	t.Run("UpdateStatus executed records time and result", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.SuggestedAction().Create(ctx, newTestAction(newUserID(), "jira.createIssue"))
		gt.NoError(t, err).Required()

		result := json.RawMessage(`{"issueKey":"PROJ-42"}`)
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, created.ID, types.ActionStatusExecuted, result)).Required()

		got, err := repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionStatusExecuted)
		gt.Value(t, got.ExecutedAt).NotNil()

		var decoded map[string]any
		gt.NoError(t, json.Unmarshal(got.ExecutionResult, &decoded)).Required()
		gt.Value(t, decoded["issueKey"]).Equal("PROJ-42")
	})

	t.Run("execution result is stored verbatim", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.SuggestedAction().Create(ctx, newTestAction(newUserID(), "jira.createIssue"))
		gt.NoError(t, err).Required()

		result := json.RawMessage(`{"b": 1,  "a": [2, 1]}`)
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, created.ID, types.ActionStatusExecuted, result)).Required()

		got, err := repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, string(got.ExecutionResult)).Equal(string(result))
	})

	t.Run("updates on non-pending actions are ignored", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		created, err := repo.SuggestedAction().Create(ctx, newTestAction(newUserID(), "tool"))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, created.ID, types.ActionStatusRejected, nil)).Required()

		gt.NoError(t, repo.SuggestedAction().UpdateParams(ctx, created.ID, model.Params{"x": "y"})).Required()
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, created.ID, types.ActionStatusExecuted, json.RawMessage(`{}`))).Required()

		got, err := repo.SuggestedAction().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionStatusRejected)
		gt.Value(t, got.EditedParams).Nil()
		gt.Value(t, got.ExecutedAt).Nil()
		gt.Value(t, got.ExecutionResult).Nil()
	})

	t.Run("updates on missing actions are no-ops", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		gt.NoError(t, repo.SuggestedAction().UpdateParams(ctx, 987654321, model.Params{"x": 1}))
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, 987654321, types.ActionStatusRejected, nil))
	})

	t.Run("ExpireOld expires only stale pending actions", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		stale, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "stale"))
		gt.NoError(t, err).Required()
		staleRejected, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "stale-rejected"))
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.SuggestedAction().UpdateStatus(ctx, staleRejected.ID, types.ActionStatusRejected, nil)).Required()

		time.Sleep(300 * time.Millisecond)
		fresh, err := repo.SuggestedAction().Create(ctx, newTestAction(userID, "fresh"))
		gt.NoError(t, err).Required()

		n, err := repo.SuggestedAction().ExpireOld(ctx, 150*time.Millisecond)
		gt.NoError(t, err).Required()
		gt.Bool(t, n >= 1).True()

		got, err := repo.SuggestedAction().Get(ctx, stale.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionStatusExpired)

		got, err = repo.SuggestedAction().Get(ctx, staleRejected.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionStatusRejected)

		got, err = repo.SuggestedAction().Get(ctx, fresh.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got.Status).Equal(types.ActionStatusPending)
	})
}

func TestSuggestedActionRepository(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(backend.name, func(t *testing.T) {
			runSuggestedActionRepositoryTest(t, backend.newRepo)
		})
	}
}
