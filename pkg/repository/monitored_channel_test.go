package repository_test

import (
	"context"
	"sort"
	"testing"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
)

func channelIDs(channels []*model.MonitoredChannel) []string {
	ids := make([]string, len(channels))
	for i, ch := range channels {
		ids[i] = ch.ChannelID
	}
	sort.Strings(ids)
	return ids
}

func uniqueChannelID() string {
	return "C" + uuid.NewString()[:8]
}

func runMonitoredChannelRepositoryTest(t *testing.T, newRepo func(t *testing.T) interfaces.Repository) {
	t.Helper()

	t.Run("Upsert inserts then reactivates and renames", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.MonitoredChannel().Upsert(ctx, userID, model.ChannelSpec{
			Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "general",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, created.ID).NotEqual(int64(0))
		gt.Bool(t, created.IsActive).True()
		gt.Value(t, created.ChannelName).Equal("general")

		gt.NoError(t, repo.MonitoredChannel().DeactivateByID(ctx, created.ID)).Required()

		again, err := repo.MonitoredChannel().Upsert(ctx, userID, model.ChannelSpec{
			Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "general-renamed",
		})
		gt.NoError(t, err).Required()
		gt.Value(t, again.ID).Equal(created.ID)
		gt.Bool(t, again.IsActive).True()
		gt.Value(t, again.ChannelName).Equal("general-renamed")
	})

	t.Run("Upsert defaults empty platform to slack", func(t *testing.T) {
		repo := newRepo(t)
		ch, err := repo.MonitoredChannel().Upsert(context.Background(), newUserID(), model.ChannelSpec{ChannelID: "C1", ChannelName: "x"})
		gt.NoError(t, err).Required()
		gt.Value(t, ch.Platform).Equal(types.PlatformSlack)
	})

	t.Run("BulkUpsert with empty list is a no-op", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		gt.NoError(t, repo.MonitoredChannel().BulkUpsert(ctx, userID, nil)).Required()
		gt.NoError(t, repo.MonitoredChannel().BulkUpsert(ctx, userID, []model.ChannelSpec{})).Required()

		channels, err := repo.MonitoredChannel().ListByUser(ctx, userID, "")
		gt.NoError(t, err).Required()
		gt.Array(t, channels).Length(0)
	})

	t.Run("ListByUser returns active channels sorted by name", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		gt.NoError(t, repo.MonitoredChannel().BulkUpsert(ctx, userID, []model.ChannelSpec{
			{Platform: types.PlatformSlack, ChannelID: "C2", ChannelName: "random"},
			{Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "general"},
			{Platform: types.PlatformAsana, ChannelID: "P1", ChannelName: "backlog"},
		})).Required()
		gt.NoError(t, repo.MonitoredChannel().Deactivate(ctx, userID, "C2")).Required()

		all, err := repo.MonitoredChannel().ListByUser(ctx, userID, "")
		gt.NoError(t, err).Required()
		gt.Array(t, all).Length(2).Required()
		gt.Value(t, all[0].ChannelName).Equal("backlog")
		gt.Value(t, all[1].ChannelName).Equal("general")

		slackOnly, err := repo.MonitoredChannel().ListByUser(ctx, userID, types.PlatformSlack)
		gt.NoError(t, err).Required()
		gt.Array(t, slackOnly).Length(1).Required()
		gt.Value(t, slackOnly[0].ChannelID).Equal("C1")
	})

	t.Run("ListUsersByChannel returns distinct active users", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		channelID := uniqueChannelID()
		u1, u2, u3 := newUserID(), newUserID(), newUserID()

		for _, uid := range []int64{u2, u1, u3} {
			_, err := repo.MonitoredChannel().Upsert(ctx, uid, model.ChannelSpec{
				Platform: types.PlatformSlack, ChannelID: channelID, ChannelName: "shared",
			})
			gt.NoError(t, err).Required()
		}
		// Same channel ID on another platform must not duplicate the user
		_, err := repo.MonitoredChannel().Upsert(ctx, u1, model.ChannelSpec{
			Platform: types.PlatformGoogle, ChannelID: channelID, ChannelName: "shared",
		})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.MonitoredChannel().Deactivate(ctx, u3, channelID)).Required()

		users, err := repo.MonitoredChannel().ListUsersByChannel(ctx, channelID)
		gt.NoError(t, err).Required()
		gt.Value(t, users).Equal([]int64{u1, u2})

		none, err := repo.MonitoredChannel().ListUsersByChannel(ctx, uniqueChannelID())
		gt.NoError(t, err).Required()
		gt.Array(t, none).Length(0)
	})

	t.Run("Get returns record or nil", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.MonitoredChannel().Upsert(ctx, userID, model.ChannelSpec{
			Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "general",
		})
		gt.NoError(t, err).Required()

		got, err := repo.MonitoredChannel().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Value(t, got.UserID).Equal(userID)

		missing, err := repo.MonitoredChannel().Get(ctx, 987654321)
		gt.NoError(t, err).Required()
		gt.Value(t, missing).Nil()
	})

	t.Run("ReplaceAll leaves exactly the new list active", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		gt.NoError(t, repo.MonitoredChannel().BulkUpsert(ctx, userID, []model.ChannelSpec{
			{Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "one"},
			{Platform: types.PlatformSlack, ChannelID: "C2", ChannelName: "two"},
			{Platform: types.PlatformAsana, ChannelID: "P1", ChannelName: "project"},
		})).Required()

		gt.NoError(t, repo.MonitoredChannel().ReplaceAll(ctx, userID, types.PlatformSlack, []model.ChannelSpec{
			{ChannelID: "C2", ChannelName: "two"},
			{ChannelID: "C3", ChannelName: "three"},
		})).Required()

		slackChannels, err := repo.MonitoredChannel().ListByUser(ctx, userID, types.PlatformSlack)
		gt.NoError(t, err).Required()
		gt.Value(t, channelIDs(slackChannels)).Equal([]string{"C2", "C3"})

		// Other platforms are untouched
		asana, err := repo.MonitoredChannel().ListByUser(ctx, userID, types.PlatformAsana)
		gt.NoError(t, err).Required()
		gt.Value(t, channelIDs(asana)).Equal([]string{"P1"})

		gt.NoError(t, repo.MonitoredChannel().ReplaceAll(ctx, userID, types.PlatformSlack, nil)).Required()
		slackChannels, err = repo.MonitoredChannel().ListByUser(ctx, userID, types.PlatformSlack)
		gt.NoError(t, err).Required()
		gt.Array(t, slackChannels).Length(0)
	})

	t.Run("deactivation keeps the record", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		userID := newUserID()

		created, err := repo.MonitoredChannel().Upsert(ctx, userID, model.ChannelSpec{
			Platform: types.PlatformSlack, ChannelID: "C1", ChannelName: "general",
		})
		gt.NoError(t, err).Required()
		gt.NoError(t, repo.MonitoredChannel().DeactivateByID(ctx, created.ID)).Required()

		got, err := repo.MonitoredChannel().Get(ctx, created.ID)
		gt.NoError(t, err).Required()
		gt.Value(t, got).NotNil()
		gt.Bool(t, got.IsActive).False()

		gt.NoError(t, repo.MonitoredChannel().DeactivateByID(ctx, 987654321))
	})
}

func TestMonitoredChannelRepository(t *testing.T) {
	for _, backend := range allBackends() {
		t.Run(backend.name, func(t *testing.T) {
			runMonitoredChannelRepositoryTest(t, backend.newRepo)
		})
	}
}
