package firestore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type monitoredChannelRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newMonitoredChannelRepository(client *firestore.Client) *monitoredChannelRepository {
	return &monitoredChannelRepository{
		client: client,
	}
}

type monitoredChannelDoc struct {
	ID          int64     `firestore:"id"`
	UserID      int64     `firestore:"user_id"`
	Platform    string    `firestore:"platform"`
	ChannelID   string    `firestore:"channel_id"`
	ChannelName string    `firestore:"channel_name"`
	IsActive    bool      `firestore:"is_active"`
	CreatedAt   time.Time `firestore:"created_at"`
}

func (d *monitoredChannelDoc) toModel() *model.MonitoredChannel {
	return &model.MonitoredChannel{
		ID:          d.ID,
		UserID:      d.UserID,
		Platform:    types.Platform(d.Platform),
		ChannelID:   d.ChannelID,
		ChannelName: d.ChannelName,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

func (r *monitoredChannelRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, MonitoredChannelsCollection))
}

func (r *monitoredChannelRepository) counterRef() *firestore.DocumentRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "counters")).Doc("monitored_channel_counter")
}

func (r *monitoredChannelRepository) docRef(id int64) *firestore.DocumentRef {
	return r.collection().Doc(fmt.Sprintf("%d", id))
}

type channelDocKey struct {
	platform  string
	channelID string
}

// applyChannels upserts specs for the user in one transaction. When deactivatePlatform
// is set, other active channels of that platform are deactivated first.
func (r *monitoredChannelRepository) applyChannels(ctx context.Context, userID int64, specs []model.ChannelSpec, deactivatePlatform types.Platform) ([]*model.MonitoredChannel, error) {
	var applied []*model.MonitoredChannel

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		applied = nil

		// Read phase: every existing record of the user
		existing := make(map[channelDocKey]*monitoredChannelDoc)
		iter := tx.Documents(r.collection().Where("user_id", "==", userID))
		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to iterate monitored channels", goerr.V("user_id", userID))
			}
			var doc monitoredChannelDoc
			if err := snap.DataTo(&doc); err != nil {
				iter.Stop()
				return goerr.Wrap(err, "failed to decode monitored channel", goerr.V("doc_id", snap.Ref.ID))
			}
			existing[channelDocKey{platform: doc.Platform, channelID: doc.ChannelID}] = &doc
		}
		iter.Stop()

		var missing int
		pending := make(map[channelDocKey]bool)
		for _, spec := range specs {
			key := channelDocKey{platform: types.PlatformOrDefault(spec.Platform).String(), channelID: spec.ChannelID}
			if _, ok := existing[key]; !ok && !pending[key] {
				pending[key] = true
				missing++
			}
		}

		var nextID int64
		if missing > 0 {
			first, err := reserveIDs(tx, r.counterRef(), missing)
			if err != nil {
				return err
			}
			nextID = first
		}

		// Write phase
		touched := make(map[int64]*monitoredChannelDoc)
		if deactivatePlatform != "" {
			for _, doc := range existing {
				if doc.Platform == deactivatePlatform.String() && doc.IsActive {
					doc.IsActive = false
					touched[doc.ID] = doc
				}
			}
		}

		now := time.Now().UTC()
		for _, spec := range specs {
			key := channelDocKey{platform: types.PlatformOrDefault(spec.Platform).String(), channelID: spec.ChannelID}
			doc, ok := existing[key]
			if !ok {
				doc = &monitoredChannelDoc{
					ID:        nextID,
					UserID:    userID,
					Platform:  key.platform,
					ChannelID: spec.ChannelID,
					CreatedAt: now,
				}
				nextID++
				existing[key] = doc
			}
			doc.ChannelName = spec.ChannelName
			doc.IsActive = true
			touched[doc.ID] = doc
			applied = append(applied, doc.toModel())
		}

		for id, doc := range touched {
			if err := tx.Set(r.docRef(id), doc); err != nil {
				return goerr.Wrap(err, "failed to write monitored channel", goerr.V("id", id))
			}
		}
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to apply monitored channels", goerr.V("user_id", userID))
	}

	return applied, nil
}

func (r *monitoredChannelRepository) Upsert(ctx context.Context, userID int64, spec model.ChannelSpec) (*model.MonitoredChannel, error) {
	applied, err := r.applyChannels(ctx, userID, []model.ChannelSpec{spec}, "")
	if err != nil {
		return nil, err
	}
	return applied[0], nil
}

func (r *monitoredChannelRepository) BulkUpsert(ctx context.Context, userID int64, specs []model.ChannelSpec) error {
	if len(specs) == 0 {
		return nil
	}
	_, err := r.applyChannels(ctx, userID, specs, "")
	return err
}

func (r *monitoredChannelRepository) list(ctx context.Context, q firestore.Query) ([]*monitoredChannelDoc, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var docs []*monitoredChannelDoc
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate monitored channels")
		}

		var doc monitoredChannelDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode monitored channel", goerr.V("doc_id", snap.Ref.ID))
		}
		docs = append(docs, &doc)
	}
	return docs, nil
}

func (r *monitoredChannelRepository) ListByUser(ctx context.Context, userID int64, platform types.Platform) ([]*model.MonitoredChannel, error) {
	q := r.collection().Where("user_id", "==", userID).Where("is_active", "==", true)
	if platform != "" {
		q = q.Where("platform", "==", platform.String())
	}

	docs, err := r.list(ctx, q)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list monitored channels", goerr.V("user_id", userID))
	}

	channels := make([]*model.MonitoredChannel, 0, len(docs))
	for _, doc := range docs {
		channels = append(channels, doc.toModel())
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].ChannelName != channels[j].ChannelName {
			return channels[i].ChannelName < channels[j].ChannelName
		}
		return channels[i].ID < channels[j].ID
	})
	return channels, nil
}

func (r *monitoredChannelRepository) ListUsersByChannel(ctx context.Context, channelID string) ([]int64, error) {
	docs, err := r.list(ctx, r.collection().Where("channel_id", "==", channelID).Where("is_active", "==", true))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list users by channel", goerr.V("channel_id", channelID))
	}

	seen := make(map[int64]struct{})
	userIDs := []int64{}
	for _, doc := range docs {
		if _, ok := seen[doc.UserID]; ok {
			continue
		}
		seen[doc.UserID] = struct{}{}
		userIDs = append(userIDs, doc.UserID)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	return userIDs, nil
}

func (r *monitoredChannelRepository) Get(ctx context.Context, id int64) (*model.MonitoredChannel, error) {
	snap, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get monitored channel", goerr.V("id", id))
	}

	var doc monitoredChannelDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode monitored channel", goerr.V("id", id))
	}
	return doc.toModel(), nil
}

func (r *monitoredChannelRepository) Deactivate(ctx context.Context, userID int64, channelID string) error {
	docs, err := r.list(ctx, r.collection().Where("user_id", "==", userID).Where("channel_id", "==", channelID))
	if err != nil {
		return goerr.Wrap(err, "failed to find channel", goerr.V("user_id", userID), goerr.V("channel_id", channelID))
	}
	if len(docs) == 0 {
		return nil
	}

	batch := r.client.BulkWriter(ctx)
	for _, doc := range docs {
		if _, err := batch.Update(r.docRef(doc.ID), []firestore.Update{{Path: "is_active", Value: false}}); err != nil {
			batch.End()
			return goerr.Wrap(err, "failed to deactivate channel", goerr.V("id", doc.ID))
		}
	}
	batch.End()
	return nil
}

func (r *monitoredChannelRepository) DeactivateByID(ctx context.Context, id int64) error {
	_, err := r.docRef(id).Update(ctx, []firestore.Update{{Path: "is_active", Value: false}})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return goerr.Wrap(err, "failed to deactivate channel", goerr.V("id", id))
	}
	return nil
}

func (r *monitoredChannelRepository) ReplaceAll(ctx context.Context, userID int64, platform types.Platform, specs []model.ChannelSpec) error {
	platform = types.PlatformOrDefault(platform)

	tagged := make([]model.ChannelSpec, len(specs))
	for i, spec := range specs {
		spec.Platform = platform
		tagged[i] = spec
	}

	_, err := r.applyChannels(ctx, userID, tagged, platform)
	return err
}
