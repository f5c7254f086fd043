package firestore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type suggestedActionRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newSuggestedActionRepository(client *firestore.Client) *suggestedActionRepository {
	return &suggestedActionRepository{
		client: client,
	}
}

// Structured params are stored as JSON text so that arbitrary nesting survives
// Firestore's map encoding unchanged.
type suggestedActionDoc struct {
	ID              int64      `firestore:"id"`
	UserID          int64      `firestore:"user_id"`
	SourcePlatform  string     `firestore:"source_platform"`
	SourceChannel   string     `firestore:"source_channel"`
	SourceContext   string     `firestore:"source_context"`
	SuggestedTool   string     `firestore:"suggested_tool"`
	SuggestedParams string     `firestore:"suggested_params"`
	Description     string     `firestore:"description"`
	Status          string     `firestore:"status"`
	EditedParams    string     `firestore:"edited_params,omitempty"`
	CreatedAt       time.Time  `firestore:"created_at"`
	ExecutedAt      *time.Time `firestore:"executed_at,omitempty"`
	ExecutionResult string     `firestore:"execution_result,omitempty"`
}

func newSuggestedActionDoc(id int64, action *model.SuggestedAction, now time.Time) (*suggestedActionDoc, error) {
	params := action.SuggestedParams
	if params == nil {
		params = model.Params{}
	}
	suggested, err := model.EncodeParams(params)
	if err != nil {
		return nil, err
	}

	return &suggestedActionDoc{
		ID:              id,
		UserID:          action.UserID,
		SourcePlatform:  types.PlatformOrDefault(action.SourcePlatform).String(),
		SourceChannel:   action.SourceChannel,
		SourceContext:   action.SourceContext,
		SuggestedTool:   action.SuggestedTool,
		SuggestedParams: suggested,
		Description:     action.Description,
		Status:          types.ActionStatusPending.String(),
		CreatedAt:       now,
	}, nil
}

func (d *suggestedActionDoc) toModel() (*model.SuggestedAction, error) {
	suggested, err := model.DecodeParams(d.SuggestedParams)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid suggested_params", goerr.V("id", d.ID))
	}
	if suggested == nil {
		suggested = model.Params{}
	}
	edited, err := model.DecodeParams(d.EditedParams)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid edited_params", goerr.V("id", d.ID))
	}

	action := &model.SuggestedAction{
		ID:              d.ID,
		UserID:          d.UserID,
		SourcePlatform:  types.Platform(d.SourcePlatform),
		SourceChannel:   d.SourceChannel,
		SourceContext:   d.SourceContext,
		SuggestedTool:   d.SuggestedTool,
		SuggestedParams: suggested,
		Description:     d.Description,
		Status:          types.ActionStatus(d.Status),
		EditedParams:    edited,
		CreatedAt:       d.CreatedAt.UTC(),
		ExecutionResult: model.DecodeResult(d.ExecutionResult),
	}
	if d.ExecutedAt != nil {
		t := d.ExecutedAt.UTC()
		action.ExecutedAt = &t
	}
	return action, nil
}

func (r *suggestedActionRepository) collection() *firestore.CollectionRef {
	return r.client.Collection(prefixed(r.collectionPrefix, SuggestedActionsCollection))
}

func (r *suggestedActionRepository) counterRef() *firestore.DocumentRef {
	return r.client.Collection(prefixed(r.collectionPrefix, "counters")).Doc("suggested_action_counter")
}

func (r *suggestedActionRepository) docRef(id int64) *firestore.DocumentRef {
	return r.collection().Doc(fmt.Sprintf("%d", id))
}

func (r *suggestedActionRepository) Create(ctx context.Context, action *model.SuggestedAction) (*model.SuggestedAction, error) {
	var doc *suggestedActionDoc
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		id, err := reserveIDs(tx, r.counterRef(), 1)
		if err != nil {
			return err
		}

		doc, err = newSuggestedActionDoc(id, action, time.Now().UTC())
		if err != nil {
			return err
		}
		return tx.Create(r.docRef(id), doc)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create suggested action", goerr.V("user_id", action.UserID))
	}

	return doc.toModel()
}

func (r *suggestedActionRepository) CreateMany(ctx context.Context, actions []*model.SuggestedAction) (int, error) {
	if len(actions) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	var firstID int64
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		var err error
		firstID, err = reserveIDs(tx, r.counterRef(), len(actions))
		if err != nil {
			return err
		}

		for i, action := range actions {
			id := firstID + int64(i)
			doc, err := newSuggestedActionDoc(id, action, now)
			if err != nil {
				return err
			}
			if err := tx.Create(r.docRef(id), doc); err != nil {
				return goerr.Wrap(err, "failed to create suggested action", goerr.V("id", id))
			}
		}
		return nil
	})
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create suggested actions", goerr.V("count", len(actions)))
	}

	for i, action := range actions {
		action.ID = firstID + int64(i)
		action.Status = types.ActionStatusPending
		action.CreatedAt = now
	}
	return len(actions), nil
}

func (r *suggestedActionRepository) Get(ctx context.Context, id int64) (*model.SuggestedAction, error) {
	snap, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get suggested action", goerr.V("id", id))
	}

	var doc suggestedActionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode suggested action", goerr.V("id", id))
	}
	return doc.toModel()
}

func (r *suggestedActionRepository) ListByUser(ctx context.Context, userID int64, status types.ActionStatus, limit int) ([]*model.SuggestedAction, error) {
	if limit <= 0 {
		limit = interfaces.DefaultListLimit
	}

	q := r.collection().Where("user_id", "==", userID)
	if status != "" {
		q = q.Where("status", "==", status.String())
	}
	q = q.OrderBy("created_at", firestore.Desc).OrderBy("id", firestore.Desc).Limit(limit)

	iter := q.Documents(ctx)
	defer iter.Stop()

	actions := make([]*model.SuggestedAction, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate suggested actions", goerr.V("user_id", userID))
		}

		var doc suggestedActionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode suggested action", goerr.V("doc_id", snap.Ref.ID))
		}
		action, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		actions = append(actions, action)
	}

	return actions, nil
}

func (r *suggestedActionRepository) CountPending(ctx context.Context, userID int64) (int, error) {
	q := r.collection().
		Where("user_id", "==", userID).
		Where("status", "==", types.ActionStatusPending.String())

	res, err := q.NewAggregationQuery().WithCount("count").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count pending actions", goerr.V("user_id", userID))
	}

	v, ok := res["count"].(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected aggregation result", goerr.V("result", res))
	}
	return int(v.GetIntegerValue()), nil
}

// updatePending applies updates only while the action is pending
func (r *suggestedActionRepository) updatePending(ctx context.Context, id int64, updates []firestore.Update) error {
	ref := r.docRef(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return nil
			}
			return goerr.Wrap(err, "failed to get suggested action", goerr.V("id", id))
		}

		current, err := snap.DataAt("status")
		if err != nil {
			return goerr.Wrap(err, "failed to get status", goerr.V("id", id))
		}
		if current != types.ActionStatusPending.String() {
			return nil
		}

		return tx.Update(ref, updates)
	})
}

func (r *suggestedActionRepository) UpdateParams(ctx context.Context, id int64, params model.Params) error {
	if params == nil {
		params = model.Params{}
	}
	encoded, err := model.EncodeParams(params)
	if err != nil {
		return err
	}

	if err := r.updatePending(ctx, id, []firestore.Update{
		{Path: "edited_params", Value: encoded},
	}); err != nil {
		return goerr.Wrap(err, "failed to update params", goerr.V("id", id))
	}
	return nil
}

func (r *suggestedActionRepository) UpdateStatus(ctx context.Context, id int64, status types.ActionStatus, result json.RawMessage) error {
	if !types.ActionStatusPending.CanTransitionTo(status) {
		return nil
	}

	updates := []firestore.Update{
		{Path: "status", Value: status.String()},
	}
	if status == types.ActionStatusExecuted {
		updates = append(updates, firestore.Update{Path: "executed_at", Value: time.Now().UTC()})
		if result != nil {
			updates = append(updates, firestore.Update{Path: "execution_result", Value: model.EncodeResult(result)})
		}
	}

	if err := r.updatePending(ctx, id, updates); err != nil {
		return goerr.Wrap(err, "failed to update status", goerr.V("id", id), goerr.V("status", status))
	}
	return nil
}

func (r *suggestedActionRepository) ExpireOld(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	iter := r.collection().
		Where("status", "==", types.ActionStatusPending.String()).
		Where("created_at", "<", cutoff).
		Documents(ctx)
	defer iter.Stop()

	bw := r.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return 0, goerr.Wrap(err, "failed to iterate stale actions", goerr.V("cutoff", cutoff))
		}

		// The precondition skips documents changed since they were read
		job, err := bw.Update(snap.Ref, []firestore.Update{
			{Path: "status", Value: types.ActionStatusExpired.String()},
		}, firestore.LastUpdateTime(snap.UpdateTime))
		if err != nil {
			bw.End()
			return 0, goerr.Wrap(err, "failed to enqueue expiry", goerr.V("doc_id", snap.Ref.ID))
		}
		jobs = append(jobs, job)
	}
	bw.End()

	count := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			if status.Code(err) == codes.FailedPrecondition {
				continue
			}
			return count, goerr.Wrap(err, "failed to expire action")
		}
		count++
	}
	return count, nil
}
