package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
)

type suggestedActionRepository struct {
	mu      sync.RWMutex
	actions map[int64]*model.SuggestedAction
	nextID  int64
}

func newSuggestedActionRepository() *suggestedActionRepository {
	return &suggestedActionRepository{
		actions: make(map[int64]*model.SuggestedAction),
		nextID:  1,
	}
}

// insert must be called with the write lock held
func (r *suggestedActionRepository) insert(action *model.SuggestedAction, now time.Time) *model.SuggestedAction {
	created := action.Copy()
	created.ID = r.nextID
	created.Status = types.ActionStatusPending
	created.CreatedAt = now
	created.ExecutedAt = nil
	created.ExecutionResult = nil
	if created.SuggestedParams == nil {
		created.SuggestedParams = model.Params{}
	}
	r.nextID++

	r.actions[created.ID] = created
	return created
}

func (r *suggestedActionRepository) Create(ctx context.Context, action *model.SuggestedAction) (*model.SuggestedAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := r.insert(action, time.Now().UTC())
	return created.Copy(), nil
}

func (r *suggestedActionRepository) CreateMany(ctx context.Context, actions []*model.SuggestedAction) (int, error) {
	if len(actions) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	for _, action := range actions {
		created := r.insert(action, now)
		action.ID = created.ID
		action.Status = created.Status
		action.CreatedAt = created.CreatedAt
	}
	return len(actions), nil
}

func (r *suggestedActionRepository) Get(ctx context.Context, id int64) (*model.SuggestedAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, exists := r.actions[id]
	if !exists {
		return nil, nil
	}
	return action.Copy(), nil
}

func (r *suggestedActionRepository) ListByUser(ctx context.Context, userID int64, status types.ActionStatus, limit int) ([]*model.SuggestedAction, error) {
	if limit <= 0 {
		limit = interfaces.DefaultListLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*model.SuggestedAction
	for _, action := range r.actions {
		if action.UserID != userID {
			continue
		}
		if status != "" && action.Status != status {
			continue
		}
		result = append(result, action)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if len(result) > limit {
		result = result[:limit]
	}

	copied := make([]*model.SuggestedAction, len(result))
	for i, action := range result {
		copied[i] = action.Copy()
	}
	return copied, nil
}

func (r *suggestedActionRepository) CountPending(ctx context.Context, userID int64) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, action := range r.actions {
		if action.UserID == userID && action.Status == types.ActionStatusPending {
			count++
		}
	}
	return count, nil
}

func (r *suggestedActionRepository) UpdateParams(ctx context.Context, id int64, params model.Params) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	action, exists := r.actions[id]
	if !exists || action.Status != types.ActionStatusPending {
		return nil
	}

	if params == nil {
		params = model.Params{}
	}
	action.EditedParams = params.Clone()
	return nil
}

func (r *suggestedActionRepository) UpdateStatus(ctx context.Context, id int64, status types.ActionStatus, result json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	action, exists := r.actions[id]
	if !exists || !action.Status.CanTransitionTo(status) {
		return nil
	}

	action.Status = status
	if status == types.ActionStatusExecuted {
		now := time.Now().UTC()
		action.ExecutedAt = &now
		if result != nil {
			action.ExecutionResult = append(json.RawMessage(nil), result...)
		}
	}
	return nil
}

func (r *suggestedActionRepository) ExpireOld(ctx context.Context, olderThan time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-olderThan)
	count := 0
	for _, action := range r.actions {
		if action.Status == types.ActionStatusPending && action.CreatedAt.Before(cutoff) {
			action.Status = types.ActionStatusExpired
			count++
		}
	}
	return count, nil
}
