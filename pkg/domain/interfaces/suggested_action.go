package interfaces

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
)

// DefaultListLimit is applied when ListByUser is called with a non-positive limit
const DefaultListLimit = 50

// SuggestedActionRepository defines the interface for SuggestedAction data access
type SuggestedActionRepository interface {
	// Create inserts a pending action with an auto-generated ID and creation time
	Create(ctx context.Context, action *model.SuggestedAction) (*model.SuggestedAction, error)

	// CreateMany inserts all actions or none of them and returns the number inserted.
	// On success ID, Status and CreatedAt of every element are filled in.
	CreateMany(ctx context.Context, actions []*model.SuggestedAction) (int, error)

	// Get retrieves an action by ID. Returns nil without error if absent.
	Get(ctx context.Context, id int64) (*model.SuggestedAction, error)

	// ListByUser returns the user's actions newest first. Empty status matches any status.
	ListByUser(ctx context.Context, userID int64, status types.ActionStatus, limit int) ([]*model.SuggestedAction, error)

	// CountPending returns the number of pending actions owned by the user
	CountPending(ctx context.Context, userID int64) (int, error)

	// UpdateParams sets edited params while the action is pending. Otherwise no-op.
	UpdateParams(ctx context.Context, id int64, params model.Params) error

	// UpdateStatus moves a pending action to status. Executed also records the
	// execution time and the result when non-nil. Otherwise no-op.
	UpdateStatus(ctx context.Context, id int64, status types.ActionStatus, result json.RawMessage) error

	// ExpireOld marks pending actions created before now-olderThan as expired
	ExpireOld(ctx context.Context, olderThan time.Duration) (int, error)
}
