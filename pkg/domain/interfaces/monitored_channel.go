package interfaces

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
)

// MonitoredChannelRepository defines the interface for MonitoredChannel data access
type MonitoredChannelRepository interface {
	// Upsert inserts the channel or reactivates it and refreshes its name
	Upsert(ctx context.Context, userID int64, spec model.ChannelSpec) (*model.MonitoredChannel, error)

	// BulkUpsert upserts all specs. Empty input is a no-op.
	BulkUpsert(ctx context.Context, userID int64, specs []model.ChannelSpec) error

	// ListByUser returns active channels ordered by name. Empty platform matches any platform.
	ListByUser(ctx context.Context, userID int64, platform types.Platform) ([]*model.MonitoredChannel, error)

	// ListUsersByChannel returns distinct user IDs actively monitoring the channel, ascending
	ListUsersByChannel(ctx context.Context, channelID string) ([]int64, error)

	// Get retrieves a channel record by ID. Returns nil without error if absent.
	Get(ctx context.Context, id int64) (*model.MonitoredChannel, error)

	// Deactivate deactivates the user's records for channelID on every platform
	Deactivate(ctx context.Context, userID int64, channelID string) error

	// DeactivateByID deactivates a single record
	DeactivateByID(ctx context.Context, id int64) error

	// ReplaceAll deactivates the user's active channels on platform, then upserts specs on that platform
	ReplaceAll(ctx context.Context, userID int64, platform types.Platform, specs []model.ChannelSpec) error
}
