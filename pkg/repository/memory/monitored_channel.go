package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
)

type monitoredChannelRepository struct {
	mu       sync.RWMutex
	channels map[int64]*model.MonitoredChannel
	byKey    map[model.ChannelKey]int64
	nextID   int64
}

func newMonitoredChannelRepository() *monitoredChannelRepository {
	return &monitoredChannelRepository{
		channels: make(map[int64]*model.MonitoredChannel),
		byKey:    make(map[model.ChannelKey]int64),
		nextID:   1,
	}
}

func copyChannel(c *model.MonitoredChannel) *model.MonitoredChannel {
	copied := *c
	return &copied
}

// upsert must be called with the write lock held
func (r *monitoredChannelRepository) upsert(userID int64, spec model.ChannelSpec) *model.MonitoredChannel {
	platform := types.PlatformOrDefault(spec.Platform)
	key := model.ChannelKey{UserID: userID, Platform: platform, ChannelID: spec.ChannelID}

	if id, exists := r.byKey[key]; exists {
		ch := r.channels[id]
		ch.ChannelName = spec.ChannelName
		ch.IsActive = true
		return ch
	}

	ch := &model.MonitoredChannel{
		ID:          r.nextID,
		UserID:      userID,
		Platform:    platform,
		ChannelID:   spec.ChannelID,
		ChannelName: spec.ChannelName,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	r.nextID++
	r.channels[ch.ID] = ch
	r.byKey[key] = ch.ID
	return ch
}

func (r *monitoredChannelRepository) Upsert(ctx context.Context, userID int64, spec model.ChannelSpec) (*model.MonitoredChannel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return copyChannel(r.upsert(userID, spec)), nil
}

func (r *monitoredChannelRepository) BulkUpsert(ctx context.Context, userID int64, specs []model.ChannelSpec) error {
	if len(specs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, spec := range specs {
		r.upsert(userID, spec)
	}
	return nil
}

func (r *monitoredChannelRepository) ListByUser(ctx context.Context, userID int64, platform types.Platform) ([]*model.MonitoredChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := []*model.MonitoredChannel{}
	for _, ch := range r.channels {
		if ch.UserID != userID || !ch.IsActive {
			continue
		}
		if platform != "" && ch.Platform != platform {
			continue
		}
		result = append(result, copyChannel(ch))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ChannelName != result[j].ChannelName {
			return result[i].ChannelName < result[j].ChannelName
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *monitoredChannelRepository) ListUsersByChannel(ctx context.Context, channelID string) ([]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[int64]struct{})
	userIDs := []int64{}
	for _, ch := range r.channels {
		if ch.ChannelID != channelID || !ch.IsActive {
			continue
		}
		if _, ok := seen[ch.UserID]; ok {
			continue
		}
		seen[ch.UserID] = struct{}{}
		userIDs = append(userIDs, ch.UserID)
	}

	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })
	return userIDs, nil
}

func (r *monitoredChannelRepository) Get(ctx context.Context, id int64) (*model.MonitoredChannel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ch, exists := r.channels[id]
	if !exists {
		return nil, nil
	}
	return copyChannel(ch), nil
}

func (r *monitoredChannelRepository) Deactivate(ctx context.Context, userID int64, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.channels {
		if ch.UserID == userID && ch.ChannelID == channelID {
			ch.IsActive = false
		}
	}
	return nil
}

func (r *monitoredChannelRepository) DeactivateByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ch, exists := r.channels[id]; exists {
		ch.IsActive = false
	}
	return nil
}

func (r *monitoredChannelRepository) ReplaceAll(ctx context.Context, userID int64, platform types.Platform, specs []model.ChannelSpec) error {
	platform = types.PlatformOrDefault(platform)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ch := range r.channels {
		if ch.UserID == userID && ch.Platform == platform {
			ch.IsActive = false
		}
	}
	for _, spec := range specs {
		spec.Platform = platform
		r.upsert(userID, spec)
	}
	return nil
}
