package usecase

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/m-mizutani/goerr/v2"
)

// ChannelUseCase manages the channels a user monitors
type ChannelUseCase struct {
	repo      interfaces.Repository
	providers *provider.Registry
}

func NewChannelUseCase(repo interfaces.Repository, providers *provider.Registry) *ChannelUseCase {
	return &ChannelUseCase{
		repo:      repo,
		providers: providers,
	}
}

func (uc *ChannelUseCase) ListChannels(ctx context.Context, userID int64, platform types.Platform) ([]*model.MonitoredChannel, error) {
	if platform != "" && !platform.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid platform", goerr.V(PlatformKey, platform))
	}

	channels, err := uc.repo.MonitoredChannel().ListByUser(ctx, userID, platform)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list channels", goerr.V(UserIDKey, userID))
	}
	return channels, nil
}

// SetChannels replaces the user's monitored channels on platform with specs and
// returns the resulting active set
func (uc *ChannelUseCase) SetChannels(ctx context.Context, userID int64, platform types.Platform, specs []model.ChannelSpec) ([]*model.MonitoredChannel, error) {
	if !platform.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid platform", goerr.V(PlatformKey, platform))
	}
	for _, spec := range specs {
		if spec.ChannelID == "" {
			return nil, goerr.Wrap(ErrInvalidInput, "channel id is required", goerr.V(PlatformKey, platform))
		}
	}

	if err := uc.repo.MonitoredChannel().ReplaceAll(ctx, userID, platform, specs); err != nil {
		return nil, goerr.Wrap(err, "failed to replace channels",
			goerr.V(UserIDKey, userID), goerr.V(PlatformKey, platform))
	}

	return uc.ListChannels(ctx, userID, platform)
}

// RemoveChannel deactivates a monitored channel record owned by userID
func (uc *ChannelUseCase) RemoveChannel(ctx context.Context, userID, id int64) error {
	ch, err := uc.repo.MonitoredChannel().Get(ctx, id)
	if err != nil {
		return goerr.Wrap(err, "failed to get channel", goerr.V("id", id))
	}
	if ch == nil {
		return goerr.Wrap(ErrChannelNotFound, "channel not found", goerr.V("id", id))
	}
	if ch.UserID != userID {
		return goerr.Wrap(ErrUnauthorized, "channel belongs to another user",
			goerr.V("id", id), goerr.V(UserIDKey, userID))
	}

	if err := uc.repo.MonitoredChannel().DeactivateByID(ctx, id); err != nil {
		return goerr.Wrap(err, "failed to deactivate channel", goerr.V("id", id))
	}
	return nil
}

// AvailableChannels lists the provider's channels, flagging those the user already monitors
func (uc *ChannelUseCase) AvailableChannels(ctx context.Context, userID int64, platform types.Platform) ([]*model.AvailableChannel, error) {
	platform = types.PlatformOrDefault(platform)
	if !platform.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid platform", goerr.V(PlatformKey, platform))
	}

	p, err := uc.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	channels, err := p.ListChannels(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list provider channels", goerr.V(PlatformKey, platform))
	}

	monitored, err := uc.repo.MonitoredChannel().ListByUser(ctx, userID, platform)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list monitored channels", goerr.V(UserIDKey, userID))
	}
	active := make(map[string]struct{}, len(monitored))
	for _, ch := range monitored {
		active[ch.ChannelID] = struct{}{}
	}

	result := make([]*model.AvailableChannel, 0, len(channels))
	for _, ch := range channels {
		_, isMonitored := active[ch.ID]
		result = append(result, &model.AvailableChannel{
			ID:          ch.ID,
			Name:        ch.Name,
			IsPrivate:   ch.IsPrivate,
			NumMembers:  ch.NumMembers,
			Topic:       ch.Topic,
			IsMonitored: isMonitored,
		})
	}
	return result, nil
}
