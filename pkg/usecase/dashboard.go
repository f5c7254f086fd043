package usecase

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/utils/tolerant"
	"golang.org/x/sync/errgroup"
)

const dashboardRecentLimit = 10

// ProviderSummary is the dashboard view of one configured provider
type ProviderSummary struct {
	Platform  types.Platform
	Connected bool
	Channels  []provider.Channel
}

// DashboardSummary aggregates the user's review queue and workspace state
type DashboardSummary struct {
	PendingCount      int
	RecentActions     []*model.SuggestedAction
	MonitoredChannels []*model.MonitoredChannel
	Providers         []ProviderSummary
}

// DashboardUseCase builds the dashboard. Every part degrades to an empty value
// on failure, so the summary itself never fails.
type DashboardUseCase struct {
	repo      interfaces.Repository
	providers *provider.Registry
}

func NewDashboardUseCase(repo interfaces.Repository, providers *provider.Registry) *DashboardUseCase {
	return &DashboardUseCase{
		repo:      repo,
		providers: providers,
	}
}

func (uc *DashboardUseCase) Summary(ctx context.Context, userID int64) *DashboardSummary {
	summary := &DashboardSummary{}
	platforms := uc.providers.Platforms()
	summary.Providers = make([]ProviderSummary, len(platforms))

	var eg errgroup.Group

	eg.Go(func() error {
		summary.PendingCount = tolerant.Call(ctx, "pending_count", 0, func(ctx context.Context) (int, error) {
			return uc.repo.SuggestedAction().CountPending(ctx, userID)
		})
		return nil
	})

	eg.Go(func() error {
		summary.RecentActions = tolerant.Call(ctx, "recent_actions", []*model.SuggestedAction{}, func(ctx context.Context) ([]*model.SuggestedAction, error) {
			return uc.repo.SuggestedAction().ListByUser(ctx, userID, types.ActionStatusPending, dashboardRecentLimit)
		})
		return nil
	})

	eg.Go(func() error {
		summary.MonitoredChannels = tolerant.Call(ctx, "monitored_channels", []*model.MonitoredChannel{}, func(ctx context.Context) ([]*model.MonitoredChannel, error) {
			return uc.repo.MonitoredChannel().ListByUser(ctx, userID, "")
		})
		return nil
	})

	for i, platform := range platforms {
		eg.Go(func() error {
			ps := tolerant.Call(ctx, "provider_channels:"+platform.String(), ProviderSummary{Platform: platform, Channels: []provider.Channel{}},
				func(ctx context.Context) (ProviderSummary, error) {
					p, err := uc.providers.Get(platform)
					if err != nil {
						return ProviderSummary{}, err
					}
					channels, err := p.ListChannels(ctx)
					if err != nil {
						return ProviderSummary{}, err
					}
					return ProviderSummary{Platform: platform, Connected: true, Channels: channels}, nil
				})
			summary.Providers[i] = ps
			return nil
		})
	}

	// Every goroutine swallows its error through tolerant.Call
	_ = eg.Wait()

	return summary
}
