package usecase

import (
	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model/config"
	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/service/slack"
)

type UseCases struct {
	repo      interfaces.Repository
	agent     agent.Service
	providers *provider.Registry
	policy    *config.MonitoringPolicy
	slackSvc  slack.Service

	Monitoring *MonitoringUseCase
	Action     *ActionUseCase
	Channel    *ChannelUseCase
	Dashboard  *DashboardUseCase
	Chat       *ChatUseCase
	Slack      *SlackUseCases
}

type Option func(*UseCases)

// WithAgent sets the reasoning service client. Without it analysis is skipped and
// execution fails.
func WithAgent(svc agent.Service) Option {
	return func(uc *UseCases) {
		uc.agent = svc
	}
}

func WithProviders(reg *provider.Registry) Option {
	return func(uc *UseCases) {
		uc.providers = reg
	}
}

// WithSlackService enables name resolution for inbound Slack events
func WithSlackService(svc slack.Service) Option {
	return func(uc *UseCases) {
		uc.slackSvc = svc
	}
}

func WithMonitoringPolicy(policy *config.MonitoringPolicy) Option {
	return func(uc *UseCases) {
		uc.policy = policy
	}
}

func New(repo interfaces.Repository, opts ...Option) *UseCases {
	uc := &UseCases{
		repo: repo,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if uc.policy == nil {
		uc.policy = config.DefaultMonitoringPolicy()
	}
	if uc.providers == nil {
		uc.providers = provider.NewRegistry()
	}

	uc.Monitoring = NewMonitoringUseCase(repo, uc.agent, uc.policy)
	uc.Action = NewActionUseCase(repo, uc.agent)
	uc.Channel = NewChannelUseCase(repo, uc.providers)
	uc.Dashboard = NewDashboardUseCase(repo, uc.providers)
	uc.Chat = NewChatUseCase(uc.agent, uc.providers)
	uc.Slack = NewSlackUseCases(uc.Monitoring, uc.slackSvc)

	return uc
}

// Policy returns the monitoring policy in effect
func (uc *UseCases) Policy() *config.MonitoringPolicy {
	return uc.policy
}
