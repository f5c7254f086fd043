package usecase

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/gaprio/gaprio/pkg/domain/interfaces"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/model/config"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/utils/errutil"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// MonitoringUseCase turns inbound channel events into suggested actions
type MonitoringUseCase struct {
	repo   interfaces.Repository
	agent  agent.Service
	policy *config.MonitoringPolicy
}

func NewMonitoringUseCase(repo interfaces.Repository, agentSvc agent.Service, policy *config.MonitoringPolicy) *MonitoringUseCase {
	if policy == nil {
		policy = config.DefaultMonitoringPolicy()
	}
	return &MonitoringUseCase{
		repo:   repo,
		agent:  agentSvc,
		policy: policy,
	}
}

// ProcessEvent asks the reasoning service for suggestions about text and stores
// them for userID. Short text, an unreachable agent and agent errors all yield an
// empty result without error; only store failures are returned.
func (uc *MonitoringUseCase) ProcessEvent(ctx context.Context, userID int64, platform types.Platform, channelID, text string, metadata map[string]any) ([]*model.SuggestedAction, error) {
	platform = types.PlatformOrDefault(platform)
	if !platform.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, platform))
	}
	logger := logging.From(ctx).With(UserIDKey, userID, PlatformKey, platform, ChannelIDKey, channelID)

	if utf8.RuneCountInString(strings.TrimSpace(text)) < uc.policy.MinContextLength {
		return []*model.SuggestedAction{}, nil
	}
	if uc.agent == nil {
		logger.Warn("agent is not configured, skipping analysis")
		return []*model.SuggestedAction{}, nil
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	logger.Info("processing event", "preview", model.TruncateRunes(text, 80))

	resp, err := uc.agent.AnalyzeContext(ctx, &agent.AnalyzeRequest{
		UserID:    userID,
		Platform:  platform.String(),
		ChannelID: channelID,
		Context:   text,
		Metadata:  metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, agent.ErrUnavailable), errors.Is(err, agent.ErrTimeout):
			logger.Warn("agent is offline, skipping analysis", "error", err.Error())
		default:
			errutil.Handle(ctx, err, "failed to analyze event")
		}
		return []*model.SuggestedAction{}, nil
	}

	if len(resp.Suggestions) == 0 {
		logger.Debug("no actions suggested")
		return []*model.SuggestedAction{}, nil
	}

	sourceContext := model.TruncateRunes(text, uc.policy.MaxContextLength)
	actions := make([]*model.SuggestedAction, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if s.Tool == "" {
			logger.Warn("ignoring suggestion without tool", "description", s.Description)
			continue
		}
		actions = append(actions, model.NewSuggestedAction(
			userID, platform, channelID, sourceContext,
			s.Tool, model.Params(s.ResolvedParams()), s.Description,
		))
	}
	if len(actions) == 0 {
		return []*model.SuggestedAction{}, nil
	}

	if _, err := uc.repo.SuggestedAction().CreateMany(ctx, actions); err != nil {
		return nil, goerr.Wrap(err, "failed to store suggested actions",
			goerr.V(UserIDKey, userID), goerr.V("count", len(actions)))
	}

	logger.Info("stored suggested actions", "count", len(actions))
	return actions, nil
}

// RouteInboundEvent forwards an event to every user monitoring the channel and
// returns the number of actions created. A failure for one user does not stop the others.
func (uc *MonitoringUseCase) RouteInboundEvent(ctx context.Context, platform types.Platform, channelID, text string, metadata map[string]any) (int, error) {
	platform = types.PlatformOrDefault(platform)
	if !platform.IsValid() {
		return 0, goerr.Wrap(ErrInvalidInput, "unknown platform", goerr.V(PlatformKey, platform))
	}

	userIDs, err := uc.repo.MonitoredChannel().ListUsersByChannel(ctx, channelID)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to resolve monitoring users", goerr.V(ChannelIDKey, channelID))
	}
	if len(userIDs) == 0 {
		return 0, nil
	}

	total := 0
	for _, userID := range userIDs {
		created, err := uc.ProcessEvent(ctx, userID, platform, channelID, text, metadata)
		if err != nil {
			errutil.Handle(ctx, goerr.Wrap(err, "failed to process event for user", goerr.V(UserIDKey, userID)), "inbound event routing")
			continue
		}
		total += len(created)
	}
	return total, nil
}

// MonitoringUsers returns the users actively monitoring channelID
func (uc *MonitoringUseCase) MonitoringUsers(ctx context.Context, channelID string) ([]int64, error) {
	userIDs, err := uc.repo.MonitoredChannel().ListUsersByChannel(ctx, channelID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list monitoring users", goerr.V(ChannelIDKey, channelID))
	}
	return userIDs, nil
}
