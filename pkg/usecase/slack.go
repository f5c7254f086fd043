package usecase

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/slack"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/gaprio/gaprio/pkg/utils/tolerant"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack/slackevents"
)

// SlackUseCases turns Slack Events API callbacks into inbound monitoring events
type SlackUseCases struct {
	monitoring *MonitoringUseCase
	slackSvc   slack.Service
}

// NewSlackUseCases creates a new SlackUseCases instance. slackSvc is optional; when set,
// sender and channel names are resolved and attached to the event metadata.
func NewSlackUseCases(monitoring *MonitoringUseCase, slackSvc slack.Service) *SlackUseCases {
	return &SlackUseCases{
		monitoring: monitoring,
		slackSvc:   slackSvc,
	}
}

// HandleSlackEvent routes human channel messages to every user monitoring the channel.
// Bot messages and message subtypes (edits, joins, deletions) are ignored.
func (uc *SlackUseCases) HandleSlackEvent(ctx context.Context, event *slackevents.EventsAPIEvent) error {
	logger := logging.From(ctx)

	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		logger.Debug("ignoring slack event", "type", event.Type, "innerType", event.InnerEvent.Type)
		return nil
	}
	if ev.BotID != "" || ev.SubType != "" || ev.Text == "" {
		return nil
	}

	metadata := map[string]any{
		"sender":    ev.User,
		"ts":        ev.TimeStamp,
		"thread_ts": ev.ThreadTimeStamp,
		"team_id":   event.TeamID,
	}
	uc.resolveNames(ctx, ev.User, ev.Channel, metadata)

	created, err := uc.monitoring.RouteInboundEvent(ctx, types.PlatformSlack, ev.Channel, ev.Text, metadata)
	if err != nil {
		return goerr.Wrap(err, "failed to route slack message",
			goerr.V(ChannelIDKey, ev.Channel), goerr.V("ts", ev.TimeStamp))
	}

	logger.Info("slack message routed",
		ChannelIDKey, ev.Channel,
		"ts", ev.TimeStamp,
		"created", created,
	)
	return nil
}

// resolveNames adds sender_name and channel_name to metadata. Lookup failures only drop the name.
func (uc *SlackUseCases) resolveNames(ctx context.Context, userID, channelID string, metadata map[string]any) {
	if uc.slackSvc == nil {
		return
	}

	if userID != "" {
		name := tolerant.Call(ctx, "slack.GetUserInfo", "", func(ctx context.Context) (string, error) {
			user, err := uc.slackSvc.GetUserInfo(ctx, userID)
			if err != nil {
				return "", err
			}
			if user.RealName != "" {
				return user.RealName, nil
			}
			return user.Name, nil
		})
		if name != "" {
			metadata["sender_name"] = name
		}
	}

	names := tolerant.Call(ctx, "slack.GetChannelNames", map[string]string{}, func(ctx context.Context) (map[string]string, error) {
		return uc.slackSvc.GetChannelNames(ctx, []string{channelID})
	})
	if name, ok := names[channelID]; ok && name != "" {
		metadata["channel_name"] = name
	}
}
