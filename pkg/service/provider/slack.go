package provider

import (
	"context"

	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/slack"
	"github.com/m-mizutani/goerr/v2"
)

type slackProvider struct {
	svc slack.Service
}

// NewSlack exposes a Slack service as a MessagingProvider
func NewSlack(svc slack.Service) MessagingProvider {
	return &slackProvider{svc: svc}
}

func (p *slackProvider) Platform() types.Platform {
	return types.PlatformSlack
}

func (p *slackProvider) ListChannels(ctx context.Context) ([]Channel, error) {
	channels, err := p.svc.ListChannels(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list slack channels")
	}

	result := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		result = append(result, Channel{
			ID:         ch.ID,
			Name:       ch.Name,
			IsPrivate:  ch.IsPrivate,
			NumMembers: ch.NumMembers,
			Topic:      ch.Topic,
		})
	}
	return result, nil
}

func (p *slackProvider) SendMessage(ctx context.Context, msg *Message) (*SentMessage, error) {
	posted, err := p.svc.PostMessage(ctx, &slack.Message{
		ChannelID: msg.ChannelID,
		Text:      msg.Text,
		ThreadTS:  msg.ThreadID,
		Username:  msg.SenderName,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send slack message", goerr.V("channel_id", msg.ChannelID))
	}
	return &SentMessage{ChannelID: posted.ChannelID, MessageID: posted.TS}, nil
}
