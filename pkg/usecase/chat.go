package usecase

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Replies used when the reasoning service cannot answer
const (
	ChatReplyOffline    = "Gaprio AI is currently offline. Your message was sent but the AI could not process it."
	ChatReplyTimeout    = "The AI is still processing your request. Check the channel for updates shortly."
	ChatReplyFailed     = "AI processing failed. Your message was still sent."
	ChatReplyEmpty      = "I processed your request."
	chatReplyPrefix     = "*Gaprio AI:*\n"
	defaultChatSender   = "User"
	chatTimestampMarker = "Timestamp:"
)

var (
	userMentionPattern    = regexp.MustCompile(`<@[A-Z0-9]+>`)
	channelMentionPattern = regexp.MustCompile(`<#([A-Z0-9]+)\|?([^>]*)>`)
	timestampPattern      = regexp.MustCompile(chatTimestampMarker + `\s*[\d.]+`)
	blankLinesPattern     = regexp.MustCompile(`\n{3,}`)
)

// ChatResult is the outcome of a relayed conversation turn
type ChatResult struct {
	UserMessage *provider.SentMessage
	AIResponse  string
	AIReply     *provider.SentMessage
}

// ChatUseCase relays a user's message to a channel and to the reasoning service,
// then posts the answer as a thread reply
type ChatUseCase struct {
	agent     agent.Service
	providers *provider.Registry
}

func NewChatUseCase(agentSvc agent.Service, providers *provider.Registry) *ChatUseCase {
	return &ChatUseCase{
		agent:     agentSvc,
		providers: providers,
	}
}

// cleanMessage removes user mentions and rewrites channel mentions to #name
func cleanMessage(message string) string {
	message = userMentionPattern.ReplaceAllString(message, "")
	message = channelMentionPattern.ReplaceAllStringFunc(message, func(m string) string {
		sub := channelMentionPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return "#" + sub[2]
		}
		return "#" + sub[1]
	})
	return strings.TrimSpace(message)
}

// cleanReply strips raw API artifacts from the agent's answer
func cleanReply(reply string) string {
	reply = timestampPattern.ReplaceAllString(reply, "")
	reply = channelMentionPattern.ReplaceAllStringFunc(reply, func(m string) string {
		sub := channelMentionPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return "#" + sub[2]
		}
		return "#channel"
	})
	reply = blankLinesPattern.ReplaceAllString(reply, "\n\n")
	return strings.TrimSpace(reply)
}

func (uc *ChatUseCase) ask(ctx context.Context, userID int64, message string) string {
	if uc.agent == nil {
		return ChatReplyOffline
	}

	resp, err := uc.agent.Ask(ctx, &agent.AskRequest{UserID: userID, Message: message})
	switch {
	case err == nil:
		if resp.Message == "" {
			return ChatReplyEmpty
		}
		return cleanReply(resp.Message)
	case errors.Is(err, agent.ErrUnavailable):
		return ChatReplyOffline
	case errors.Is(err, agent.ErrTimeout):
		return ChatReplyTimeout
	default:
		logging.From(ctx).Error("agent chat failed", "error", err.Error(), UserIDKey, userID)
		return ChatReplyFailed
	}
}

// Relay posts message to the channel under senderName, asks the reasoning
// service, and replies in the message's thread. Only provider failures are returned.
func (uc *ChatUseCase) Relay(ctx context.Context, userID int64, platform types.Platform, channelID, message, senderName string) (*ChatResult, error) {
	platform = types.PlatformOrDefault(platform)
	if channelID == "" || strings.TrimSpace(message) == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "channel id and message are required")
	}
	if senderName == "" {
		senderName = defaultChatSender
	}

	p, err := uc.providers.Get(platform)
	if err != nil {
		return nil, err
	}

	sent, err := p.SendMessage(ctx, &provider.Message{
		ChannelID:  channelID,
		Text:       message,
		SenderName: senderName,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send user message",
			goerr.V(PlatformKey, platform), goerr.V(ChannelIDKey, channelID))
	}

	answer := uc.ask(ctx, userID, cleanMessage(message))

	reply, err := p.SendMessage(ctx, &provider.Message{
		ChannelID: channelID,
		Text:      chatReplyPrefix + answer,
		ThreadID:  sent.MessageID,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to send AI reply",
			goerr.V(PlatformKey, platform), goerr.V(ChannelIDKey, channelID))
	}

	return &ChatResult{
		UserMessage: sent,
		AIResponse:  answer,
		AIReply:     reply,
	}, nil
}
