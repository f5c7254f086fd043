package http

import (
	"encoding/json"
	"time"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/usecase"
)

type actionResponse struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	SourcePlatform  string          `json:"source_platform"`
	SourceChannel   string          `json:"source_channel"`
	SourceContext   string          `json:"source_context"`
	SuggestedTool   string          `json:"suggested_tool"`
	SuggestedParams model.Params    `json:"suggested_params"`
	Description     string          `json:"description"`
	Status          string          `json:"status"`
	EditedParams    model.Params    `json:"edited_params"`
	CreatedAt       time.Time       `json:"created_at"`
	ExecutedAt      *time.Time      `json:"executed_at"`
	ExecutionResult json.RawMessage `json:"execution_result"`
}

func toActionResponse(a *model.SuggestedAction) *actionResponse {
	resp := &actionResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		SourcePlatform:  a.SourcePlatform.String(),
		SourceChannel:   a.SourceChannel,
		SourceContext:   a.SourceContext,
		SuggestedTool:   a.SuggestedTool,
		SuggestedParams: a.SuggestedParams,
		Description:     a.Description,
		Status:          a.Status.String(),
		EditedParams:    a.EditedParams,
		CreatedAt:       a.CreatedAt,
		ExecutedAt:      a.ExecutedAt,
	}
	if len(a.ExecutionResult) > 0 {
		resp.ExecutionResult = a.ExecutionResult
	}
	return resp
}

func toActionResponses(actions []*model.SuggestedAction) []*actionResponse {
	resp := make([]*actionResponse, len(actions))
	for i, a := range actions {
		resp[i] = toActionResponse(a)
	}
	return resp
}

type channelResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Platform    string    `json:"platform"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

func toChannelResponses(channels []*model.MonitoredChannel) []*channelResponse {
	resp := make([]*channelResponse, len(channels))
	for i, ch := range channels {
		resp[i] = &channelResponse{
			ID:          ch.ID,
			UserID:      ch.UserID,
			Platform:    ch.Platform.String(),
			ChannelID:   ch.ChannelID,
			ChannelName: ch.ChannelName,
			IsActive:    ch.IsActive,
			CreatedAt:   ch.CreatedAt,
		}
	}
	return resp
}

type availableChannelResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsPrivate   bool   `json:"is_private"`
	NumMembers  int    `json:"num_members"`
	Topic       string `json:"topic"`
	IsMonitored bool   `json:"is_monitored"`
}

func toAvailableChannelResponses(channels []*model.AvailableChannel) []*availableChannelResponse {
	resp := make([]*availableChannelResponse, len(channels))
	for i, ch := range channels {
		resp[i] = &availableChannelResponse{
			ID:          ch.ID,
			Name:        ch.Name,
			IsPrivate:   ch.IsPrivate,
			NumMembers:  ch.NumMembers,
			Topic:       ch.Topic,
			IsMonitored: ch.IsMonitored,
		}
	}
	return resp
}

type providerChannelResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsPrivate  bool   `json:"is_private"`
	NumMembers int    `json:"num_members"`
}

type providerSummaryResponse struct {
	Platform  string                     `json:"platform"`
	Connected bool                       `json:"connected"`
	Channels  []*providerChannelResponse `json:"channels"`
}

type dashboardResponse struct {
	PendingCount      int                        `json:"pending_count"`
	RecentActions     []*actionResponse          `json:"recent_actions"`
	MonitoredChannels []*channelResponse         `json:"monitored_channels"`
	Providers         []*providerSummaryResponse `json:"providers"`
}

func toProviderChannels(channels []provider.Channel) []*providerChannelResponse {
	resp := make([]*providerChannelResponse, len(channels))
	for i, ch := range channels {
		resp[i] = &providerChannelResponse{
			ID:         ch.ID,
			Name:       ch.Name,
			IsPrivate:  ch.IsPrivate,
			NumMembers: ch.NumMembers,
		}
	}
	return resp
}

func toDashboardResponse(s *usecase.DashboardSummary) *dashboardResponse {
	resp := &dashboardResponse{
		PendingCount:      s.PendingCount,
		RecentActions:     toActionResponses(s.RecentActions),
		MonitoredChannels: toChannelResponses(s.MonitoredChannels),
		Providers:         make([]*providerSummaryResponse, len(s.Providers)),
	}
	for i, p := range s.Providers {
		resp.Providers[i] = &providerSummaryResponse{
			Platform:  p.Platform.String(),
			Connected: p.Connected,
			Channels:  toProviderChannels(p.Channels),
		}
	}
	return resp
}

type sentMessageResponse struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

type chatResponse struct {
	UserMessage *sentMessageResponse `json:"user_message"`
	AIResponse  string               `json:"ai_response"`
	AIReply     *sentMessageResponse `json:"ai_reply"`
}

func toSentMessage(m *provider.SentMessage) *sentMessageResponse {
	if m == nil {
		return nil
	}
	return &sentMessageResponse{ChannelID: m.ChannelID, MessageID: m.MessageID}
}
