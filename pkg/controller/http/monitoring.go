package http

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/model/auth"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

// principalUserID returns the authenticated user of the request
func principalUserID(r *http.Request) (int64, error) {
	p := auth.PrincipalFromContext(r.Context())
	if p == nil {
		return 0, goerr.Wrap(usecase.ErrUnauthenticated, "no principal in request context")
	}
	return p.UserID, nil
}

func pathID(r *http.Request, key string) (int64, error) {
	raw := chi.URLParam(r, key)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, goerr.Wrap(usecase.ErrInvalidInput, "invalid id", goerr.V(key, raw))
	}
	return id, nil
}

func listActionsHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
		if err != nil || limit <= 0 {
			limit = 0
		}
		status := types.ActionStatus(r.URL.Query().Get("status"))

		actions, err := uc.ListActions(ctx, userID, status, limit)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeData(ctx, w, toActionResponses(actions))
	}
}

func countActionsHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		count, err := uc.PendingCount(ctx, userID)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"success": true,
			"count":   count,
		})
	}
}

type updateActionRequest struct {
	Params model.Params `json:"params"`
}

func updateActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		actionID, err := pathID(r, "id")
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		var req updateActionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(ctx, w, err)
			return
		}

		if err := uc.UpdateParams(ctx, userID, actionID, req.Params); err != nil {
			handleError(ctx, w, err)
			return
		}
		writeMessage(ctx, w, "Action parameters updated")
	}
}

type executionResponse struct {
	Success bool `json:"success"`
	Result  any  `json:"result"`
}

func executeActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		actionID, err := pathID(r, "id")
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		result, err := uc.ExecuteAction(ctx, userID, actionID)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		resp := executionResponse{Success: result.Success}
		if len(result.Result) > 0 {
			resp.Result = result.Result
		}
		writeData(ctx, w, resp)
	}
}

func rejectActionHandler(uc *usecase.ActionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		actionID, err := pathID(r, "id")
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		if err := uc.RejectAction(ctx, userID, actionID); err != nil {
			handleError(ctx, w, err)
			return
		}
		writeMessage(ctx, w, "Action dismissed")
	}
}

func listChannelsHandler(uc *usecase.ChannelUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		channels, err := uc.ListChannels(ctx, userID, types.Platform(r.URL.Query().Get("platform")))
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeData(ctx, w, toChannelResponses(channels))
	}
}

type channelSpecRequest struct {
	ChannelID   string `json:"channelId"`
	ChannelName string `json:"channelName"`
}

type setChannelsRequest struct {
	Platform string                `json:"platform"`
	Channels *[]channelSpecRequest `json:"channels"`
}

func setChannelsHandler(uc *usecase.ChannelUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		var req setChannelsRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidInput, "platform and channels[] are required"))
			return
		}
		if req.Platform == "" || req.Channels == nil {
			handleError(ctx, w, goerr.Wrap(usecase.ErrInvalidInput, "platform and channels[] are required"))
			return
		}

		platform := types.Platform(req.Platform)
		specs := make([]model.ChannelSpec, len(*req.Channels))
		for i, ch := range *req.Channels {
			specs[i] = model.ChannelSpec{
				Platform:    platform,
				ChannelID:   ch.ChannelID,
				ChannelName: ch.ChannelName,
			}
		}

		channels, err := uc.SetChannels(ctx, userID, platform, specs)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"success": true,
			"data":    toChannelResponses(channels),
			"message": fmt.Sprintf("Monitoring %d %s channels", len(channels), platform),
		})
	}
}

func removeChannelHandler(uc *usecase.ChannelUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		id, err := pathID(r, "id")
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		if err := uc.RemoveChannel(ctx, userID, id); err != nil {
			handleError(ctx, w, err)
			return
		}
		writeMessage(ctx, w, "Channel removed from monitoring")
	}
}

func availableChannelsHandler(uc *usecase.ChannelUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		channels, err := uc.AvailableChannels(ctx, userID, types.Platform(r.URL.Query().Get("platform")))
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeData(ctx, w, toAvailableChannelResponses(channels))
	}
}

func dashboardHandler(uc *usecase.DashboardUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeData(ctx, w, toDashboardResponse(uc.Summary(ctx, userID)))
	}
}

type chatRequest struct {
	Platform   string `json:"platform"`
	ChannelID  string `json:"channelId"`
	Message    string `json:"message"`
	SenderName string `json:"senderName"`
}

func chatHandler(uc *usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID, err := principalUserID(r)
		if err != nil {
			handleError(ctx, w, err)
			return
		}

		var req chatRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(ctx, w, err)
			return
		}

		result, err := uc.Relay(ctx, userID, types.Platform(req.Platform), req.ChannelID, req.Message, req.SenderName)
		if err != nil {
			handleError(ctx, w, err)
			return
		}
		writeData(ctx, w, &chatResponse{
			UserMessage: toSentMessage(result.UserMessage),
			AIResponse:  result.AIResponse,
			AIReply:     toSentMessage(result.AIReply),
		})
	}
}
