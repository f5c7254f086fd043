package http

import (
	"errors"
	"net/http"

	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/errutil"
	"github.com/go-chi/chi/v5"
)

// checkChannelHandler reports which users monitor a channel. Failures answer
// with an empty list so that the caller can keep going.
func checkChannelHandler(uc *usecase.MonitoringUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		channelID := chi.URLParam(r, "channelId")

		userIDs, err := uc.MonitoringUsers(ctx, channelID)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to check channel")
			writeJSON(ctx, w, http.StatusOK, map[string]any{
				"success":  false,
				"user_ids": []int64{},
			})
			return
		}
		if userIDs == nil {
			userIDs = []int64{}
		}

		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"success":  true,
			"user_ids": userIDs,
		})
	}
}

type internalAnalyzeRequest struct {
	UserID    int64          `json:"userId"`
	Platform  string         `json:"platform"`
	ChannelID string         `json:"channelId"`
	Context   string         `json:"context"`
	Metadata  map[string]any `json:"metadata"`
}

func internalAnalyzeHandler(uc *usecase.MonitoringUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req internalAnalyzeRequest
		if err := decodeJSON(r, &req); err != nil || req.UserID == 0 || req.Context == "" {
			errutil.WriteError(w, http.StatusBadRequest, "userId and context required")
			return
		}

		actions, err := uc.ProcessEvent(ctx, req.UserID, types.Platform(req.Platform), req.ChannelID, req.Context, req.Metadata)
		if errors.Is(err, usecase.ErrInvalidInput) {
			handleError(ctx, w, err)
			return
		}
		if err != nil {
			_ = errutil.Handle(ctx, err, "internal analyze failed")
			writeJSON(ctx, w, http.StatusOK, map[string]any{
				"success": false,
				"count":   0,
			})
			return
		}

		writeJSON(ctx, w, http.StatusOK, map[string]any{
			"success": true,
			"count":   len(actions),
		})
	}
}
