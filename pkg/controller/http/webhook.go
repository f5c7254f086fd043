package http

import (
	"encoding/json"
	"net/http"

	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/gaprio/gaprio/pkg/utils/safe"
)

type asanaWebhookPayload struct {
	Events []struct {
		Action   string `json:"action"`
		Resource struct {
			GID          string `json:"gid"`
			ResourceType string `json:"resource_type"`
		} `json:"resource"`
	} `json:"events"`
}

// asanaWebhookHandler completes the Asana handshake by echoing X-Hook-Secret,
// then acknowledges event deliveries after logging them
func asanaWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Drain(ctx, r.Body)

		if secret := r.Header.Get("X-Hook-Secret"); secret != "" {
			w.Header().Set("X-Hook-Secret", secret)
			w.WriteHeader(http.StatusOK)
			return
		}

		var payload asanaWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			logging.From(ctx).Warn("failed to decode asana webhook", "error", err.Error())
		}
		for _, ev := range payload.Events {
			logging.From(ctx).Info("asana webhook event",
				"action", ev.Action,
				"resource_type", ev.Resource.ResourceType,
				"resource_gid", ev.Resource.GID,
			)
		}

		w.WriteHeader(http.StatusOK)
	}
}

func googleWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		defer safe.Drain(ctx, r.Body)

		logging.From(ctx).Info("google webhook",
			"resource_state", r.Header.Get("X-Goog-Resource-State"),
			"channel_id", r.Header.Get("X-Goog-Channel-ID"),
		)
		w.WriteHeader(http.StatusOK)
	}
}
