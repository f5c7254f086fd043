package http

import (
	"net/http"
	"time"

	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	router              *chi.Mux
	uc                  *usecase.UseCases
	authUC              AuthUseCase
	slackWebhookHandler *SlackWebhookHandler
	slackSigningSecret  string
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithSlackWebhook enables /hooks/slack/event. Requests are signature-checked
// when signingSecret is not empty.
func WithSlackWebhook(handler *SlackWebhookHandler, signingSecret string) Options {
	return func(s *Server) {
		s.slackWebhookHandler = handler
		s.slackSigningSecret = signingSecret
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, http.StatusOK, map[string]any{"success": true})
	})

	r.Route("/api/monitoring", func(r chi.Router) {
		// Called by the reasoning service and third-party webhooks without a user token
		r.Get("/channels/check/{channelId}", checkChannelHandler(uc.Monitoring))
		r.Post("/internal/analyze", internalAnalyzeHandler(uc.Monitoring))
		r.Post("/webhooks/asana", asanaWebhookHandler())
		r.Post("/webhooks/google", googleWebhookHandler())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.authUC))

			r.Get("/actions", listActionsHandler(uc.Action))
			r.Get("/actions/count", countActionsHandler(uc.Action))
			r.Put("/actions/{id}", updateActionHandler(uc.Action))
			r.Post("/actions/{id}/execute", executeActionHandler(uc.Action))
			r.Post("/actions/{id}/reject", rejectActionHandler(uc.Action))

			r.Get("/channels", listChannelsHandler(uc.Channel))
			r.Post("/channels", setChannelsHandler(uc.Channel))
			r.Delete("/channels/{id}", removeChannelHandler(uc.Channel))
			r.Get("/available-channels", availableChannelsHandler(uc.Channel))

			r.Get("/dashboard", dashboardHandler(uc.Dashboard))
			r.Post("/chat", chatHandler(uc.Chat))
		})
	})

	if s.slackWebhookHandler != nil {
		r.Route("/hooks/slack", func(r chi.Router) {
			if s.slackSigningSecret != "" {
				r.Use(SlackSignatureMiddleware(s.slackSigningSecret))
			}
			r.Post("/event", s.slackWebhookHandler.ServeHTTP)
		})
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
