package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	httpctrl "github.com/gaprio/gaprio/pkg/controller/http"
	"github.com/gaprio/gaprio/pkg/domain/model"
	"github.com/gaprio/gaprio/pkg/domain/types"
	"github.com/gaprio/gaprio/pkg/repository/memory"
	"github.com/gaprio/gaprio/pkg/service/agent"
	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type mockAgent struct {
	analyzeContextFn func(ctx context.Context, req *agent.AnalyzeRequest) (*agent.AnalyzeResponse, error)
	executeActionFn  func(ctx context.Context, req *agent.ExecuteRequest) (json.RawMessage, error)
	askFn            func(ctx context.Context, req *agent.AskRequest) (*agent.AskResponse, error)
}

func (m *mockAgent) AnalyzeContext(ctx context.Context, req *agent.AnalyzeRequest) (*agent.AnalyzeResponse, error) {
	if m.analyzeContextFn != nil {
		return m.analyzeContextFn(ctx, req)
	}
	return &agent.AnalyzeResponse{}, nil
}

func (m *mockAgent) ExecuteAction(ctx context.Context, req *agent.ExecuteRequest) (json.RawMessage, error) {
	if m.executeActionFn != nil {
		return m.executeActionFn(ctx, req)
	}
	return json.RawMessage(`{}`), nil
}

func (m *mockAgent) Ask(ctx context.Context, req *agent.AskRequest) (*agent.AskResponse, error) {
	if m.askFn != nil {
		return m.askFn(ctx, req)
	}
	return &agent.AskResponse{}, nil
}

type mockProvider struct {
	channels []provider.Channel
	sent     []provider.Message
}

func (m *mockProvider) Platform() types.Platform { return types.PlatformSlack }

func (m *mockProvider) ListChannels(ctx context.Context) ([]provider.Channel, error) {
	return m.channels, nil
}

func (m *mockProvider) SendMessage(ctx context.Context, msg *provider.Message) (*provider.SentMessage, error) {
	m.sent = append(m.sent, *msg)
	return &provider.SentMessage{ChannelID: msg.ChannelID, MessageID: "1700000000.000100"}, nil
}

type testServer struct {
	repo    *memory.Memory
	handler http.Handler
}

const testUserID = int64(1)

func newTestServer(t *testing.T, opts ...usecase.Option) *testServer {
	t.Helper()
	repo := memory.New()
	uc := usecase.New(repo, opts...)
	return &testServer{
		repo:    repo,
		handler: httpctrl.New(uc, httpctrl.WithAuth(usecase.NewNoAuthnUseCase(testUserID))),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Count   int             `json:"count"`
	UserIDs []int64         `json:"user_ids"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, *envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err).Required()
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env)).Required()
	}
	return rec.Code, &env
}

func (s *testServer) createAction(t *testing.T, userID int64) *model.SuggestedAction {
	t.Helper()
	action, err := s.repo.SuggestedAction().Create(context.Background(),
		model.NewSuggestedAction(userID, types.PlatformSlack, "C1", "Let's schedule a meeting",
			"create_calendar_event", model.Params{"title": "Meeting"}, ""))
	gt.NoError(t, err).Required()
	return action
}

func TestServer_Actions(t *testing.T) {
	executed := make(chan map[string]any, 1)
	srv := newTestServer(t, usecase.WithAgent(&mockAgent{
		executeActionFn: func(ctx context.Context, req *agent.ExecuteRequest) (json.RawMessage, error) {
			executed <- req.Parameters
			if req.Tool == "broken" {
				return nil, goerr.Wrap(&agent.APIError{StatusCode: 400, Detail: "Missing token"}, "failed")
			}
			return json.RawMessage(`{"event_id":"E1"}`), nil
		},
	}))

	action := srv.createAction(t, testUserID)
	foreign := srv.createAction(t, 99)

	t.Run("list", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/actions?status=pending", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Bool(t, env.Success).True()

		var actions []map[string]any
		gt.NoError(t, json.Unmarshal(env.Data, &actions)).Required()
		gt.Array(t, actions).Length(1).Required()
		gt.Value(t, actions[0]["suggested_tool"]).Equal(any("create_calendar_event"))
		gt.Value(t, actions[0]["description"]).Equal(any("create_calendar_event action"))
	})

	t.Run("list with invalid status", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/actions?status=done", nil)
		gt.Number(t, code).Equal(http.StatusBadRequest)
		gt.Bool(t, env.Success).False()
	})

	t.Run("count", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/actions/count", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Number(t, env.Count).Equal(1)
	})

	t.Run("update params", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPut, "/api/monitoring/actions/"+itoa(action.ID), map[string]any{
			"params": map[string]any{"title": "Edited"},
		})
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Value(t, env.Message).Equal("Action parameters updated")
	})

	t.Run("foreign action is forbidden", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPost, "/api/monitoring/actions/"+itoa(foreign.ID)+"/reject", nil)
		gt.Number(t, code).Equal(http.StatusForbidden)
		gt.Value(t, env.Message).Equal("Unauthorized")
	})

	t.Run("unknown action", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPost, "/api/monitoring/actions/9999/execute", nil)
		gt.Number(t, code).Equal(http.StatusNotFound)
		gt.Value(t, env.Message).Equal("Action not found")
	})

	t.Run("execute", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPost, "/api/monitoring/actions/"+itoa(action.ID)+"/execute", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Bool(t, env.Success).True()
		gt.String(t, string(env.Data)).Contains("E1")

		params := <-executed
		gt.Value(t, params["title"]).Equal(any("Edited"))
	})

	t.Run("execute twice conflicts", func(t *testing.T) {
		code, _ := srv.do(t, http.MethodPost, "/api/monitoring/actions/"+itoa(action.ID)+"/execute", nil)
		gt.Number(t, code).Equal(http.StatusConflict)
	})

	t.Run("execution failure reports the detail", func(t *testing.T) {
		broken, err := srv.repo.SuggestedAction().Create(context.Background(),
			model.NewSuggestedAction(testUserID, types.PlatformSlack, "C1", "ctx", "broken", nil, ""))
		gt.NoError(t, err).Required()

		code, env := srv.do(t, http.MethodPost, "/api/monitoring/actions/"+itoa(broken.ID)+"/execute", nil)
		<-executed
		gt.Number(t, code).Equal(http.StatusBadGateway)
		gt.Value(t, env.Message).Equal("Missing token")
	})
}

func TestServer_Channels(t *testing.T) {
	p := &mockProvider{channels: []provider.Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "random"}}}
	srv := newTestServer(t, usecase.WithProviders(provider.NewRegistry(p)))

	t.Run("set channels", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPost, "/api/monitoring/channels", map[string]any{
			"platform": "slack",
			"channels": []map[string]string{{"channelId": "C1", "channelName": "general"}},
		})
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Value(t, env.Message).Equal("Monitoring 1 slack channels")
	})

	t.Run("missing channels list", func(t *testing.T) {
		code, _ := srv.do(t, http.MethodPost, "/api/monitoring/channels", map[string]any{"platform": "slack"})
		gt.Number(t, code).Equal(http.StatusBadRequest)
	})

	t.Run("channels is not a list", func(t *testing.T) {
		code, _ := srv.do(t, http.MethodPost, "/api/monitoring/channels", map[string]any{"platform": "slack", "channels": "C1"})
		gt.Number(t, code).Equal(http.StatusBadRequest)
	})

	t.Run("available channels", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/available-channels?platform=slack", nil)
		gt.Number(t, code).Equal(http.StatusOK)

		var channels []map[string]any
		gt.NoError(t, json.Unmarshal(env.Data, &channels)).Required()
		gt.Array(t, channels).Length(2).Required()
		gt.Value(t, channels[0]["is_monitored"]).Equal(any(true))
		gt.Value(t, channels[1]["is_monitored"]).Equal(any(false))
	})

	t.Run("check channel is public", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/channels/check/C1", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Value(t, env.UserIDs).Equal([]int64{testUserID})
	})

	t.Run("remove channel", func(t *testing.T) {
		channels, err := srv.repo.MonitoredChannel().ListByUser(context.Background(), testUserID, "")
		gt.NoError(t, err).Required()
		gt.Array(t, channels).Length(1).Required()

		code, _ := srv.do(t, http.MethodDelete, "/api/monitoring/channels/"+itoa(channels[0].ID), nil)
		gt.Number(t, code).Equal(http.StatusOK)

		code, env := srv.do(t, http.MethodGet, "/api/monitoring/channels/check/C1", nil)
		gt.Number(t, code).Equal(http.StatusOK)
		gt.Array(t, env.UserIDs).Length(0)
	})
}

func TestServer_InternalAnalyze(t *testing.T) {
	srv := newTestServer(t, usecase.WithAgent(&mockAgent{
		analyzeContextFn: func(ctx context.Context, req *agent.AnalyzeRequest) (*agent.AnalyzeResponse, error) {
			return &agent.AnalyzeResponse{Suggestions: []agent.Suggestion{{Tool: "send_message"}}}, nil
		},
	}))

	code, env := srv.do(t, http.MethodPost, "/api/monitoring/internal/analyze", map[string]any{
		"userId":  5,
		"context": "Please remind the team about the release",
	})
	gt.Number(t, code).Equal(http.StatusOK)
	gt.Bool(t, env.Success).True()
	gt.Number(t, env.Count).Equal(1)

	code, _ = srv.do(t, http.MethodPost, "/api/monitoring/internal/analyze", map[string]any{"userId": 5})
	gt.Number(t, code).Equal(http.StatusBadRequest)

	code, env = srv.do(t, http.MethodPost, "/api/monitoring/internal/analyze", map[string]any{
		"userId":   5,
		"platform": "myspace",
		"context":  "Please remind the team about the release",
	})
	gt.Number(t, code).Equal(http.StatusBadRequest)
	gt.Bool(t, env.Success).False()
	gt.String(t, env.Message).Contains("unknown platform")
}

func TestServer_Webhooks(t *testing.T) {
	srv := newTestServer(t)

	t.Run("asana handshake", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/monitoring/webhooks/asana", nil)
		req.Header.Set("X-Hook-Secret", "abc")
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusOK)
		gt.Value(t, rec.Header().Get("X-Hook-Secret")).Equal("abc")
	})

	t.Run("asana events", func(t *testing.T) {
		body := bytes.NewReader([]byte(`{"events":[{"action":"changed","resource":{"gid":"1","resource_type":"task"}}]}`))
		req := httptest.NewRequest(http.MethodPost, "/api/monitoring/webhooks/asana", body)
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusOK)
	})

	t.Run("google", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/monitoring/webhooks/google", nil)
		req.Header.Set("X-Goog-Resource-State", "exists")
		rec := httptest.NewRecorder()
		srv.handler.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusOK)
	})
}

func TestServer_DashboardAndChat(t *testing.T) {
	p := &mockProvider{channels: []provider.Channel{{ID: "C1", Name: "general"}}}
	srv := newTestServer(t,
		usecase.WithProviders(provider.NewRegistry(p)),
		usecase.WithAgent(&mockAgent{askFn: func(ctx context.Context, req *agent.AskRequest) (*agent.AskResponse, error) {
			return nil, goerr.Wrap(agent.ErrUnavailable, "refused")
		}}),
	)
	srv.createAction(t, testUserID)

	t.Run("dashboard", func(t *testing.T) {
		code, env := srv.do(t, http.MethodGet, "/api/monitoring/dashboard", nil)
		gt.Number(t, code).Equal(http.StatusOK)

		var summary struct {
			PendingCount int `json:"pending_count"`
			Providers    []struct {
				Platform  string `json:"platform"`
				Connected bool   `json:"connected"`
			} `json:"providers"`
		}
		gt.NoError(t, json.Unmarshal(env.Data, &summary)).Required()
		gt.Number(t, summary.PendingCount).Equal(1)
		gt.Array(t, summary.Providers).Length(1).Required()
		gt.Bool(t, summary.Providers[0].Connected).True()
	})

	t.Run("chat falls back when the agent is offline", func(t *testing.T) {
		code, env := srv.do(t, http.MethodPost, "/api/monitoring/chat", map[string]any{
			"platform":   "slack",
			"channelId":  "C1",
			"message":    "create a task",
			"senderName": "Alice",
		})
		gt.Number(t, code).Equal(http.StatusOK)

		var resp struct {
			AIResponse string `json:"ai_response"`
		}
		gt.NoError(t, json.Unmarshal(env.Data, &resp)).Required()
		gt.Value(t, resp.AIResponse).Equal(usecase.ChatReplyOffline)
		gt.Array(t, p.sent).Length(2)
	})
}

func TestServer_Auth(t *testing.T) {
	const secret = "test-secret"
	authUC, err := usecase.NewAuthUseCase(secret)
	gt.NoError(t, err).Required()

	repo := memory.New()
	srv := httpctrl.New(usecase.New(repo), httpctrl.WithAuth(authUC))

	request := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/monitoring/actions/count", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("missing token", func(t *testing.T) {
		gt.Number(t, request("")).Equal(http.StatusUnauthorized)
	})

	t.Run("invalid token", func(t *testing.T) {
		gt.Number(t, request("not-a-jwt")).Equal(http.StatusUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		tok, err := jwt.NewBuilder().Claim("id", 3).Expiration(time.Now().Add(time.Hour)).Build()
		gt.NoError(t, err).Required()
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(secret)))
		gt.NoError(t, err).Required()

		gt.Number(t, request(string(signed))).Equal(http.StatusOK)
	})

	t.Run("no authenticator configured", func(t *testing.T) {
		srv := httpctrl.New(usecase.New(repo))
		req := httptest.NewRequest(http.MethodGet, "/api/monitoring/actions", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		gt.Number(t, rec.Code).Equal(http.StatusUnauthorized)
	})
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
