package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultAnalyzeTimeout = 30 * time.Second
	DefaultExecuteTimeout = 30 * time.Second
	DefaultChatTimeout    = 120 * time.Second
)

var (
	// ErrUnavailable is returned when the reasoning service refuses the connection
	ErrUnavailable = goerr.New("agent is unavailable")
	// ErrTimeout is returned when a call exceeds its deadline
	ErrTimeout = goerr.New("agent request timed out")
	// ErrRequestFailed is returned when the reasoning service answers with a non-2xx status
	ErrRequestFailed = goerr.New("agent request failed")
)

// APIError describes a non-2xx answer. Detail is taken from the response's
// "detail" field when present.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return ErrRequestFailed
}

// Suggestion is one proposed action returned by AnalyzeContext
type Suggestion struct {
	Tool        string         `json:"tool"`
	Params      map[string]any `json:"params,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
}

// ResolvedParams returns params, falling back to the legacy "parameters" field
func (s *Suggestion) ResolvedParams() map[string]any {
	if s.Params != nil {
		return s.Params
	}
	if s.Parameters != nil {
		return s.Parameters
	}
	return map[string]any{}
}

type AnalyzeRequest struct {
	UserID    int64          `json:"user_id"`
	Platform  string         `json:"platform"`
	ChannelID string         `json:"channel_id"`
	Context   string         `json:"context"`
	Metadata  map[string]any `json:"metadata"`
}

type AnalyzeResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

type ExecuteRequest struct {
	UserID     int64          `json:"user_id"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
}

type AskRequest struct {
	UserID  int64  `json:"user_id"`
	Message string `json:"message"`
}

type AskResponse struct {
	Message string `json:"message"`
}

// Service is the client of the external reasoning service
type Service interface {
	// AnalyzeContext asks for suggested actions for a piece of conversation
	AnalyzeContext(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error)
	// ExecuteAction runs a tool and returns the raw response body
	ExecuteAction(ctx context.Context, req *ExecuteRequest) (json.RawMessage, error)
	// Ask relays a conversational message
	Ask(ctx context.Context, req *AskRequest) (*AskResponse, error)
}

// Option is a functional option for client configuration
type Option func(*client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

func WithAnalyzeTimeout(d time.Duration) Option {
	return func(c *client) {
		c.analyzeTimeout = d
	}
}

func WithExecuteTimeout(d time.Duration) Option {
	return func(c *client) {
		c.executeTimeout = d
	}
}

func WithChatTimeout(d time.Duration) Option {
	return func(c *client) {
		c.chatTimeout = d
	}
}

// New creates a reasoning service client for baseURL
func New(baseURL string, opts ...Option) (Service, error) {
	if baseURL == "" {
		return nil, goerr.New("agent base URL is required")
	}

	c := &client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		analyzeTimeout: DefaultAnalyzeTimeout,
		executeTimeout: DefaultExecuteTimeout,
		chatTimeout:    DefaultChatTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}
