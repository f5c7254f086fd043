package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/gaprio/gaprio/pkg/utils/safe"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// Bound for error and result bodies read from the reasoning service
const maxResponseSize = 8 << 20

type client struct {
	baseURL    string
	httpClient *http.Client

	analyzeTimeout time.Duration
	executeTimeout time.Duration
	chatTimeout    time.Duration
}

func (c *client) AnalyzeContext(ctx context.Context, req *AnalyzeRequest) (*AnalyzeResponse, error) {
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}

	body, err := c.post(ctx, "/analyze-context", req, c.analyzeTimeout)
	if err != nil {
		return nil, err
	}

	var resp AnalyzeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode analyze response", goerr.V("body", truncate(body)))
	}
	return &resp, nil
}

func (c *client) ExecuteAction(ctx context.Context, req *ExecuteRequest) (json.RawMessage, error) {
	if req.Parameters == nil {
		req.Parameters = map[string]any{}
	}

	body, err := c.post(ctx, "/execute-action", req, c.executeTimeout)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		// The tool has already run; keep the plain text answer as a JSON string
		raw, err := json.Marshal(string(body))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to encode execute response", goerr.V("body", truncate(body)))
		}
		return json.RawMessage(raw), nil
	}
	return json.RawMessage(body), nil
}

func (c *client) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	body, err := c.post(ctx, "/ask-agent", req, c.chatTimeout)
	if err != nil {
		return nil, err
	}

	var resp AskResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, goerr.Wrap(err, "failed to decode ask response", goerr.V("body", truncate(body)))
	}
	return &resp, nil
}

func (c *client) post(ctx context.Context, path string, payload any, timeout time.Duration) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal agent request", goerr.V("path", path))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	url := c.baseURL + path
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create agent request", goerr.V("url", url))
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(err, url, requestID)
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, classify(err, url, requestID)
	}

	logging.From(ctx).Debug("agent call finished",
		"path", path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Detail: extractDetail(body)}
		return nil, goerr.Wrap(apiErr, "agent returned error status",
			goerr.V("url", url),
			goerr.V("status", resp.StatusCode),
			goerr.V("request_id", requestID),
			goerr.V("body", truncate(body)))
	}

	return body, nil
}

// classify maps transport failures to ErrUnavailable or ErrTimeout
func classify(err error, url, requestID string) error {
	var netErr net.Error
	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return goerr.Wrap(ErrUnavailable, err.Error(), goerr.V("url", url), goerr.V("request_id", requestID))
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return goerr.Wrap(ErrTimeout, err.Error(), goerr.V("url", url), goerr.V("request_id", requestID))
	default:
		return goerr.Wrap(err, "agent request failed", goerr.V("url", url), goerr.V("request_id", requestID))
	}
}

// extractDetail reads the "detail" field used by the reasoning service for errors
func extractDetail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Detail == nil {
		return ""
	}
	if s, ok := payload.Detail.(string); ok {
		return s
	}
	raw, err := json.Marshal(payload.Detail)
	if err != nil {
		return ""
	}
	return string(raw)
}

func truncate(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}

// ErrorDetail returns the message to show for a failed agent call: the
// service's "detail" field when present, otherwise the transport error text.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}
