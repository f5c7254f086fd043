package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gaprio/gaprio/pkg/service/provider"
	"github.com/gaprio/gaprio/pkg/usecase"
	"github.com/gaprio/gaprio/pkg/utils/errutil"
	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// writeJSON writes body with the status code
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.From(ctx).Error("failed to write response", "error", err.Error())
	}
}

// writeData writes {"success": true, "data": data}
func writeData(ctx context.Context, w http.ResponseWriter, data any) {
	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
	})
}

// writeMessage writes {"success": true, "message": msg}
func writeMessage(ctx context.Context, w http.ResponseWriter, msg string) {
	writeJSON(ctx, w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrInvalidInput, "invalid JSON body", goerr.V("error", err.Error()))
	}
	return nil
}

// errorStatus maps use case errors to a status code and the message shown to the client
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrActionNotFound):
		return http.StatusNotFound, "Action not found"
	case errors.Is(err, usecase.ErrChannelNotFound):
		return http.StatusNotFound, "Channel not found"
	case errors.Is(err, usecase.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, usecase.ErrUnauthorized):
		return http.StatusForbidden, "Unauthorized"
	case errors.Is(err, usecase.ErrActionNotPending):
		return http.StatusConflict, "Action is not pending"
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, provider.ErrProviderNotConfigured):
		return http.StatusBadRequest, "Platform is not connected"
	case errors.Is(err, usecase.ErrExecutionFailed):
		var execErr *usecase.ExecutionError
		if errors.As(err, &execErr) && execErr.Detail != "" {
			return http.StatusBadGateway, execErr.Detail
		}
		return http.StatusBadGateway, "Action execution failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// handleError writes the error envelope. Client errors are logged as warnings,
// everything else goes through errutil.
func handleError(ctx context.Context, w http.ResponseWriter, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		_ = errutil.Handle(ctx, err, "request failed")
	} else {
		logging.From(ctx).Warn("request rejected", "status", status, "error", err.Error())
	}
	errutil.WriteError(w, status, msg)
}
