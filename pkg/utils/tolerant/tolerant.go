// Package tolerant wraps best-effort calls whose failure should degrade to a default value
// instead of failing the whole response.
package tolerant

import (
	"context"
	"errors"
	"fmt"

	"github.com/gaprio/gaprio/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Call runs fn and returns its result. On error or panic it logs with the given name and returns fallback.
func Call[T any](ctx context.Context, name string, fallback T, fn func(ctx context.Context) (T, error)) (result T) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("tolerant call panicked, using fallback",
				"call", name,
				"panic", fmt.Sprint(r),
			)
			result = fallback
		}
	}()

	v, err := fn(ctx)
	if err != nil {
		attrs := []any{"call", name, "error", err.Error()}
		var ge *goerr.Error
		if errors.As(err, &ge) {
			attrs = append(attrs, "values", ge.Values())
		}
		logging.From(ctx).Warn("tolerant call failed, using fallback", attrs...)
		return fallback
	}

	return v
}
