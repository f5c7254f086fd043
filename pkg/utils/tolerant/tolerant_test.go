package tolerant_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gaprio/gaprio/pkg/utils/tolerant"
	"github.com/m-mizutani/gt"
)

func TestCall(t *testing.T) {
	ctx := context.Background()

	t.Run("returns value on success", func(t *testing.T) {
		got := tolerant.Call(ctx, "ok", 0, func(ctx context.Context) (int, error) {
			return 42, nil
		})
		gt.Value(t, got).Equal(42)
	})

	t.Run("returns fallback on error", func(t *testing.T) {
		got := tolerant.Call(ctx, "fail", []string{}, func(ctx context.Context) ([]string, error) {
			return []string{"ignored"}, errors.New("provider down")
		})
		gt.Array(t, got).Length(0)
	})

	t.Run("returns fallback on panic", func(t *testing.T) {
		got := tolerant.Call(ctx, "panic", "default", func(ctx context.Context) (string, error) {
			panic("boom")
		})
		gt.Value(t, got).Equal("default")
	})
}
