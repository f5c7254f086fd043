package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gaprio/gaprio/pkg/service/worker"
	"github.com/m-mizutani/gt"
)

type mockExpirer struct {
	mu      sync.Mutex
	calls   int
	lastAge time.Duration
	err     error
}

func (m *mockExpirer) ExpireStale(ctx context.Context, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastAge = olderThan
	if m.err != nil {
		return 0, m.err
	}
	return 2, nil
}

func (m *mockExpirer) snapshot() (int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls, m.lastAge
}

func TestActionExpiryWorker(t *testing.T) {
	t.Run("sweeps at start and on every tick", func(t *testing.T) {
		expirer := &mockExpirer{}
		w := worker.NewActionExpiryWorker(expirer, 24*time.Hour, 20*time.Millisecond)
		gt.NoError(t, w.Start(context.Background())).Required()

		time.Sleep(110 * time.Millisecond)
		w.Stop()

		calls, age := expirer.snapshot()
		gt.Bool(t, calls >= 2).True()
		gt.Value(t, age).Equal(24 * time.Hour)
	})

	t.Run("keeps running after a failed sweep", func(t *testing.T) {
		expirer := &mockExpirer{err: errors.New("database unavailable")}
		w := worker.NewActionExpiryWorker(expirer, time.Hour, 20*time.Millisecond)
		gt.NoError(t, w.Start(context.Background())).Required()

		time.Sleep(70 * time.Millisecond)
		w.Stop()

		calls, _ := expirer.snapshot()
		gt.Bool(t, calls >= 2).True()
	})

	t.Run("stops when the context is cancelled", func(t *testing.T) {
		expirer := &mockExpirer{}
		w := worker.NewActionExpiryWorker(expirer, time.Hour, time.Hour)

		ctx, cancel := context.WithCancel(context.Background())
		gt.NoError(t, w.Start(ctx)).Required()
		cancel()

		// Stop must return once the loop has exited
		w.Stop()
	})

	t.Run("defaults apply to non-positive durations", func(t *testing.T) {
		expirer := &mockExpirer{}
		w := worker.NewActionExpiryWorker(expirer, 0, 0)
		gt.NoError(t, w.Sweep(context.Background())).Required()

		_, age := expirer.snapshot()
		gt.Value(t, age).Equal(worker.DefaultExpireAfter)
	})

	t.Run("Sweep reports expirer errors", func(t *testing.T) {
		expirer := &mockExpirer{err: errors.New("boom")}
		w := worker.NewActionExpiryWorker(expirer, time.Hour, time.Hour)
		gt.Value(t, w.Sweep(context.Background())).NotNil()
	})
}
