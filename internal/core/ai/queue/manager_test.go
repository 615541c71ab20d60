package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recipe-extractor/internal/infrastructure/config"
)

func newTestLimiter(t *testing.T, maxConcurrent, maxWaiting int) *Limiter {
	t.Helper()
	l := NewLimiter(&config.Config{
		Queue: config.QueueConfig{MaxConcurrent: maxConcurrent, MaxWaiting: maxWaiting},
	})
	t.Cleanup(l.Close)
	return l
}

func TestLimiter_AcquireRelease(t *testing.T) {
	l := newTestLimiter(t, 2, 10)
	ctx := context.Background()

	release1, err := l.Acquire(ctx)
	require.NoError(t, err)
	release2, err := l.Acquire(ctx)
	require.NoError(t, err)

	status := l.GetStatus()
	assert.Equal(t, 2, status.InFlight)

	release1()
	release2()

	status = l.GetStatus()
	assert.Equal(t, 0, status.InFlight)
	assert.Equal(t, int64(2), status.ProcessedCount)
}

func TestLimiter_BlocksAtCapacity(t *testing.T) {
	l := newTestLimiter(t, 1, 10)

	release, err := l.Acquire(context.Background())
	require.NoError(t, err)

	// 名額滿時等待，逾時由 context 把關
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	// 釋放後可再取得
	release2, err := l.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestLimiter_RejectsWhenQueueFull(t *testing.T) {
	l := newTestLimiter(t, 1, 0)

	// MaxWaiting 為 0 時直接拒絕，不排隊
	_, err := l.Acquire(context.Background())
	assert.Error(t, err)
}
