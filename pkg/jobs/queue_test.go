package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueRoutesByType(t *testing.T) {
	router := NewRouter()
	done := make(chan string, 2)
	router.Register("mail.verification", func(_ context.Context, job Job) error {
		done <- job.Payload.(string)
		return nil
	})

	q := NewQueue("mail", router.Handle, QueueConfig{Workers: 1, Logger: zap.NewNop()})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "mail.verification", Payload: "ada@example.com"}))

	select {
	case got := <-done:
		assert.Equal(t, "ada@example.com", got)
	case <-time.After(2 * time.Second):
		t.Fatal("job was not processed")
	}
}

func TestQueueRetriesTransientFailures(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	handler := func(_ context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("smtp unavailable")
		}
		close(done)
		return nil
	}

	q := NewQueue("mail", handler, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "1", Type: "mail.reset"}))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
}

func TestRouterUnknownTypeIsPermanent(t *testing.T) {
	err := NewRouter().Handle(context.Background(), Job{Type: "unknown"})
	assert.ErrorIs(t, err, ErrPermanent)
}

func TestEnqueueBeforeStartFails(t *testing.T) {
	q := NewQueue("mail", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "1"}), ErrQueueStopped)
}

func TestEnqueueReportsFullBuffer(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("mail", func(ctx context.Context, _ Job) error {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not pick up the first job")
	}

	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))
	assert.ErrorIs(t, q.Enqueue(Job{ID: "overflow"}), ErrQueueFull)
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	var calls int32
	q := NewQueue("mail", func(context.Context, Job) error {
		atomic.AddInt32(&calls, 1)
		return ErrPermanent
	}, QueueConfig{Workers: 1, RetryDelay: time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "1"}))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestEnqueueAfterStopFails(t *testing.T) {
	q := NewQueue("mail", func(context.Context, Job) error { return nil }, QueueConfig{})
	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "1"}), ErrQueueStopped)
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	base := 100 * time.Millisecond
	assert.Equal(t, base, backoff(base, 0))
	assert.Equal(t, 400*time.Millisecond, backoff(base, 2))
	assert.Equal(t, maxBackoff, backoff(base, 12))
	assert.Equal(t, maxBackoff, backoff(base, 64))
}
