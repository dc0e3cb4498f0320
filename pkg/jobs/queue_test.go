package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var processed int32
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&processed, 1)
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 3; i++ {
		coalesced, err := q.Enqueue(Job{ID: "job", Type: "recompute"})
		require.NoError(t, err)
		assert.False(t, coalesced)
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("job not processed")
		}
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&processed))
}

func TestQueueCoalescesPendingKeys(t *testing.T) {
	release := make(chan struct{})
	started := make(chan string, 4)
	var mu sync.Mutex
	var seen []string
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		started <- job.ID
		<-release
		mu.Lock()
		seen = append(seen, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "a1", Key: "student-1/Fall/2025"})
	require.NoError(t, err)
	require.Equal(t, "a1", <-started)

	// a1 is running, so a second job for the key is queued rather than coalesced
	coalesced, err := q.Enqueue(Job{ID: "a2", Key: "student-1/Fall/2025"})
	require.NoError(t, err)
	assert.False(t, coalesced)
	assert.True(t, q.Pending("student-1/Fall/2025"))

	coalesced, err = q.Enqueue(Job{ID: "a3", Key: "student-1/Fall/2025"})
	require.NoError(t, err)
	assert.True(t, coalesced)

	close(release)
	require.Equal(t, "a2", <-started)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, time.Second, 10*time.Millisecond)
	assert.False(t, q.Pending("student-1/Fall/2025"))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue(Job{ID: "retry", Key: "k"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&attempts) == 3
	}, time.Second, 5*time.Millisecond)
}

func TestQueueRejectsWhenNotStarted(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})

	_, err := q.Enqueue(Job{ID: "x"})
	assert.ErrorIs(t, err, ErrNotStarted)

	q.Start(context.Background())
	q.Stop()
	_, err = q.Enqueue(Job{ID: "y"})
	assert.ErrorIs(t, err, ErrNotStarted)
}
