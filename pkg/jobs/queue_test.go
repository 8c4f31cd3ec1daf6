package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolProcessesTasks(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]int)
	done := make(chan struct{}, 3)

	pool := NewPool("test", func(ctx context.Context, task Task) error {
		mu.Lock()
		seen[task.ID]++
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, PoolConfig{Workers: 2, BufferSize: 8})

	pool.Start(context.Background())
	defer pool.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.True(t, pool.TrySubmit(Task{ID: id, Kind: "noop"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("task not processed in time")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 3)
	for id, count := range seen {
		assert.Equal(t, 1, count, "task %s processed more than once", id)
	}
}

func TestPoolRetriesFailedTasks(t *testing.T) {
	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})

	pool := NewPool("retry", func(ctx context.Context, task Task) error {
		mu.Lock()
		attempts++
		current := attempts
		mu.Unlock()
		if current < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, PoolConfig{Workers: 1, BufferSize: 4, MaxRetries: 3, RetryDelay: time.Millisecond})

	pool.Start(context.Background())
	defer pool.Stop()

	require.True(t, pool.TrySubmit(Task{ID: "flaky", Kind: "noop"}))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task was not retried")
	}
}

func TestTrySubmitWhenNotRunning(t *testing.T) {
	pool := NewPool("idle", func(ctx context.Context, task Task) error { return nil }, PoolConfig{})
	assert.False(t, pool.TrySubmit(Task{ID: "x"}))

	pool.Start(context.Background())
	assert.True(t, pool.TrySubmit(Task{ID: "x"}))
	pool.Stop()
	assert.False(t, pool.TrySubmit(Task{ID: "y"}))
}

func TestTrySubmitWhenBufferFull(t *testing.T) {
	block := make(chan struct{})
	pool := NewPool("full", func(ctx context.Context, task Task) error {
		<-block
		return nil
	}, PoolConfig{Workers: 1, BufferSize: 1})

	pool.Start(context.Background())
	defer func() {
		close(block)
		pool.Stop()
	}()

	require.True(t, pool.TrySubmit(Task{ID: "running"}))
	time.Sleep(10 * time.Millisecond)
	require.True(t, pool.TrySubmit(Task{ID: "buffered"}))
	assert.False(t, pool.TrySubmit(Task{ID: "rejected"}))
	assert.Equal(t, 1, pool.Depth())
}
