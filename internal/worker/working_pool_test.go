package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestPool(ctx context.Context, wg *sync.WaitGroup, workers, queue int) *WorkingPool {
	pool := NewWorkingPool(workers, queue)
	wg.Add(1)
	go pool.Start(ctx, wg)
	return pool
}

func TestWorkingPool_StartBlocksUntilCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	started := make(chan struct{})
	wg.Add(1)
	go func() {
		pool := NewWorkingPool(2, 4)
		close(started)
		pool.Start(ctx, &wg)
	}()
	<-started

	// Start owns the calling goroutine until shutdown; a caller that invokes it
	// inline never reaches the code after it.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Start returned before the context was cancelled")
	case <-time.After(100 * time.Millisecond):
	}

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}
}

func TestWorkingPool_ExecutesSubmittedJobs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	pool := startTestPool(ctx, &wg, 3, 10)

	var executed atomic.Int32
	jobsDone := make(chan struct{}, 5)
	for range 5 {
		err := pool.SubmitJob(ctx, func(ctx context.Context) error {
			executed.Add(1)
			jobsDone <- struct{}{}
			return nil
		})
		require.NoError(t, err)
	}

	for range 5 {
		select {
		case <-jobsDone:
		case <-time.After(time.Second):
			t.Fatal("job was not executed")
		}
	}
	assert.Equal(t, int32(5), executed.Load())

	cancel()
	wg.Wait()
}

func TestWorkingPool_PanicInJobDoesNotKillWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	pool := startTestPool(ctx, &wg, 1, 2)

	require.NoError(t, pool.SubmitJob(ctx, func(ctx context.Context) error {
		panic("job blew up")
	}))

	survived := make(chan struct{})
	require.NoError(t, pool.SubmitJob(ctx, func(ctx context.Context) error {
		close(survived)
		return nil
	}))

	select {
	case <-survived:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive a panicking job")
	}

	cancel()
	wg.Wait()
}

func TestWorkingPool_SubmitJobHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewWorkingPool(1, 0) // unbuffered queue, no workers running

	cancel()
	err := pool.SubmitJob(ctx, func(ctx context.Context) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}
