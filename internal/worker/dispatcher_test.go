package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/contest-communication/pkg/errs"
)

func startDispatcher(t *testing.T, workers, queue int) *Dispatcher {
	t.Helper()
	d := NewDispatcher(workers, queue)
	stop := d.Start()
	t.Cleanup(func() { _ = stop(context.Background()) })
	return d
}

func TestDoReturnsResult(t *testing.T) {
	d := startDispatcher(t, 2, 4)
	v, err := Do(context.Background(), d, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDoPropagatesError(t *testing.T) {
	d := startDispatcher(t, 1, 1)
	boom := errors.New("boom")
	_, err := Do(context.Background(), d, func(context.Context) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestPanicBecomesDispatchFailure(t *testing.T) {
	d := startDispatcher(t, 1, 1)
	_, err := Do(context.Background(), d, func(context.Context) (int, error) { panic("kaboom") })
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrDispatch))

	// the worker survives the panic
	v, err := Do(context.Background(), d, func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestConcurrencyIsBounded(t *testing.T) {
	const workers = 3
	d := startDispatcher(t, workers, 64)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Do(context.Background(), d, func(context.Context) (struct{}, error) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return struct{}{}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, int64(0), d.InFlight())
}

func TestWaitHonoursContext(t *testing.T) {
	d := startDispatcher(t, 1, 1)
	release := make(chan struct{})
	defer close(release)

	f := Submit(context.Background(), d, func(context.Context) (int, error) {
		<-release
		return 0, nil
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.Is(err, errs.ErrDispatch))
}

func TestStopDrainsQueuedWork(t *testing.T) {
	d := NewDispatcher(1, 8)
	stop := d.Start()

	gate := make(chan struct{})
	first := Submit(context.Background(), d, func(context.Context) (int, error) {
		<-gate
		return 1, nil
	})
	queued := make([]*Future[int], 0, 4)
	for i := 0; i < 4; i++ {
		i := i
		queued = append(queued, Submit(context.Background(), d, func(context.Context) (int, error) { return i + 2, nil }))
	}

	stopped := make(chan error, 1)
	go func() { stopped <- stop(context.Background()) }()
	close(gate)
	require.NoError(t, <-stopped)

	v, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	for i, f := range queued {
		v, err := f.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i+2, v)
	}
}

func TestSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(1, 1)
	stop := d.Start()
	require.NoError(t, stop(context.Background()))

	_, err := Do(context.Background(), d, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrClosed)
	assert.True(t, errors.Is(err, errs.ErrDispatch))
}

func TestStopBeforeStartWithFullQueue(t *testing.T) {
	d := NewDispatcher(1, 1)
	first := Submit(context.Background(), d, func(context.Context) (int, error) { return 1, nil })

	blocked := make(chan *Future[int], 1)
	go func() {
		blocked <- Submit(context.Background(), d, func(context.Context) (int, error) { return 2, nil })
	}()
	// 第二个提交在满队列上阻塞
	require.Eventually(t, func() bool { return d.InFlight() == 2 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))

	v, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = (<-blocked).Wait(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, int64(0), d.InFlight())
}

func TestFutureWaitTwice(t *testing.T) {
	d := startDispatcher(t, 1, 1)
	f := Submit(context.Background(), d, func(context.Context) (string, error) { return "x", nil })
	a, err := f.Wait(context.Background())
	require.NoError(t, err)
	b, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
