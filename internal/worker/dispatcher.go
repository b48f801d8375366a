// Package worker 把阻塞的存储调用放到有界工作池中执行，调用方通过 Future 等待结果。
package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/panics"
	"go.uber.org/zap"

	"github.com/d60-Lab/contest-communication/pkg/errs"
	"github.com/d60-Lab/contest-communication/pkg/logger"
)

// ErrClosed is returned for work submitted after Stop.
var ErrClosed = errors.New("dispatcher stopped")

// Dispatcher 有界工作池。提交顺序不代表完成顺序。
type Dispatcher struct {
	jobs    chan func()
	quit    chan struct{}
	workers int

	mu      sync.Mutex
	closed  bool
	started bool
	wg      sync.WaitGroup
	sending sync.WaitGroup

	inFlight atomic.Int64
}

func NewDispatcher(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 4
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Dispatcher{jobs: make(chan func(), queueSize), quit: make(chan struct{}), workers: workers}
}

// Start 启动 worker；返回停止函数（等同于 Stop）。重复调用无副作用。
func (d *Dispatcher) Start() func(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started && !d.closed {
		d.started = true
		for i := 0; i < d.workers; i++ {
			d.wg.Add(1)
			go d.loop()
		}
	}
	return d.Stop
}

// loop 直到 jobs 被 Stop 关闭且排空才退出，保证每个 Future 都能完成
func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for job := range d.jobs {
		job()
	}
}

// Stop rejects new work, lets the workers finish everything already queued and
// waits for them until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.quit)
	started := d.started
	d.mu.Unlock()

	// quit 已关闭，阻塞中的 enqueue 会立即返回；等它们全部离开后才能安全关闭 jobs
	d.sending.Wait()
	close(d.jobs)

	if !started {
		d.wg.Add(1)
		d.loop()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		logger.Warn("dispatcher stop timed out", zap.Int("queued", d.QueueLen()))
		return ctx.Err()
	}
}

// QueueLen 当前排队任务数（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.jobs) }

// InFlight 已提交但尚未完成的任务数
func (d *Dispatcher) InFlight() int64 { return d.inFlight.Load() }

// enqueue blocks until the job is queued, ctx ends or the dispatcher stops.
// The lock only covers registration in sending; Stop waits for every
// registered sender before closing jobs, so a queued job is always drained.
func (d *Dispatcher) enqueue(ctx context.Context, job func()) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.sending.Add(1)
	d.mu.Unlock()
	defer d.sending.Done()

	select {
	case d.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.quit:
		return ErrClosed
	}
}

type result[T any] struct {
	val T
	err error
}

// Future 一次派发的结果
type Future[T any] struct {
	ch  chan result[T]
	res result[T]
	got bool
	mu  sync.Mutex
}

// Wait blocks until the work completes or ctx is done. Cancelling ctx does
// not stop work that is already running. Wait may be called more than once.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.got {
		return f.res.val, f.res.err
	}
	select {
	case r := <-f.ch:
		f.res, f.got = r, true
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, errs.Dispatch(ctx.Err(), "wait for result")
	}
}

func failed[T any](err error) *Future[T] {
	f := &Future[T]{ch: make(chan result[T], 1)}
	f.ch <- result[T]{err: err}
	return f
}

// Submit hands fn to a worker. fn receives ctx so statements can still honour
// the caller's deadline. A panic inside fn resolves the future with a
// DispatchFailure instead of crashing the worker.
func Submit[T any](ctx context.Context, d *Dispatcher, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{ch: make(chan result[T], 1)}
	d.inFlight.Add(1)
	job := func() {
		var (
			val T
			err error
		)
		var pc panics.Catcher
		pc.Try(func() { val, err = fn(ctx) })
		if r := pc.Recovered(); r != nil {
			logger.Error("dispatched work panicked", zap.Any("panic", r.Value), zap.String("stack", string(r.Stack)))
			var zero T
			val, err = zero, errs.Dispatch(r.AsError(), "work panicked")
		}
		d.inFlight.Add(-1)
		f.ch <- result[T]{val: val, err: err}
	}
	if err := d.enqueue(ctx, job); err != nil {
		d.inFlight.Add(-1)
		return failed[T](errs.Dispatch(err, "submit work"))
	}
	return f
}

// Do submits fn and waits for its result.
func Do[T any](ctx context.Context, d *Dispatcher, fn func(context.Context) (T, error)) (T, error) {
	return Submit(ctx, d, fn).Wait(ctx)
}
