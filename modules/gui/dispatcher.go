package gui

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Dispatcher is the work queue of a UI thread. Any goroutine may post work;
// only the UI loop drains it. The queue is unbounded so posting from the UI
// thread itself never blocks.
//
// A toolkit loop selects on Ready and calls Drain:
//
//	for {
//	    select {
//	    case <-d.Ready():
//	        d.Drain()
//	    case <-quit:
//	        return
//	    }
//	}
type Dispatcher struct {
	mu       sync.Mutex
	queue    []func()
	closed   bool
	ready    chan struct{}
	done     chan struct{}
	threadID atomic.Uint64
	wake     atomic.Pointer[func()]
}

// NewDispatcher creates an unbound dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Bind makes the calling OS thread the owner of the dispatcher. The calling
// goroutine must be locked to its thread.
func (d *Dispatcher) Bind() {
	d.threadID.Store(currentThreadID())
}

// CheckAccess reports whether the caller runs on the UI thread.
func (d *Dispatcher) CheckAccess() bool {
	id := d.threadID.Load()
	return id != 0 && id == currentThreadID()
}

// SetWake installs a hook run after every post, for toolkits whose loop
// blocks somewhere other than Ready.
func (d *Dispatcher) SetWake(fn func()) {
	if fn == nil {
		d.wake.Store(nil)
		return
	}
	d.wake.Store(&fn)
}

// Wake runs the wake hook, if any.
func (d *Dispatcher) Wake() {
	if fn := d.wake.Load(); fn != nil {
		(*fn)()
	}
}

// Ready receives a value when work is pending.
func (d *Dispatcher) Ready() <-chan struct{} {
	return d.ready
}

// Done is closed once the dispatcher is closed.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

// Post queues fn without waiting for it.
func (d *Dispatcher) Post(fn func()) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.queue = append(d.queue, fn)
	d.mu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
	d.Wake()
	return nil
}

// Drain runs the work queued so far and returns how many items ran. Work
// posted while draining is left for the next call.
func (d *Dispatcher) Drain() int {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

// Invoke runs fn on the UI thread and waits for it. On the UI thread fn runs
// inline. Errors and panics raised by fn are returned to the caller.
func (d *Dispatcher) Invoke(ctx context.Context, fn func() error) error {
	if d.CheckAccess() {
		return callSafely(fn)
	}

	result := make(chan error, 1)
	if err := d.Post(func() { result <- callSafely(fn) }); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrDispatcherClosed
		}
	}
}

// InvokeIfRequired is Invoke; the name mirrors the call sites that only
// sometimes run off the UI thread.
func (d *Dispatcher) InvokeIfRequired(ctx context.Context, fn func() error) error {
	return d.Invoke(ctx, fn)
}

// InvokeAsync queues fn and returns a channel receiving its result.
func (d *Dispatcher) InvokeAsync(fn func() error) <-chan error {
	result := make(chan error, 1)
	if err := d.Post(func() { result <- callSafely(fn) }); err != nil {
		result <- err
	}
	return result
}

// Close rejects further work and drops pending items. Callers waiting in
// Invoke get ErrDispatcherClosed. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	d.queue = nil
	d.threadID.Store(0)
	close(d.done)
}

// RunOnUI runs fn on the dispatcher's thread and returns its result.
func RunOnUI[T any](ctx context.Context, d *Dispatcher, fn func() (T, error)) (T, error) {
	values := make(chan T, 1)
	err := d.Invoke(ctx, func() error {
		v, err := fn()
		values <- v
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return <-values, nil
}

func callSafely(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrDispatchPanic, r)
		}
	}()
	return fn()
}
