package gui

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uiLoop runs a minimal UI loop for d on a locked goroutine.
func uiLoop(t *testing.T, d *Dispatcher) {
	t.Helper()
	bound := make(chan struct{})
	quit := make(chan struct{})
	ended := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(ended)
		d.Bind()
		close(bound)
		for {
			select {
			case <-d.Ready():
				d.Drain()
			case <-quit:
				return
			}
		}
	}()
	<-bound
	t.Cleanup(func() {
		close(quit)
		<-ended
		d.Close()
	})
}

func TestDispatcher_InvokeRunsOnUIThread(t *testing.T) {
	d := NewDispatcher()
	uiLoop(t, d)

	assert.False(t, d.CheckAccess())
	var onUI bool
	require.NoError(t, d.Invoke(context.Background(), func() error {
		onUI = d.CheckAccess()
		return nil
	}))
	assert.True(t, onUI)
}

func TestDispatcher_InvokePropagatesErrorsAndPanics(t *testing.T) {
	d := NewDispatcher()
	uiLoop(t, d)

	boom := errors.New("boom")
	assert.ErrorIs(t, d.Invoke(context.Background(), func() error { return boom }), boom)

	err := d.Invoke(context.Background(), func() error { panic("bad handler") })
	require.ErrorIs(t, err, ErrDispatchPanic)
	assert.Contains(t, err.Error(), "bad handler")

	// The loop survives a panicking item.
	assert.NoError(t, d.Invoke(context.Background(), func() error { return nil }))
}

func TestDispatcher_NestedInvokeRunsInline(t *testing.T) {
	d := NewDispatcher()
	uiLoop(t, d)

	var depth int
	require.NoError(t, d.Invoke(context.Background(), func() error {
		return d.InvokeIfRequired(context.Background(), func() error {
			depth++
			return nil
		})
	}))
	assert.Equal(t, 1, depth)
}

func TestDispatcher_RunsWorkInPostOrder(t *testing.T) {
	d := NewDispatcher()
	var order []int
	for i := range 3 {
		require.NoError(t, d.Post(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Zero(t, d.Drain())
}

func TestDispatcher_WakeHookRunsOnPost(t *testing.T) {
	d := NewDispatcher()
	var wakes atomic.Int32
	d.SetWake(func() { wakes.Add(1) })

	require.NoError(t, d.Post(func() {}))
	require.NoError(t, d.Post(func() {}))
	assert.EqualValues(t, 2, wakes.Load())

	d.SetWake(nil)
	require.NoError(t, d.Post(func() {}))
	assert.EqualValues(t, 2, wakes.Load())
}

func TestDispatcher_InvokeAsync(t *testing.T) {
	d := NewDispatcher()
	uiLoop(t, d)

	boom := errors.New("boom")
	select {
	case err := <-d.InvokeAsync(func() error { return boom }):
		assert.ErrorIs(t, err, boom)
	case <-time.After(waitFor):
		t.Fatal("InvokeAsync never completed")
	}
}

func TestDispatcher_InvokeHonorsContext(t *testing.T) {
	d := NewDispatcher()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := d.Invoke(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcher_CloseReleasesWaitersAndRejectsWork(t *testing.T) {
	d := NewDispatcher()
	result := make(chan error, 1)
	go func() {
		result <- d.Invoke(context.Background(), func() error { return nil })
	}()

	require.Eventually(t, func() bool {
		select {
		case <-d.Ready():
			return true
		default:
			return false
		}
	}, waitFor, tick)
	d.Close()
	d.Close()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrDispatcherClosed)
	case <-time.After(waitFor):
		t.Fatal("waiter was not released")
	}
	assert.ErrorIs(t, d.Post(func() {}), ErrDispatcherClosed)
	assert.ErrorIs(t, <-d.InvokeAsync(func() error { return nil }), ErrDispatcherClosed)
	assert.False(t, d.CheckAccess())
	assert.True(t, isClosed(d.Done()))
}

func TestRunOnUI_ReturnsValue(t *testing.T) {
	d := NewDispatcher()
	uiLoop(t, d)

	v, err := RunOnUI(context.Background(), d, func() (string, error) {
		if !d.CheckAccess() {
			return "", errors.New("not on the UI thread")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	boom := errors.New("boom")
	v, err = RunOnUI(context.Background(), d, func() (string, error) { return "ignored", boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, v)
}
