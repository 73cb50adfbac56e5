package modular

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isDone(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestStdLifetime_CallbacksRunOnceInOrder(t *testing.T) {
	l := NewStdLifetime(&testLogger{})
	var calls []string
	l.OnStopping(func() { calls = append(calls, "first") })
	l.OnStopping(func() { calls = append(calls, "second") })
	removed := l.OnStopping(func() { calls = append(calls, "removed") })
	require.NoError(t, removed.Close())
	require.NoError(t, removed.Close())

	assert.False(t, isDone(l.Stopping()))
	l.StopApplication()
	l.StopApplication()

	assert.True(t, isDone(l.Stopping()))
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestStdLifetime_LateRegistrationRunsImmediately(t *testing.T) {
	l := NewStdLifetime(&testLogger{})
	l.NotifyStarted()

	ran := false
	reg := l.OnStarted(func() { ran = true })
	assert.True(t, ran)
	assert.NoError(t, reg.Close())
}

func TestStdLifetime_PanickingCallbackIsLogged(t *testing.T) {
	logger := &testLogger{}
	l := NewStdLifetime(logger)
	after := false
	l.OnStopped(func() { panic("boom") })
	l.OnStopped(func() { after = true })

	l.NotifyStopped()

	assert.True(t, after)
	assert.True(t, logger.has("error", "Lifetime callback panicked"))
}

func TestStdLifetime_ConcurrentStopFiresOnce(t *testing.T) {
	l := NewStdLifetime(&testLogger{})
	var fired atomic.Int32
	l.OnStopping(func() { fired.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.StopApplication()
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, fired.Load())
}

func TestConsoleLifetime_StatusMessages(t *testing.T) {
	app, logger := newTestApp(t)
	require.NoError(t, app.Init())
	require.NoError(t, app.Start())

	assert.True(t, logger.has("info", "Application started. Press Ctrl+C to shut down."))
	assert.True(t, logger.has("info", "Hosting environment"))
	assert.True(t, logger.has("info", "Content root path"))

	require.NoError(t, app.Stop())
	assert.True(t, logger.has("info", "Application is shutting down..."))
}

func TestConsoleLifetime_SuppressedStatusMessages(t *testing.T) {
	app, logger := newTestApp(t)
	require.NoError(t, app.Init())
	app.hostOptions.SuppressStatusMessages = true
	require.NoError(t, app.Start())
	require.NoError(t, app.Stop())

	assert.False(t, logger.has("info", "Application started"))
	assert.False(t, logger.has("info", "Application is shutting down"))
}

func TestConsoleLifetime_CloseDropsCallbacks(t *testing.T) {
	app, logger := newTestApp(t)
	l := NewConsoleLifetime()
	require.NoError(t, app.SetHostLifetime(l))
	require.NoError(t, l.WaitForStart(context.Background(), app))

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	app.lifetime.StopApplication()
	assert.False(t, logger.has("info", "Application is shutting down..."))
}

func TestConsoleLifetime_StopApplicationEndsRun(t *testing.T) {
	app, _ := newTestApp(t)
	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	require.Eventually(t, func() bool { return isDone(app.Lifetime().Started()) }, 2*time.Second, 5*time.Millisecond)
	app.Lifetime().StopApplication()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.True(t, isDone(app.Lifetime().Stopped()))
}
