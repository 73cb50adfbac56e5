package gui

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedWindow struct {
	title   string
	journal *journal
	err     error
}

func (w *orderedWindow) Title() string { return w.title }

func (w *orderedWindow) Close() error {
	w.journal.add(w.title)
	return w.err
}

func TestBase_ShutdownOnce(t *testing.T) {
	var b Base
	require.NoError(t, b.Shutdown(4))
	assert.ErrorIs(t, b.Shutdown(1), ErrAlreadyShutdown)
	assert.True(t, b.IsShutdown())
	assert.Equal(t, 4, b.ExitCode())
	assert.True(t, isClosed(b.Done()))
}

func TestBase_RunRaisesExitEvent(t *testing.T) {
	h := NewHeadless()
	var got []int
	h.OnExit(func(e ExitEvent) { got = append(got, e.ExitCode) })
	removed := h.OnExit(func(ExitEvent) { t.Error("unsubscribed handler ran") })
	removed.Unsubscribe()
	assert.Equal(t, 1, h.ExitHandlerCount())

	code := make(chan int, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		code <- h.Run()
	}()

	require.Eventually(t, func() bool { return h.Dispatcher() != nil }, waitFor, tick)
	require.NoError(t, h.Shutdown(7))

	select {
	case c := <-code:
		assert.Equal(t, 7, c)
	case <-time.After(waitFor):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []int{7}, got)
}

func TestBase_CloseAllWindowsNewestFirst(t *testing.T) {
	var b Base
	j := &journal{}
	bad := errors.New("refused")
	b.AddWindow(&orderedWindow{title: "main", journal: j})
	b.AddWindow(&orderedWindow{title: "settings", journal: j, err: bad})
	b.AddWindow(&orderedWindow{title: "about", journal: j})

	err := b.CloseAllWindows()
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, []string{"about", "settings", "main"}, j.list())
}

func TestBase_ShutdownOnLastWindowClose(t *testing.T) {
	h := NewHeadless()
	h.ShutdownMode = ShutdownOnLastWindowClose
	main := h.OpenWindow("main")
	dialog := h.OpenWindow("dialog")

	require.NoError(t, dialog.Close())
	assert.False(t, h.IsShutdown())
	require.NoError(t, main.Close())
	require.NoError(t, main.Close())
	assert.True(t, h.IsShutdown())
	assert.Empty(t, h.Windows())
}

func TestBase_ExplicitShutdownKeepsRunningWithoutWindows(t *testing.T) {
	h := NewHeadless()
	w := h.OpenWindow("main")
	require.NoError(t, w.Close())
	assert.True(t, w.IsClosed())
	assert.False(t, h.IsShutdown())
}

func TestResources_FindSearchesOneMergedLevel(t *testing.T) {
	root := NewResources()
	merged := NewResources()
	nested := NewResources()
	root.Set("title", "Main")
	merged.Set("Locator", "merged-locator")
	nested.Set("deep", true)
	merged.Merge(nested)
	root.Merge(merged)

	v, ok := root.Find("title")
	assert.True(t, ok)
	assert.Equal(t, "Main", v)

	v, ok = root.Find("Locator")
	assert.True(t, ok)
	assert.Equal(t, "merged-locator", v)

	_, ok = root.Find("deep")
	assert.False(t, ok)
	_, ok = root.Get("Locator")
	assert.False(t, ok)
}

func TestContext_PublishesOnce(t *testing.T) {
	c := NewContext[*Headless]()
	_, err := c.Dispatcher()
	assert.ErrorIs(t, err, ErrApplicationNotCreated)
	assert.False(t, isClosed(c.Created()))

	first, second := NewHeadless(), NewHeadless()
	assert.True(t, c.publish(first))
	assert.False(t, c.publish(second))

	app, ok := c.Application()
	require.True(t, ok)
	assert.Same(t, first, app)
	assert.True(t, isClosed(c.Created()))

	_, err = c.Dispatcher()
	assert.ErrorIs(t, err, ErrThreadNotStarted)
}

func TestContext_ClaimShutdownOnce(t *testing.T) {
	c := NewContext[*Headless]()
	assert.False(t, c.claimShutdown())
	c.setRunning()
	assert.True(t, c.IsRunning())
	assert.True(t, c.claimShutdown())
	assert.False(t, c.claimShutdown())
	assert.False(t, c.IsRunning())
}

func TestDisposableList_ClosesInReverseOnce(t *testing.T) {
	var l DisposableList
	j := &journal{}
	bad := errors.New("close failed")
	require.NoError(t, l.Add(&orderedWindow{title: "a", journal: j}))
	require.NoError(t, l.Add(&orderedWindow{title: "b", journal: j, err: bad}))
	require.NoError(t, l.Add("not a closer"))
	assert.Equal(t, 2, l.Len())

	assert.ErrorIs(t, l.Close(), bad)
	assert.NoError(t, l.Close())
	assert.Equal(t, []string{"b", "a"}, j.list())

	require.NoError(t, l.Add(&orderedWindow{title: "late", journal: j}))
	assert.Equal(t, []string{"b", "a", "late"}, j.list())
	assert.Zero(t, l.Len())
}
