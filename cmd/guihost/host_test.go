package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/modular-gui/modules/gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui/locator"
)

type testLogger struct{}

func (l *testLogger) Debug(msg string, args ...any) {}
func (l *testLogger) Info(msg string, args ...any)  {}
func (l *testLogger) Warn(msg string, args ...any)  {}
func (l *testLogger) Error(msg string, args ...any) {}

func windowLines(t *testing.T, h *host) []string {
	t.Helper()
	d, err := h.gui.Context().Dispatcher()
	require.NoError(t, err)
	lines, err := gui.RunOnUI(context.Background(), d, func() ([]string, error) {
		app, _ := h.gui.Context().Application()
		return app.window.Lines(), nil
	})
	require.NoError(t, err)
	return lines
}

func runHost(t *testing.T, opts options) (*host, tcell.SimulationScreen, <-chan error) {
	t.Helper()
	sim := tcell.NewSimulationScreen("UTF-8")
	h, err := newHost(opts, &testLogger{}, sim)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- h.app.Run() }()
	require.Eventually(t, h.gui.Context().IsRunning, 2*time.Second, 5*time.Millisecond)
	return h, sim, done
}

func waitRun(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("host did not stop")
	}
}

func TestHost_NotesUntilQuit(t *testing.T) {
	h, sim, done := runHost(t, options{configPath: filepath.Join(t.TempDir(), "missing.yaml")})

	assert.Equal(t, []string{"hosting module gui"}, windowLines(t, h))

	require.NoError(t, sim.PostEvent(tcell.NewEventKey(tcell.KeyCtrlN, 0, tcell.ModCtrl)))
	require.Eventually(t, func() bool { return len(windowLines(t, h)) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "note 2", windowLines(t, h)[1])

	require.NoError(t, sim.PostEvent(tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)))
	waitRun(t, done)
	assert.Equal(t, 0, h.app.ExitCode())
}

func TestHost_ClosingWindowStopsHost(t *testing.T) {
	h, sim, done := runHost(t, options{configPath: filepath.Join(t.TempDir(), "missing.yaml"), noLifetime: true})
	assert.Nil(t, h.lifetime)

	require.NoError(t, sim.PostEvent(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)))
	waitRun(t, done)
	assert.False(t, h.gui.Context().IsRunning())
}

func TestHost_LocatorIsRegistered(t *testing.T) {
	h, sim, done := runHost(t, options{configPath: filepath.Join(t.TempDir(), "missing.yaml")})

	d, err := h.gui.Context().Dispatcher()
	require.NoError(t, err)
	title, err := gui.RunOnUI(context.Background(), d, func() (string, error) {
		app, _ := h.gui.Context().Application()
		host, err := locator.Lookup[*viewModels](app)
		if err != nil {
			return "", err
		}
		vm, err := host.ViewModelLocator()
		if err != nil {
			return "", err
		}
		return vm.Title, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Notes", title)

	require.NoError(t, sim.PostEvent(tcell.NewEventKey(tcell.KeyCtrlQ, 0, tcell.ModCtrl)))
	waitRun(t, done)
}

func TestHost_ReloadTogglesStatusMessages(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("gui:\n  thread_name: Notes UI\n"), 0o600))

	h, err := newHost(options{configPath: cfg}, &testLogger{}, tcell.NewSimulationScreen("UTF-8"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.app.Close() })
	require.NotNil(t, h.lifetime)
	assert.False(t, h.lifetime.SuppressStatusMessages())

	require.NoError(t, os.WriteFile(cfg, []byte("gui:\n  suppress_status_messages: true\n"), 0o600))
	h.reload([]string{cfg})
	assert.True(t, h.lifetime.SuppressStatusMessages())

	require.NoError(t, os.WriteFile(cfg, []byte("gui: [not, a, map]\n"), 0o600))
	h.reload([]string{cfg})
	assert.True(t, h.lifetime.SuppressStatusMessages())
}

func TestHost_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("GUI_THREAD_NAME", "Plain UI")
	t.Setenv("GUIHOST_GUI_THREAD_NAME", "Notes UI")
	t.Setenv("GUIHOST_GUI_SUPPRESS_STATUS_MESSAGES", "true")

	h, err := newHost(options{configPath: filepath.Join(t.TempDir(), "missing.yaml"), noLifetime: true}, &testLogger{}, tcell.NewSimulationScreen("UTF-8"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.app.Close() })

	require.NoError(t, h.app.Init())
	assert.Equal(t, "Notes UI", h.gui.Config().ThreadName)
	assert.True(t, h.gui.Config().SuppressStatusMessages)
}

func TestRootCommand_Flags(t *testing.T) {
	code := 0
	cmd := newRootCommand(&code)

	for name, def := range map[string]string{
		"config":      "config.yaml",
		"status-addr": "",
		"log-file":    "guihost.log",
		"tray":        "false",
		"watch":       "true",
		"no-lifetime": "false",
	} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}
