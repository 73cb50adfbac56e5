package modular

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

type testLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *testLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *testLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *testLogger) Error(msg string, args ...any) { l.log("error", msg, args) }
func (l *testLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *testLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }

func (l *testLogger) has(level, prefix string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.HasPrefix(e.msg, prefix) {
			return true
		}
	}
	return false
}

// journal records lifecycle calls across modules.
type journal struct {
	mu    sync.Mutex
	calls []string
}

func (j *journal) add(call string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, call)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.calls...)
}

type trackingModule struct {
	name     string
	deps     []string
	provides []ServiceProvider
	requires []ServiceDependency
	journal  *journal
	startErr error
	stopErr  error
	stopCtx  context.Context
}

func (m *trackingModule) Name() string { return m.name }

func (m *trackingModule) Init(Application) error {
	m.journal.add("init:" + m.name)
	return nil
}

func (m *trackingModule) Dependencies() []string { return m.deps }

func (m *trackingModule) ProvidesServices() []ServiceProvider { return m.provides }

func (m *trackingModule) RequiresServices() []ServiceDependency { return m.requires }

func (m *trackingModule) Start(context.Context) error {
	m.journal.add("start:" + m.name)
	return m.startErr
}

func (m *trackingModule) Stop(ctx context.Context) error {
	m.stopCtx = ctx
	m.journal.add("stop:" + m.name)
	return m.stopErr
}

func newTestApp(t *testing.T, modules ...Module) (*StdApplication, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	app := newStdApplication(NewStdConfigProvider(&struct{}{}), logger)
	app.SetConfigFeeders([]Feeder{})
	for _, m := range modules {
		app.RegisterModule(m)
	}
	t.Cleanup(func() { _ = app.Close() })
	return app, logger
}

func TestStdApplication_LifecycleOrder(t *testing.T) {
	j := &journal{}
	app, _ := newTestApp(t,
		&trackingModule{name: "web", deps: []string{"db"}, journal: j},
		&trackingModule{name: "db", journal: j},
		&trackingModule{name: "cache", journal: j},
	)

	require.NoError(t, app.Init())
	require.NoError(t, app.Start())
	require.NoError(t, app.Stop())

	assert.Equal(t, []string{
		"init:cache", "init:db", "init:web",
		"start:cache", "start:db", "start:web",
		"stop:web", "stop:db", "stop:cache",
	}, j.list())
}

func TestStdApplication_ServiceRequirementOrdersModules(t *testing.T) {
	j := &journal{}
	app, _ := newTestApp(t,
		&trackingModule{name: "a-consumer", journal: j, requires: []ServiceDependency{{Name: "store", Required: true}}},
		&trackingModule{name: "z-provider", journal: j, provides: []ServiceProvider{{Name: "store", Instance: &strings.Builder{}}}},
	)

	require.NoError(t, app.Init())
	assert.Equal(t, []string{"init:z-provider", "init:a-consumer"}, j.list())
}

type greeter interface {
	Greet() string
}

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

type constructedModule struct {
	trackingModule
	greeter greeter
}

func (m *constructedModule) Constructor() ModuleConstructor {
	return func(app Application, services map[string]any) (Module, error) {
		g, ok := services["greeter"].(greeter)
		if !ok {
			return nil, errors.New("greeter missing")
		}
		return &constructedModule{trackingModule: m.trackingModule, greeter: g}, nil
	}
}

func TestStdApplication_ConstructorInjection(t *testing.T) {
	j := &journal{}
	consumer := &constructedModule{trackingModule: trackingModule{
		name:    "consumer",
		journal: j,
		requires: []ServiceDependency{{
			Name:               "greeter",
			Required:           true,
			SatisfiesInterface: reflect.TypeFor[greeter](),
		}},
	}}
	app, _ := newTestApp(t, consumer,
		&trackingModule{name: "provider", journal: j, provides: []ServiceProvider{{Name: "greeter", Instance: englishGreeter{}}}},
	)

	require.NoError(t, app.Init())
	rebuilt, ok := app.moduleRegistry["consumer"].(*constructedModule)
	require.True(t, ok)
	require.NotNil(t, rebuilt.greeter)
	assert.Equal(t, "hello", rebuilt.greeter.Greet())
}

func TestStdApplication_InterfaceMatchedDependency(t *testing.T) {
	j := &journal{}
	consumer := &constructedModule{trackingModule: trackingModule{
		name:    "consumer",
		journal: j,
		requires: []ServiceDependency{{
			Name:               "anything",
			Required:           true,
			MatchByInterface:   true,
			SatisfiesInterface: reflect.TypeFor[greeter](),
		}},
	}}
	app, _ := newTestApp(t, consumer,
		&trackingModule{name: "provider", journal: j, provides: []ServiceProvider{{Name: "greeter", Instance: englishGreeter{}}}},
	)

	require.NoError(t, app.Init())
	assert.Equal(t, []string{"init:provider", "init:consumer"}, j.list())
}

func TestStdApplication_InitErrors(t *testing.T) {
	t.Run("missing required service", func(t *testing.T) {
		app, _ := newTestApp(t, &trackingModule{name: "m", journal: &journal{},
			requires: []ServiceDependency{{Name: "db", Required: true}}})
		err := app.Init()
		require.ErrorIs(t, err, ErrRequiredServiceNotFound)
		assert.Contains(t, err.Error(), "db")
	})

	t.Run("optional service may be absent", func(t *testing.T) {
		app, _ := newTestApp(t, &trackingModule{name: "m", journal: &journal{},
			requires: []ServiceDependency{{Name: "db"}}})
		assert.NoError(t, app.Init())
	})

	t.Run("wrong interface", func(t *testing.T) {
		app, _ := newTestApp(t,
			&trackingModule{name: "consumer", journal: &journal{}, requires: []ServiceDependency{{
				Name: "greeter", Required: true, SatisfiesInterface: reflect.TypeFor[greeter](),
			}}},
			&trackingModule{name: "provider", journal: &journal{}, provides: []ServiceProvider{{Name: "greeter", Instance: 42}}},
		)
		assert.ErrorIs(t, app.Init(), ErrServiceWrongInterface)
	})

	t.Run("missing module dependency", func(t *testing.T) {
		app, _ := newTestApp(t, &trackingModule{name: "m", deps: []string{"ghost"}, journal: &journal{}})
		assert.ErrorIs(t, app.Init(), ErrModuleDependencyMissing)
	})

	t.Run("circular dependency", func(t *testing.T) {
		app, _ := newTestApp(t,
			&trackingModule{name: "a", deps: []string{"b"}, journal: &journal{}},
			&trackingModule{name: "b", deps: []string{"a"}, journal: &journal{}},
		)
		assert.ErrorIs(t, app.Init(), ErrCircularDependency)
	})

	t.Run("duplicate provided service", func(t *testing.T) {
		app, _ := newTestApp(t,
			&trackingModule{name: "a", journal: &journal{}, provides: []ServiceProvider{{Name: "svc", Instance: 1}}},
			&trackingModule{name: "b", journal: &journal{}, provides: []ServiceProvider{{Name: "svc", Instance: 2}}},
		)
		assert.ErrorIs(t, app.Init(), ErrServiceAlreadyRegistered)
	})
}

func TestStdApplication_StartStates(t *testing.T) {
	app, _ := newTestApp(t)
	require.ErrorIs(t, app.Start(), ErrApplicationNotInitialized)

	require.NoError(t, app.Init())
	require.NoError(t, app.Start())
	assert.ErrorIs(t, app.Start(), ErrApplicationAlreadyStarted)
	assert.ErrorIs(t, app.SetHostLifetime(NewConsoleLifetime()), ErrApplicationAlreadyStarted)
	require.NoError(t, app.Stop())
}

func TestStdApplication_StopJoinsErrorsAndUsesShutdownTimeout(t *testing.T) {
	j := &journal{}
	first := &trackingModule{name: "a", journal: j, stopErr: errors.New("a failed")}
	second := &trackingModule{name: "b", journal: j, stopErr: errors.New("b failed")}
	app, logger := newTestApp(t, first, second)
	app.hostOptions.ShutdownTimeout = 3 * time.Second

	require.NoError(t, app.Init())
	require.NoError(t, app.Start())
	err := app.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a failed")
	assert.Contains(t, err.Error(), "b failed")
	assert.Equal(t, []string{"stop:b", "stop:a"}, j.list()[4:])
	assert.True(t, logger.has("error", "Error stopping module"))

	deadline, ok := first.stopCtx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(3*time.Second), deadline, 3*time.Second)

	select {
	case <-app.Lifetime().Stopped():
	default:
		t.Fatal("stopped phase did not fire")
	}
}

func TestStdApplication_RunReturnsAfterStopApplication(t *testing.T) {
	j := &journal{}
	app, _ := newTestApp(t, &trackingModule{name: "worker", journal: j})

	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	select {
	case <-app.Lifetime().Started():
	case <-time.After(2 * time.Second):
		t.Fatal("application did not start")
	}
	app.Lifetime().StopApplication()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, []string{"init:worker", "start:worker", "stop:worker"}, j.list())
}

func TestStdApplication_RunStopsAfterFailedStart(t *testing.T) {
	j := &journal{}
	app, _ := newTestApp(t,
		&trackingModule{name: "a", journal: j},
		&trackingModule{name: "b", journal: j, startErr: errors.New("boom")},
	)

	err := app.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, j.list(), "stop:a")
}

type closingLifetime struct {
	closes int
}

func (l *closingLifetime) WaitForStart(context.Context, Application) error { return nil }
func (l *closingLifetime) Stop(context.Context) error                      { return nil }
func (l *closingLifetime) Close() error {
	l.closes++
	return nil
}

func TestStdApplication_CloseClosesHostLifetimeOnce(t *testing.T) {
	app, _ := newTestApp(t)
	l := &closingLifetime{}
	require.NoError(t, app.SetHostLifetime(l))
	assert.ErrorIs(t, app.SetHostLifetime(nil), ErrHostLifetimeNil)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
	assert.Equal(t, 1, l.closes)
}

func TestStdApplication_FrameworkServices(t *testing.T) {
	app, _ := newTestApp(t)
	require.NoError(t, app.Init())

	var lifetime ApplicationLifetime
	require.NoError(t, app.GetService(LifetimeServiceName, &lifetime))
	assert.Same(t, app.lifetime, lifetime)

	var opts *HostOptions
	require.NoError(t, app.GetService(HostOptionsServiceName, &opts))
	assert.Equal(t, 30*time.Second, opts.ShutdownTimeout)

	var env HostEnvironment
	require.NoError(t, app.GetService(HostEnvironmentServiceName, &env))
	assert.Equal(t, "Production", env.EnvironmentName)
	assert.NotEmpty(t, env.ContentRootPath)
}

func TestStdApplication_GetService(t *testing.T) {
	app, _ := newTestApp(t)
	require.NoError(t, app.RegisterService("greeter", &englishGreeter{}))
	require.NoError(t, app.RegisterService("count", 7))
	assert.ErrorIs(t, app.RegisterService("count", 8), ErrServiceAlreadyRegistered)

	var g greeter
	require.NoError(t, app.GetService("greeter", &g))
	assert.Equal(t, "hello", g.Greet())

	var ptr *englishGreeter
	require.NoError(t, app.GetService("greeter", &ptr))
	assert.NotNil(t, ptr)

	var val englishGreeter
	require.NoError(t, app.GetService("greeter", &val))

	var n int
	require.NoError(t, app.GetService("count", &n))
	assert.Equal(t, 7, n)

	var s string
	assert.ErrorIs(t, app.GetService("count", &s), ErrServiceIncompatible)
	assert.ErrorIs(t, app.GetService("missing", &s), ErrServiceNotFound)
	assert.ErrorIs(t, app.GetService("count", n), ErrTargetNotPointer)
}

func TestGetTypedService(t *testing.T) {
	app, _ := newTestApp(t)
	require.NoError(t, app.RegisterService("greeter", englishGreeter{}))

	g, err := GetTypedService[greeter](app, "greeter")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	_, err = GetTypedService[fmt.Stringer](app, "greeter")
	assert.ErrorIs(t, err, ErrServiceIncompatible)

	_, err = GetTypedService[greeter](app, "nope")
	assert.ErrorIs(t, err, ErrServiceNotFound)
}

func TestStdApplication_ExitCode(t *testing.T) {
	app, _ := newTestApp(t)
	assert.Zero(t, app.ExitCode())
	app.SetExitCode(3)
	assert.Equal(t, 3, app.ExitCode())
}

func TestStdApplication_ModulesSortedByName(t *testing.T) {
	app, _ := newTestApp(t,
		&trackingModule{name: "b", journal: &journal{}},
		&trackingModule{name: "a", journal: &journal{}},
	)
	modules := app.Modules()
	require.Len(t, modules, 2)
	assert.Equal(t, "a", modules[0].Name())
	assert.Equal(t, "b", modules[1].Name())
}
