// Package locator bridges a view model locator living in the host's
// services into the resources of a GUI application, where views look it up
// by key.
package locator

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	modular "github.com/GoCodeAlone/modular-gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// DefaultKey is the resource key a Host is registered under.
const DefaultKey = "Locator"

var (
	// ErrLocatorNotRegistered is returned when no Host is found in the application resources.
	ErrLocatorNotRegistered = errors.New("locator: view model locator host not registered")
	// ErrLocatorNotSet is returned when a Host has no locator yet.
	ErrLocatorNotSet = errors.New("locator: view model locator not set")
)

// Container resolves services by name. modular.Application satisfies it.
type Container interface {
	GetService(name string, target any) error
}

// Host holds the view model locator of an application. Add it to the
// application resources under its LocatorName.
type Host[L any] struct {
	name string

	mu      sync.RWMutex
	locator L
	set     bool
}

// NewHost creates a host registered under DefaultKey.
func NewHost[L any]() *Host[L] {
	return NewNamedHost[L](DefaultKey)
}

// NewNamedHost creates a host registered under name.
func NewNamedHost[L any](name string) *Host[L] {
	return &Host[L]{name: name}
}

// LocatorName is the resource key of the host.
func (h *Host[L]) LocatorName() string {
	return h.name
}

func (h *Host[L]) SetViewModelLocator(l L) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.locator = l
	h.set = true
}

// ViewModelLocator returns the locator, ErrLocatorNotSet before
// SetViewModelLocator.
func (h *Host[L]) ViewModelLocator() (L, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !h.set {
		var zero L
		return zero, ErrLocatorNotSet
	}
	return h.locator, nil
}

// Register adds h to the application resources under its name.
func (h *Host[L]) Register(app gui.Application) {
	app.Resources().Set(h.name, h)
}

// Lookup finds the Host registered under DefaultKey.
func Lookup[L any](app gui.Application) (*Host[L], error) {
	return LookupKey[L](app, DefaultKey)
}

// LookupKey finds the Host registered under key, searching the application
// resources and then their merged dictionaries.
func LookupKey[L any](app gui.Application, key string) (*Host[L], error) {
	name := typeName[L]()
	v, ok := app.Resources().Find(key)
	if !ok {
		return nil, fmt.Errorf("%w: register a locator.Host[%s] in the application resources under the key %q",
			ErrLocatorNotRegistered, name, key)
	}
	h, ok := v.(*Host[L])
	if !ok {
		return nil, fmt.Errorf("%w: resource %q holds %T, not *locator.Host[%s]", ErrLocatorNotRegistered, key, v, name)
	}
	return h, nil
}

// Initializer is implemented by applications that receive the locator on
// the UI thread. InitializeLocator runs after Initialize.
type Initializer[L any] interface {
	gui.Initializer
	InitializeLocator(l L) error
}

// UseViewModelLocator initializes the application with l. It cannot be
// combined with gui.UseInitialization.
func UseViewModelLocator[A interface {
	gui.Application
	Initializer[L]
}, L any](t *gui.Thread[A], l L) error {
	return UseViewModelLocatorFunc(t, func(modular.Application) (L, error) {
		return l, nil
	})
}

// UseViewModelLocatorFunc initializes the application with the locator
// returned by f, which runs on the UI thread after Initialize.
func UseViewModelLocatorFunc[A interface {
	gui.Application
	Initializer[L]
}, L any](t *gui.Thread[A], f func(modular.Application) (L, error)) error {
	return t.SetPreStartHook(func(c *gui.Context[A]) error {
		app, ok := c.Application()
		if !ok {
			return gui.ErrApplicationNotCreated
		}
		if err := app.Initialize(); err != nil {
			return err
		}
		l, err := f(t.Host())
		if err != nil {
			return fmt.Errorf("failed to create view model locator: %w", err)
		}
		return app.InitializeLocator(l)
	})
}

// UseViewModelLocatorFrom initializes the application with the locator
// service name resolved from c.
func UseViewModelLocatorFrom[A interface {
	gui.Application
	Initializer[L]
}, L any](t *gui.Thread[A], c Container, name string) error {
	return UseViewModelLocatorFunc(t, func(modular.Application) (L, error) {
		var l L
		if err := c.GetService(name, &l); err != nil {
			return l, err
		}
		return l, nil
	})
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
