// Package bootstrap wires the host's modules into a third-party dependency
// container.
package bootstrap

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	modular "github.com/GoCodeAlone/modular-gui"
)

// Bootstrap configures a container of type C from the registered modules.
type Bootstrap[C any] interface {
	Boot(container C, modules []modular.Module) error
}

// Func adapts a function to Bootstrap.
type Func[C any] func(container C, modules []modular.Module) error

func (f Func[C]) Boot(container C, modules []modular.Module) error {
	return f(container, modules)
}

type registry[C any] struct {
	mu    sync.Mutex
	items []Bootstrap[C]
}

func (r *registry[C]) add(b Bootstrap[C]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, b)
}

func (r *registry[C]) list() []Bootstrap[C] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Bootstrap[C](nil), r.items...)
}

// ServiceName is the name of the service collecting the bootstraps for C.
func ServiceName[C any]() string {
	return "bootstrap." + reflect.TypeFor[C]().String()
}

// Add registers b for containers of type C.
func Add[C any](app modular.Application, b Bootstrap[C]) error {
	name := ServiceName[C]()
	var reg *registry[C]
	err := app.GetService(name, &reg)
	switch {
	case errors.Is(err, modular.ErrServiceNotFound):
		reg = &registry[C]{}
		if err := app.RegisterService(name, reg); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	reg.add(b)
	return nil
}

// UseContainer boots container with every bootstrap added for C, in the
// order they were added. All bootstraps run; their errors are joined.
func UseContainer[C any](app modular.Application, container C) error {
	var reg *registry[C]
	if err := app.GetService(ServiceName[C](), &reg); err != nil {
		if errors.Is(err, modular.ErrServiceNotFound) {
			return nil
		}
		return err
	}

	modules := app.Modules()
	var errs []error
	for _, b := range reg.list() {
		if err := b.Boot(container, modules); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap %T: %w", b, err))
		}
	}
	return errors.Join(errs...)
}
