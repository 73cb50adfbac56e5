package modular

import (
	"fmt"
	"reflect"
)

// ServiceRegistry allows registration and retrieval of services
type ServiceRegistry map[string]any

// ServiceProvider describes a service a module offers to the application.
type ServiceProvider struct {
	Name        string
	Description string
	Instance    any
}

// ServiceDependency defines a dependency on a service
type ServiceDependency struct {
	Name               string
	Required           bool
	Type               reflect.Type // Concrete type (if known)
	SatisfiesInterface reflect.Type // Interface type (if known)
	MatchByInterface   bool         // Resolve by interface instead of by name
}

// GetTypedService resolves a service by name and asserts it to T.
func GetTypedService[T any](app Application, name string) (T, error) {
	var zero T
	svc, ok := app.SvcRegistry()[name]
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("%w: service '%s' of type %T cannot be assigned to %s",
			ErrServiceIncompatible, name, svc, reflect.TypeFor[T]())
	}
	return typed, nil
}

// checkServiceCompatibility checks if a service satisfies the dependency requirements
func checkServiceCompatibility(service any, dep ServiceDependency) (bool, error) {
	if service == nil {
		return false, fmt.Errorf("%w: %s", ErrServiceNil, dep.Name)
	}

	serviceType := reflect.TypeOf(service)

	if dep.Type != nil && !serviceType.AssignableTo(dep.Type) {
		return false, fmt.Errorf("%w: service '%s' of type %s doesn't satisfy required type %s",
			ErrServiceWrongType, dep.Name, serviceType, dep.Type)
	}

	if dep.SatisfiesInterface != nil && dep.SatisfiesInterface.Kind() == reflect.Interface {
		if implementsInterface(serviceType, dep.SatisfiesInterface) {
			return true, nil
		}

		return false, fmt.Errorf("%w: service '%s' of type %s doesn't satisfy required interface %s",
			ErrServiceWrongInterface, dep.Name, serviceType, dep.SatisfiesInterface)
	}

	return true, nil
}

func implementsInterface(t, iface reflect.Type) bool {
	return t.Implements(iface) || (t.Kind() == reflect.Ptr && t.Elem().Implements(iface))
}
