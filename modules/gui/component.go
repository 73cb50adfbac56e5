package gui

import (
	"errors"
	"io"
	"sync"
)

// Component is a UI-affine object created on the UI thread before the event
// loop starts, such as a tray icon. Components that implement io.Closer are
// closed on the UI thread after the loop returns.
type Component interface {
	InitializeComponent() error
}

// ComponentFactory creates a component on the UI thread.
type ComponentFactory func() (Component, error)

// DisposableList closes its items once, newest first.
type DisposableList struct {
	mu     sync.Mutex
	items  []io.Closer
	closed bool
}

// Add appends v if it is an io.Closer. Items added after Close are closed
// immediately.
func (l *DisposableList) Add(v any) error {
	c, ok := v.(io.Closer)
	if !ok {
		return nil
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return c.Close()
	}
	l.items = append(l.items, c)
	l.mu.Unlock()
	return nil
}

// Len returns the number of items awaiting Close.
func (l *DisposableList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Close closes every item in reverse order and joins their errors.
func (l *DisposableList) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	items := l.items
	l.items = nil
	l.mu.Unlock()

	var errs []error
	for i := len(items) - 1; i >= 0; i-- {
		if err := items[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
