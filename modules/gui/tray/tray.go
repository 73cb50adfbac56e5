// Package tray registers notification area icons that live on a GUI's UI
// thread.
package tray

import (
	"io"

	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// Icon is a tray icon. It is created and initialized on the UI thread
// before the event loop starts, and closed there after the loop returned.
type Icon interface {
	gui.Component
	io.Closer
}

// Register adds a tray icon to the UI thread. factory runs once, on the UI
// thread, each time the thread starts.
func Register[A gui.Application, I Icon](t *gui.Thread[A], factory func(*gui.Thread[A]) (I, error)) error {
	return t.AddComponent(func() (gui.Component, error) {
		icon, err := factory(t)
		if err != nil {
			return nil, err
		}
		return icon, nil
	})
}
