package gui

import "sync/atomic"

// Headless is an Application without a display. Its loop only runs
// dispatched work, which makes it the toolkit of choice for services and
// tests.
type Headless struct {
	Base
}

// NewHeadless creates a headless application.
func NewHeadless() *Headless {
	return &Headless{}
}

// OpenWindow opens a tracked window with the given title.
func (h *Headless) OpenWindow(title string) *HeadlessWindow {
	w := &HeadlessWindow{title: title, owner: &h.Base}
	h.AddWindow(w)
	return w
}

// HeadlessWindow is a window of a Headless application.
type HeadlessWindow struct {
	title  string
	owner  *Base
	closed atomic.Bool
}

func (w *HeadlessWindow) Title() string {
	return w.title
}

// Close removes the window from its application. Closing twice is a no-op.
func (w *HeadlessWindow) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.owner.RemoveWindow(w)
	return nil
}

// IsClosed reports whether Close was called.
func (w *HeadlessWindow) IsClosed() bool {
	return w.closed.Load()
}
