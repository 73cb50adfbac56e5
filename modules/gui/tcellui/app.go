// Package tcellui is a terminal GUI toolkit built on tcell. Its event loop
// runs on the GUI UI thread and interleaves terminal events with work
// marshaled through the dispatcher.
package tcellui

import (
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"

	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// KeyHandler handles a key before the default bindings. Returning true
// consumes the key.
type KeyHandler func(ev *tcell.EventKey) bool

// Option configures an App.
type Option func(*App)

// WithScreen uses screen instead of the terminal, e.g. a simulation screen.
func WithScreen(screen tcell.Screen) Option {
	return func(a *App) { a.screen = screen }
}

// WithTitle sets the text of the title bar.
func WithTitle(title string) Option {
	return func(a *App) { a.title = title }
}

// WithKeyHandler installs a key handler.
func WithKeyHandler(h KeyHandler) Option {
	return func(a *App) { a.onKey = h }
}

// App is a gui.Application drawing into a terminal. Ctrl+Q shuts it down
// and Esc closes the newest window.
type App struct {
	gui.Base

	title string
	onKey KeyHandler

	mu     sync.Mutex
	screen tcell.Screen
}

// New creates an application. The screen is initialized by Run.
func New(opts ...Option) *App {
	a := &App{title: "modular"}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Screen returns the screen, nil before Run.
func (a *App) Screen() tcell.Screen {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.screen
}

// OpenWindow opens a window showing lines. Call it on the UI thread.
func (a *App) OpenWindow(title string, lines ...string) *Window {
	w := &Window{app: a, title: title, lines: lines}
	a.AddWindow(w)
	a.draw()
	return w
}

// Run initializes the screen and runs the event loop until Shutdown. It
// returns 1 when the terminal cannot be initialized.
func (a *App) Run() int {
	d := a.Dispatcher()
	if d == nil {
		d = gui.NewDispatcher()
		d.Bind()
		a.Attach(d)
	}

	screen, err := a.initScreen()
	if err != nil {
		_ = a.Shutdown(1)
		return a.CompleteRun()
	}
	defer screen.Fini()

	interrupt := func() { _ = screen.PostEvent(tcell.NewEventInterrupt(nil)) }
	d.SetWake(interrupt)
	defer d.SetWake(nil)

	done := a.Done()
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		select {
		case <-done:
			interrupt()
		case <-quit:
		}
	}()

	a.draw()
	for {
		// A full event queue drops the interrupt, so drain on every event.
		if d.Drain() > 0 {
			a.draw()
		}
		select {
		case <-done:
			return a.CompleteRun()
		default:
		}

		switch ev := screen.PollEvent().(type) {
		case nil:
			return a.CompleteRun()
		case *tcell.EventInterrupt:
		default:
			a.handleEvent(ev)
		}
	}
}

func (a *App) initScreen() (tcell.Screen, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, err
		}
		a.screen = screen
	}
	if err := a.screen.Init(); err != nil {
		return nil, err
	}
	a.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorReset).Foreground(tcell.ColorReset))
	a.screen.HideCursor()
	return a.screen, nil
}

func (a *App) handleEvent(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		if s := a.Screen(); s != nil {
			s.Sync()
		}
	case *tcell.EventKey:
		if a.onKey != nil && a.onKey(ev) {
			break
		}
		switch ev.Key() {
		case tcell.KeyCtrlQ:
			_ = a.Shutdown(0)
		case tcell.KeyEscape:
			if windows := a.Windows(); len(windows) > 0 {
				_ = windows[len(windows)-1].Close()
			}
		}
	}
	a.draw()
}

var (
	titleStyle  = tcell.StyleDefault.Reverse(true)
	windowStyle = tcell.StyleDefault.Bold(true)
	textStyle   = tcell.StyleDefault
)

func (a *App) draw() {
	s := a.Screen()
	if s == nil {
		return
	}
	s.Clear()
	width, _ := s.Size()
	for x := 0; x < width; x++ {
		s.SetContent(x, 0, ' ', nil, titleStyle)
	}
	drawText(s, 1, 0, titleStyle, a.title)

	y := 2
	windows := a.Windows()
	for i, w := range windows {
		win := w.(*Window)
		drawText(s, 1, y, windowStyle, "["+win.Title()+"]")
		y++
		if i == len(windows)-1 {
			for _, line := range win.Lines() {
				drawText(s, 3, y, textStyle, line)
				y++
			}
		}
	}
	s.Show()
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range []rune(text) {
		s.SetContent(x+i, y, r, nil, style)
	}
}

// Window is a titled block of text.
type Window struct {
	app    *App
	title  string
	closed atomic.Bool

	mu    sync.Mutex
	lines []string
}

func (w *Window) Title() string {
	return w.title
}

// Lines returns the displayed text.
func (w *Window) Lines() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.lines...)
}

// SetLines replaces the displayed text. Call it on the UI thread.
func (w *Window) SetLines(lines ...string) {
	w.mu.Lock()
	w.lines = lines
	w.mu.Unlock()
	w.app.draw()
}

// Close removes the window. Closing twice is a no-op.
func (w *Window) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	w.app.RemoveWindow(w)
	w.app.draw()
	return nil
}
