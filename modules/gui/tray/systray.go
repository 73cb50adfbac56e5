package tray

import (
	"sync"

	"fyne.io/systray"

	"github.com/GoCodeAlone/modular-gui/modules/gui"
)

// driver is the tray backend.
type driver interface {
	run(onReady, onExit func()) (start, end func())
	setTitle(title string)
	setTooltip(tooltip string)
	setIcon(icon []byte)
	addItem(title, tooltip string) <-chan struct{}
}

type systrayDriver struct{}

func (systrayDriver) run(onReady, onExit func()) (func(), func()) {
	return systray.RunWithExternalLoop(onReady, onExit)
}

func (systrayDriver) setTitle(title string)     { systray.SetTitle(title) }
func (systrayDriver) setTooltip(tooltip string) { systray.SetTooltip(tooltip) }
func (systrayDriver) setIcon(icon []byte)       { systray.SetIcon(icon) }

func (systrayDriver) addItem(title, tooltip string) <-chan struct{} {
	return systray.AddMenuItem(title, tooltip).ClickedCh
}

// Option configures a SystrayIcon.
type Option func(*SystrayIcon)

// WithTooltip sets the hover text.
func WithTooltip(tooltip string) Option {
	return func(s *SystrayIcon) { s.tooltip = tooltip }
}

// WithIcon sets the icon image, ICO on Windows and PNG elsewhere.
func WithIcon(icon []byte) Option {
	return func(s *SystrayIcon) { s.icon = icon }
}

// WithQuitTitle renames the Quit menu item.
func WithQuitTitle(title string) Option {
	return func(s *SystrayIcon) { s.quitTitle = title }
}

// SystrayIcon is a fyne.io/systray icon with a Quit menu item that asks the
// GUI to exit.
type SystrayIcon struct {
	title     string
	tooltip   string
	icon      []byte
	quitTitle string
	quit      func()
	driver    driver

	mu     sync.Mutex
	end    func()
	done   chan struct{}
	closed bool
}

// NewSystrayIcon creates an icon whose Quit item calls t.RequestExit.
func NewSystrayIcon[A gui.Application](t *gui.Thread[A], title string, opts ...Option) *SystrayIcon {
	return newSystrayIcon(systrayDriver{}, t.RequestExit, title, opts...)
}

func newSystrayIcon(d driver, quit func(), title string, opts ...Option) *SystrayIcon {
	s := &SystrayIcon{
		title:     title,
		quitTitle: "Quit",
		quit:      quit,
		driver:    d,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeComponent registers the icon with the desktop.
func (s *SystrayIcon) InitializeComponent() error {
	start, end := s.driver.run(s.onReady, func() {})
	s.mu.Lock()
	s.end = end
	s.mu.Unlock()
	start()
	return nil
}

func (s *SystrayIcon) onReady() {
	s.driver.setTitle(s.title)
	if s.tooltip != "" {
		s.driver.setTooltip(s.tooltip)
	}
	if len(s.icon) > 0 {
		s.driver.setIcon(s.icon)
	}
	clicked := s.driver.addItem(s.quitTitle, "Quit "+s.title)
	go func() {
		select {
		case <-clicked:
			s.quit()
		case <-s.done:
		}
	}()
}

// Close removes the icon. It is idempotent.
func (s *SystrayIcon) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	end := s.end
	s.mu.Unlock()

	if end != nil {
		end()
	}
	return nil
}
