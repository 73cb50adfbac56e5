package main

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	modular "github.com/GoCodeAlone/modular-gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui/locator"
	"github.com/GoCodeAlone/modular-gui/modules/gui/tcellui"
)

const notesServiceName = "notes"

// noteBook is the data shared between the host and the GUI.
type noteBook struct {
	mu    sync.Mutex
	notes []string
}

func (n *noteBook) Add(note string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, note)
}

func (n *noteBook) Lines() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.notes...)
}

func (n *noteBook) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notes)
}

// bootNotes seeds the note book with the hosted modules and registers it.
func bootNotes(app modular.Application, modules []modular.Module) error {
	notes := &noteBook{}
	for _, m := range modules {
		notes.Add("hosting module " + m.Name())
	}
	return app.RegisterService(notesServiceName, notes)
}

type viewModels struct {
	Title string
	Notes *noteBook
}

func resolveViewModels(app modular.Application) (*viewModels, error) {
	var notes *noteBook
	if err := app.GetService(notesServiceName, &notes); err != nil {
		return nil, err
	}
	title := app.Environment().ApplicationName
	if title == "" {
		title = "Notes"
	}
	return &viewModels{Title: title, Notes: notes}, nil
}

// notesApp shows the note book in a single window and shuts down when the
// window is closed.
type notesApp struct {
	*tcellui.App

	vm     *viewModels
	window *tcellui.Window
}

func newNotesApp(screen tcell.Screen) *notesApp {
	a := &notesApp{}
	opts := []tcellui.Option{
		tcellui.WithTitle("guihost | Ctrl+N add note | Esc close | Ctrl+Q quit"),
		tcellui.WithKeyHandler(a.handleKey),
	}
	if screen != nil {
		opts = append(opts, tcellui.WithScreen(screen))
	}
	a.App = tcellui.New(opts...)
	return a
}

func (a *notesApp) Initialize() error {
	a.ShutdownMode = gui.ShutdownOnLastWindowClose
	locator.NewHost[*viewModels]().Register(a)
	return nil
}

func (a *notesApp) InitializeLocator(vm *viewModels) error {
	h, err := locator.Lookup[*viewModels](a)
	if err != nil {
		return err
	}
	h.SetViewModelLocator(vm)
	a.vm = vm
	a.window = a.OpenWindow(vm.Title, vm.Notes.Lines()...)
	return nil
}

func (a *notesApp) handleKey(ev *tcell.EventKey) bool {
	if ev.Key() != tcell.KeyCtrlN || a.vm == nil {
		return false
	}
	a.vm.Notes.Add(fmt.Sprintf("note %d", a.vm.Notes.Len()+1))
	a.window.SetLines(a.vm.Notes.Lines()...)
	return true
}
