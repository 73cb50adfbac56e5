package gui

import "errors"

var (
	// ErrThreadAlreadyStarted is returned when a UI thread is started twice.
	ErrThreadAlreadyStarted = errors.New("gui: UI thread already started")
	// ErrThreadNotStarted is returned when the UI thread has not installed its dispatcher yet.
	ErrThreadNotStarted = errors.New("gui: UI thread not started")
	// ErrHostNotBound is returned when a thread is started before its module was initialized.
	ErrHostNotBound = errors.New("gui: UI thread is not bound to an application")
	// ErrApplicationNotCreated is returned before the GUI application object was published.
	ErrApplicationNotCreated = errors.New("gui: application not created")
	// ErrApplicationNil is returned when a factory produced a nil application.
	ErrApplicationNil = errors.New("gui: application factory returned nil")
	// ErrNoApplicationFactory is returned when a module has no way to construct its application.
	ErrNoApplicationFactory = errors.New("gui: no application factory")
	// ErrInitializationLocked is returned when a second pre-start hook is installed.
	ErrInitializationLocked = errors.New("gui: initialization already configured")
	// ErrDispatcherClosed is returned for work posted after the UI loop ended.
	ErrDispatcherClosed = errors.New("gui: dispatcher closed")
	// ErrDispatchPanic wraps a panic raised by work marshaled to the UI thread.
	ErrDispatchPanic = errors.New("gui: marshaled call panicked")
	// ErrAlreadyShutdown is returned when the application is shut down twice.
	ErrAlreadyShutdown = errors.New("gui: application already shut down")
	// ErrNoGUIRegistered is returned by the lifetime when no GUI module provides a context.
	ErrNoGUIRegistered = errors.New("gui: no GUI module registered")
	// ErrConfigNotFound is returned when the gui config section has an unexpected type.
	ErrConfigNotFound = errors.New("gui: config section has unexpected type")
)
