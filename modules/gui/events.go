package gui

// Event types emitted by the GUI module.
const (
	EventTypeThreadStarted       = "com.modular.gui.thread.started"
	EventTypeApplicationCreated  = "com.modular.gui.application.created"
	EventTypeApplicationRunning  = "com.modular.gui.application.running"
	EventTypeExitRequested       = "com.modular.gui.exit.requested"
	EventTypeApplicationShutdown = "com.modular.gui.application.shutdown"
	EventTypeThreadFailed        = "com.modular.gui.thread.failed"
)
