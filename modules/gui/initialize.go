package gui

// Initializer is implemented by applications that finish their setup on
// the UI thread before the event loop starts, such as loading windows or
// resources.
type Initializer interface {
	Initialize() error
}

// UseInitialization makes the thread call the application's Initialize
// after construction. It cannot be combined with another pre-start hook.
func UseInitialization[A interface {
	Application
	Initializer
}](t *Thread[A]) error {
	return t.SetPreStartHook(func(c *Context[A]) error {
		app, ok := c.Application()
		if !ok {
			return ErrApplicationNotCreated
		}
		return app.Initialize()
	})
}
