package modular

// Logger defines the interface for application logging.
// The framework and every module log through it with key-value pairs,
// so the hosting program decides how log lines look.
//
// The method set matches log/slog, so a *slog.Logger satisfies it directly:
//
//	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
//	app, err := modular.NewApplication(modular.WithLogger(logger))
type Logger interface {
	// Info logs normal lifecycle events like module startup.
	Info(msg string, args ...any)

	// Error logs failures that are reported but not returned.
	Error(msg string, args ...any)

	// Warn logs unusual conditions that don't prevent normal operation.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostic information.
	Debug(msg string, args ...any)
}
