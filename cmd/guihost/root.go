package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information
var (
	Version = "dev"
	Commit  = "none"
)

type options struct {
	configPath string
	statusAddr string
	logFile    string
	debug      bool
	tray       bool
	watch      bool
	noLifetime bool
}

func newRootCommand(exitCode *int) *cobra.Command {
	opts := options{}
	cmd := &cobra.Command{
		Use:   "guihost",
		Short: "Host a terminal GUI inside a modular application",
		Long: `guihost runs a small notes GUI on a dedicated UI thread and hosts it as a
module. Ctrl+N adds a note, Esc closes the window and Ctrl+Q quits.`,
		Version:      fmt.Sprintf("%s (commit: %s)", Version, Commit),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closeLog, err := newLogger(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			h, err := newHost(opts, logger, nil)
			if err != nil {
				return err
			}
			if err := h.app.Run(); err != nil {
				logger.Error("Application error", "error", err)
				return err
			}
			*exitCode = h.app.ExitCode()
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "config.yaml", "YAML configuration file, skipped when missing")
	flags.StringVar(&opts.statusAddr, "status-addr", "", "serve the GUI status API on this address")
	flags.StringVar(&opts.logFile, "log-file", "guihost.log", "log destination, - for stderr")
	flags.BoolVar(&opts.debug, "debug", false, "log debug messages")
	flags.BoolVar(&opts.tray, "tray", false, "show a system tray icon with a Quit item")
	flags.BoolVar(&opts.watch, "watch", true, "reload the gui section when the configuration file changes")
	flags.BoolVar(&opts.noLifetime, "no-lifetime", false, "use the console lifetime instead of the GUI lifetime")
	return cmd
}

// newLogger logs to a file by default since the GUI owns the terminal.
func newLogger(opts options) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}
	if opts.logFile != "-" && opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeLog, nil
}
