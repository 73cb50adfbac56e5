package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/gdamore/tcell/v2"

	modular "github.com/GoCodeAlone/modular-gui"
	"github.com/GoCodeAlone/modular-gui/feeders"
	"github.com/GoCodeAlone/modular-gui/modules/configwatcher"
	"github.com/GoCodeAlone/modular-gui/modules/gui"
	"github.com/GoCodeAlone/modular-gui/modules/gui/bootstrap"
	"github.com/GoCodeAlone/modular-gui/modules/gui/locator"
	"github.com/GoCodeAlone/modular-gui/modules/gui/status"
	"github.com/GoCodeAlone/modular-gui/modules/gui/tray"
)

// envPrefix scopes environment overrides to this binary.
const envPrefix = "GUIHOST"

type host struct {
	app      modular.Application
	gui      *gui.Module[*notesApp]
	lifetime *gui.Lifetime
	logger   modular.Logger
}

// newHost builds the application. A nil screen uses the terminal.
func newHost(opts options, logger modular.Logger, screen tcell.Screen) (*host, error) {
	h := &host{logger: logger}

	configFound := false
	if _, err := os.Stat(opts.configPath); err == nil {
		configFound = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %s: %w", opts.configPath, err)
	}

	var configFeeders []modular.Feeder
	if configFound {
		configFeeders = append(configFeeders, feeders.NewYamlFeeder(opts.configPath))
	}
	// GUIHOST_GUI_THREAD_NAME beats GUI_THREAD_NAME.
	configFeeders = append(configFeeders, feeders.NewEnvFeeder(), feeders.NewAffixedEnvFeeder(envPrefix, ""))

	appOpts := []modular.Option{
		modular.WithLogger(logger),
		modular.WithConfigFeeders(configFeeders...),
		modular.WithEnvironment(modular.HostEnvironment{ApplicationName: "Notes"}),
	}
	if !opts.noLifetime {
		h.lifetime = gui.NewLifetime()
		appOpts = append(appOpts, modular.WithHostLifetime(h.lifetime))
	}
	app, err := modular.NewApplication(appOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	h.app = app

	h.gui = gui.RegisterWithFactory(app, func(modular.Application) (*notesApp, error) {
		return newNotesApp(screen), nil
	})
	if err := locator.UseViewModelLocatorFunc(h.gui.Thread(), resolveViewModels); err != nil {
		return nil, err
	}
	if opts.tray {
		err := tray.Register(h.gui.Thread(), func(t *gui.Thread[*notesApp]) (*tray.SystrayIcon, error) {
			return tray.NewSystrayIcon(t, "Notes", tray.WithTooltip("Notes is running")), nil
		})
		if err != nil {
			return nil, err
		}
	}
	if opts.statusAddr != "" {
		app.RegisterModule(status.NewModule(status.WithAddress(opts.statusAddr)))
	}
	if opts.watch && configFound {
		app.RegisterModule(configwatcher.New(
			configwatcher.WithPaths(opts.configPath),
			configwatcher.WithOnChange(h.reload),
		))
	}

	if err := bootstrap.Add[modular.Application](app, bootstrap.Func[modular.Application](bootNotes)); err != nil {
		return nil, err
	}
	if err := bootstrap.UseContainer[modular.Application](app, app); err != nil {
		return nil, err
	}
	return h, nil
}

// reload applies the reloadable part of the gui section.
func (h *host) reload(paths []string) {
	for _, path := range paths {
		cfg := *h.gui.Config()
		if err := feeders.NewYamlFeeder(path).FeedKey(gui.ModuleName, &cfg); err != nil {
			h.logger.Warn("Failed to reload configuration", "path", path, "error", err)
			continue
		}
		if h.lifetime != nil {
			h.lifetime.SetSuppressStatusMessages(cfg.SuppressStatusMessages)
		}
		h.logger.Info("Reloaded GUI configuration", "path", path,
			"suppress_status_messages", cfg.SuppressStatusMessages)
	}
}
