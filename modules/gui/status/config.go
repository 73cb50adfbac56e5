package status

import "time"

// Config is the "gui_status" configuration section.
type Config struct {
	// Address is the listen address of the diagnostics server. Use port 0
	// to pick a free port.
	Address string `yaml:"address" json:"address" toml:"address" env:"GUI_STATUS_ADDRESS" default:"127.0.0.1:8089" desc:"Listen address of the GUI status server"`

	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" json:"read_header_timeout" toml:"read_header_timeout" default:"5s" desc:"Read header timeout"`

	// ShutdownTimeout bounds the graceful shutdown of the server when the
	// stop context has no deadline.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" toml:"shutdown_timeout" default:"5s" desc:"Graceful shutdown bound"`

	// UITimeout bounds each call marshaled to the UI thread by a request.
	UITimeout time.Duration `yaml:"ui_timeout" json:"ui_timeout" toml:"ui_timeout" default:"2s" desc:"Bound for UI thread calls made by requests"`
}
