package modular

import (
	"os"
	"time"
)

// Framework service names registered during Init.
const (
	LifetimeServiceName        = "lifetime"
	HostOptionsServiceName     = "hostOptions"
	HostEnvironmentServiceName = "hostEnvironment"

	// HostConfigSection is the configuration section holding HostOptions.
	HostConfigSection = "host"
	// EnvironmentConfigSection is the configuration section holding HostEnvironment.
	EnvironmentConfigSection = "environment"
)

const defaultShutdownTimeout = 30 * time.Second

// HostOptions configures host-wide behavior.
type HostOptions struct {
	// ShutdownTimeout bounds the time modules get to stop.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout" toml:"shutdown_timeout" default:"30s" desc:"Time modules get to stop"`

	// SuppressStatusMessages silences the console lifetime status lines.
	SuppressStatusMessages bool `yaml:"suppress_status_messages" json:"suppress_status_messages" toml:"suppress_status_messages" env:"HOST_SUPPRESS_STATUS_MESSAGES" desc:"Silence lifetime status lines"`
}

// HostEnvironment describes where the application runs.
type HostEnvironment struct {
	EnvironmentName string `yaml:"name" json:"name" toml:"name" env:"APP_ENVIRONMENT" default:"Production" desc:"Environment name"`
	ApplicationName string `yaml:"application_name" json:"application_name" toml:"application_name" env:"APP_NAME" desc:"Application name"`
	ContentRootPath string `yaml:"content_root" json:"content_root" toml:"content_root" env:"APP_CONTENT_ROOT" desc:"Content root path, defaults to the working directory"`
}

// IsDevelopment reports whether the environment name is Development.
func (e *HostEnvironment) IsDevelopment() bool {
	return e.EnvironmentName == "Development"
}

func (e *HostEnvironment) resolveContentRoot() {
	if e.ContentRootPath != "" {
		return
	}
	if wd, err := os.Getwd(); err == nil {
		e.ContentRootPath = wd
	}
}
