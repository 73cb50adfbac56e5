package gui

import "time"

// Config is the "gui" configuration section.
type Config struct {
	// SuppressStatusMessages silences the lifetime status lines.
	SuppressStatusMessages bool `yaml:"suppress_status_messages" json:"suppress_status_messages" toml:"suppress_status_messages" env:"GUI_SUPPRESS_STATUS_MESSAGES" desc:"Silence the GUI lifetime status lines"`

	// ThreadName labels the UI thread in logs and events.
	ThreadName string `yaml:"thread_name" json:"thread_name" toml:"thread_name" env:"GUI_THREAD_NAME" default:"GUI Main UI Thread" desc:"Name of the UI thread"`

	// StopTimeout bounds the wait for the marshaled shutdown. Zero waits
	// until the host shutdown timeout expires.
	StopTimeout time.Duration `yaml:"stop_timeout" json:"stop_timeout" toml:"stop_timeout" desc:"Bound for the marshaled shutdown call"`

	// ShutdownWaitTimeout is how long a process exit waits for the host to
	// be closed before logging a reminder. Zero uses the host shutdown timeout.
	ShutdownWaitTimeout time.Duration `yaml:"shutdown_wait_timeout" json:"shutdown_wait_timeout" toml:"shutdown_wait_timeout" desc:"Soft wait for the host on process exit"`
}
