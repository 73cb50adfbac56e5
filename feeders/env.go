package feeders

import "github.com/golobby/config/v3/pkg/feeder"

// EnvFeeder fills fields tagged `env:"NAME"` from environment variables.
// Variables are global, so FeedKey feeds the section like Feed does.
type EnvFeeder struct {
	feeder.Env
}

// NewEnvFeeder creates a new EnvFeeder that reads from environment variables
func NewEnvFeeder() EnvFeeder {
	return EnvFeeder{}
}

// FeedKey fills target from the environment; key is ignored.
func (e EnvFeeder) FeedKey(_ string, target any) error {
	return e.Feed(target)
}
