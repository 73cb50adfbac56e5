package modular

import (
	"github.com/golobby/config/v3"

	"github.com/GoCodeAlone/modular-gui/feeders"
)

// ConfigFeeders are the feeders used by applications that don't set their own.
var ConfigFeeders = []Feeder{
	feeders.NewEnvFeeder(),
}

// Feeder fills a struct from a configuration source.
type Feeder = config.Feeder

// ComplexFeeder can also fill a single top-level section of its source.
type ComplexFeeder interface {
	Feeder
	FeedKey(key string, target any) error
}
