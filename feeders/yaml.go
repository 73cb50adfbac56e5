package feeders

import (
	"github.com/golobby/config/v3/pkg/feeder"
	"gopkg.in/yaml.v3"
)

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	feeder.Yaml
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{feeder.Yaml{Path: filePath}}
}

// FeedKey decodes the top-level key of the file into target.
func (y YamlFeeder) FeedKey(key string, target any) error {
	return feedKey(y.Yaml, key, target, yaml.Marshal, yaml.Unmarshal, "YAML")
}
