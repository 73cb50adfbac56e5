// Package feeders fills configuration structs from YAML, TOML and JSON files
// and from environment variables. Every feeder can fill the whole struct or a
// single top-level section (FeedKey).
package feeders

import "fmt"

// Feeder fills a struct from a configuration source.
type Feeder interface {
	Feed(target any) error
}

// feedKey reads the whole document through f and decodes the value under key
// into target. A missing key leaves target untouched.
func feedKey(
	f Feeder,
	key string,
	target any,
	marshal func(any) ([]byte, error),
	unmarshal func([]byte, any) error,
	format string,
) error {
	var all map[string]any
	if err := f.Feed(&all); err != nil {
		return fmt.Errorf("failed to read %s: %w", format, err)
	}

	value, ok := all[key]
	if !ok {
		return nil
	}

	raw, err := marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s data: %w", format, err)
	}
	if err := unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal %s data: %w", format, err)
	}
	return nil
}
