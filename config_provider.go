package modular

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/golobby/config/v3"
)

const mainConfigSection = "_main"

// LoadAppConfigFunc is the signature of the configuration loader.
type LoadAppConfigFunc func(*StdApplication) error

// AppConfigLoader loads the main configuration and every registered section.
// It is a variable so tests can replace it.
var AppConfigLoader LoadAppConfigFunc = loadAppConfig

// ConfigProvider exposes a configuration struct.
type ConfigProvider interface {
	GetConfig() any
}

// StdConfigProvider provides a fixed configuration value.
type StdConfigProvider struct {
	cfg any
}

func (s *StdConfigProvider) GetConfig() any {
	return s.cfg
}

// NewStdConfigProvider wraps cfg in a ConfigProvider. cfg should be a pointer
// so loaded values are written back into it.
func NewStdConfigProvider(cfg any) *StdConfigProvider {
	return &StdConfigProvider{cfg: cfg}
}

// ConfigSetup is implemented by configs that derive state after loading.
type ConfigSetup interface {
	Setup() error
}

// Config wraps the golobby builder with keyed sections fed by ComplexFeeders.
type Config struct {
	*config.Config
	StructKeys map[string]any
}

func NewConfig() *Config {
	return &Config{
		Config:     config.New(),
		StructKeys: make(map[string]any),
	}
}

// AddStructKey adds a section target fed from the given top-level key.
func (c *Config) AddStructKey(key string, target any) *Config {
	c.StructKeys[key] = target
	return c
}

// Feed feeds the plain structs, then every keyed section, then validates them.
func (c *Config) Feed() error {
	if err := c.Config.Feed(); err != nil {
		return fmt.Errorf("config feed error: %w", err)
	}
	for _, s := range c.Structs {
		if err := finishConfig(mainConfigSection, s); err != nil {
			return err
		}
	}

	keys := make([]string, 0, len(c.StructKeys))
	for key := range c.StructKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		target := c.StructKeys[key]
		for _, f := range c.Feeders {
			cf, ok := f.(ComplexFeeder)
			if !ok {
				continue
			}
			if err := cf.FeedKey(key, target); err != nil {
				return fmt.Errorf("%w: section %s: %w", ErrConfigFeederError, key, err)
			}
		}
		if err := finishConfig(key, target); err != nil {
			return err
		}
	}
	return nil
}

func finishConfig(key string, target any) error {
	if err := ValidateConfig(target); err != nil {
		return fmt.Errorf("config validation error for %s: %w", key, err)
	}
	if setupable, ok := target.(ConfigSetup); ok {
		if err := setupable.Setup(); err != nil {
			return fmt.Errorf("config setup error for %s: %w", key, err)
		}
	}
	return nil
}

func loadAppConfig(app *StdApplication) error {
	if app == nil {
		return ErrApplicationNil
	}

	feeders := app.configFeeders()
	cfgBuilder := NewConfig()
	for _, feeder := range feeders {
		cfgBuilder.AddFeeder(feeder)
	}

	temps := make(map[string]configInfo)

	if app.cfgProvider != nil {
		if mainCfg := app.cfgProvider.GetConfig(); mainCfg != nil {
			temp, info, err := createTempConfig(mainCfg)
			if err != nil {
				app.logger.Warn("Failed to create temp config, skipping main config", "error", err)
			} else {
				cfgBuilder.AddStruct(temp)
				temps[mainConfigSection] = info
			}
		}
	}

	for key, provider := range app.cfgSections {
		if provider == nil || provider.GetConfig() == nil {
			app.logger.Warn("Skipping section with nil config", "section", key)
			continue
		}
		temp, info, err := createTempConfig(provider.GetConfig())
		if err != nil {
			app.logger.Warn("Failed to create temp config for section, skipping", "section", key, "error", err)
			continue
		}
		cfgBuilder.AddStructKey(key, temp)
		temps[key] = info
		app.logger.Debug("Added section config for loading", "section", key, "type", reflect.TypeOf(provider.GetConfig()))
	}

	if len(temps) == 0 {
		app.logger.Info("No valid configs found, skipping config loading")
		return nil
	}

	if err := cfgBuilder.Feed(); err != nil {
		return err
	}

	for key, info := range temps {
		if info.isPtr {
			info.originalVal.Elem().Set(info.tempVal.Elem())
			continue
		}
		provider := NewStdConfigProvider(info.tempVal.Elem().Interface())
		if key == mainConfigSection {
			app.cfgProvider = provider
		} else {
			app.cfgSections[key] = provider
		}
	}
	return nil
}

type configInfo struct {
	originalVal reflect.Value
	tempVal     reflect.Value
	isPtr       bool
}

// createTempConfig copies cfg into a fresh value so a failed load leaves the
// original untouched. Values set programmatically survive feeding.
func createTempConfig(cfg any) (any, configInfo, error) {
	if cfg == nil {
		return nil, configInfo{}, ErrConfigNil
	}

	cfgValue := reflect.ValueOf(cfg)
	isPtr := cfgValue.Kind() == reflect.Ptr

	var current reflect.Value
	if isPtr {
		if cfgValue.IsNil() {
			return nil, configInfo{}, ErrConfigNil
		}
		current = cfgValue.Elem()
	} else {
		current = cfgValue
	}
	if current.Kind() != reflect.Struct {
		return nil, configInfo{}, ErrConfigNotStruct
	}

	temp := reflect.New(current.Type())
	temp.Elem().Set(current)

	return temp.Interface(), configInfo{
		originalVal: cfgValue,
		tempVal:     temp,
		isPtr:       isPtr,
	}, nil
}
