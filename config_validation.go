package modular

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/golobby/cast"
)

const (
	tagDefault  = "default"
	tagRequired = "required"
)

// ConfigValidator is implemented by configs with validation rules beyond
// required fields. Validate runs after defaults are applied.
type ConfigValidator interface {
	Validate() error
}

var durationType = reflect.TypeOf(time.Duration(0))

// ValidateConfig applies defaults, checks required fields and runs the
// config's own Validate method when it has one.
func ValidateConfig(cfg any) error {
	if err := ProcessConfigDefaults(cfg); err != nil {
		return err
	}
	if err := ValidateConfigRequired(cfg); err != nil {
		return err
	}
	if validator, ok := cfg.(ConfigValidator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrConfigValidationFailed, err)
		}
	}
	return nil
}

// ProcessConfigDefaults sets fields tagged `default:"..."` that still hold
// their zero value. Slices and string maps take JSON defaults.
//
//	type Config struct {
//	    Host    string        `default:"localhost"`
//	    Timeout time.Duration `default:"5s"`
//	    Tags    []string      `default:"[\"a\",\"b\"]"`
//	}
func ProcessConfigDefaults(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}
	return processStructDefaults(v)
}

func processStructDefaults(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}

		switch {
		case field.Kind() == reflect.Struct:
			if err := processStructDefaults(field); err != nil {
				return err
			}
			continue
		case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				if err := processStructDefaults(field.Elem()); err != nil {
					return err
				}
			}
			continue
		}

		defaultVal, ok := fieldType.Tag.Lookup(tagDefault)
		if !ok || !field.IsZero() {
			continue
		}
		if err := setDefaultValue(field, defaultVal); err != nil {
			return fmt.Errorf("failed to set default value for %s: %w", fieldType.Name, err)
		}
	}
	return nil
}

func setDefaultValue(field reflect.Value, defaultVal string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(defaultVal)
		if err != nil {
			return fmt.Errorf("failed to parse duration value: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.Slice, reflect.Map:
		target := reflect.New(field.Type())
		if err := json.Unmarshal([]byte(defaultVal), target.Interface()); err != nil {
			return fmt.Errorf("failed to unmarshal JSON default: %w", err)
		}
		field.Set(target.Elem())
		return nil
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		converted, err := cast.FromType(defaultVal, field.Type())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIncompatibleFieldKind, err)
		}
		value := reflect.ValueOf(converted)
		if !value.Type().ConvertibleTo(field.Type()) {
			return fmt.Errorf("%w: %s", ErrIncompatibleFieldKind, field.Kind())
		}
		if err := checkOverflow(field, value); err != nil {
			return err
		}
		field.Set(value.Convert(field.Type()))
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedTypeForDefault, field.Kind())
	}
}

func checkOverflow(field, value reflect.Value) error {
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.OverflowInt(value.Convert(reflect.TypeOf(int64(0))).Int()) {
			return fmt.Errorf("%w: %v overflows %s", ErrDefaultValueOverflowsInt, value, field.Type())
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if field.OverflowUint(value.Convert(reflect.TypeOf(uint64(0))).Uint()) {
			return fmt.Errorf("%w: %v overflows %s", ErrDefaultValueOverflowsUint, value, field.Type())
		}
	case reflect.Float32, reflect.Float64:
		if field.OverflowFloat(value.Convert(reflect.TypeOf(float64(0))).Float()) {
			return fmt.Errorf("%w: %v overflows %s", ErrDefaultValueOverflowsFloat, value, field.Type())
		}
	}
	return nil
}

// ValidateConfigRequired reports every field tagged `required:"true"` that
// still holds its zero value.
func ValidateConfigRequired(cfg any) error {
	v, err := structValue(cfg)
	if err != nil {
		return err
	}

	var missing []string
	validateRequiredFields(v, "", &missing)
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigRequiredFieldMissing, strings.Join(missing, ", "))
	}
	return nil
}

func validateRequiredFields(v reflect.Value, prefix string, missing *[]string) {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		if !field.CanSet() {
			continue
		}
		name := fieldType.Name
		if prefix != "" {
			name = prefix + "." + name
		}
		required := fieldType.Tag.Get(tagRequired) == "true"

		switch {
		case field.Kind() == reflect.Struct && field.Type() != durationType:
			validateRequiredFields(field, name, missing)
		case field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct:
			if !field.IsNil() {
				validateRequiredFields(field.Elem(), name, missing)
			} else if required {
				*missing = append(*missing, name)
			}
		case required && field.IsZero():
			*missing = append(*missing, name)
		}
	}
}

func structValue(cfg any) (reflect.Value, error) {
	if cfg == nil {
		return reflect.Value{}, ErrConfigNil
	}
	v := reflect.ValueOf(cfg)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return reflect.Value{}, ErrConfigNotPointer
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, ErrConfigNotStruct
	}
	return v, nil
}
