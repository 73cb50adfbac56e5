package feeders

import "errors"

var (
	// ErrEnvInvalidStructure indicates the target is not a pointer to a struct.
	ErrEnvInvalidStructure = errors.New("env: invalid structure")
	// ErrEnvEmptyPrefixAndSuffix indicates an affixed feeder without affixes.
	ErrEnvEmptyPrefixAndSuffix = errors.New("env: prefix or suffix cannot be empty")
	// ErrFieldCannotBeSet indicates an unexported or otherwise read-only field.
	ErrFieldCannotBeSet = errors.New("field cannot be set")
)
