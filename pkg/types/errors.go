package types

import (
	"errors"
	"fmt"
)

// ErrInvalidReading is returned when a reading is outside of the domain bounds.
var ErrInvalidReading = errors.New("invalid reading")

// ConfigurationError is returned when settings or battery configuration are
// not usable. These must be rejected when loaded, not when deciding.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError returns true if err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
