package config

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEntry     = errors.New("server entry invalid")
	ErrConfigLoadFailed = errors.New("failed to load configuration")
	ErrConfigSaveFailed = errors.New("failed to save configuration")
)

// NewErrInvalidEntry returns an error for an invalid server entry field.
func NewErrInvalidEntry(server string, reason string) error {
	return fmt.Errorf("%w: '%s': %s", ErrInvalidEntry, server, reason)
}
