package scanner

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned by Start and Stop before a successful Init.
	ErrNotInitialized = errors.New("scanner: engine not initialized")

	// ErrAlreadyInitialized is returned by Init while a previous Init is pending or has succeeded.
	ErrAlreadyInitialized = errors.New("scanner: already initialized")
)

// ConfigurationError reports a missing or invalid construction input.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scanner: invalid configuration: %s: %s", e.Field, e.Reason)
}

// EngineInitError carries the error the engine reported while initializing.
type EngineInitError struct {
	Err error
}

func (e *EngineInitError) Error() string {
	return fmt.Sprintf("scanner: engine initialization failed: %v", e.Err)
}

func (e *EngineInitError) Unwrap() error { return e.Err }
