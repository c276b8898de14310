package surface

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is matched by every ConfigurationError.
	ErrConfiguration = errors.New("surface: configuration error")
	// ErrData is matched by every DataError.
	ErrData = errors.New("surface: data error")

	errNotInitialized = errors.New("reader has not been initialised")
	errNotSetUp       = errors.New("reader has not been set up")
)

// ConfigurationError reports bad surface parameters. It is raised before
// any sampling starts.
type ConfigurationError struct {
	Param string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("surface: bad %s: %v", e.Param, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErr(param string, format string, args ...any) error {
	return &ConfigurationError{Param: param, Err: fmt.Errorf(format, args...)}
}

// DataError reports malformed atom input. It is raised before the lattice
// is built.
type DataError struct {
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("surface: bad atom data: %v", e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func (e *DataError) Is(target error) bool { return target == ErrData }
