package jvxl

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is matched by every FormatError.
	ErrFormat = errors.New("jvxl: malformed document")
	// ErrVersion is matched by every VersionError.
	ErrVersion = errors.New("jvxl: unsupported revision")
)

// FormatError reports a malformed header or payload. Line is the 1-based
// header line, or 0 for payload problems.
type FormatError struct {
	Line int
	Msg  string
	Err  error
}

func (e *FormatError) Error() string {
	s := "jvxl: "
	if e.Line > 0 {
		s += fmt.Sprintf("line %d: ", e.Line)
	}
	s += e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// VersionError reports a document written in a revision this package does
// not read.
type VersionError struct {
	Got int
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("jvxl: revision %d is not supported (want %d)", e.Got, Revision)
}

func (e *VersionError) Is(target error) bool { return target == ErrVersion }

func formatErr(line int, err error, format string, args ...any) error {
	return &FormatError{Line: line, Msg: fmt.Sprintf(format, args...), Err: err}
}
