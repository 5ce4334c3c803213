package config

import "fmt"

// Error describes an invalid pipeline definition. It is fatal: a run aborts
// before any lane starts.
type Error struct {
	Msg string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return "invalid configuration: " + e.Msg
}

// Errorf builds a configuration Error from a format string.
func Errorf(format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}
