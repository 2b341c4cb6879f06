package guc

import (
	"errors"
	"fmt"
)

// Sentinel errors for the registry's own validation failures; the
// syntax/file-access/include-depth kinds belong to gucfile.
var (
	ErrUnknownSetting = errors.New("unrecognized configuration parameter")
	ErrValueRejected  = errors.New("invalid value for configuration parameter")
)

// UnknownSettingError names a setting with no registry entry.
type UnknownSettingError struct {
	Name string
}

func (e *UnknownSettingError) Error() string {
	return fmt.Sprintf("unrecognized configuration parameter %q", e.Name)
}

func (e *UnknownSettingError) Unwrap() error { return ErrUnknownSetting }

// ValueRejectedError wraps the reason a check hook refused a value.
type ValueRejectedError struct {
	Name   string
	Value  string
	Reason error
}

func (e *ValueRejectedError) Error() string {
	return fmt.Sprintf("parameter %q cannot be set to %q: %v", e.Name, e.Value, e.Reason)
}

func (e *ValueRejectedError) Unwrap() error { return errors.Join(ErrValueRejected, e.Reason) }
