package reload

import (
	"errors"
	"fmt"

	"github.com/abit/pgconfd/guc"
)

// Severity controls how the engine's caller should react to a failure:
// Fatal at boot, Log on reload.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityLog
)

func (s Severity) String() string {
	if s == SeverityFatal {
		return "fatal"
	}
	return "log"
}

// SeverityForContext maps a reload Context to its error propagation
// policy: a failure at boot should take the process down, a failure on
// reload is logged and the old configuration stays in effect.
func SeverityForContext(ctx guc.Context) Severity {
	if ctx == guc.Boot {
		return SeverityFatal
	}
	return SeverityLog
}

// Sentinel errors for the semantic failures not already covered by
// gucfile (syntax/file-access/include-depth) or guc
// (unknown-setting/value-rejected).
var (
	// ErrUndefinedObject is a qualified name whose class prefix is not in
	// the effective whitelist.
	ErrUndefinedObject = errors.New("unrecognized configuration parameter class")
	// ErrImmutable marks a removed setting that cannot be reverted
	// without a restart; always demoted to a warning, never fatal,
	// regardless of context.
	ErrImmutable = errors.New("parameter cannot be changed without restarting the server")
)

// UndefinedObjectError names the unrecognized class prefix and the
// qualified setting that triggered it.
type UndefinedObjectError struct {
	Name   string
	Prefix string
}

func (e *UndefinedObjectError) Error() string {
	return fmt.Sprintf("unrecognized configuration parameter class %q (in %q)", e.Prefix, e.Name)
}

func (e *UndefinedObjectError) Unwrap() error { return ErrUndefinedObject }

// ImmutableSettingWarning is produced during removal detection for
// settings whose change class forbids reverting them in the current
// context; it is never returned as the reload's terminal error, only
// collected into Result.Warnings.
type ImmutableSettingWarning struct {
	Name string
}

func (e *ImmutableSettingWarning) Error() string {
	return fmt.Sprintf("parameter %q cannot be changed without restarting the server", e.Name)
}

func (e *ImmutableSettingWarning) Unwrap() error { return ErrImmutable }
