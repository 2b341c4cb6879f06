// Package guc models the setting registry contract the reload engine
// depends on: typed settings with a provenance-ranked source, a reset
// target, a change-class policy, and check/assign hooks. The built-in
// catalog is a representative sample; real deployments register their
// own settings via Registry.Register.
package guc

import "strings"

// ClassWhitelistSetting names the distinguished setting controlling which
// qualified-name class prefixes are acceptable. Mirrors
// gucfile.ClassWhitelistSetting; kept as its own constant so guc has no
// import-time dependency on the file-parsing package.
const ClassWhitelistSetting = "custom_variable_classes"

// Source identifies which configuration layer currently provides a
// setting's effective value. Sources are totally ordered by trust —
// Rank returns that order, lowest (Default) to highest (Client).
type Source int

const (
	SourceDefault Source = iota
	SourceEnvironment
	SourceDynamicDefault
	SourceFile
	SourceArgv
	SourceClient
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceEnvironment:
		return "environment"
	case SourceDynamicDefault:
		return "dynamic_default"
	case SourceFile:
		return "file"
	case SourceArgv:
		return "argv"
	case SourceClient:
		return "client"
	default:
		return "unknown"
	}
}

// Rank returns s's trust ranking; a higher rank wins over a lower one.
func (s Source) Rank() int { return int(s) }

// Context distinguishes the initial boot load from a signal-triggered
// reload; it governs error severity and which auxiliary phases run.
type Context int

const (
	Boot Context = iota
	Reload
)

func (c Context) String() string {
	if c == Boot {
		return "boot"
	}
	return "reload"
}

// ChangeClass is the per-setting policy for which Context a value change
// is legal in.
type ChangeClass int

const (
	// OnlyAtBoot settings can only be set while the process is starting;
	// a reload-time change is detected but never applied.
	OnlyAtBoot ChangeClass = iota
	// OnlyBySignalOrBoot settings may change at boot or via a reload.
	OnlyBySignalOrBoot
	// RuntimeByAny settings may also be changed by a client request; the
	// file/reload path treats them the same as OnlyBySignalOrBoot.
	RuntimeByAny
)

func (c ChangeClass) String() string {
	switch c {
	case OnlyAtBoot:
		return "only_at_boot"
	case OnlyBySignalOrBoot:
		return "only_by_signal_or_boot"
	case RuntimeByAny:
		return "runtime_by_any"
	default:
		return "unknown"
	}
}

// AllowsChange reports whether this change class permits a value change
// while the engine is running in the given context.
func (c ChangeClass) AllowsChange(ctx Context) bool {
	if c == OnlyAtBoot {
		return ctx == Boot
	}
	return true
}

// StackEntry is one pushed value in a setting's LIFO stack. The
// reload-only engine never pushes onto it; it exists so demotion covers
// values a SET LOCAL layer would have pushed.
type StackEntry struct {
	Value  string
	Source Source
}

// SplitWhitelist parses a comma-separated custom_variable_classes value
// into trimmed, non-empty prefixes.
func SplitWhitelist(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
