package guc

import (
	"os"
	"sort"
	"strings"
)

func intPtr(v int64) *int64      { return &v }
func realPtr(v float64) *float64 { return &v }

// classWhitelistCheckHook sorts and dedups the custom_variable_classes
// value so IsCustomClass and the reload diff are order-independent.
func classWhitelistCheckHook(_ *Setting, value string, _ Source) (string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, p := range SplitWhitelist(value) {
		lower := strings.ToLower(p)
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return strings.Join(out, ","), nil
}

// NewBuiltinRegistry returns a Registry preloaded with a representative
// catalog of settings spanning every Kind and ChangeClass, with the
// defaults PostgreSQL ships for the same names. This is the default
// registry wired into cmd/pgconfd.
func NewBuiltinRegistry() Registry {
	r := NewRegistry()

	r.Register(&Setting{
		Name:        ClassWhitelistSetting,
		Kind:        KindString,
		ChangeClass: OnlyBySignalOrBoot,
		Value:       "",
		BootDefault: "",
		ResetValue:  "",
		CheckHook:   classWhitelistCheckHook,
	})

	r.Register(&Setting{
		Name:        "max_connections",
		Kind:        KindInteger,
		ChangeClass: OnlyAtBoot,
		Value:       "100",
		BootDefault: "100",
		ResetValue:  "100",
		IntMin:      intPtr(1),
		IntMax:      intPtr(262143),
	})

	r.Register(&Setting{
		Name:        "shared_buffers",
		Kind:        KindInteger,
		ChangeClass: OnlyAtBoot,
		Value:       "128MB",
		BootDefault: "128MB",
		ResetValue:  "128MB",
		Units:       []string{"kB", "MB", "GB"},
		IntMin:      intPtr(16),
	})

	r.Register(&Setting{
		Name:        "work_mem",
		Kind:        KindInteger,
		ChangeClass: RuntimeByAny,
		Value:       "4MB",
		BootDefault: "4MB",
		ResetValue:  "4MB",
		Units:       []string{"kB", "MB", "GB"},
		IntMin:      intPtr(64),
	})

	r.Register(&Setting{
		Name:        "maintenance_work_mem",
		Kind:        KindInteger,
		ChangeClass: RuntimeByAny,
		Value:       "64MB",
		BootDefault: "64MB",
		ResetValue:  "64MB",
		Units:       []string{"kB", "MB", "GB"},
		IntMin:      intPtr(1024),
	})

	r.Register(&Setting{
		Name:        "autovacuum_vacuum_scale_factor",
		Kind:        KindReal,
		ChangeClass: OnlyBySignalOrBoot,
		Value:       "0.2",
		BootDefault: "0.2",
		ResetValue:  "0.2",
		RealMin:     realPtr(0),
		RealMax:     realPtr(100),
	})

	r.Register(&Setting{
		Name:        "log_min_messages",
		Kind:        KindEnum,
		ChangeClass: RuntimeByAny,
		Value:       "warning",
		BootDefault: "warning",
		ResetValue:  "warning",
		EnumValues:  []string{"debug5", "debug4", "debug3", "debug2", "debug1", "info", "notice", "warning", "error", "log", "fatal", "panic"},
	})

	r.Register(&Setting{
		Name:        "log_checkpoints",
		Kind:        KindBoolean,
		ChangeClass: RuntimeByAny,
		Value:       "off",
		BootDefault: "off",
		ResetValue:  "off",
	})

	r.Register(&Setting{
		Name:        "ssl",
		Kind:        KindBoolean,
		ChangeClass: OnlyBySignalOrBoot,
		Value:       "off",
		BootDefault: "off",
		ResetValue:  "off",
	})

	r.Register(&Setting{
		Name:        "timezone",
		Kind:        KindString,
		ChangeClass: RuntimeByAny,
		Value:       "GMT",
		BootDefault: "GMT",
		ResetValue:  "GMT",
	})

	r.Register(&Setting{
		Name:        "search_path",
		Kind:        KindString,
		ChangeClass: RuntimeByAny,
		Value:       "\"$user\", public",
		BootDefault: "\"$user\", public",
		ResetValue:  "\"$user\", public",
	})

	r.Register(&Setting{
		Name:        "data_directory",
		Kind:        KindString,
		ChangeClass: OnlyAtBoot,
		Value:       "",
		BootDefault: "",
		ResetValue:  "",
	})

	r.Register(&Setting{
		Name:        "port",
		Kind:        KindInteger,
		ChangeClass: OnlyAtBoot,
		Value:       "5432",
		BootDefault: "5432",
		ResetValue:  "5432",
		IntMin:      intPtr(1),
		IntMax:      intPtr(65535),
	})

	return r
}

// ReseedEnvironmentDefaults re-reads environment-derived defaults (the
// TZ-derived timezone) for settings not currently pinned by a
// higher-trust source. The reload engine runs this after removal
// detection so a setting dropped from the file falls back to the
// environment rather than to the compiled-in default.
func ReseedEnvironmentDefaults(reg Registry) {
	tz := os.Getenv("TZ")
	if tz == "" {
		return
	}
	s, ok := reg.Find("timezone", true)
	if !ok || s.Source.Rank() > SourceEnvironment.Rank() {
		return
	}
	s.Value = tz
	s.Source = SourceEnvironment
	s.ResetValue = tz
	s.ResetSource = SourceEnvironment
}

// SplitContains is a case-insensitive membership test over a
// comma-separated whitelist value.
func SplitContains(whitelist, prefix string) bool {
	for _, p := range SplitWhitelist(whitelist) {
		if strings.EqualFold(p, prefix) {
			return true
		}
	}
	return false
}
