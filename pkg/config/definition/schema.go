package definition

import (
	"reflect"
	"time"
)

// Standard type definitions for consistency
var (
	durationType = reflect.TypeOf(time.Duration(0))
	boolType     = reflect.TypeOf(false)
	stringType   = reflect.TypeOf("")
	intType      = reflect.TypeOf(0)
)

// CreateRegistry creates and populates the configuration field registry.
// This is the single source of truth for pgconfd's process-level defaults,
// CLI flags, and environment variables.
func CreateRegistry() *Registry {
	registry := NewRegistry()
	registerPathFields(registry)
	registerReloadFields(registry)
	registerLogFields(registry)
	return registry
}

func registerPathFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "data_directory",
		Default: "",
		CLIFlag: "data-directory",
		EnvVar:  "PGCONFD_DATA_DIRECTORY",
		Type:    stringType,
		Help:    "Path to the data directory containing the configuration file",
	})
	registry.Register(&FieldDef{
		Path:    "config_file",
		Default: "pgconfig.conf",
		CLIFlag: "config-file",
		EnvVar:  "PGCONFD_CONFIG_FILE",
		Type:    stringType,
		Help:    "Name of the root configuration file, resolved relative to data_directory",
	})
	registry.Register(&FieldDef{
		Path:    "pid_file",
		Default: "pgconfd.pid",
		CLIFlag: "pid-file",
		EnvVar:  "PGCONFD_PID_FILE",
		Type:    stringType,
		Help:    "Path to the PID file written at boot",
	})
}

func registerReloadFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "max_include_depth",
		Default: 10,
		CLIFlag: "max-include-depth",
		EnvVar:  "PGCONFD_MAX_INCLUDE_DEPTH",
		Type:    intType,
		Help:    "Maximum nesting depth for include chains",
	})
	registry.Register(&FieldDef{
		Path:    "watch",
		Default: false,
		CLIFlag: "watch",
		EnvVar:  "PGCONFD_WATCH",
		Type:    boolType,
		Help:    "Watch the root configuration file and reload automatically on change, in addition to SIGHUP; included files are not watched",
	})
	registry.Register(&FieldDef{
		Path:    "watch_debounce",
		Default: 250 * time.Millisecond,
		CLIFlag: "watch-debounce",
		EnvVar:  "PGCONFD_WATCH_DEBOUNCE",
		Type:    durationType,
		Help:    "Minimum interval between automatic reloads triggered by filesystem watch events",
	})
}

func registerLogFields(registry *Registry) {
	registry.Register(&FieldDef{
		Path:    "log.level",
		Default: "info",
		CLIFlag: "log-level",
		EnvVar:  "PGCONFD_LOG_LEVEL",
		Type:    stringType,
		Help:    "Minimum log level: debug, info, warn, error, disabled",
	})
	registry.Register(&FieldDef{
		Path:    "log.json",
		Default: false,
		CLIFlag: "log-json",
		EnvVar:  "PGCONFD_LOG_JSON",
		Type:    boolType,
		Help:    "Emit logs as JSON instead of the default text formatter",
	})
	registry.Register(&FieldDef{
		Path:    "log.source",
		Default: false,
		CLIFlag: "log-source",
		EnvVar:  "PGCONFD_LOG_SOURCE",
		Type:    boolType,
		Help:    "Include the caller file and line in each log entry",
	})
}
