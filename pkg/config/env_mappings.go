package config

import (
	"reflect"
	"sync"
)

// EnvMapping ties one environment variable to the config path it feeds,
// e.g. PGCONFD_LOG_LEVEL -> log.level.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings walks Config's struct tags and returns the env-var
// to config-path table the loader consults. The `env` tag on each field
// is the single source of truth; a field without one is simply not
// settable from the environment. Computed once and cached — the struct
// shape cannot change at runtime.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		cachedMappings = collectEnvMappings(reflect.TypeOf(Config{}), "")
	})
	return cachedMappings
}

// collectEnvMappings recursively gathers mappings from t's fields,
// prefixing nested struct paths with their parent's koanf key.
func collectEnvMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("koanf")
		if key == "" || key == "-" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if envVar := field.Tag.Get("env"); envVar != "" && envVar != "-" {
			mappings = append(mappings, EnvMapping{EnvVar: envVar, ConfigPath: path})
		}
		// time.Duration is a named int64, not a struct; time.Time would
		// be a struct but carries no koanf subfields worth walking.
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, collectEnvMappings(field.Type, path)...)
		}
	}
	return mappings
}
