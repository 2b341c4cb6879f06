package config

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// envPrefix scopes which environment variables this process reads. Only
// PGCONFD_* variables are considered; everything else in the ambient
// environment is ignored.
const envPrefix = "PGCONFD_"

// loader is the Service implementation: a koanf instance fed from
// defaults, then the caller's sources (yaml, CLI), then the environment,
// each later layer overriding the earlier ones, finished by a
// struct-tag + custom validation pass.
type loader struct {
	koanf          *koanf.Koanf
	validator      *validator.Validate
	metadata       Metadata
	metadataMu     sync.RWMutex
	currentConfig  atomic.Value // *Config
	watchCallbacks []func(*Config)
	callbackMu     sync.RWMutex
}

// NewService returns a ready-to-use configuration Service.
func NewService() Service {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		panic(fmt.Sprintf("failed to register custom validators: %v", err))
	}
	return &loader{
		koanf:     koanf.New("."),
		validator: v,
		metadata: Metadata{
			Sources: make(map[string]SourceType),
		},
	}
}

// Load merges defaults, the given sources, and PGCONFD_* environment
// variables into a validated *Config. Later layers win: a CLI source can
// override the yaml file, and the environment overrides both.
func (l *loader) Load(_ context.Context, sources ...Source) (*Config, error) {
	l.reset()

	if err := l.loadDefaults(); err != nil {
		return nil, err
	}
	if err := l.loadSources(sources); err != nil {
		return nil, err
	}
	if err := l.loadEnvironment(); err != nil {
		return nil, err
	}

	config, err := l.unmarshalAndValidate()
	if err != nil {
		return nil, err
	}
	l.currentConfig.Store(config)
	return config, nil
}

// reset wipes the koanf tree and provenance metadata so a reload starts
// from a clean slate instead of accreting keys across merges.
func (l *loader) reset() {
	l.koanf.Cut("")
	l.metadataMu.Lock()
	l.metadata.Sources = make(map[string]SourceType)
	l.metadata.LoadedAt = time.Now()
	l.metadataMu.Unlock()
}

// loadDefaults seeds the tree from Default() via koanf's structs
// provider, so the field registry stays the single source of truth for
// default values.
func (l *loader) loadDefaults() error {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	for _, key := range l.koanf.Keys() {
		l.trackSource(key, SourceDefault)
	}
	return nil
}

// loadSources merges the caller-supplied sources in order. A nil source
// is skipped; env-typed sources are also skipped because the environment
// is merged separately (and last) by loadEnvironment.
func (l *loader) loadSources(sources []Source) error {
	for _, source := range sources {
		if source == nil || source.Type() == SourceEnv {
			continue
		}
		if err := l.loadSource(source); err != nil {
			return err
		}
	}
	return nil
}

// loadSource merges one source into the tree and records which keys it
// added or changed.
func (l *loader) loadSource(source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load from source %s: %w", source.Type(), err)
	}
	if len(data) == 0 {
		return nil
	}

	before := l.snapshotKeys()

	if source.Type() == SourceYAML {
		// A yaml file is sparse: set only the keys it names so keys it
		// omits keep their lower-layer values.
		for key, value := range flattenMap("", data) {
			if err := l.koanf.Set(key, value); err != nil {
				return fmt.Errorf("failed to set key %s from source %s: %w", key, source.Type(), err)
			}
		}
	} else {
		if err := l.koanf.Load(rawMap(data), nil); err != nil {
			return fmt.Errorf("failed to apply source %s: %w", source.Type(), err)
		}
	}

	l.trackChangedKeys(before, source.Type())
	return nil
}

// loadEnvironment merges PGCONFD_* environment variables, resolving each
// through the struct-tag mapping table. A PGCONFD_ variable with no
// mapped field is dropped rather than guessed at.
func (l *loader) loadEnvironment() error {
	envToPath := make(map[string]string)
	for _, mapping := range GenerateEnvMappings() {
		envToPath[mapping.EnvVar] = mapping.ConfigPath
	}

	before := l.snapshotKeys()

	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			if path, ok := envToPath[key]; ok {
				return path, value
			}
			return "", nil // unmapped PGCONFD_ variable, ignore
		},
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}

	l.trackChangedKeys(before, SourceEnv)
	return nil
}

// snapshotKeys captures the current value of every key, for diffing
// after a merge.
func (l *loader) snapshotKeys() map[string]any {
	snapshot := make(map[string]any)
	for _, key := range l.koanf.Keys() {
		snapshot[key] = l.koanf.Get(key)
	}
	return snapshot
}

// trackChangedKeys attributes every key that a merge added or changed to
// the source that did it.
func (l *loader) trackChangedKeys(before map[string]any, sourceType SourceType) {
	for _, key := range l.koanf.Keys() {
		prev, existed := before[key]
		if !existed || prev != l.koanf.Get(key) {
			l.trackSource(key, sourceType)
		}
	}
}

// flattenMap converts a nested map into dot-notation keys.
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for fk, fv := range flattenMap(key, nested) {
				result[fk] = fv
			}
		} else {
			result[key] = v
		}
	}
	return result
}

// unmarshalAndValidate decodes the merged tree into a Config and runs
// both validation passes over it.
func (l *loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.koanf.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &config,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := l.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Watch registers a callback for configuration changes. The actual file
// watching lives in Manager and the source providers; this only records
// who wants to hear about it.
func (l *loader) Watch(_ context.Context, callback func(*Config)) error {
	if callback == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	l.callbackMu.Lock()
	l.watchCallbacks = append(l.watchCallbacks, callback)
	l.callbackMu.Unlock()
	return nil
}

// Validate runs the struct-tag rules and the cross-field checks that
// tags cannot express.
func (l *loader) Validate(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := l.validator.Struct(config); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := l.validateCustom(config); err != nil {
		return fmt.Errorf("custom validation failed: %w", err)
	}
	return nil
}

// validateCustom holds the checks with no validator tag equivalent.
func (l *loader) validateCustom(config *Config) error {
	if config.MaxIncludeDepth < 1 {
		return fmt.Errorf("max_include_depth must be at least 1")
	}
	if config.Watch && config.WatchDebounce <= 0 {
		return fmt.Errorf("watch_debounce must be positive when watch is enabled")
	}
	return nil
}

// GetSource reports which layer last set key; keys never set report
// SourceDefault.
func (l *loader) GetSource(key string) SourceType {
	l.metadataMu.RLock()
	defer l.metadataMu.RUnlock()
	if source, ok := l.metadata.Sources[key]; ok {
		return source
	}
	return SourceDefault
}

func (l *loader) trackSource(key string, source SourceType) {
	l.metadataMu.Lock()
	l.metadata.Sources[key] = source
	l.metadataMu.Unlock()
}

// rawMap adapts an already-materialized map to koanf's Provider
// interface, for sources (CLI flags) that don't read bytes.
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) {
	return r, nil
}

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("ReadBytes not implemented")
}
