package config

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abit/pgconfd/pkg/logger"
)

// Manager owns the process configuration for a long-running pgconfd: it
// holds the active *Config behind an atomic swap, serializes reloads, and
// re-loads from every registered source when one of them reports a change.
// It is the daemon-side complement of the one-shot Service.Load used by
// check: same merge, plus a lifecycle.
type Manager struct {
	Service Service

	active   atomic.Value // *Config
	debounce time.Duration

	reloadMu sync.Mutex
	sources  []Source

	callbackMu sync.RWMutex
	callbacks  []func(*Config)

	watchCtx    context.Context
	watchCancel context.CancelFunc
	watchWg     sync.WaitGroup
	closeOnce   sync.Once
}

// NewManager wraps service (or a fresh default Service) in a Manager.
func NewManager(service Service) *Manager {
	if service == nil {
		service = NewService()
	}
	return &Manager{
		Service:  service,
		debounce: 100 * time.Millisecond,
	}
}

// SetDebounce overrides the delay between a source change event and the
// reload it triggers. Call before Load.
func (m *Manager) SetDebounce(duration time.Duration) {
	m.debounce = duration
}

// Load performs the initial merge across sources, publishes the result,
// and starts watching every source that supports it. The watch goroutines
// outlive ctx's cancellation (they stop at Close) so a request-scoped ctx
// can't silently kill the daemon's hot-reload.
func (m *Manager) Load(ctx context.Context, sources ...Source) (*Config, error) {
	m.reloadMu.Lock()
	m.sources = append([]Source(nil), sources...)
	m.reloadMu.Unlock()

	config, err := m.Service.Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	m.publish(config)

	if ctx != nil {
		if m.watchCancel != nil {
			m.watchCancel()
		}
		m.watchCtx, m.watchCancel = context.WithCancel(context.WithoutCancel(ctx))
	}
	m.watchSources(sources)
	return config, nil
}

// Get returns the active configuration, or nil before the first Load.
func (m *Manager) Get() *Config {
	config, _ := m.active.Load().(*Config)
	return config
}

// Sources returns a copy of the source list registered by Load.
func (m *Manager) Sources() []Source {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	out := make([]Source, len(m.sources))
	copy(out, m.sources)
	return out
}

// Reload re-merges every source and publishes the result. Concurrent
// calls are serialized; a failed reload leaves the active config in
// place.
func (m *Manager) Reload(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()

	updated, err := m.Service.Load(ctx, m.sources...)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	if err := m.Service.Validate(updated); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	m.publish(updated)
	return nil
}

// OnChange registers a callback invoked whenever a Load or Reload
// publishes a config that differs from the previous one.
func (m *Manager) OnChange(callback func(*Config)) {
	m.callbackMu.Lock()
	m.callbacks = append(m.callbacks, callback)
	m.callbackMu.Unlock()
}

// Close stops the watch goroutines and closes every source. Idempotent.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.watchCancel != nil {
			m.watchCancel()
		}
		m.watchWg.Wait()

		m.reloadMu.Lock()
		sources := append([]Source(nil), m.sources...)
		m.reloadMu.Unlock()
		for _, source := range sources {
			if source == nil {
				continue
			}
			if err := source.Close(); err != nil {
				logger.FromContext(ctx).Error("failed to close configuration source", "error", err)
			}
		}
	})
	return nil
}

// watchSources spawns one goroutine per source; each asks the source to
// call back on change and folds that into a debounced Reload. Sources
// that don't support watching return nil and never call back; an error
// from Watch is only logged at debug.
func (m *Manager) watchSources(sources []Source) {
	for _, source := range sources {
		if source == nil {
			continue
		}
		src := source
		m.watchWg.Add(1)
		go func() {
			defer m.watchWg.Done()
			ctx := m.watchCtx
			if ctx == nil {
				ctx = context.Background()
			}
			err := src.Watch(ctx, func() {
				if m.debounce > 0 {
					time.Sleep(m.debounce)
				}
				if err := m.Reload(ctx); err != nil {
					logger.FromContext(ctx).Error("failed to reload configuration", "error", err)
				}
			})
			if err != nil {
				logger.FromContext(ctx).Debug("source does not support watching", "error", err)
			}
		}()
	}
}

// publish swaps config in and notifies callbacks, skipping notification
// when nothing actually changed (so a no-op touch of the yaml file does
// not re-run every OnChange hook).
func (m *Manager) publish(config *Config) {
	previous := m.Get()
	m.active.Store(config)
	if previous != nil && configEqual(previous, config) {
		return
	}

	m.callbackMu.RLock()
	callbacks := make([]func(*Config), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.callbackMu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback(config)
		}
	}
}

// configEqual reports whether two configs are field-for-field identical.
func configEqual(a, b *Config) bool {
	return reflect.DeepEqual(a, b)
}
