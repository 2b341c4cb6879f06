package config

import (
	"context"
	"sync"

	"github.com/abit/pgconfd/pkg/logger"
)

// ContextKey is the key type for values this package stores in a context.
type ContextKey string

// ManagerCtxKey is the context key under which ContextWithManager stores
// the *Manager.
const ManagerCtxKey ContextKey = "config_manager"

// ContextWithManager returns a copy of ctx carrying m, retrievable via
// ManagerFromContext.
func ContextWithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, ManagerCtxKey, m)
}

var (
	fallbackManager     *Manager
	fallbackManagerOnce sync.Once
)

// ManagerFromContext returns the Manager stored in ctx, or a lazily
// built fallback loaded from defaults and the environment when ctx
// carries none. The fallback keeps library code usable in contexts the
// CLI never decorated, the same way logger.FromContext falls back to the
// default logger.
func ManagerFromContext(ctx context.Context) *Manager {
	if ctx != nil {
		if m, ok := ctx.Value(ManagerCtxKey).(*Manager); ok && m != nil {
			return m
		}
	}
	return getFallbackManager(ctx)
}

// FromContext returns the active *Config for ctx, or nil if even the
// fallback manager could not produce one.
func FromContext(ctx context.Context) *Config {
	m := ManagerFromContext(ctx)
	if m == nil {
		return nil
	}
	return m.Get()
}

// getFallbackManager builds the shared fallback exactly once, from the
// built-in defaults plus environment overrides. YAML and CLI sources are
// never part of the fallback; code that needs them must attach a real
// Manager to the context.
func getFallbackManager(ctx context.Context) *Manager {
	fallbackManagerOnce.Do(func() {
		m := NewManager(NewService())
		if _, err := m.Load(ctx, NewDefaultProvider(), NewEnvProvider()); err != nil {
			logger.FromContext(ctx).Warn("failed to load default configuration, using fallback defaults", "error", err)
		}
		fallbackManager = m
	})
	return fallbackManager
}
