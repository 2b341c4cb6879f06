package config

import (
	"context"
	"fmt"
	"sync"
)

// GlobalManager is the process-wide Manager installed by Initialize.
// Prefer the package-level functions below over touching it directly.
var (
	GlobalManager *Manager
	initOnce      sync.Once
	closeOnce     sync.Once
)

// Initialize installs the global config manager, exactly once per
// process. boot.go calls it early with its full source list (defaults,
// env, optional yaml, CLI flags); later calls are no-ops, which is why
// the one-shot subcommands load through a plain Service instead.
func Initialize(ctx context.Context, service Service, sources ...Source) error {
	var initErr error
	initOnce.Do(func() {
		if service == nil {
			service = NewService()
		}
		GlobalManager = NewManager(service)
		if _, err := GlobalManager.Load(ctx, sources...); err != nil {
			initErr = fmt.Errorf("failed to initialize global config: %w", err)
			GlobalManager = nil
		}
	})
	return initErr
}

// Get returns the active global configuration. It panics before
// Initialize has run; configuration is a boot-time prerequisite, not
// something callers can meaningfully handle missing.
func Get() *Config {
	if GlobalManager == nil {
		panic("config not initialized; call config.Initialize first")
	}
	return GlobalManager.Get()
}

// OnChange registers a callback on the global manager. Panics before
// Initialize.
func OnChange(callback func(*Config)) {
	if GlobalManager == nil {
		panic("config not initialized; call config.Initialize first")
	}
	GlobalManager.OnChange(callback)
}

// Reload forces the global manager to re-merge its sources. Panics
// before Initialize.
func Reload(ctx context.Context) error {
	if GlobalManager == nil {
		panic("config not initialized; call config.Initialize first")
	}
	return GlobalManager.Reload(ctx)
}

// Close tears down the global manager: watchers stop, sources close.
// Idempotent; a nil GlobalManager makes it a no-op.
func Close(ctx context.Context) error {
	var closeErr error
	closeOnce.Do(func() {
		if GlobalManager != nil {
			closeErr = GlobalManager.Close(ctx)
			GlobalManager = nil
		}
	})
	return closeErr
}

// resetForTest rewinds the singleton guards so tests can re-Initialize.
func resetForTest() {
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	GlobalManager = nil
}
