package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abit/pgconfd/guc"
	"github.com/abit/pgconfd/pkg/config"
	"github.com/abit/pgconfd/pkg/logger"
	"github.com/abit/pgconfd/reload"
)

// BootCmd runs the full reload pipeline once at process start, then
// serves reloads for the life of the process: SIGHUP is the canonical
// trigger, an fsnotify watch of the config file is an optional dev-mode
// addition gated behind --watch. Both funnel into the same
// reload.Engine.Reload call so atomicity is never bypassed.
func BootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot",
		Short: "Load the configuration file and serve reloads",
		RunE:  runBoot,
	}
	addConfigFlags(cmd)
	cmd.Flags().String("process-config", "", "Optional YAML file of process configuration, hot-reloaded for the life of the daemon")
	return cmd
}

func runBoot(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sources := baseConfigSources()
	if path, _ := cmd.Flags().GetString("process-config"); path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	if cli := cliConfigSource(cmd); cli != nil {
		sources = append(sources, cli)
	}
	if err := config.Initialize(ctx, config.NewService(), sources...); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	defer func() {
		if err := config.Close(ctx); err != nil {
			logger.FromContext(ctx).Warn("failed to close config manager", "error", err)
		}
	}()
	cfg := config.Get()

	ctx = setupLogging(ctx, cfg)
	ctx = config.ContextWithManager(ctx, config.GlobalManager)
	log := logger.FromContext(ctx)

	// A hot-reloaded process-config file can only change settings that are
	// safe to apply without a restart; logging is the one ambient concern
	// this daemon lets change live, the same boot-vs-reload split the
	// reload engine enforces for GUC settings.
	config.OnChange(func(updated *config.Config) {
		logger.SetupLogger(updated.Log.Level, updated.Log.JSON, updated.Log.Source)
		logger.FromContext(ctx).Info("process configuration changed, logger reconfigured")
	})

	fs := afero.NewOsFs()
	configPath := filepath.Join(cfg.DataDirectory, cfg.ConfigFile)
	engine := reload.NewEngine(guc.NewBuiltinRegistry(), fs, cfg.DataDirectory)
	engine.MaxIncludeDepth = cfg.MaxIncludeDepth
	engine.EnvReseed = guc.ReseedEnvironmentDefaults

	if _, err := engine.Reload(ctx, configPath, guc.Boot); err != nil {
		return reportLoadFailure(log, guc.Boot, err)
	}
	log.Info("configuration loaded", "config_file", configPath)

	if cfg.PIDFile != "" {
		pidPath := filepath.Join(cfg.DataDirectory, cfg.PIDFile)
		if err := os.WriteFile(pidPath, fmt.Appendf(nil, "%d\n", os.Getpid()), 0o644); err != nil {
			log.Warn("failed to write pid file", "path", pidPath, "error", err)
		}
	}

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigterm)

	var watchEvents chan struct{}
	if cfg.Watch {
		w, err := config.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to start config watcher: %w", err)
		}
		defer w.Close()
		watchEvents = make(chan struct{}, 1)
		w.OnChange(debounced(cfg.WatchDebounce, func() {
			select {
			case watchEvents <- struct{}{}:
			default:
			}
		}))
		if err := w.Watch(ctx, configPath); err != nil {
			return fmt.Errorf("failed to watch config file: %w", err)
		}
	}

	log.Info("pgconfd ready", "pid", os.Getpid(), "watch", cfg.Watch)

	for {
		select {
		case <-sigterm:
			log.Info("shutting down")
			return nil
		case <-sighup:
			runReload(ctx, engine, configPath, log)
		case <-watchEvents:
			log.Debug("config file changed, reloading", "path", configPath)
			runReload(ctx, engine, configPath, log)
		}
	}
}

// debounced wraps fn so that a burst of calls within delay of each other
// collapses into a single invocation.
func debounced(delay time.Duration, fn func()) func() {
	var mu sync.Mutex
	var timer *time.Timer
	return func() {
		mu.Lock()
		defer mu.Unlock()
		if delay <= 0 {
			fn()
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(delay, fn)
	}
}

// reportLoadFailure logs a failed configuration load at the severity its
// context demands and returns a non-nil error only when that severity is
// fatal, so boot tears the process down while a reload keeps serving the
// old configuration.
func reportLoadFailure(log logger.Logger, loadCtx guc.Context, err error) error {
	if reload.SeverityForContext(loadCtx) == reload.SeverityFatal {
		log.Error("configuration load failed", "error", err)
		return fmt.Errorf("boot failed: %w", err)
	}
	log.Error("reload failed, configuration unchanged", "error", err)
	return nil
}

func runReload(ctx context.Context, engine *reload.Engine, configPath string, log logger.Logger) {
	result, err := engine.Reload(ctx, configPath, guc.Reload)
	if err != nil {
		_ = reportLoadFailure(log, guc.Reload, err)
		return
	}
	for _, w := range result.Warnings {
		log.Warn("reload warning", "error", w)
	}
	for _, c := range result.Changes {
		log.Info(c.String())
	}
	for _, name := range result.Removed {
		log.Info("parameter removed, reverted to default", "name", name)
	}
	log.Info("reload complete", "changes", len(result.Changes), "removed", len(result.Removed), "at", time.Now().Format(time.RFC3339))
}
