// Package cli implements pgconfd's subcommands (boot, check, reload), one
// file per verb, wired into the root command built in cmd/pgconfd.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/abit/pgconfd/pkg/config"
	"github.com/abit/pgconfd/pkg/logger"
)

// addConfigFlags registers the flags shared by boot and check:
// everything pkg/config's default registry can source from the CLI layer.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("data-directory", "", "Path to the settings data directory (required)")
	cmd.Flags().String("config-file", "", "Config file name, resolved relative to --data-directory")
	cmd.Flags().String("pid-file", "", "PID file name, resolved relative to --data-directory")
	cmd.Flags().Int("max-include-depth", 0, "Maximum nested include depth")
	cmd.Flags().Bool("watch", false, "Watch the config file and reload automatically on change")
	cmd.Flags().Duration("watch-debounce", 0, "Debounce interval between watch-triggered reloads")
	cmd.Flags().String("log-level", "", "Log level (debug, info, warn, error, disabled)")
	cmd.Flags().Bool("log-json", false, "Output logs in JSON format")
	cmd.Flags().Bool("log-source", false, "Include source file and line in logs")
}

// extractCLIFlags collects every explicitly-set flag from addConfigFlags
// into the map shape config.NewCLIProvider expects. Only changed flags
// are folded in, so absent flags never shadow env or file values.
func extractCLIFlags(fs *pflag.FlagSet) map[string]any {
	flags := make(map[string]any)
	addString := func(name, key string) {
		if fs.Changed(name) {
			if v, err := fs.GetString(name); err == nil {
				flags[key] = v
			}
		}
	}
	addInt := func(name, key string) {
		if fs.Changed(name) {
			if v, err := fs.GetInt(name); err == nil {
				flags[key] = v
			}
		}
	}
	addBool := func(name, key string) {
		if fs.Changed(name) {
			if v, err := fs.GetBool(name); err == nil {
				flags[key] = v
			}
		}
	}
	addDuration := func(name, key string) {
		if fs.Changed(name) {
			if v, err := fs.GetDuration(name); err == nil {
				flags[key] = v
			}
		}
	}

	addString("data-directory", "data-directory")
	addString("config-file", "config-file")
	addString("pid-file", "pid-file")
	addInt("max-include-depth", "max-include-depth")
	addBool("watch", "watch")
	addDuration("watch-debounce", "watch-debounce")
	addString("log-level", "log-level")
	addBool("log-json", "log-json")
	addBool("log-source", "log-source")
	return flags
}

// baseConfigSources returns the Default and Env sources every subcommand
// loads process configuration from; callers append a YAML file and CLI
// flags afterward. config.Service.Load merges sources left-to-right and
// always merges the environment last, over all of them.
func baseConfigSources() []config.Source {
	return []config.Source{
		config.NewDefaultProvider(),
		config.NewEnvProvider(),
	}
}

// cliConfigSource returns a config.Source for every flag addConfigFlags
// registered that was explicitly set, or nil if none were.
func cliConfigSource(cmd *cobra.Command) config.Source {
	cliFlags := extractCLIFlags(cmd.Flags())
	if len(cliFlags) == 0 {
		return nil
	}
	return config.NewCLIProvider(cliFlags)
}

// loadProcessConfig loads pkg/config's ambient Config from defaults, CLI
// flag overrides, and the environment, lowest precedence first. Used by
// the one-shot check subcommand, which has no need for hot-reload (reload
// only signals a pid and loads no process configuration); boot wires a
// config.Manager directly so it can also watch a YAML process config file.
func loadProcessConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	sources := baseConfigSources()
	if cli := cliConfigSource(cmd); cli != nil {
		sources = append(sources, cli)
	}
	cfg, err := config.NewService().Load(ctx, sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging initializes the process-wide logger from cfg.Log and returns
// a context carrying it, per pkg/logger/setup.go's SetupLogger contract.
func setupLogging(ctx context.Context, cfg *config.Config) context.Context {
	logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source)
	return logger.ContextWithLogger(ctx, logger.GetDefault())
}
