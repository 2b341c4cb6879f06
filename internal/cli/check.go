package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/abit/pgconfd/guc"
	"github.com/abit/pgconfd/pkg/logger"
	"github.com/abit/pgconfd/reload"
)

// CheckCmd parses and validates the configuration file without ever
// committing a value, analogous to `postgres --check`: it parses,
// resolves the whitelist and dry-run validates, never applying.
func CheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse and validate the configuration file without applying it",
		RunE:  runCheck,
	}
	addConfigFlags(cmd)
	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadProcessConfig(ctx, cmd)
	if err != nil {
		return err
	}
	ctx = setupLogging(ctx, cfg)
	log := logger.FromContext(ctx)

	fs := afero.NewOsFs()
	configPath := filepath.Join(cfg.DataDirectory, cfg.ConfigFile)
	engine := reload.NewEngine(guc.NewBuiltinRegistry(), fs, cfg.DataDirectory)
	engine.MaxIncludeDepth = cfg.MaxIncludeDepth

	if err := engine.Check(ctx, configPath, guc.Boot); err != nil {
		log.Error("configuration is invalid", "config_file", configPath, "error", err)
		return fmt.Errorf("configuration check failed: %w", err)
	}
	log.Info("configuration file syntax is ok", "config_file", configPath)
	return nil
}
