package main

import (
	"github.com/spf13/cobra"

	"github.com/abit/pgconfd/internal/cli"
)

// RootCmd wires the daemon's three verbs onto a bare cobra root.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pgconfd",
		Short: "PostgreSQL-style configuration file reload daemon",
	}
	root.AddCommand(
		cli.BootCmd(),
		cli.CheckCmd(),
		cli.ReloadCmd(),
	)
	return root
}
