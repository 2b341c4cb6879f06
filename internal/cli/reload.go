package cli

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
)

// ReloadCmd sends SIGHUP to a running pgconfd process, the canonical
// reload trigger a boot-ed daemon's main loop consumes.
func ReloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Signal a running pgconfd process to reload its configuration",
		RunE:  runReloadCmd,
	}
	cmd.Flags().Int("pid", 0, "PID of the running pgconfd process (required)")
	return cmd
}

func runReloadCmd(cmd *cobra.Command, _ []string) error {
	pid, err := cmd.Flags().GetInt("pid")
	if err != nil {
		return fmt.Errorf("failed to get pid flag: %w", err)
	}
	if pid <= 0 {
		return fmt.Errorf("--pid is required and must be a positive process id")
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("failed to signal process %d: %w", pid, err)
	}
	fmt.Printf("sent SIGHUP to pid %d\n", pid)
	return nil
}
