package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/nicehist/internal/config"
	"github.com/runger/nicehist/internal/daemon"
)

const daemonFailedFmt = " %sfailed%s\n"

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the nicehistd background daemon",
	Long: `Manage the nicehist background daemon (nicehistd).

The daemon owns the database and serves predict/search/frecent requests
over a Unix socket.

Subcommands:
  start    Start the daemon
  stop     Stop the daemon
  restart  Restart the daemon
  status   Show daemon status`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nicehistd daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		paths := config.DefaultPaths()

		socketPresent, socketErr := socketExists(paths)
		if socketErr != nil {
			return socketErr
		}
		running := daemon.IsRunning()
		if running && socketPresent {
			fmt.Printf("Daemon: %salready running%s\n", colorCyan, colorReset)
			return nil
		}
		if running && !socketPresent {
			fmt.Printf("Daemon: %sunhealthy%s (socket missing), restarting...\n", colorYellow, colorReset)
			_ = daemon.Stop()
		}

		fmt.Print("Starting daemon...")
		if err := spawnAndWait(5 * time.Second); err != nil {
			fmt.Printf(daemonFailedFmt, colorRed, colorReset)
			return err
		}
		fmt.Printf(" %srunning%s\n", colorGreen, colorReset)
		return nil
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the nicehistd daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !daemon.IsRunning() {
			fmt.Printf("Daemon: %snot running%s\n", colorDim, colorReset)
			return nil
		}

		fmt.Print("Stopping daemon...")
		if err := daemon.Stop(); err != nil {
			fmt.Printf(daemonFailedFmt, colorRed, colorReset)
			return err
		}
		fmt.Printf(" %sstopped%s\n", colorGreen, colorReset)
		return nil
	},
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the nicehistd daemon",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if daemon.IsRunning() {
			fmt.Print("Stopping daemon...")
			if err := daemon.Stop(); err != nil {
				fmt.Printf(daemonFailedFmt, colorRed, colorReset)
				return err
			}
			fmt.Printf(" %sstopped%s\n", colorGreen, colorReset)
		}

		fmt.Print("Starting daemon...")
		if err := spawnAndWait(5 * time.Second); err != nil {
			fmt.Printf(daemonFailedFmt, colorRed, colorReset)
			return err
		}
		fmt.Printf(" %srunning%s\n", colorGreen, colorReset)
		return nil
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Run: func(_ *cobra.Command, _ []string) {
		paths := config.DefaultPaths()

		if daemon.IsRunning() {
			fmt.Printf("Daemon: %srunning%s\n", colorGreen, colorReset)
			if pid, err := daemon.ReadPID(paths.PIDFile()); err == nil {
				fmt.Printf("  PID:    %d\n", pid)
			}
			fmt.Printf("  Socket: %s\n", paths.SocketFile())
			if exists, err := socketExists(paths); err != nil {
				fmt.Printf("  Socket: %scheck failed%s (%v)\n", colorYellow, colorReset, err)
			} else if !exists {
				fmt.Printf("  Socket: %smissing%s\n", colorYellow, colorReset)
			}
		} else {
			fmt.Printf("Daemon: %snot running%s\n", colorDim, colorReset)
		}
	},
}

func socketExists(paths *config.Paths) (bool, error) {
	_, err := os.Stat(paths.SocketFile())
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat daemon socket %q: %w", paths.SocketFile(), err)
}

// spawnAndWait execs nicehistd in the background and waits for its socket
// to appear.
func spawnAndWait(timeout time.Duration) error {
	exe, err := exec.LookPath("nicehistd")
	if err != nil {
		return fmt.Errorf("nicehistd not found on PATH: %w", err)
	}

	c := exec.Command(exe)
	c.Stdout = nil
	c.Stderr = nil
	if err := c.Start(); err != nil {
		return fmt.Errorf("spawn nicehistd: %w", err)
	}
	_ = c.Process.Release()

	return daemon.WaitForSocket(timeout)
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonRestartCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
}
