package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/ipc"
	"github.com/adasa/adasa/internal/registry"
)

const version = "0.1.0"

var homeFlag string

// rootCmd is the base command when adasa is called with no subcommand.
var rootCmd = &cobra.Command{
	Use:   "adasa",
	Short: "A local process supervisor daemon",
	Long: `adasa supervises long-running scripts as a background daemon:
restart-on-crash with backoff, rolling restarts, resource limits, and a
small CLI/IPC surface for controlling them.

Examples:
  adasa daemon start                 # run the supervisor daemon in the foreground
  adasa start ./worker.sh --name w   # register and start a process
  adasa list                         # show every managed process
  adasa logs w --follow              # tail its captured output`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, translating errors into the process exit
// codes documented for the CLI surface: 0 success, 1 generic failure, 2
// misuse, 3 daemon unreachable, 4 not found.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeFlag, "home", "", "adasa state directory (default ~/.adasa, or $ADASA_HOME)")

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(restartCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(reloadCmd)
}

// daemonConfig resolves the ambient daemon configuration, applying --home,
// then ADASA_HOME, over the documented default.
func daemonConfig() *config.DaemonConfig {
	cfg := config.DefaultDaemonConfig()
	cfg.ApplyEnvOverrides()
	if homeFlag != "" {
		cfg.Home = homeFlag
	}
	return cfg
}

func newClient() *ipc.Client {
	return ipc.NewClient(daemonConfig().SocketPath())
}

// cliError carries an explicit exit code chosen by a subcommand, for misuse
// (code 2) that never reaches the daemon at all.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func misusef(format string, a ...interface{}) error {
	return &cliError{code: 2, err: fmt.Errorf(format, a...)}
}

// exitCodeFor maps an error returned from a subcommand's RunE to the exit
// code documented for the CLI surface.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "Error:", err)

	var cliErr *cliError
	if errors.As(err, &cliErr) {
		return cliErr.code
	}
	var dialErr *ipc.DialError
	if errors.As(err, &dialErr) {
		return 3
	}
	var replyErr *ipc.ReplyError
	if errors.As(err, &replyErr) {
		if replyErr.Kind == string(registry.KindNotFound) {
			return 4
		}
		return 1
	}
	return 1
}
