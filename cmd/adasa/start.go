package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adasa/adasa/internal/config"
)

var (
	startName        string
	startInstances   int
	startCwd         string
	startEnv         []string
	startMaxRestarts int
	startMaxMemoryMB int64
	startMaxCPU      int
	startFromConfig  string
)

var startCmd = &cobra.Command{
	Use:   "start [script] [-- args...]",
	Short: "Register and start a process",
	Long: `Register and start a process, either from a script and flags or from a
config file via --config.

Examples:
  adasa start ./worker.sh --name worker
  adasa start /usr/bin/python3 --name api -- -m myapp.server --port 8080
  adasa start --config processes.toml`,
	Args: cobra.ArbitraryArgs,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startName, "name", "", "process name (required unless --config)")
	startCmd.Flags().IntVar(&startInstances, "instances", 1, "number of identical instances")
	startCmd.Flags().StringVar(&startCwd, "cwd", "", "working directory")
	startCmd.Flags().StringArrayVar(&startEnv, "env", nil, "environment variable KEY=VALUE (repeatable)")
	startCmd.Flags().IntVar(&startMaxRestarts, "max-restarts", 0, "restart quota within the sliding window, 0 = no automatic restarts")
	startCmd.Flags().Int64Var(&startMaxMemoryMB, "max-memory", 0, "memory limit in MB, 0 = unlimited")
	startCmd.Flags().IntVar(&startMaxCPU, "max-cpu", 0, "CPU limit as percent of one core, 0 = unlimited")
	startCmd.Flags().StringVarP(&startFromConfig, "config", "c", "", "load one or more process definitions from a file instead")
}

func runStart(cmd *cobra.Command, args []string) error {
	if startFromConfig != "" {
		result, err := newClient().StartFromConfig(startFromConfig)
		if err != nil {
			return err
		}
		fmt.Printf("started %d new process(es), %d already registered\n", result.Added, result.Existing)
		return nil
	}

	if len(args) == 0 {
		return misusef("a script path is required unless --config is given")
	}
	if startName == "" {
		return misusef("--name is required when starting from a script")
	}

	env, err := parseEnvFlags(startEnv)
	if err != nil {
		return misusef("%v", err)
	}

	cfg := &config.ProcessConfig{
		Name:        startName,
		Script:      args[0],
		Args:        args[1:],
		Cwd:         startCwd,
		Env:         env,
		Instances:   startInstances,
		AutoRestart: true,
		MaxRestarts: startMaxRestarts,
		MaxMemory:   startMaxMemoryMB * 1024 * 1024,
		MaxCPU:      startMaxCPU,
	}
	cfg.SetDefaults()

	result, err := newClient().Start(cfg)
	if err != nil {
		return err
	}
	for _, s := range result.Started {
		fmt.Printf("started %s (id %d)\n", s.Name, s.ID)
	}
	for name, reason := range result.Failed {
		fmt.Printf("failed to start %s: %s\n", name, reason)
	}
	if len(result.Failed) > 0 && len(result.Started) == 0 {
		return &cliError{code: 1, err: fmt.Errorf("no instances started")}
	}
	return nil
}

func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --env %q, expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}
