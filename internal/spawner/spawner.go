// Package spawner forks and execs child processes on behalf of the
// supervisor, wiring stdout/stderr capture and applying resource limits.
package spawner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/adasa/adasa/internal/config"
	"github.com/adasa/adasa/internal/registry"
)

// Handle holds the live artifacts of a successful spawn: the OS pid, the
// running *exec.Cmd (kept so the caller can Wait on it), and a slice of
// warnings for non-fatal resource-limit failures.
type Handle struct {
	Pid      int
	Cmd      *exec.Cmd
	Warnings []error
}

// Stdio supplies the writers the spawned child's stdout/stderr are copied
// into; the log-capture subsystem is an external collaborator (out of
// core scope) that implements this.
type Stdio struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Spawn resolves the executable and cwd, builds argv/env, execs the child
// with its own process group, and applies the configured resource limits.
// Resource-limit failures are collected as warnings, never fatal: the
// process still runs (§4.2, §9 "never refuse to spawn").
func Spawn(cfg *config.ProcessConfig, name string, stdio Stdio) (*Handle, error) {
	path, err := exec.LookPath(cfg.Script)
	if err != nil {
		if cfg.Script != "" && (cfg.Script[0] == '/' || cfg.Script[0] == '.') {
			if _, statErr := os.Stat(cfg.Script); statErr == nil {
				path = cfg.Script
				err = nil
			}
		}
		if err != nil {
			return nil, registry.Wrap(registry.KindExecutableNotFound, cfg.Script, err)
		}
	}

	if cfg.Cwd != "" {
		if info, statErr := os.Stat(cfg.Cwd); statErr != nil || !info.IsDir() {
			return nil, registry.Wrap(registry.KindCwdMissing, cfg.Cwd, statErr)
		}
	}

	cmd := exec.Command(path, cfg.Args...)
	cmd.Dir = cfg.Cwd
	cmd.Env = buildEnv(cfg.Env)
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, registry.Wrap(registry.KindSpawnFailed, name, err)
	}

	h := &Handle{Pid: cmd.Process.Pid, Cmd: cmd}

	if cfg.MaxMemory > 0 {
		if err := applyMemoryLimit(h.Pid, cfg.MaxMemory); err != nil {
			h.Warnings = append(h.Warnings, registry.Wrap(registry.KindLimitApplyFailed, "memory", err))
		}
	}
	if cfg.MaxCPU > 0 {
		if err := applyCPULimit(name, h.Pid, cfg.MaxCPU); err != nil {
			h.Warnings = append(h.Warnings, registry.Wrap(registry.KindLimitApplyFailed, "cpu", err))
		}
	}

	return h, nil
}

func buildEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// Signal delivers sig to the child's entire process group, so a signal
// aimed at the supervised command also reaches anything it forked.
func Signal(pid int, sig syscall.Signal) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil // already gone
		}
		pgid = pid
	}
	err = syscall.Kill(-pgid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

// ParseSignal maps a §3 stop_signal name to its syscall value. KILL is
// accepted here only for the force-stop escalation path, never as a
// validated stop_signal (config.Validate rejects it there).
func ParseSignal(name string) (syscall.Signal, error) {
	switch name {
	case "TERM":
		return syscall.SIGTERM, nil
	case "INT":
		return syscall.SIGINT, nil
	case "QUIT":
		return syscall.SIGQUIT, nil
	case "HUP":
		return syscall.SIGHUP, nil
	case "USR1":
		return syscall.SIGUSR1, nil
	case "USR2":
		return syscall.SIGUSR2, nil
	case "KILL":
		return syscall.SIGKILL, nil
	default:
		return 0, fmt.Errorf("unrecognized signal %q", name)
	}
}
