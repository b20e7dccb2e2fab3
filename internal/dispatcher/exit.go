package dispatcher

import (
	"errors"
	"os/exec"
	"syscall"
)

// exitDetails extracts an exit code and, if the process died from a signal,
// its name, from the error os/exec.Cmd.Wait returns.
func exitDetails(err error) (code int, signal string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return -1, ""
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return -1, ws.Signal().String()
		}
		return ws.ExitStatus(), ""
	}
	return exitErr.ExitCode(), ""
}
