//go:build unix

package command

import (
	"errors"
	"os/exec"
	"syscall"

	"spycheck/pkg/logging"
)

// setProcessGroup puts the child into its own process group so a single
// signal can address the whole tree it spawns.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// trySignalGroup signals the process group. ESRCH means the group exited
// first, which is the outcome we wanted anyway.
func trySignalGroup(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		logging.Warn(subsystem, "Signaling process group %d with %s: %v", pid, sig, err)
	}
}

// forceKillGroup kills the process group outright.
func forceKillGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		logging.Warn(subsystem, "Killing process group %d: %v", pid, err)
	}
}
