//go:build !unix

package command

import (
	"os"
	"os/exec"
	"syscall"

	"spycheck/pkg/logging"
)

// Process groups are a Unix notion. On other platforms we fall back to
// signaling the direct child only; grandchildren are on their own.

func setProcessGroup(cmd *exec.Cmd) {}

func trySignalGroup(pid int, sig syscall.Signal) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Signal(sig); err != nil {
		logging.Debug(subsystem, "Signaling process %d: %v", pid, err)
	}
}

func forceKillGroup(pid int) {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return
	}
	if err := proc.Kill(); err != nil {
		logging.Debug(subsystem, "Killing process %d: %v", pid, err)
	}
}
