// Package command starts and supervises the child processes of a scenario.
//
// Foreground commands run to completion with captured output and an optional
// timeout. Background commands are spawned into their own process group with
// stdout and stderr merged into a log file, and stay tracked until they are
// stopped individually or swept by TerminateAll. Stopping always follows the
// same shape: a graceful signal to the whole group, a bounded wait, then a
// group kill. Races with processes that exited on their own are swallowed,
// the outcome is the same.
package command

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"time"

	"spycheck/internal/config"
)

const subsystem = "command"

// ErrTimeout marks a foreground command that exceeded its configured bound.
var ErrTimeout = errors.New("command timed out")

// Result holds the outcome of a completed foreground command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Process is a background child owned by the runner.
type Process struct {
	// PID of the direct child, which is also its process group id.
	PID int
	// LogPath is the file collecting the merged stdout and stderr.
	LogPath string
	// Argv the process was started with, for diagnostics.
	Argv []string

	exited chan struct{}

	mu      sync.Mutex
	waitErr error
}

// Exited reports whether the process has been reaped.
func (p *Process) Exited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// WaitExited blocks until the process is reaped or the timeout elapses.
func (p *Process) WaitExited(timeout time.Duration) bool {
	select {
	case <-p.exited:
		return true
	case <-time.After(timeout):
		return false
	}
}

// ExitError returns the error cmd.Wait produced, once the process exited.
func (p *Process) ExitError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Runner starts and supervises child processes.
type Runner interface {
	// RunForeground runs the command to completion. A non-zero exit is not an
	// error; it is reported through Result.ExitCode. The returned error covers
	// spawn failures, timeouts (ErrTimeout) and context cancellation, and in
	// all three cases the process tree is left terminated.
	RunForeground(ctx context.Context, spec config.CommandSpec) (*Result, error)

	// StartBackground spawns the command into its own process group, merges
	// its output into a log file, and tracks it for TerminateAll. After a
	// successful spawn it sleeps the spec's PostStartWait.
	StartBackground(ctx context.Context, spec config.CommandSpec) (*Process, error)

	// StopProcess stops one tracked process: graceful signal to the group,
	// wait up to timeout, then group kill. A process that already exited is
	// skipped without error. Safe to call repeatedly.
	StopProcess(p *Process, sig syscall.Signal, timeout time.Duration)

	// TerminateAll stops every still-tracked background process with SIGTERM
	// escalation. After it returns the tracked set is empty, so a second call
	// is a no-op.
	TerminateAll()
}
