package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

// terminateGrace is how long TerminateAll waits between the graceful signal
// and the group kill. Overridable in tests.
var terminateGrace = 5 * time.Second

// killReapWait bounds how long a stop waits for the group kill to be reaped.
const killReapWait = 2 * time.Second

type runner struct {
	logDir string

	mu    sync.Mutex
	procs []*Process
}

// NewRunner returns a Runner that places background log files in logDir.
// An empty logDir falls back to the system temp directory.
func NewRunner(logDir string) Runner {
	if logDir == "" {
		logDir = os.TempDir()
	}
	return &runner{logDir: logDir}
}

func (r *runner) RunForeground(ctx context.Context, spec config.CommandSpec) (*Result, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty command")
	}
	argv := strings.Join(spec.Command, " ")

	if d := spec.Timeout.Duration(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.WorkDir
	cmd.Env = overlayEnviron(spec.Env)
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug(subsystem, "Running foreground command: %s", argv)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting command %q: %w", argv, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		// Kill the whole group so no grandchildren outlive the timeout.
		forceKillGroup(cmd.Process.Pid)
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			logging.Warn(subsystem, "Command exceeded its %s timeout: %s", spec.Timeout, argv)
			return nil, fmt.Errorf("%w: %s", ErrTimeout, argv)
		}
		return nil, fmt.Errorf("command %q interrupted: %w", argv, ctx.Err())

	case err := <-done:
		res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
				logging.Debug(subsystem, "Command exited with code %d: %s", res.ExitCode, argv)
				return res, nil
			}
			return nil, fmt.Errorf("waiting for command %q: %w", argv, err)
		}
		return res, nil
	}
}

func (r *runner) StartBackground(ctx context.Context, spec config.CommandSpec) (*Process, error) {
	if len(spec.Command) == 0 {
		return nil, errors.New("empty command")
	}
	argv := strings.Join(spec.Command, " ")

	logPath := filepath.Join(r.logDir, fmt.Sprintf("%s-%s.log",
		filepath.Base(spec.Command[0]), uuid.New().String()[:8]))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("creating log file for %q: %w", argv, err)
	}

	cmd := exec.Command(spec.Command[0], spec.Command[1:]...)
	cmd.Dir = spec.WorkDir
	cmd.Env = overlayEnviron(spec.Env)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcessGroup(cmd)

	logging.Debug(subsystem, "Starting background command: %s (log: %s)", argv, logPath)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		os.Remove(logPath)
		return nil, fmt.Errorf("starting command %q: %w", argv, err)
	}
	// The child holds its own descriptor now.
	logFile.Close()

	p := &Process{
		PID:     cmd.Process.Pid,
		LogPath: logPath,
		Argv:    append([]string(nil), spec.Command...),
		exited:  make(chan struct{}),
	}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()
		close(p.exited)
	}()

	r.mu.Lock()
	r.procs = append(r.procs, p)
	r.mu.Unlock()

	logging.Info(subsystem, "Started background process %d: %s", p.PID, argv)

	if wait := spec.PostStartWait.Duration(); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			// Already tracked, teardown will reap it.
			return p, fmt.Errorf("interrupted while waiting for %q to come up: %w", argv, ctx.Err())
		}
	}

	return p, nil
}

func (r *runner) StopProcess(p *Process, sig syscall.Signal, timeout time.Duration) {
	if p == nil {
		return
	}
	defer r.forget(p)

	if p.Exited() {
		logging.Debug(subsystem, "Process %d already exited", p.PID)
		return
	}

	logging.Debug(subsystem, "Sending %s to process group %d", sig, p.PID)
	trySignalGroup(p.PID, sig)

	if p.WaitExited(timeout) {
		logging.Debug(subsystem, "Process %d exited after %s", p.PID, sig)
		return
	}

	logging.Warn(subsystem, "Process %d still alive after %s, killing group", p.PID, timeout)
	forceKillGroup(p.PID)
	if !p.WaitExited(killReapWait) {
		logging.Error(subsystem, nil, "Process %d not reaped after kill", p.PID)
	}
}

func (r *runner) TerminateAll() {
	r.mu.Lock()
	procs := r.procs
	r.procs = nil
	r.mu.Unlock()

	if len(procs) == 0 {
		return
	}
	logging.Debug(subsystem, "Terminating %d tracked process(es)", len(procs))
	for _, p := range procs {
		r.StopProcess(p, syscall.SIGTERM, terminateGrace)
	}
}

// forget drops p from the tracked set.
func (r *runner) forget(p *Process) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tracked := range r.procs {
		if tracked == p {
			r.procs = append(r.procs[:i], r.procs[i+1:]...)
			return
		}
	}
}

// overlayEnviron merges overlay onto the inherited environment. os/exec keeps
// the last occurrence of a duplicated key, so appending makes the overlay win.
func overlayEnviron(overlay map[string]string) []string {
	if len(overlay) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range overlay {
		env = append(env, k+"="+v)
	}
	return env
}
