//go:build unix

package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitDiscard()
	os.Exit(m.Run())
}

// sh wraps a shell snippet into a CommandSpec.
func sh(script string) config.CommandSpec {
	return config.CommandSpec{Command: []string{"/bin/sh", "-c", script}}
}

func TestRunForeground_CapturesOutput(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.RunForeground(context.Background(), sh("echo out; echo err 1>&2"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
}

func TestRunForeground_EmptyOutputIsNotFailure(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.RunForeground(context.Background(), sh("true"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "", res.Stdout)
	assert.Equal(t, "", res.Stderr)
}

func TestRunForeground_NonZeroExit(t *testing.T) {
	r := NewRunner(t.TempDir())

	res, err := r.RunForeground(context.Background(), sh("echo broken; exit 3"))
	require.NoError(t, err, "non-zero exit is reported via Result, not error")
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "broken\n", res.Stdout)
}

func TestRunForeground_Timeout(t *testing.T) {
	r := NewRunner(t.TempDir())

	spec := sh("sleep 30")
	spec.Timeout = config.Duration(150 * time.Millisecond)

	start := time.Now()
	_, err := r.RunForeground(context.Background(), spec)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "sleep 30")
	assert.Less(t, elapsed, 3*time.Second, "timed-out command must be killed, not awaited")
}

func TestRunForeground_SpawnFailure(t *testing.T) {
	r := NewRunner(t.TempDir())

	_, err := r.RunForeground(context.Background(), config.CommandSpec{
		Command: []string{"/nonexistent/binary-xyz"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting command")
}

func TestRunForeground_EnvOverlay(t *testing.T) {
	t.Setenv("SPYCHECK_BASE", "inherited")

	r := NewRunner(t.TempDir())
	spec := sh("echo $SPYCHECK_BASE $SPYCHECK_OVER")
	spec.Env = map[string]string{
		"SPYCHECK_BASE": "won",
		"SPYCHECK_OVER": "set",
	}

	res, err := r.RunForeground(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, "won set\n", res.Stdout, "overlay wins over inherited environment")
}

func TestRunForeground_WorkDir(t *testing.T) {
	dir := t.TempDir()
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	r := NewRunner(t.TempDir())
	spec := sh("pwd")
	spec.WorkDir = dir

	res, err := r.RunForeground(context.Background(), spec)
	require.NoError(t, err)
	assert.Equal(t, resolved, strings.TrimSpace(res.Stdout))
}

func TestStartBackground_WritesLogAndTracks(t *testing.T) {
	r := NewRunner(t.TempDir())
	defer r.TerminateAll()

	p, err := r.StartBackground(context.Background(), sh("echo hello; exec sleep 30"))
	require.NoError(t, err)
	assert.Greater(t, p.PID, 0)
	assert.False(t, p.Exited())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(p.LogPath)
		return err == nil && strings.Contains(string(data), "hello")
	}, 2*time.Second, 50*time.Millisecond, "stdout must land in the log file")

	r.TerminateAll()
	assert.True(t, p.Exited())
}

func TestStartBackground_PostStartWait(t *testing.T) {
	r := NewRunner(t.TempDir())
	defer r.TerminateAll()

	spec := sh("sleep 30")
	spec.PostStartWait = config.Duration(300 * time.Millisecond)

	start := time.Now()
	_, err := r.StartBackground(context.Background(), spec)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestStartBackground_InterruptedPostStartWait(t *testing.T) {
	r := NewRunner(t.TempDir())
	defer r.TerminateAll()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	spec := sh("sleep 30")
	spec.PostStartWait = config.Duration(10 * time.Second)

	start := time.Now()
	p, err := r.StartBackground(ctx, spec)
	require.Error(t, err)
	require.NotNil(t, p, "process stays tracked so teardown can reap it")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestStopProcess_GracefulExit(t *testing.T) {
	r := NewRunner(t.TempDir())
	defer r.TerminateAll()

	p, err := r.StartBackground(context.Background(), sh(`trap "exit 0" TERM; sleep 30`))
	require.NoError(t, err)

	start := time.Now()
	r.StopProcess(p, syscall.SIGTERM, 5*time.Second)
	assert.True(t, p.Exited())
	assert.Less(t, time.Since(start), 3*time.Second, "graceful exit must not wait out the full timeout")
}

func TestStopProcess_AlreadyExited(t *testing.T) {
	r := NewRunner(t.TempDir())

	p, err := r.StartBackground(context.Background(), sh("true"))
	require.NoError(t, err)
	require.Eventually(t, p.Exited, 2*time.Second, 20*time.Millisecond)

	// Must be a quiet no-op, twice.
	r.StopProcess(p, syscall.SIGTERM, time.Second)
	r.StopProcess(p, syscall.SIGTERM, time.Second)
}

func TestStopProcess_Nil(t *testing.T) {
	r := NewRunner(t.TempDir())
	r.StopProcess(nil, syscall.SIGTERM, time.Second)
}

func TestTerminateAll_KillsStubbornProcess(t *testing.T) {
	originalGrace := terminateGrace
	terminateGrace = 300 * time.Millisecond
	defer func() { terminateGrace = originalGrace }()

	r := NewRunner(t.TempDir())

	// Ignores SIGTERM, so only the follow-up group kill can take it down.
	p, err := r.StartBackground(context.Background(), sh(`trap "" TERM; while :; do sleep 0.05; done`))
	require.NoError(t, err)

	start := time.Now()
	r.TerminateAll()
	elapsed := time.Since(start)

	assert.True(t, p.Exited())
	assert.Less(t, elapsed, 3*time.Second, "escalation must finish shortly after the grace period")
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond, "graceful phase runs first")
}

func TestTerminateAll_Idempotent(t *testing.T) {
	r := NewRunner(t.TempDir())

	_, err := r.StartBackground(context.Background(), sh(`trap "exit 0" TERM; sleep 30`))
	require.NoError(t, err)

	r.TerminateAll()

	start := time.Now()
	r.TerminateAll()
	assert.Less(t, time.Since(start), 100*time.Millisecond, "second call has nothing to do")

	assert.Empty(t, r.(*runner).procs)
}

func TestStopProcess_RemovesFromTrackedSet(t *testing.T) {
	r := NewRunner(t.TempDir())
	defer r.TerminateAll()

	p, err := r.StartBackground(context.Background(), sh(`trap "exit 0" TERM; sleep 30`))
	require.NoError(t, err)
	require.Len(t, r.(*runner).procs, 1)

	r.StopProcess(p, syscall.SIGINT, 2*time.Second)
	assert.Empty(t, r.(*runner).procs, "stopped process must not be swept again by TerminateAll")
}
