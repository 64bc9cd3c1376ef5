package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"spycheck/internal/command"
	"spycheck/internal/config"
	"spycheck/internal/traffic"
	"spycheck/internal/validate"
	"spycheck/pkg/logging"
)

// preStopGrace bounds the graceful wait for background pre-commands during
// teardown before escalating to a kill.
const preStopGrace = 5 * time.Second

var osMkdirTemp = os.MkdirTemp // For mocking in tests

// execution holds the per-run state of one scenario: its working directory,
// its own command runner, and the child process handles accumulated along the
// way.
type execution struct {
	scenario   config.ScenarioSpec
	opts       Options
	obs        Observer
	runner     command.Runner
	driver     traffic.Driver
	validator  validate.Validator
	runDir     string
	outputPath string

	agent    *command.Process
	preProcs []*command.Process
	torndown bool
}

func (e *executor) newExecution(sc config.ScenarioSpec, opts Options) (*execution, error) {
	runDir, err := osMkdirTemp(opts.WorkDir, "spycheck-run-")
	if err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	logging.Debug(subsystem, "Run directory for %q: %s", sc.Name, runDir)

	runner := command.NewRunner(runDir)
	return &execution{
		scenario:   sc,
		opts:       opts,
		obs:        e.obs,
		runner:     runner,
		driver:     traffic.NewDriver(runner),
		validator:  validate.NewValidator(),
		runDir:     runDir,
		outputPath: filepath.Join(runDir, "captured.jsonl"),
	}, nil
}

func (run *execution) preCommands(ctx context.Context) error {
	for i, spec := range run.scenario.PreCommands {
		n := i + 1
		argv := strings.Join(spec.Command, " ")
		if spec.Background {
			p, err := run.runner.StartBackground(ctx, spec)
			if p != nil {
				run.preProcs = append(run.preProcs, p)
			}
			if err != nil {
				return fmt.Errorf("pre-command %d (%s): %w", n, argv, err)
			}
			logging.Info(subsystem, "Pre-command %d started in background, pid %d", n, p.PID)
			continue
		}

		result, err := run.runner.RunForeground(ctx, spec)
		if err != nil {
			return fmt.Errorf("pre-command %d (%s): %w", n, argv, err)
		}
		if result.ExitCode != 0 {
			run.dumpOutput(fmt.Sprintf("pre-command %d", n), result)
			return fmt.Errorf("pre-command %d (%s) exited with code %d", n, argv, result.ExitCode)
		}
		logging.Info(subsystem, "Pre-command %d completed", n)
	}
	return nil
}

// startAgent launches the monitored agent in the background, with the
// captured output path injected as a flag.
func (run *execution) startAgent(ctx context.Context) error {
	agent := run.scenario.Agent
	if agent == nil || agent.BinaryPath == "" {
		return errors.New("scenario has no agent binary configured")
	}

	argv := append([]string{}, agent.PrivilegeEscalation...)
	argv = append(argv, agent.BinaryPath, "--output", run.outputPath)
	argv = append(argv, agent.Flags...)

	p, err := run.runner.StartBackground(ctx, config.CommandSpec{Command: argv})
	if p != nil {
		run.agent = p
	}
	if err != nil {
		return fmt.Errorf("starting agent: %w", err)
	}
	logging.Info(subsystem, "Agent started, pid %d, log %s", p.PID, p.LogPath)
	return nil
}

// settle waits the configured startup delay. The agent exposes no readiness
// signal, so this is a fixed sleep.
func (run *execution) settle(ctx context.Context) error {
	wait := run.scenario.Agent.SettleWait.Duration()
	if wait <= 0 {
		return nil
	}
	logging.Debug(subsystem, "Waiting %s for the agent to settle", wait)
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return fmt.Errorf("interrupted while settling: %w", ctx.Err())
	}
}

func (run *execution) generateTraffic(ctx context.Context) error {
	logging.Info(subsystem, "Generating traffic: %s", strings.Join(run.scenario.Traffic.Command, " "))
	err := run.driver.Run(ctx, run.scenario.Traffic)
	if err == nil {
		return nil
	}
	var exitErr *traffic.ExitError
	if errors.As(err, &exitErr) {
		run.dumpOutput("traffic", exitErr.Result)
	}
	return err
}

// stopAgent interrupts the agent's process group and waits up to the
// scenario's shutdown timeout before escalating. Safe to call repeatedly and
// when the agent never started.
func (run *execution) stopAgent() {
	if run.agent == nil {
		return
	}
	timeout := run.scenario.Agent.ShutdownTimeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultShutdownTimeout.Duration()
	}
	logging.Debug(subsystem, "Stopping agent, pid %d", run.agent.PID)
	run.runner.StopProcess(run.agent, syscall.SIGINT, timeout)
}

// teardown is idempotent and runs with a fresh context so cleanup proceeds
// even when the run context was cancelled.
func (run *execution) teardown() {
	if run.torndown {
		return
	}
	run.torndown = true

	ctx := context.Background()

	run.stopAgent()
	run.postCommands(ctx)

	// Background pre-commands are stopped explicitly. The sweep below reaps
	// anything left, background post-commands included.
	for _, p := range run.preProcs {
		run.runner.StopProcess(p, syscall.SIGTERM, preStopGrace)
	}
	run.runner.TerminateAll()

	if err := os.RemoveAll(run.runDir); err != nil {
		logging.Warn(subsystem, "Failed to remove run directory %s: %v", run.runDir, err)
	}
}

func (run *execution) postCommands(ctx context.Context) {
	for i, spec := range run.scenario.PostCommands {
		n := i + 1
		if spec.Background {
			if _, err := run.runner.StartBackground(ctx, spec); err != nil {
				logging.Warn(subsystem, "Post-command %d failed to start: %v", n, err)
			}
			continue
		}
		result, err := run.runner.RunForeground(ctx, spec)
		if err != nil {
			logging.Warn(subsystem, "Post-command %d failed: %v", n, err)
			continue
		}
		if result.ExitCode != 0 {
			logging.Warn(subsystem, "Post-command %d exited with code %d", n, result.ExitCode)
		}
	}
}

// dumpProcessLogs emits the captured log of every background pre-command and
// of the agent, for post-mortem after a failed phase.
func (run *execution) dumpProcessLogs() {
	for i, p := range run.preProcs {
		title := fmt.Sprintf("pre-command %d log (%s)", i+1, strings.Join(p.Argv, " "))
		content := readLog(p.LogPath, "(no output)")
		if p.Exited() {
			if err := p.ExitError(); err != nil {
				content += fmt.Sprintf("\nprocess exited early: %v", err)
			} else {
				content += "\nprocess exited early with status 0"
			}
		}
		run.obs.Dump(title, content)
	}

	if run.agent != nil {
		run.obs.Dump("agent log", readLog(run.agent.LogPath, "(empty, the agent may not have started)"))
	}
}

func (run *execution) dumpOutput(what string, result *command.Result) {
	if result.Stderr != "" {
		run.obs.Dump(what+" stderr", result.Stderr)
	}
	if result.Stdout != "" {
		run.obs.Dump(what+" stdout", result.Stdout)
	}
}

func readLog(path, whenEmpty string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprintf("failed to read %s: %v", path, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return whenEmpty
	}
	return content
}
