// Package traffic runs the workload command that generates the records the
// observer agent is expected to capture.
package traffic

import (
	"context"
	"fmt"
	"strings"

	"spycheck/internal/command"
	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

const subsystem = "traffic"

// Driver executes a scenario's traffic command.
type Driver interface {
	// Run executes the workload to completion. Success is exit code zero;
	// anything else is an error. There are no retries: flaky workloads should
	// be fixed, not papered over.
	Run(ctx context.Context, spec config.TrafficSpec) error
}

type driver struct {
	runner command.Runner
}

// NewDriver returns a Driver executing through the given runner.
func NewDriver(runner command.Runner) Driver {
	return &driver{runner: runner}
}

func (d *driver) Run(ctx context.Context, spec config.TrafficSpec) error {
	argv := strings.Join(spec.Command, " ")
	logging.Info(subsystem, "Generating traffic: %s", argv)

	res, err := d.runner.RunForeground(ctx, config.CommandSpec{
		Command: spec.Command,
		WorkDir: spec.WorkDir,
		Env:     spec.Env,
		Timeout: spec.Timeout,
	})
	if err != nil {
		return fmt.Errorf("traffic command failed: %w", err)
	}
	if res.ExitCode != 0 {
		return &ExitError{Argv: argv, Result: res}
	}

	logging.Debug(subsystem, "Traffic command completed: %s", argv)
	return nil
}

// ExitError reports a traffic command that ran but exited non-zero. It keeps
// the captured output so the scenario can dump it for diagnosis.
type ExitError struct {
	Argv   string
	Result *command.Result
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("traffic command exited with code %d: %s", e.Result.ExitCode, e.Argv)
}
