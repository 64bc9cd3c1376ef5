// Package suite drives configured scenarios through the executor, strictly
// one at a time, and aggregates their verdicts into a run summary.
package suite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spycheck/internal/config"
	"spycheck/internal/scenario"
	"spycheck/pkg/logging"
)

const subsystem = "suite"

// Summary aggregates one run of the suite.
type Summary struct {
	// RunID uniquely identifies this run in logs and report files.
	RunID string `json:"run_id"`
	// StartTime when the run began.
	StartTime time.Time `json:"start_time"`
	// EndTime when the run completed.
	EndTime time.Time `json:"end_time"`
	// Duration of the whole run.
	Duration time.Duration `json:"duration"`
	// Total is the number of scenarios selected for this run.
	Total int `json:"total_scenarios"`
	// Passed counts scenarios that passed.
	Passed int `json:"passed_scenarios"`
	// Failed counts scenarios that failed.
	Failed int `json:"failed_scenarios"`
	// Skipped counts scenarios never started because the run was interrupted.
	Skipped int `json:"skipped_scenarios,omitempty"`
	// Results holds the per-scenario outcomes in execution order.
	Results []scenario.Result `json:"scenario_results"`
}

// AllPassed reports whether every executed scenario passed.
func (s Summary) AllPassed() bool {
	return s.Failed == 0
}

// Runner executes configured scenarios and reports progress as it goes.
type Runner interface {
	// RunAll executes every scenario in file order. Scenarios never run
	// concurrently, and one scenario's failure does not stop the others.
	RunAll(ctx context.Context, cfg *config.SuiteConfig, opts scenario.Options) Summary
	// RunOne executes a single scenario by name. An unknown name is an error
	// listing the configured scenarios, and nothing runs.
	RunOne(ctx context.Context, cfg *config.SuiteConfig, name string, opts scenario.Options) (Summary, error)
}

type runner struct {
	reporter Reporter
	executor scenario.Executor
}

// NewRunner creates a Runner reporting through reporter. A nil reporter
// silences all output.
func NewRunner(reporter Reporter) Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &runner{
		reporter: reporter,
		executor: scenario.NewExecutor(reporter),
	}
}

func (r *runner) RunAll(ctx context.Context, cfg *config.SuiteConfig, opts scenario.Options) Summary {
	return r.runScenarios(ctx, cfg.Defaults, cfg.Scenarios, opts)
}

func (r *runner) RunOne(ctx context.Context, cfg *config.SuiteConfig, name string, opts scenario.Options) (Summary, error) {
	sc, err := cfg.Scenario(name)
	if err != nil {
		return Summary{}, fmt.Errorf("%w; available scenarios: %s", err, strings.Join(cfg.ScenarioNames(), ", "))
	}
	return r.runScenarios(ctx, cfg.Defaults, []config.ScenarioSpec{*sc}, opts), nil
}

func (r *runner) runScenarios(ctx context.Context, defaults config.Defaults, scenarios []config.ScenarioSpec, opts scenario.Options) Summary {
	s := Summary{
		RunID:     uuid.New().String(),
		StartTime: time.Now(),
		Total:     len(scenarios),
	}

	logging.Info(subsystem, "Starting run %s with %d scenario(s)", s.RunID, s.Total)
	r.reporter.SuiteStart(s.Total, opts)

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			logging.Warn(subsystem, "Run interrupted, skipping remaining scenarios")
			break
		}

		merged := config.MergeScenarioDefaults(defaults, sc)
		r.reporter.ScenarioStart(merged)

		res := r.executor.Execute(ctx, merged, opts)
		r.reporter.ScenarioEnd(res)

		s.Results = append(s.Results, res)
		if res.Passed {
			s.Passed++
		} else {
			s.Failed++
			logging.Warn(subsystem, "Scenario %q failed in phase %s", res.Name, res.FailedPhase)
		}
	}

	s.Skipped = s.Total - len(s.Results)
	s.EndTime = time.Now()
	s.Duration = s.EndTime.Sub(s.StartTime)
	r.reporter.SuiteEnd(s)

	return s
}
