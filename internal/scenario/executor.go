// Package scenario executes one test scenario end to end: setup commands, the
// monitored agent, traffic generation, output validation, and teardown.
//
// Execution is linear with unconditional teardown. A failing phase short
// circuits the remaining forward phases, but the agent is still stopped, post
// commands still run, and every tracked child process is reaped before the
// result is returned.
package scenario

import (
	"context"
	"errors"
	"strings"
	"time"

	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

const subsystem = "scenario"

// Executor runs scenarios whose suite defaults have already been merged in.
type Executor interface {
	Execute(ctx context.Context, sc config.ScenarioSpec, opts Options) Result
}

type executor struct {
	obs Observer
}

// NewExecutor creates an Executor reporting progress to obs. A nil obs
// discards progress.
func NewExecutor(obs Observer) Executor {
	if obs == nil {
		obs = NopObserver{}
	}
	return &executor{obs: obs}
}

// Execute runs one scenario. Teardown completes before Execute returns, no
// matter which phase failed.
func (e *executor) Execute(ctx context.Context, sc config.ScenarioSpec, opts Options) (res Result) {
	res = Result{Name: sc.Name, Description: sc.Description, StartTime: time.Now()}

	logging.Info(subsystem, "Running scenario %q", sc.Name)
	if sc.Description != "" {
		logging.Debug(subsystem, "%s", sc.Description)
	}

	run, err := e.newExecution(sc, opts)
	if err != nil {
		e.obs.Phase(sc.Name, PhaseInit, err)
		res.fail(PhaseInit, err)
		res.finish()
		return res
	}
	e.obs.Phase(sc.Name, PhaseInit, nil)

	defer func() {
		run.teardown()
		e.obs.Phase(sc.Name, PhaseTeardown, nil)
		res.finish()
	}()

	e.runPhases(ctx, run, &res)
	return res
}

func (e *executor) runPhases(ctx context.Context, run *execution, res *Result) {
	name := run.scenario.Name

	err := run.preCommands(ctx)
	e.obs.Phase(name, PhasePreCommands, err)
	if err != nil {
		res.fail(PhasePreCommands, err)
		run.dumpProcessLogs()
		return
	}

	if run.opts.SkipAgent {
		logging.Info(subsystem, "Agent disabled, generating traffic only")
		err := run.generateTraffic(ctx)
		e.obs.Phase(name, PhaseTraffic, err)
		if err != nil {
			res.fail(PhaseTraffic, err)
			run.dumpProcessLogs()
			return
		}
		res.Passed = true
		return
	}

	if err := run.startAgent(ctx); err != nil {
		e.obs.Phase(name, PhaseAgentStart, err)
		res.fail(PhaseAgentStart, err)
		run.dumpProcessLogs()
		return
	}
	e.obs.Phase(name, PhaseAgentStart, nil)

	if err := run.settle(ctx); err != nil {
		e.obs.Phase(name, PhaseSettle, err)
		res.fail(PhaseSettle, err)
		run.dumpProcessLogs()
		return
	}
	e.obs.Phase(name, PhaseSettle, nil)

	trafficErr := run.generateTraffic(ctx)
	e.obs.Phase(name, PhaseTraffic, trafficErr)

	// The agent is stopped before any diagnosis so its log and the output
	// file are fully flushed.
	run.stopAgent()
	e.obs.Phase(name, PhaseAgentStop, nil)

	if trafficErr != nil {
		res.fail(PhaseTraffic, trafficErr)
		run.dumpProcessLogs()
		return
	}

	vres := run.validator.Validate(run.outputPath, run.scenario.Validation, run.opts.UpdateBaselines)
	res.Validation = &vres
	if !vres.Passed {
		verr := errors.New(vres.Message)
		e.obs.Phase(name, PhaseValidate, verr)
		res.fail(PhaseValidate, verr)
		if len(vres.Diagnostics) > 0 {
			e.obs.Dump("validation report", strings.Join(vres.Diagnostics, "\n"))
		}
		run.dumpProcessLogs()
		return
	}
	e.obs.Phase(name, PhaseValidate, nil)
	logging.Info(subsystem, "%s", vres.Message)
	res.Passed = true
}
