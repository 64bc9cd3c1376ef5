package scenario

import (
	"time"

	"spycheck/internal/validate"
)

// Phase names one step of a scenario run. The zero value means no phase
// failed.
type Phase string

const (
	// PhaseInit creates the per-run working directory and output file path.
	PhaseInit Phase = "init"
	// PhasePreCommands runs the scenario's setup commands in order.
	PhasePreCommands Phase = "pre-commands"
	// PhaseAgentStart launches the monitored agent in the background.
	PhaseAgentStart Phase = "agent-start"
	// PhaseSettle waits for the agent's asynchronous instrumentation to attach.
	PhaseSettle Phase = "settle"
	// PhaseTraffic runs the scenario's traffic-generating command.
	PhaseTraffic Phase = "traffic"
	// PhaseAgentStop interrupts the agent and waits for it to exit.
	PhaseAgentStop Phase = "agent-stop"
	// PhaseValidate compares the captured output against the baseline.
	PhaseValidate Phase = "validate"
	// PhaseTeardown runs post-commands and reaps leftover processes.
	PhaseTeardown Phase = "teardown"
)

// Options control how a scenario is executed.
type Options struct {
	// UpdateBaselines overwrites each scenario's baseline with the captured
	// output instead of comparing against it.
	UpdateBaselines bool
	// SkipAgent runs pre-commands and traffic only. The agent is never
	// started and validation is never invoked; success is traffic success.
	SkipAgent bool
	// WorkDir is the parent directory for per-run artifacts. Empty means the
	// system temp directory.
	WorkDir string
}

// Result is the outcome of one scenario run. Teardown has already completed
// by the time a Result is returned.
type Result struct {
	// Name of the scenario that ran.
	Name string `json:"name"`
	// Description copied from the scenario.
	Description string `json:"description,omitempty"`
	// Passed is the overall verdict.
	Passed bool `json:"passed"`
	// FailedPhase is the phase that failed, empty when Passed.
	FailedPhase Phase `json:"failed_phase,omitempty"`
	// Err describes the failure, nil when Passed.
	Err error `json:"-"`
	// Error is Err rendered for reports.
	Error string `json:"error,omitempty"`
	// Validation holds the validator's verdict when validation ran.
	Validation *validate.Result `json:"validation,omitempty"`
	// StartTime when the run began.
	StartTime time.Time `json:"start_time"`
	// EndTime when the run completed, teardown included.
	EndTime time.Time `json:"end_time"`
	// Duration of the run, teardown included.
	Duration time.Duration `json:"duration"`
}

func (r *Result) fail(phase Phase, err error) {
	r.Passed = false
	r.FailedPhase = phase
	r.Err = err
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Result) finish() {
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}

// Observer receives progress callbacks while a scenario runs. Callbacks
// arrive sequentially from a single goroutine.
type Observer interface {
	// Phase is called when a phase completes, with the error that failed it
	// or nil.
	Phase(scenario string, phase Phase, err error)
	// Dump delivers a delimited block of diagnostic text, such as a child
	// process log or a validation report.
	Dump(title, content string)
}

// NopObserver discards all callbacks.
type NopObserver struct{}

func (NopObserver) Phase(string, Phase, error) {}
func (NopObserver) Dump(string, string)        {}
