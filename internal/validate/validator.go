// Package validate judges the JSONL output captured by the observer agent
// against a per-scenario baseline file.
//
// Validation is a fail-fast pipeline: read the captured records (empty or
// missing output is its own failure), update the baseline when asked, read
// the baseline (missing and empty are distinct failures), check the record
// count bounds, and finally deep-compare the records. Every failure kind
// carries its own message so a red scenario says exactly which stage fell
// over.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"spycheck/internal/config"
	"spycheck/pkg/logging"
)

// FailureKind classifies a validation failure.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureNoOutput
	FailureBaselineMissing
	FailureBaselineEmpty
	FailureCountMismatch
	FailureStructuralMismatch
	FailureBaselineUpdate
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNoOutput:
		return "no output captured"
	case FailureBaselineMissing:
		return "baseline missing"
	case FailureBaselineEmpty:
		return "baseline empty"
	case FailureCountMismatch:
		return "record count mismatch"
	case FailureStructuralMismatch:
		return "structural mismatch"
	case FailureBaselineUpdate:
		return "baseline update failed"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as its name in report files.
func (k FailureKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Result is the outcome of validating one scenario's captured output.
type Result struct {
	Passed bool        `json:"passed"`
	Kind   FailureKind `json:"failure_kind,omitempty"`
	// Message is the one-line verdict.
	Message string `json:"message"`
	// Diagnostics are the detailed lines dumped on a structural mismatch.
	Diagnostics []string `json:"-"`
	// ActualCount is how many records the agent captured.
	ActualCount int `json:"actual_count"`
	// ExpectedCount is how many records the baseline holds.
	ExpectedCount int `json:"expected_count,omitempty"`
	// BaselineUpdated is set in update mode after a successful write.
	BaselineUpdated bool `json:"baseline_updated,omitempty"`
}

// Validator judges captured output files against scenario baselines.
type Validator interface {
	// Validate runs the pipeline for one scenario's output file, failing fast
	// at the first stage that does not hold.
	Validate(outputPath string, spec config.ValidationSpec, updateBaseline bool) Result
}

type validator struct{}

// NewValidator returns the standard Validator.
func NewValidator() Validator {
	return &validator{}
}

func (v *validator) Validate(outputPath string, spec config.ValidationSpec, updateBaseline bool) Result {
	actual, err := ReadRecords(outputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return failure(FailureNoOutput, fmt.Sprintf("output file does not exist: %s", outputPath))
		}
		return failure(FailureNoOutput, fmt.Sprintf("output file unreadable: %v", err))
	}
	if len(actual) == 0 {
		return failure(FailureNoOutput, "no records captured - the agent may have failed to start or to observe traffic")
	}
	logging.Info(subsystem, "Captured %d record(s) from %s", len(actual), outputPath)

	if updateBaseline {
		if err := WriteRecords(spec.BaselinePath, actual); err != nil {
			res := failure(FailureBaselineUpdate, fmt.Sprintf("updating baseline: %v", err))
			res.ActualCount = len(actual)
			return res
		}
		logging.Info(subsystem, "Updated baseline %s", spec.BaselinePath)
		return Result{
			Passed:          true,
			BaselineUpdated: true,
			ActualCount:     len(actual),
			Message:         fmt.Sprintf("updated baseline %s with %d record(s)", spec.BaselinePath, len(actual)),
		}
	}

	expected, err := ReadRecords(spec.BaselinePath)
	if err != nil {
		res := Result{ActualCount: len(actual)}
		if errors.Is(err, fs.ErrNotExist) {
			res.Kind = FailureBaselineMissing
			res.Message = fmt.Sprintf("baseline file not found: %s (run with --update-baselines to record one)", spec.BaselinePath)
		} else {
			res.Kind = FailureBaselineMissing
			res.Message = fmt.Sprintf("baseline file unreadable: %v", err)
		}
		return res
	}
	if len(expected) == 0 {
		res := failure(FailureBaselineEmpty, fmt.Sprintf("baseline file has no records: %s", spec.BaselinePath))
		res.ActualCount = len(actual)
		return res
	}

	res := Result{ActualCount: len(actual), ExpectedCount: len(expected)}

	if spec.Count != nil {
		if msg := countMismatch(spec.Count, len(actual)); msg != "" {
			res.Kind = FailureCountMismatch
			res.Message = msg
			return res
		}
		logging.Debug(subsystem, "Record count %d within bounds", len(actual))
	}

	cmpRes := compareRecords(expected, actual, spec.Compare)
	if cmpRes.Equal {
		res.Passed = true
		res.Message = fmt.Sprintf("all %d record(s) match the baseline", len(actual))
		return res
	}

	res.Kind = FailureStructuralMismatch
	res.Message = "captured records differ from the baseline"
	res.Diagnostics = buildDiagnostics(expected, actual, cmpRes)
	return res
}

func failure(kind FailureKind, message string) Result {
	return Result{Kind: kind, Message: message}
}

func countMismatch(c *config.CountBounds, actual int) string {
	if c.Exact != nil {
		if actual != *c.Exact {
			return fmt.Sprintf("record count mismatch: expected exactly %d, got %d", *c.Exact, actual)
		}
		return ""
	}
	if c.Min != nil && actual < *c.Min {
		return fmt.Sprintf("too few records: expected at least %d, got %d", *c.Min, actual)
	}
	if c.Max != nil && actual > *c.Max {
		return fmt.Sprintf("too many records: expected at most %d, got %d", *c.Max, actual)
	}
	return ""
}

// buildDiagnostics renders the mismatch the way a person debugs it: the raw
// structural diff, then the records that differ, then both sides as plain
// JSONL so a passing run can be replayed into a new baseline by hand.
func buildDiagnostics(expected, actual []Record, c comparison) []string {
	var lines []string
	add := func(format string, args ...any) {
		lines = append(lines, fmt.Sprintf(format, args...))
	}
	addBlock := func(s string) {
		lines = append(lines, strings.Split(strings.TrimRight(s, "\n"), "\n")...)
	}

	add("=== Comparison Results ===")
	addBlock(c.DiffText)

	add("")
	add("=== Detailed Record Comparison ===")
	switch {
	case len(expected) > len(actual):
		add("record count mismatch: expected %d, got %d", len(expected), len(actual))
		add("missing %d record(s):", len(expected)-len(actual))
		for idx := len(actual); idx < len(expected); idx++ {
			add("--- missing record at index %d ---", idx)
			addBlock(prettyJSON(expected[idx]))
		}
	case len(actual) > len(expected):
		add("record count mismatch: expected %d, got %d", len(expected), len(actual))
		add("extra %d record(s):", len(actual)-len(expected))
		for idx := len(expected); idx < len(actual); idx++ {
			add("--- extra record at index %d ---", idx)
			addBlock(prettyJSON(actual[idx]))
		}
	default:
		for _, pair := range c.Changed {
			add("--- record differs (baseline index %d, captured index %d) ---", pair.ExpectedIndex, pair.ActualIndex)
			add("[EXPECTED]")
			addBlock(prettyJSON(expected[pair.ExpectedIndex]))
			add("[ACTUAL]")
			addBlock(prettyJSON(actual[pair.ActualIndex]))
			addBlock(indentLines(pair.Diff, "  "))
		}
	}

	add("")
	add("=== JSONL Comparison ===")
	add("[EXPECTED - JSONL]")
	for _, rec := range expected {
		add("%s", compactJSON(rec))
	}
	add("[ACTUAL - JSONL]")
	for _, rec := range actual {
		add("%s", compactJSON(rec))
	}

	return lines
}
