package suite

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"spycheck/internal/config"
	"spycheck/internal/scenario"
)

func passResult(name string) scenario.Result {
	return scenario.Result{Name: name, Passed: true, Duration: 1200 * time.Millisecond}
}

func failResult(name string, phase scenario.Phase, msg string) scenario.Result {
	return scenario.Result{
		Name:        name,
		FailedPhase: phase,
		Err:         errors.New(msg),
		Error:       msg,
		Duration:    300 * time.Millisecond,
	}
}

func TestConsoleReporter_SuiteFlow(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	r.SuiteStart(2, scenario.Options{})
	r.ScenarioStart(config.ScenarioSpec{Name: "ok", Description: "the happy path"})
	r.Phase("ok", scenario.PhaseTraffic, nil)
	r.ScenarioEnd(passResult("ok"))
	r.ScenarioStart(config.ScenarioSpec{Name: "bad"})
	r.Phase("bad", scenario.PhaseTraffic, errors.New("exit status 1"))
	r.ScenarioEnd(failResult("bad", scenario.PhaseTraffic, "exit status 1"))
	r.SuiteEnd(Summary{
		Total:   2,
		Passed:  1,
		Failed:  1,
		Results: []scenario.Result{passResult("ok"), failResult("bad", scenario.PhaseTraffic, "exit status 1")},
	})

	out := buf.String()
	assert.Contains(t, out, "🧪 Running 2 scenario(s)")
	assert.Contains(t, out, "🚀 Running scenario:")
	assert.Contains(t, out, "✅ Scenario 'ok' PASSED (1.2s)")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "traffic: exit status 1")
	assert.Contains(t, out, "❌ Scenario 'bad' FAILED (300ms)")
	assert.Contains(t, out, "📊 Test Summary")
	assert.Contains(t, out, "Total: 2 | Passed: 1 | Failed: 1")
	assert.NotContains(t, out, "Skipped")

	// Quiet about the uneventful parts unless verbose.
	assert.NotContains(t, out, "the happy path")
	assert.NotContains(t, out, "✓")
	assert.NotContains(t, out, "⚠️")
	assert.NotContains(t, out, "📼")
}

func TestConsoleReporter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, true)

	r.ScenarioStart(config.ScenarioSpec{Name: "ok", Description: "the happy path"})
	r.Phase("ok", scenario.PhaseSettle, nil)

	out := buf.String()
	assert.Contains(t, out, "the happy path")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "settle")
}

func TestConsoleReporter_ModeBanners(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	r.SuiteStart(1, scenario.Options{SkipAgent: true, UpdateBaselines: true})

	out := buf.String()
	assert.Contains(t, out, "⚠️  Agent disabled, traffic generation only")
	assert.Contains(t, out, "📼 Baseline update mode")
}

func TestConsoleReporter_Dump(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	r.Dump("agent log", "line one\nline two")

	out := buf.String()
	assert.Contains(t, out, "📋 agent log")
	assert.Contains(t, out, "line one\nline two")
	assert.Contains(t, out, strings.Repeat("=", 70))
}

func TestConsoleReporter_SummaryWithSkipped(t *testing.T) {
	var buf bytes.Buffer
	r := NewConsoleReporter(&buf, false)

	r.SuiteEnd(Summary{
		Total:   3,
		Passed:  1,
		Skipped: 2,
		Results: []scenario.Result{passResult("only-one")},
	})

	assert.Contains(t, buf.String(), "Total: 3 | Passed: 1 | Failed: 0 | Skipped: 2")
}

func TestQuietReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewQuietReporter(&buf)

	r.SuiteStart(2, scenario.Options{})
	r.ScenarioStart(config.ScenarioSpec{Name: "ok"})
	r.Phase("ok", scenario.PhaseTraffic, nil)
	r.Dump("agent log", "noise")
	r.ScenarioEnd(passResult("ok"))
	assert.Empty(t, buf.String(), "passing scenarios print nothing in quiet mode")

	r.ScenarioEnd(failResult("bad", scenario.PhaseValidate, "count mismatch"))
	r.SuiteEnd(Summary{Total: 2, Passed: 1, Failed: 1})

	out := buf.String()
	assert.Contains(t, out, "❌ bad: count mismatch")
	assert.Contains(t, out, "❌ 1/2 scenario(s) failed")
	assert.NotContains(t, out, "noise")
}

func TestQuietReporter_AllPassed(t *testing.T) {
	var buf bytes.Buffer
	r := NewQuietReporter(&buf)

	r.SuiteEnd(Summary{Total: 2, Passed: 2})

	assert.Equal(t, "✅ All 2 scenario(s) passed\n", buf.String())
}
