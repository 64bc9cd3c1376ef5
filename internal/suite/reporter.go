package suite

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"spycheck/internal/config"
	"spycheck/internal/scenario"
)

// Reporter renders run progress. The Runner drives the suite and scenario
// level callbacks; the executor drives the embedded Observer callbacks in
// between ScenarioStart and ScenarioEnd.
type Reporter interface {
	scenario.Observer

	SuiteStart(total int, opts scenario.Options)
	ScenarioStart(sc config.ScenarioSpec)
	ScenarioEnd(res scenario.Result)
	SuiteEnd(s Summary)
}

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#006600", Dark: "#8AE234"}).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B30000", Dark: "#FF6B6B"}).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#606060", Dark: "#909090"})
	titleStyle = lipgloss.NewStyle().Bold(true)
)

const (
	suiteRuleWidth = 60
	dumpRuleWidth  = 70
)

// consoleReporter is the interactive, human-facing reporter.
type consoleReporter struct {
	out     io.Writer
	verbose bool
}

// NewConsoleReporter creates the default reporter. With verbose it also
// prints scenario descriptions and per-phase progress.
func NewConsoleReporter(out io.Writer, verbose bool) Reporter {
	return &consoleReporter{out: out, verbose: verbose}
}

func (r *consoleReporter) SuiteStart(total int, opts scenario.Options) {
	rule := strings.Repeat("=", suiteRuleWidth)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "🧪 Running %d scenario(s)\n", total)
	if opts.SkipAgent {
		fmt.Fprintln(r.out, "⚠️  Agent disabled, traffic generation only")
	}
	if opts.UpdateBaselines {
		fmt.Fprintln(r.out, "📼 Baseline update mode, captured output overwrites baselines")
	}
	fmt.Fprintln(r.out, rule)
}

func (r *consoleReporter) ScenarioStart(sc config.ScenarioSpec) {
	fmt.Fprintf(r.out, "\n🚀 Running scenario: %s\n", titleStyle.Render(sc.Name))
	if r.verbose && sc.Description != "" {
		fmt.Fprintf(r.out, "   %s\n", dimStyle.Render(sc.Description))
	}
}

func (r *consoleReporter) Phase(_ string, phase scenario.Phase, err error) {
	if err != nil {
		fmt.Fprintf(r.out, "   %s %s: %v\n", failStyle.Render("✗"), phase, err)
		return
	}
	if r.verbose {
		fmt.Fprintf(r.out, "   %s %s\n", passStyle.Render("✓"), phase)
	}
}

func (r *consoleReporter) Dump(title, content string) {
	rule := strings.Repeat("=", dumpRuleWidth)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "📋 %s\n", title)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, content)
	fmt.Fprintln(r.out, rule)
}

func (r *consoleReporter) ScenarioEnd(res scenario.Result) {
	elapsed := res.Duration.Round(time.Millisecond)
	if res.Passed {
		fmt.Fprintln(r.out, passStyle.Render(fmt.Sprintf("✅ Scenario '%s' PASSED (%s)", res.Name, elapsed)))
		return
	}
	fmt.Fprintln(r.out, failStyle.Render(fmt.Sprintf("❌ Scenario '%s' FAILED (%s)", res.Name, elapsed)))
	if res.Err != nil {
		fmt.Fprintf(r.out, "   %s: %v\n", res.FailedPhase, res.Err)
	}
}

func (r *consoleReporter) SuiteEnd(s Summary) {
	rule := strings.Repeat("=", suiteRuleWidth)
	fmt.Fprintf(r.out, "\n%s\n", rule)
	fmt.Fprintln(r.out, "📊 Test Summary")
	fmt.Fprintln(r.out, rule)

	width := 0
	for _, res := range s.Results {
		if w := runewidth.StringWidth(res.Name); w > width {
			width = w
		}
	}
	for _, res := range s.Results {
		name := runewidth.FillRight(res.Name, width)
		if res.Passed {
			fmt.Fprintf(r.out, "  %s: %s  (%s)\n", passStyle.Render("✅ PASSED"), name, res.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(r.out, "  %s: %s  (%s)\n", failStyle.Render("❌ FAILED"), name, res.Duration.Round(time.Millisecond))
		}
	}

	fmt.Fprintf(r.out, "\n%s\n", rule)
	line := fmt.Sprintf("Total: %d | Passed: %d | Failed: %d", s.Total, s.Passed, s.Failed)
	if s.Skipped > 0 {
		line += fmt.Sprintf(" | Skipped: %d", s.Skipped)
	}
	fmt.Fprintln(r.out, line)
	fmt.Fprintln(r.out, rule)
}

// quietReporter prints failures and the final tally only.
type quietReporter struct {
	out io.Writer
}

// NewQuietReporter creates a reporter for CI logs: one line per failed
// scenario plus the final tally.
func NewQuietReporter(out io.Writer) Reporter {
	return &quietReporter{out: out}
}

func (r *quietReporter) SuiteStart(int, scenario.Options)    {}
func (r *quietReporter) ScenarioStart(config.ScenarioSpec)   {}
func (r *quietReporter) Phase(string, scenario.Phase, error) {}
func (r *quietReporter) Dump(string, string)                 {}

func (r *quietReporter) ScenarioEnd(res scenario.Result) {
	if res.Passed {
		return
	}
	fmt.Fprintf(r.out, "❌ %s: %s\n", res.Name, res.Error)
}

func (r *quietReporter) SuiteEnd(s Summary) {
	if s.AllPassed() {
		fmt.Fprintf(r.out, "✅ All %d scenario(s) passed\n", s.Passed)
		return
	}
	fmt.Fprintf(r.out, "❌ %d/%d scenario(s) failed\n", s.Failed, s.Total)
}

type nopReporter struct{}

func (nopReporter) SuiteStart(int, scenario.Options)    {}
func (nopReporter) ScenarioStart(config.ScenarioSpec)   {}
func (nopReporter) Phase(string, scenario.Phase, error) {}
func (nopReporter) Dump(string, string)                 {}
func (nopReporter) ScenarioEnd(scenario.Result)         {}
func (nopReporter) SuiteEnd(Summary)                    {}
