package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spycheck/internal/config"
	"spycheck/internal/scenario"
	"spycheck/internal/suite"
	"spycheck/pkg/logging"
)

var (
	runConfigPath      string
	runScenarioName    string
	runUpdateBaselines bool
	runSkipAgent       bool
	runVerbose         bool
	runQuiet           bool
	runDebug           bool
	runWorkDir         string
	runReportPath      string
)

// completeScenarioFlag provides shell completion for the scenario flag by
// loading the suite file named with --config
func completeScenarioFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if runConfigPath == "" {
		return []string{}, cobra.ShellCompDirectiveDefault
	}

	cfg, err := config.LoadConfig(runConfigPath)
	if err != nil {
		// Return empty completion on error
		return []string{}, cobra.ShellCompDirectiveDefault
	}

	return cfg.ScenarioNames(), cobra.ShellCompDirectiveDefault
}

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scenarios of a suite file against the agent under test",
	Long: `The run command executes end-to-end scenarios from a suite file.

For each scenario it walks through a fixed phase sequence:
1. Pre-commands: auxiliary processes are started (foreground or background)
2. Agent start: the observer binary is launched with a managed output path
3. Settle: a configured wait gives the agent time to attach
4. Traffic: the scenario's workload command generates observable traffic
5. Agent stop: the agent is interrupted so it flushes its captured output
6. Validation: the captured records are compared against the baseline
7. Teardown: post-commands run and every spawned process is reaped

Scenarios run strictly one after another, and a failing scenario never stops
the ones after it. The process exits 0 only when every executed scenario
passed.

Example usage:
  spycheck run --config suite.yaml                  # Run all scenarios
  spycheck run --config suite.yaml --scenario stdio # Run a single scenario
  spycheck run --config suite.yaml --update-baselines
  spycheck run --config suite.yaml --skip-agent     # Traffic generation only
  spycheck run --config suite.yaml --report out.json

With --update-baselines the captured output of each scenario overwrites its
baseline file and the scenario passes; commit the result after reviewing it.
With --skip-agent the agent and validation phases are skipped entirely, which
is useful for debugging traffic generators on machines where the agent cannot
run.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to the suite YAML file (required)")
	_ = runCmd.MarkFlagRequired("config")

	// Scenario selection
	runCmd.Flags().StringVar(&runScenarioName, "scenario", "", "Run a single scenario by name")

	// Execution modes
	runCmd.Flags().BoolVar(&runUpdateBaselines, "update-baselines", false, "Overwrite baseline files with the captured output instead of comparing")
	runCmd.Flags().BoolVar(&runSkipAgent, "skip-agent", false, "Skip the agent and validation phases, only generate traffic")

	// Output and debugging
	runCmd.Flags().BoolVar(&runVerbose, "verbose", false, "Print per-phase progress and scenario descriptions")
	runCmd.Flags().BoolVar(&runQuiet, "quiet", false, "Only print failures and the final tally")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Enable debug logging on stderr")

	// Run environment and reporting
	runCmd.Flags().StringVar(&runWorkDir, "work-dir", "", "Directory for per-scenario run directories (default: system temp)")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "Path to save a JSON run report")

	runCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	_ = runCmd.RegisterFlagCompletionFunc("scenario", completeScenarioFlag)
}

func runRun(cmd *cobra.Command, args []string) error {
	initRunLogging()

	// Create context with signal handling
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, finishing the current scenario...")
		cancel()
	}()

	// A bad suite file fails the run before any scenario starts.
	cfg, err := config.LoadConfig(runConfigPath)
	if err != nil {
		return err
	}

	var reporter suite.Reporter
	if runQuiet {
		reporter = suite.NewQuietReporter(os.Stdout)
	} else {
		reporter = suite.NewConsoleReporter(os.Stdout, runVerbose)
	}

	opts := scenario.Options{
		UpdateBaselines: runUpdateBaselines,
		SkipAgent:       runSkipAgent,
		WorkDir:         runWorkDir,
	}

	runner := suite.NewRunner(reporter)

	var summary suite.Summary
	if runScenarioName != "" {
		summary, err = runner.RunOne(ctx, cfg, runScenarioName, opts)
		if err != nil {
			return err
		}
	} else {
		summary = runner.RunAll(ctx, cfg, opts)
	}

	if runReportPath != "" {
		if err := suite.WriteReport(runReportPath, summary); err != nil {
			fmt.Fprintf(os.Stderr, "⚠️  Failed to write report: %v\n", err)
		}
	}

	// Set exit code based on results
	if !summary.AllPassed() {
		os.Exit(1)
	}

	return nil
}

// initRunLogging routes logs to stderr so scenario output on stdout stays
// machine-readable.
func initRunLogging() {
	level := logging.LevelWarn
	switch {
	case runDebug:
		level = logging.LevelDebug
	case runVerbose:
		level = logging.LevelInfo
	}
	logging.Init(level, os.Stderr)
}
