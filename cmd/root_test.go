package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestSetVersion(t *testing.T) {
	testVersion := "1.2.3-test"
	SetVersion(testVersion)

	if rootCmd.Version != testVersion {
		t.Errorf("Expected version to be %s, got %s", testVersion, rootCmd.Version)
	}
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "spycheck" {
		t.Errorf("Expected Use to be 'spycheck', got %s", rootCmd.Use)
	}

	if rootCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if rootCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if !rootCmd.SilenceUsage {
		t.Error("Expected SilenceUsage to be true")
	}
}

func TestVersionTemplate(t *testing.T) {
	testCmd := &cobra.Command{
		Use:     "test",
		Version: "1.0.0",
	}

	// Set the same version template as in Execute()
	testCmd.SetVersionTemplate(`{{printf "spycheck version %s\n" .Version}}`)

	var buf bytes.Buffer
	testCmd.SetOut(&buf)

	testCmd.SetArgs([]string{"--version"})
	err := testCmd.Execute()
	if err != nil {
		t.Fatalf("Error executing version command: %v", err)
	}

	output := buf.String()
	expected := "spycheck version 1.0.0\n"
	if output != expected {
		t.Errorf("Expected version output %q, got %q", expected, output)
	}
}

func TestSubcommands(t *testing.T) {
	commands := rootCmd.Commands()

	expectedCommands := []string{"run", "list", "version", "mock-server", "mock-traffic"}
	foundCommands := make(map[string]bool)

	for _, cmd := range commands {
		foundCommands[cmd.Name()] = true
	}

	for _, expected := range expectedCommands {
		if !foundCommands[expected] {
			t.Errorf("Expected subcommand %s to be registered", expected)
		}
	}
}

func TestRunCommandFlags(t *testing.T) {
	for _, name := range []string{"config", "scenario", "update-baselines", "skip-agent", "verbose", "quiet", "work-dir", "report"} {
		if runCmd.Flags().Lookup(name) == nil {
			t.Errorf("Expected run command to define flag --%s", name)
		}
	}
}

func TestRunCommandRejectsVerboseQuiet(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	defer func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		runVerbose = false
		runQuiet = false
	}()

	rootCmd.SetArgs([]string{"run", "--config", "does-not-matter.yaml", "--verbose", "--quiet"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("Expected an error for --verbose together with --quiet")
	}
	if !strings.Contains(err.Error(), "none of the others can be") {
		t.Errorf("Expected a mutual-exclusion error, got %q", err.Error())
	}
}
