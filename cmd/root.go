package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "spycheck",
	Short: "End-to-end test harness for traffic-observing agents",
	Long: `spycheck validates a traffic-observing agent binary against synthetic
workloads. For every scenario in a suite file it starts auxiliary processes,
launches the agent, drives traffic through the observed channels, tears
everything down in order and compares the agent's captured output against a
committed baseline.`,
	// SilenceUsage is set to true to prevent printing usage message on errors
	// handled by us (e.g. invalid suite files, failed scenarios)
	SilenceUsage: true,
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "spycheck version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newVersionCmd())
}
