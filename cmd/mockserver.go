package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"spycheck/internal/mockmcp"
	"spycheck/pkg/logging"
)

var mockServerDebug bool

// mockServerCmd represents the mock-server command
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run the built-in mock MCP server on stdio",
	Long: `Runs a small MCP server over stdin/stdout with a fixed set of tools,
resources and prompts. Its responses are deterministic, so traffic driven
through it produces output an observer can be validated against.

It is normally spawned by 'spycheck mock-traffic' rather than started by
hand.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries the protocol; logs must go to stderr.
		level := logging.LevelWarn
		if mockServerDebug {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)

		return mockmcp.NewServer().Serve()
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)

	mockServerCmd.Flags().BoolVar(&mockServerDebug, "debug", false, "Enable debug logging on stderr")
}
