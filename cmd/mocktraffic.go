package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"spycheck/internal/mockmcp"
	"spycheck/pkg/logging"
)

var mockTrafficDebug bool

// mockTrafficCmd represents the mock-traffic command
var mockTrafficCmd = &cobra.Command{
	Use:   "mock-traffic [-- server-command [args...]]",
	Short: "Drive one sweep of MCP traffic through a stdio server",
	Long: `Spawns an MCP server on stdio and sends one request of every message
family: initialize, tool listing and calls, resource reads, a prompt fetch
and a ping. The server process is stopped before the command returns.

Without arguments the sweep runs against this binary's own mock server,
which makes the command usable directly as a scenario traffic command:

  traffic:
    command: ["spycheck", "mock-traffic"]

Any other stdio MCP server can be placed after a double dash:

  spycheck mock-traffic -- python mcp_server.py

The exit code is 0 when every request succeeded.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		level := logging.LevelInfo
		if mockTrafficDebug {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		go func() {
			<-sigChan
			cancel()
		}()

		serverArgv := args
		if len(serverArgv) == 0 {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("cannot locate own binary for the default server: %w", err)
			}
			serverArgv = []string{exe, "mock-server"}
		}

		return mockmcp.RunTraffic(ctx, serverArgv)
	},
}

func init() {
	rootCmd.AddCommand(mockTrafficCmd)

	mockTrafficCmd.Flags().BoolVar(&mockTrafficDebug, "debug", false, "Enable debug logging on stderr")
}
