package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"spycheck/internal/config"
)

var listConfigPath string

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios declared in a suite file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(listConfigPath)
		if err != nil {
			return err
		}

		fmt.Printf("Scenarios in %s:\n", listConfigPath)
		for _, sc := range cfg.Scenarios {
			if sc.Description != "" {
				fmt.Printf("  • %s - %s\n", sc.Name, sc.Description)
			} else {
				fmt.Printf("  • %s\n", sc.Name)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listConfigPath, "config", "c", "", "Path to the suite YAML file (required)")
	_ = listCmd.MarkFlagRequired("config")
}
