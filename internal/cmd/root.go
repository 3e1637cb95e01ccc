package cmd

import (
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupCore  = "core"
	groupSetup = "setup"
)

var rootCmd = &cobra.Command{
	Use:   "nicehist",
	Short: "shell history intelligence: predictive completion and frecency-ranked navigation",
	Long: `nicehist - shell history intelligence
  - predict the rest of a command from what's typed and where you are
  - frecency-ranked directory and file jumping, fasd/z style`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup & Configuration:"},
	)

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(frecentCmd)

	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
