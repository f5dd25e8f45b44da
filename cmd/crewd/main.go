// Package main implements the crewd CLI: durable, resumable crew pipelines
// with human checkpoints.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath overrides the default config file location.
	configPath string
	// version information, set at build time.
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "crewd",
	Short: "Durable crew pipelines with human checkpoints",
	Long: `crewd drives a project request through a staged crew pipeline.
Every stage consumes targeted context from upstream documents, produces one
artifact, and persists the project state before moving on, so a crashed run
resumes by re-running the same command.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/crewd/config.yaml)")
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(stageCmd)
	rootCmd.AddCommand(handoffCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(completeCmd)
}
