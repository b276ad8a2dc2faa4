package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gitdigest",
	Short: "Summarize a GitHub repository with an LLM",
	Long: `gitdigest flattens a GitHub repository into a single digest,
trims it to fit the model's context window, and asks an LLM for a
structured technical summary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
