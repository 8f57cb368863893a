// Package main provides the entry point for the arXiv digest CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arxiv-digest",
	Short: "ArXiv AI paper digest pipeline",
	Long:  "arxiv-digest monitors arXiv AI categories, ranks new papers through an LLM oracle, and publishes paper records plus a daily digest page to a Notion workspace.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
