// Package main provides the entry point for the recency_check CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "recency_check",
	Short: "Verify that a paginated listing is sorted newest-first",
	Long: `recency_check walks a paginated listing (Hacker News /newest by default),
reads each item's relative age ("3 minutes ago") and verifies the list is in
non-decreasing age order across page boundaries.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
