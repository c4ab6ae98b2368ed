package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recency-check/internal/recency"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <timestamp>...",
	Short: "Print the age in minutes of relative timestamps",
	Long: `Converts relative timestamps such as "3 hours ago" to minutes, the same way
the checker does. Text naming no known unit yields its bare leading number.`,
	Example: `  recency_check normalize "3 hours ago" "2 days ago" "just now"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, raw := range args {
		age := recency.Parse(raw)
		if _, err := fmt.Fprintf(out, "%q → %d (%s)\n", raw, age.Minutes(), age.Unit); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}
