package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/recency-check/internal/schemas"
)

var validateReportCmd = &cobra.Command{
	Use:   "validate-report <file>",
	Short: "Validate a JSON report against the report schema",
	Long:  "Validates a report written by 'check --format json' against the embedded report schema, or against --schema when given.",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidateReport,
}

var validateReportSchema string

func init() {
	validateReportCmd.Flags().StringVarP(&validateReportSchema, "schema", "s", "", "Path to a JSON Schema file to use instead of the embedded one")

	rootCmd.AddCommand(validateReportCmd)
}

func runValidateReport(cmd *cobra.Command, args []string) error {
	path := args[0]

	var err error
	if validateReportSchema != "" {
		err = schemas.ValidateJSON(validateReportSchema, path)
	} else {
		err = schemas.ValidateReportFile(path)
	}

	if err != nil {
		var validationErr *schemas.ValidationError
		if errors.As(err, &validationErr) {
			return fmt.Errorf("report %s is invalid: %w", path, err)
		}
		return fmt.Errorf("failed to validate report: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Validation passed: %s\n", path)
	return nil
}
