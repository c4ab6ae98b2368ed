package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/recency-check/internal/telemetry"
	"github.com/jonathan/recency-check/internal/verify"
)

// stopSessionError marks a driver that never ran because its engine or
// session could not be opened.
const stopSessionError = "session_error"

// Report is the machine-readable output of check --format json. It is
// validated by schemas/report.schema.json.
type Report struct {
	URL       string         `json:"url"`
	Engine    string         `json:"engine"`
	Items     int            `json:"items"`
	StartedAt time.Time      `json:"started_at"`
	Results   []DriverReport `json:"results"`
}

// DriverReport is the verdict of one driver.
type DriverReport struct {
	Driver         string            `json:"driver"`
	RunID          string            `json:"run_id,omitempty"`
	Ordered        bool              `json:"ordered"`
	Processed      int               `json:"processed"`
	Target         int               `json:"target"`
	Stop           string            `json:"stop"`
	Partial        bool              `json:"partial"`
	Violation      *ViolationReport  `json:"violation,omitempty"`
	Error          string            `json:"error,omitempty"`
	ElapsedSeconds float64           `json:"elapsed_seconds"`
	Memory         *telemetry.Memory `json:"memory,omitempty"`
}

// ViolationReport is the first out-of-order pair found by a driver.
type ViolationReport struct {
	Position        int    `json:"position"`
	Previous        string `json:"previous"`
	PreviousMinutes int    `json:"previous_minutes"`
	Current         string `json:"current"`
	CurrentMinutes  int    `json:"current_minutes"`
}

func newDriverReport(res verify.Result) DriverReport {
	dr := DriverReport{
		Driver:         res.Driver,
		Ordered:        res.Ordered,
		Processed:      res.Processed,
		Target:         res.Target,
		Stop:           string(res.Stop),
		Partial:        res.Stop.Partial(),
		ElapsedSeconds: res.Elapsed.Seconds(),
	}
	if res.RunID != uuid.Nil {
		dr.RunID = res.RunID.String()
	}
	if v := res.Violation; v != nil {
		dr.Violation = &ViolationReport{
			Position:        v.Position,
			Previous:        v.Previous,
			PreviousMinutes: v.PreviousMinutes,
			Current:         v.Current,
			CurrentMinutes:  v.CurrentMinutes,
		}
	}
	if res.Err != nil {
		dr.Error = res.Err.Error()
	}
	mem := res.Telemetry.Memory
	dr.Memory = &mem
	return dr
}

// sessionFailure reports a driver that never ran. Its telemetry box is
// printed like any other run's, with nothing processed.
func sessionFailure(reporter *telemetry.Reporter, driver string, target int, start time.Time, err error) DriverReport {
	if reporter == nil {
		reporter = telemetry.NewReporter(nil)
	}
	snap := reporter.Report(fmt.Sprintf("%s (%s)", driver, stopSessionError), start, 0, target)
	return DriverReport{
		Driver:         driver,
		Target:         target,
		Stop:           stopSessionError,
		Error:          err.Error(),
		ElapsedSeconds: snap.Elapsed.Seconds(),
		Memory:         &snap.Memory,
	}
}

// label is the heading printed in front of a driver's verdict.
func label(driver string) string {
	switch driver {
	case "batch":
		return "Batch Result"
	case "stream":
		return "Streaming Result"
	default:
		return driver + " Result"
	}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func writeVerdict(w io.Writer, dr DriverReport) {
	fmt.Fprintf(w, "%s: %t\n", label(dr.Driver), dr.Ordered)
	switch {
	case dr.Violation != nil:
		fmt.Fprintf(w, "  item %d %q (%d min) is older than item %d %q (%d min)\n",
			dr.Violation.Position-1, dr.Violation.Previous, dr.Violation.PreviousMinutes,
			dr.Violation.Position, dr.Violation.Current, dr.Violation.CurrentMinutes)
	case dr.Partial:
		fmt.Fprintf(w, "  best effort: stopped after %d of %d items (%s)\n", dr.Processed, dr.Target, dr.Stop)
	case dr.Error != "":
		fmt.Fprintf(w, "  error: %s\n", dr.Error)
	}
}

func writeJSON(w io.Writer, r Report) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report to JSON: %w", err)
	}
	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
