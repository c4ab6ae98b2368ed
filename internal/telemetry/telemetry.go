// Package telemetry reports elapsed time, item counts and memory figures
// for a checker run, so the batch and streaming drivers can be compared.
package telemetry

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// boxWidth is the width of the printed report box.
const boxWidth = 48

// Memory holds the process memory figures at report time, in bytes.
type Memory struct {
	HeapTotal uint64 `json:"heap_total"`
	HeapUsed  uint64 `json:"heap_used"`
	Stack     uint64 `json:"stack"`
	Total     uint64 `json:"total"`
}

// Snapshot is what a report printed. Nothing in the checker's logic reads
// it; it exists so callers can also render it as JSON.
type Snapshot struct {
	Elapsed   time.Duration `json:"elapsed_ns"`
	Processed int           `json:"processed"`
	Target    int           `json:"target"`
	Memory    Memory        `json:"memory"`
}

// Reporter prints run telemetry.
type Reporter struct {
	out   io.Writer
	title lipgloss.Style
	now   func() time.Time
}

// NewReporter returns a Reporter writing to out. A nil out discards.
func NewReporter(out io.Writer) *Reporter {
	if out == nil {
		out = io.Discard
	}
	// The renderer inspects out, so titles are only coloured on a terminal.
	title := lipgloss.NewRenderer(out).NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	return &Reporter{out: out, title: title, now: time.Now}
}

// Report prints elapsed time since start, processed/target counts and
// current memory usage.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (r *Reporter) Report(title string, start time.Time, processed, target int) Snapshot {
	snap := Snapshot{
		Elapsed:   r.now().Sub(start),
		Processed: processed,
		Target:    target,
		Memory:    readMemory(),
	}

	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(r.out, "┌%s┐\n", border)
	pad := max(boxWidth-4-lipgloss.Width(title), 0)
	fmt.Fprintf(r.out, "│ %s%s │\n", r.title.Render(title), strings.Repeat(" ", pad))
	fmt.Fprintf(r.out, "├%s┤\n", border)
	for _, line := range snap.lines() {
		fmt.Fprintf(r.out, "│ %-*s │\n", boxWidth-4, line)
	}
	fmt.Fprintf(r.out, "└%s┘\n", border)

	return snap
}

func (s Snapshot) lines() []string {
	return []string{
		fmt.Sprintf("Time taken:      %.2fs", s.Elapsed.Seconds()),
		fmt.Sprintf("Items processed: %d / %d", s.Processed, s.Target),
		fmt.Sprintf("Heap total:      %s", FormatBytes(s.Memory.HeapTotal)),
		fmt.Sprintf("Heap used:       %s", FormatBytes(s.Memory.HeapUsed)),
		fmt.Sprintf("Stack:           %s", FormatBytes(s.Memory.Stack)),
		fmt.Sprintf("Total from OS:   %s", FormatBytes(s.Memory.Total)),
	}
}

// FormatBytes renders a byte count in IEC units ("1.5 MiB").
func FormatBytes(n uint64) string {
	return humanize.IBytes(n)
}

func readMemory() Memory {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Memory{
		HeapTotal: ms.HeapSys,
		HeapUsed:  ms.HeapAlloc,
		Stack:     ms.StackSys,
		Total:     ms.Sys,
	}
}
