package recency

import "fmt"

// Previous is the last accepted item of a run. The raw string and its
// normalized minutes travel together so they cannot drift apart.
type Previous struct {
	Raw     string
	Minutes int
}

// ComparisonResult is the outcome of comparing one item against the
// previously accepted one.
type ComparisonResult struct {
	Ordered        bool
	Current        string
	CurrentMinutes int
	// Previous is the item compared against; nil for the first item of a run.
	Previous *Previous
}

// Compare checks current against prev. The list must be non-decreasing in
// minutes-ago, so a violation is prev.Minutes > current. Equal ages are
// ordered. A nil prev (first item) is always ordered.
func Compare(current string, prev *Previous) ComparisonResult {
	minutes := Normalize(current)
	return ComparisonResult{
		Ordered:        prev == nil || prev.Minutes <= minutes,
		Current:        current,
		CurrentMinutes: minutes,
		Previous:       prev,
	}
}

// Violation describes the first out-of-order pair of a run.
type Violation struct {
	// Position is the 1-based index of the offending item within the run.
	Position        int
	Previous        string
	PreviousMinutes int
	Current         string
	CurrentMinutes  int
}

func (v *Violation) Error() string {
	return fmt.Sprintf("order violation at item %d: %q (%d min) is older than %q (%d min)",
		v.Position, v.Previous, v.PreviousMinutes, v.Current, v.CurrentMinutes)
}

// RunState is the state a driver threads through its loop. It is a value:
// Step returns the next state rather than mutating the receiver.
type RunState struct {
	previous  *Previous
	processed int
}

// Processed returns the number of items accepted so far.
func (s RunState) Processed() int {
	return s.processed
}

// Previous returns the last accepted item, or nil before the first one.
func (s RunState) Previous() *Previous {
	return s.previous
}

// Step compares raw against the state. On success it returns the state
// advanced past raw; on a violation it returns s unchanged together with
// the describing Violation.
func (s RunState) Step(raw string) (RunState, ComparisonResult, *Violation) {
	res := Compare(raw, s.previous)
	if !res.Ordered {
		return s, res, &Violation{
			Position:        s.processed + 1,
			Previous:        s.previous.Raw,
			PreviousMinutes: s.previous.Minutes,
			Current:         raw,
			CurrentMinutes:  res.CurrentMinutes,
		}
	}
	return RunState{
		previous:  &Previous{Raw: raw, Minutes: res.CurrentMinutes},
		processed: s.processed + 1,
	}, res, nil
}
