// Package recency normalizes relative-time strings ("3 minutes ago") into
// minutes and checks that a sequence of them is sorted newest-first.
package recency

import (
	"math"
	"strings"
	"unicode"
)

// Unit is the time unit recognized in a relative-time string.
type Unit int

const (
	// UnitUnknown covers bare numbers and any unit word not matched below.
	// The value is used unscaled.
	UnitUnknown Unit = iota
	UnitMinutes
	UnitHours
	UnitDays
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
)

// MaxValue bounds the magnitude of a parsed value. Larger numbers saturate
// so that scaling to minutes cannot overflow and flip the order.
const MaxValue = math.MaxInt / minutesPerDay

func (u Unit) String() string {
	switch u {
	case UnitMinutes:
		return "minutes"
	case UnitHours:
		return "hours"
	case UnitDays:
		return "days"
	default:
		return "unknown"
	}
}

// factor returns the number of minutes in one u.
func (u Unit) factor() int {
	switch u {
	case UnitHours:
		return minutesPerHour
	case UnitDays:
		return minutesPerDay
	default:
		return 1
	}
}

// Age is a parsed relative-time string.
type Age struct {
	Value int
	Unit  Unit
}

// Minutes returns the age in whole minutes before now.
func (a Age) Minutes() int {
	v := max(-MaxValue, min(a.Value, MaxValue))
	return v * a.Unit.factor()
}

// Parse classifies raw into an Age. It never fails: a missing leading
// integer parses as 0 and an unrecognized unit yields UnitUnknown.
func Parse(raw string) Age {
	return Age{
		Value: leadingInt(raw),
		Unit:  classify(raw),
	}
}

// Normalize returns raw expressed in minutes before now.
func Normalize(raw string) int {
	return Parse(raw).Minutes()
}

// classify matches unit words by substring, in priority order
// minute, hour, day.
func classify(raw string) Unit {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "minute"):
		return UnitMinutes
	case strings.Contains(lower, "hour"):
		return UnitHours
	case strings.Contains(lower, "day"):
		return UnitDays
	default:
		return UnitUnknown
	}
}

// leadingInt reads an optionally signed run of digits after leading
// whitespace. Anything after the digits is ignored. The magnitude saturates
// at MaxValue.
func leadingInt(raw string) int {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)

	sign := 1
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		d := int(c - '0')
		if n > (MaxValue-d)/10 {
			n = MaxValue
			break
		}
		n = n*10 + d
	}
	return sign * n
}
