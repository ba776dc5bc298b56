package history

import (
	"fmt"
	"time"
)

// MaxCustomRange bounds custom history windows.
const MaxCustomRange = 90 * 24 * time.Hour

// Preset is a fixed look-back window.
type Preset string

const (
	Preset24h Preset = "24h"
	Preset3d  Preset = "3d"
	Preset7d  Preset = "7d"
	Preset30d Preset = "30d"
)

var presetHours = map[Preset]int{
	Preset24h: 24,
	Preset3d:  72,
	Preset7d:  168,
	Preset30d: 720,
}

// Hours returns the look-back of the preset in hours.
func (p Preset) Hours() (int, bool) {
	h, ok := presetHours[p]
	return h, ok
}

// DateRangeError reports an invalid custom window. Callers must not issue a
// query with the rejected bounds.
type DateRangeError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("invalid date range %s to %s: %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.Reason)
}

// TimeRange selects either a preset or a custom [Start, End) window. The zero
// value selects everything.
type TimeRange struct {
	Preset Preset
	Start  time.Time
	End    time.Time
}

// Custom reports whether the range uses explicit bounds.
func (r TimeRange) Custom() bool {
	return !r.Start.IsZero() || !r.End.IsZero()
}

// Validate checks custom bounds: end after start, span at most 90 days.
func (r TimeRange) Validate() error {
	if !r.Custom() {
		if r.Preset == "" {
			return nil
		}
		if _, ok := r.Preset.Hours(); !ok {
			return fmt.Errorf("unknown time range preset %q", r.Preset)
		}
		return nil
	}
	if r.Start.IsZero() || r.End.IsZero() {
		return &DateRangeError{Start: r.Start, End: r.End, Reason: "both start and end are required"}
	}
	if !r.End.After(r.Start) {
		return &DateRangeError{Start: r.Start, End: r.End, Reason: "end must be after start"}
	}
	if r.End.Sub(r.Start) > MaxCustomRange {
		return &DateRangeError{Start: r.Start, End: r.End, Reason: "range exceeds 90 days"}
	}
	return nil
}

// bounds resolves the inclusive lower and exclusive upper bound relative to
// now. A zero upper bound means unbounded.
func (r TimeRange) bounds(now time.Time) (lower, upper time.Time) {
	if r.Custom() {
		return r.Start, r.End
	}
	if h, ok := r.Preset.Hours(); ok {
		return now.Add(-time.Duration(h) * time.Hour), time.Time{}
	}
	return time.Time{}, time.Time{}
}
