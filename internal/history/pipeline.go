// Package history merges, filters and orders paginated alarm history.
package history

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/scadawatch/scadawatch/internal/types"
)

// TimestampLayout is the formatted timestamp searched by free-text queries.
const TimestampLayout = "2006-01-02 15:04:05"

// StatusAll disables the status filter.
const StatusAll = "all"

// SortOrder orders results by timestamp.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// idSeparators delimit an alarm id prefix from its instance suffix.
var idSeparators = []string{"_", "-", ":"}

// Filter selects records from merged history pages.
type Filter struct {
	// Template keeps records whose template key equals it exactly.
	Template string
	// AlarmID keeps records whose id equals it or extends it after a separator.
	AlarmID string
	// Status keeps records with this status; empty or "all" keeps everything.
	Status string
	// Search is matched case-insensitively against value, description and
	// formatted timestamp.
	Search string
	Range  TimeRange
	// LatestPerTemplate collapses each template to its most recent record.
	LatestPerTemplate bool
	// Location formats timestamps for search; defaults to UTC.
	Location *time.Location
}

// Aggregate flattens pages, applies the filter and sorts the result. It does
// not modify its inputs and yields the same output for the same arguments.
func Aggregate(pages []types.HistoryPage, f Filter, order SortOrder, now time.Time) ([]types.HistoryRecord, error) {
	if err := f.Range.Validate(); err != nil {
		return nil, err
	}

	records := Flatten(pages)
	records = filter(records, identityMatcher(f))
	if f.Status != "" && f.Status != StatusAll {
		records = filter(records, func(r types.HistoryRecord) bool {
			return string(r.Status) == f.Status
		})
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		loc := f.Location
		if loc == nil {
			loc = time.UTC
		}
		records = filter(records, searchMatcher(strings.ToLower(q), loc))
	}
	lower, upper := f.Range.bounds(now)
	if !lower.IsZero() || !upper.IsZero() {
		records = filter(records, func(r types.HistoryRecord) bool {
			if !lower.IsZero() && r.Timestamp.Before(lower) {
				return false
			}
			return upper.IsZero() || r.Timestamp.Before(upper)
		})
	}
	if f.LatestPerTemplate {
		records = LatestPerTemplate(records)
	}
	Sort(records, order)
	return records, nil
}

// Flatten concatenates page records in arrival order into a new slice.
func Flatten(pages []types.HistoryPage) []types.HistoryRecord {
	n := 0
	for _, p := range pages {
		n += len(p.Alarms)
	}
	out := make([]types.HistoryRecord, 0, n)
	for _, p := range pages {
		out = append(out, p.Alarms...)
	}
	return out
}

// LatestPerTemplate keeps the single most recent record per template key.
// Ties keep the first record seen. Output follows first-seen template order.
func LatestPerTemplate(records []types.HistoryRecord) []types.HistoryRecord {
	idx := make(map[string]int, len(records))
	out := make([]types.HistoryRecord, 0, len(records))
	for _, r := range records {
		key := r.TemplateKey()
		i, seen := idx[key]
		if !seen {
			idx[key] = len(out)
			out = append(out, r)
			continue
		}
		if r.Timestamp.After(out[i].Timestamp) {
			out[i] = r
		}
	}
	return out
}

// Sort orders records by timestamp in place; equal timestamps keep their
// arrival order.
func Sort(records []types.HistoryRecord, order SortOrder) {
	slices.SortStableFunc(records, func(a, b types.HistoryRecord) int {
		c := a.Timestamp.Compare(b.Timestamp)
		if order == SortDesc {
			return -c
		}
		return c
	})
}

// MatchesID reports whether id identifies an instance of target: either equal
// or target followed by a separator. Plain prefixes such as "PUMP1" for
// "PUMP10_x" do not match.
func MatchesID(id, target string) bool {
	if id == target {
		return true
	}
	for _, sep := range idSeparators {
		if strings.HasPrefix(id, target+sep) {
			return true
		}
	}
	return false
}

func identityMatcher(f Filter) func(types.HistoryRecord) bool {
	return func(r types.HistoryRecord) bool {
		if f.Template != "" && r.TemplateKey() != f.Template {
			return false
		}
		if f.AlarmID != "" && !MatchesID(r.ID, f.AlarmID) {
			return false
		}
		return true
	}
}

func searchMatcher(q string, loc *time.Location) func(types.HistoryRecord) bool {
	return func(r types.HistoryRecord) bool {
		if strings.Contains(strings.ToLower(stringify(r.Value)), q) {
			return true
		}
		if strings.Contains(strings.ToLower(r.Description), q) {
			return true
		}
		return strings.Contains(strings.ToLower(r.Timestamp.In(loc).Format(TimestampLayout)), q)
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func filter(records []types.HistoryRecord, keep func(types.HistoryRecord) bool) []types.HistoryRecord {
	out := records[:0:0]
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
