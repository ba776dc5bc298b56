package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryFor_Preset(t *testing.T) {
	q, err := QueryFor(Filter{Status: "active", Search: "fan", Range: TimeRange{Preset: Preset7d}}, 2, 25, SortDesc)
	require.NoError(t, err)

	v := q.Values()
	assert.Equal(t, "2", v.Get("page"))
	assert.Equal(t, "25", v.Get("limit"))
	assert.Equal(t, "168", v.Get("hours"))
	assert.Equal(t, "active", v.Get("status"))
	assert.Equal(t, "fan", v.Get("search"))
	assert.Equal(t, "timestamp", v.Get("sortBy"))
	assert.Equal(t, "desc", v.Get("sortOrder"))
	assert.Empty(t, v.Get("startTime"))
}

func TestQueryFor_Custom(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	q, err := QueryFor(Filter{Range: TimeRange{Start: start, End: start.Add(48 * time.Hour)}}, 0, 0, SortAsc)
	require.NoError(t, err)

	v := q.Values()
	assert.Equal(t, "2026-01-01T00:00:00Z", v.Get("startTime"))
	assert.Empty(t, v.Get("hours"))
	assert.Equal(t, "1", v.Get("page"))
	assert.Equal(t, "50", v.Get("limit"))
}

func TestQueryFor_RejectsBadRange(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := QueryFor(Filter{Range: TimeRange{Start: start.Add(time.Hour), End: start}}, 1, 10, SortAsc)
	var rangeErr *DateRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestDateRangeError_Message(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	err := &DateRangeError{Start: start, End: start.Add(time.Hour), Reason: "too long"}
	assert.EqualError(t, err, "invalid date range 2026-01-01T00:00:00Z to 2026-01-01T01:00:00Z: too long")
}

func TestMeterQuery_Values(t *testing.T) {
	v := MeterQuery{Hours: 24, Page: 3}.Values()
	assert.Equal(t, "24", v.Get("hours"))
	assert.Equal(t, "3", v.Get("page"))
	assert.Equal(t, "50", v.Get("limit"))
}
