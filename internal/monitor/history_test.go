package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pagedFetcher struct {
	pages   []types.HistoryPage
	meter   []types.MeterPage
	queries []history.Query
	err     error
}

func (f *pagedFetcher) FetchHistory(_ context.Context, q history.Query) (types.HistoryPage, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return types.HistoryPage{}, f.err
	}
	return f.pages[q.Page-1], nil
}

func (f *pagedFetcher) FetchMeterHistory(_ context.Context, q history.MeterQuery) (types.MeterPage, error) {
	return f.meter[q.Page-1], nil
}

func TestLoadHistory_MergesPagesAndCollapses(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return now.Add(-time.Duration(h) * time.Hour) }
	f := &pagedFetcher{pages: []types.HistoryPage{
		{
			Alarms: []types.HistoryRecord{
				{ID: "oil_1", Description: "Oil Level", Status: types.StatusActive, Value: 12.0, Timestamp: at(5)},
				{ID: "fan_1", Description: "Exhaust Fan", Status: types.StatusResolved, Value: "FAILURE", Timestamp: at(3)},
			},
			Pagination: types.Pagination{Page: 1, Pages: 2},
		},
		{
			Alarms: []types.HistoryRecord{
				{ID: "oil_2", Description: "Oil Level", Status: types.StatusActive, Value: 9.5, Timestamp: at(1)},
			},
			Pagination: types.Pagination{Page: 2, Pages: 2},
		},
	}}

	records, err := LoadHistory(t.Context(), f, HistoryRequest{
		Filter: history.Filter{Range: history.TimeRange{Preset: history.Preset24h}, LatestPerTemplate: true},
		Order:  history.SortDesc,
	}, now)
	require.NoError(t, err)
	require.Len(t, f.queries, 2)
	assert.Equal(t, 24, f.queries[0].Hours)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"oil_2", "fan_1"}, ids)
}

func TestLoadHistory_MaxPages(t *testing.T) {
	f := &pagedFetcher{pages: []types.HistoryPage{
		{Pagination: types.Pagination{Page: 1, Pages: 3}},
		{Pagination: types.Pagination{Page: 2, Pages: 3}},
		{Pagination: types.Pagination{Page: 3, Pages: 3}},
	}}
	_, err := LoadHistory(t.Context(), f, HistoryRequest{
		Filter:   history.Filter{Range: history.TimeRange{Preset: history.Preset7d}},
		MaxPages: 2,
	}, time.Now())
	require.NoError(t, err)
	assert.Len(t, f.queries, 2)
}

func TestLoadHistory_InvalidRangeMakesNoRequest(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &pagedFetcher{}
	_, err := LoadHistory(t.Context(), f, HistoryRequest{
		Filter: history.Filter{Range: history.TimeRange{Start: start, End: start.AddDate(0, 0, 91)}},
	}, time.Now())

	var rangeErr *history.DateRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Empty(t, f.queries)
}

func TestLoadHistory_FetchError(t *testing.T) {
	f := &pagedFetcher{err: errors.New("timeout")}
	_, err := LoadHistory(t.Context(), f, HistoryRequest{
		Filter: history.Filter{Range: history.TimeRange{Preset: history.Preset3d}},
	}, time.Now())
	assert.EqualError(t, err, "timeout")
}

func TestLoadMeterHistory(t *testing.T) {
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	f := &pagedFetcher{meter: []types.MeterPage{
		{Readings: []types.MeterReading{{ID: "m1", Timestamp: ts}}, Pagination: types.Pagination{Page: 1, Pages: 2}},
		{Readings: []types.MeterReading{{ID: "m2", Timestamp: ts.Add(time.Hour)}}, Pagination: types.Pagination{Page: 2, Pages: 2}},
	}}
	readings, err := LoadMeterHistory(t.Context(), f, history.MeterQuery{Hours: 24}, 0)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "m1", readings[0].ID)
	assert.Equal(t, "m2", readings[1].ID)
}
