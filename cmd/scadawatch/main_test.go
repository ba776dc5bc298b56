package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "scadawatch dev")
}

func TestHistoryFlags_Request(t *testing.T) {
	hf := &historyFlags{preset: "7d", status: "active", order: "asc", latest: true}
	req, err := hf.request()
	require.NoError(t, err)
	assert.Equal(t, history.Preset7d, req.Filter.Range.Preset)
	assert.Equal(t, history.SortAsc, req.Order)
	assert.True(t, req.Filter.LatestPerTemplate)

	hf = &historyFlags{start: "2026-01-01T00:00:00Z", end: "2026-01-08T00:00:00Z", order: "desc"}
	req, err = hf.request()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, req.Filter.Range.End.Sub(req.Filter.Range.Start))

	_, err = (&historyFlags{start: "2026-01-01T00:00:00Z", end: "2026-05-01T00:00:00Z", order: "desc"}).request()
	var rangeErr *history.DateRangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = (&historyFlags{preset: "1y", order: "desc"}).request()
	assert.Error(t, err)

	_, err = (&historyFlags{preset: "24h", order: "sideways"}).request()
	assert.Error(t, err)
}

func TestPrintHistory(t *testing.T) {
	var out bytes.Buffer
	records := []types.HistoryRecord{
		{ID: "oil_1", Description: "Oil Level", Status: types.StatusActive, Value: 12.5, Unit: "%", Timestamp: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)},
	}
	require.NoError(t, printHistory(&out, records, false))
	assert.Contains(t, out.String(), "oil_1")
	assert.Contains(t, out.String(), "12.5 %")
	assert.Contains(t, out.String(), "1 record(s)")

	out.Reset()
	require.NoError(t, printHistory(&out, records, true))
	assert.Contains(t, out.String(), `"id": "oil_1"`)
}

func TestStatusCommandRequiresID(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ack"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
