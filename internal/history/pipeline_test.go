package history

import (
	"testing"
	"time"

	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func rec(id, desc string, status types.Status, value any, at time.Time) types.HistoryRecord {
	return types.HistoryRecord{ID: id, Description: desc, Status: status, Value: value, Timestamp: at}
}

func samplePages() []types.HistoryPage {
	return []types.HistoryPage{
		{
			Alarms: []types.HistoryRecord{
				rec("ZONE1_TEMP_1", "Zone 1 Temperature", types.StatusActive, 895.0, t0.Add(-1*time.Hour)),
				rec("ZONE1_TEMP_2", "Zone 1 Temperature", types.StatusResolved, 870.0, t0.Add(-3*time.Hour)),
				rec("FAN_1", "Exhaust Fan", types.StatusActive, "FAILURE", t0.Add(-2*time.Hour)),
			},
			Pagination: types.Pagination{Page: 1, Limit: 3, Total: 5, Pages: 2},
		},
		{
			Alarms: []types.HistoryRecord{
				rec("ZONE1_TEMP_3", "Zone 1 Temperature", types.StatusAcknowledged, 889.5, t0.Add(-30*time.Minute)),
				rec("OIL_1", "Oil Pressure", types.StatusResolved, 1895.0, t0.Add(-48*time.Hour)),
			},
			Pagination: types.Pagination{Page: 2, Limit: 3, Total: 5, Pages: 2},
		},
	}
}

func ids(records []types.HistoryRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestAggregate_SortsBothWays(t *testing.T) {
	asc, err := Aggregate(samplePages(), Filter{}, SortAsc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"OIL_1", "ZONE1_TEMP_2", "FAN_1", "ZONE1_TEMP_1", "ZONE1_TEMP_3"}, ids(asc))

	desc, err := Aggregate(samplePages(), Filter{}, SortDesc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ZONE1_TEMP_3", "ZONE1_TEMP_1", "FAN_1", "ZONE1_TEMP_2", "OIL_1"}, ids(desc))
}

func TestAggregate_StableOnTies(t *testing.T) {
	pages := []types.HistoryPage{{Alarms: []types.HistoryRecord{
		rec("b", "x", types.StatusActive, 1.0, t0),
		rec("a", "x", types.StatusActive, 2.0, t0),
		rec("c", "x", types.StatusActive, 3.0, t0),
	}}}
	for _, order := range []SortOrder{SortAsc, SortDesc} {
		got, err := Aggregate(pages, Filter{}, order, t0)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, ids(got))
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	pages := samplePages()
	f := Filter{Search: "zone", Range: TimeRange{Preset: Preset24h}}
	first, err := Aggregate(pages, f, SortDesc, t0)
	require.NoError(t, err)
	second, err := Aggregate(pages, f, SortDesc, t0)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, samplePages(), pages, "inputs must not be modified")
}

func TestAggregate_StatusFilter(t *testing.T) {
	got, err := Aggregate(samplePages(), Filter{Status: "resolved"}, SortAsc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"OIL_1", "ZONE1_TEMP_2"}, ids(got))

	all, err := Aggregate(samplePages(), Filter{Status: StatusAll}, SortAsc, t0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestAggregate_Search(t *testing.T) {
	t.Run("value substring", func(t *testing.T) {
		got, err := Aggregate(samplePages(), Filter{Search: "895"}, SortAsc, t0)
		require.NoError(t, err)
		assert.Equal(t, []string{"OIL_1", "ZONE1_TEMP_1"}, ids(got))
	})

	t.Run("description is case-insensitive", func(t *testing.T) {
		got, err := Aggregate(samplePages(), Filter{Search: "EXHAUST"}, SortAsc, t0)
		require.NoError(t, err)
		assert.Equal(t, []string{"FAN_1"}, ids(got))
	})

	t.Run("string value", func(t *testing.T) {
		got, err := Aggregate(samplePages(), Filter{Search: "failure"}, SortAsc, t0)
		require.NoError(t, err)
		assert.Equal(t, []string{"FAN_1"}, ids(got))
	})

	t.Run("formatted timestamp", func(t *testing.T) {
		got, err := Aggregate(samplePages(), Filter{Search: "2026-03-08 12:00"}, SortAsc, t0)
		require.NoError(t, err)
		assert.Equal(t, []string{"OIL_1"}, ids(got))
	})
}

func TestAggregate_PresetRange(t *testing.T) {
	got, err := Aggregate(samplePages(), Filter{Range: TimeRange{Preset: Preset24h}}, SortAsc, t0)
	require.NoError(t, err)
	assert.NotContains(t, ids(got), "OIL_1")
	assert.Len(t, got, 4)

	got, err = Aggregate(samplePages(), Filter{Range: TimeRange{Preset: Preset3d}}, SortAsc, t0)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestAggregate_CustomRange(t *testing.T) {
	f := Filter{Range: TimeRange{Start: t0.Add(-3 * time.Hour), End: t0.Add(-1 * time.Hour)}}
	got, err := Aggregate(samplePages(), f, SortAsc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"ZONE1_TEMP_2", "FAN_1"}, ids(got), "start inclusive, end exclusive")
}

func TestAggregate_InvalidRange(t *testing.T) {
	tests := []struct {
		name string
		r    TimeRange
	}{
		{"end before start", TimeRange{Start: t0.Add(time.Hour), End: t0}},
		{"empty window", TimeRange{Start: t0, End: t0}},
		{"91 days", TimeRange{Start: t0, End: t0.Add(91 * 24 * time.Hour)}},
		{"missing end", TimeRange{Start: t0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Aggregate(samplePages(), Filter{Range: tt.r}, SortAsc, t0)
			var rangeErr *DateRangeError
			require.ErrorAs(t, err, &rangeErr)
			assert.Nil(t, got)
		})
	}
}

func TestTimeRange_NinetyDaysExactly(t *testing.T) {
	r := TimeRange{Start: t0, End: t0.Add(MaxCustomRange)}
	assert.NoError(t, r.Validate())
}

func TestAggregate_LatestPerTemplate(t *testing.T) {
	pages := []types.HistoryPage{{Alarms: []types.HistoryRecord{
		rec("T_0", "Kiln Temp", types.StatusResolved, 1.0, t0),
		rec("T_2", "Kiln Temp", types.StatusActive, 3.0, t0.Add(2*time.Minute)),
		rec("T_1", "Kiln Temp", types.StatusResolved, 2.0, t0.Add(time.Minute)),
	}}}
	got, err := Aggregate(pages, Filter{LatestPerTemplate: true}, SortDesc, t0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "T_2", got[0].ID)
}

func TestLatestPerTemplate_UsesTemplateKey(t *testing.T) {
	a := rec("A_1", "Same text", types.StatusActive, 1.0, t0)
	a.Template = "tmpl-a"
	b := rec("B_1", "Same text", types.StatusActive, 1.0, t0.Add(time.Minute))
	b.Template = "tmpl-b"
	got := LatestPerTemplate([]types.HistoryRecord{a, b})
	assert.Len(t, got, 2)
}

func TestAggregate_IdentitySelection(t *testing.T) {
	pages := []types.HistoryPage{{Alarms: []types.HistoryRecord{
		rec("PUMP1_001", "Pump 1", types.StatusActive, 1.0, t0),
		rec("PUMP10_001", "Pump 10", types.StatusActive, 1.0, t0),
		rec("PUMP1", "Pump 1", types.StatusActive, 1.0, t0),
	}}}

	got, err := Aggregate(pages, Filter{AlarmID: "PUMP1"}, SortAsc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"PUMP1_001", "PUMP1"}, ids(got), "PUMP10 must not match PUMP1")

	got, err = Aggregate(pages, Filter{Template: "Pump 10"}, SortAsc, t0)
	require.NoError(t, err)
	assert.Equal(t, []string{"PUMP10_001"}, ids(got))
}
