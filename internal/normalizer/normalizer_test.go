package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) types.RawRecord {
	t.Helper()
	var raw types.RawRecord
	require.NoError(t, json.Unmarshal([]byte(s), &raw))
	return raw
}

func TestNormalize_Analog(t *testing.T) {
	raw := decode(t, `{
		"id": "furnace_zone1_temp_20260101",
		"description": "Furnace Zone 1 Temperature",
		"value": 895,
		"unit": "°C",
		"setPoint": "880",
		"lowLimit": 870,
		"highLimit": 890,
		"zone": "zone1",
		"severity": "critical",
		"timestamp": "2026-01-01T10:00:00Z"
	}`)

	alarm, err := Normalize(raw, types.PartitionAnalog)
	require.NoError(t, err)
	assert.Equal(t, "furnace_zone1_temp_20260101", alarm.ID)
	assert.Equal(t, TypeTemperature, alarm.Type)
	assert.Equal(t, types.PartitionAnalog, alarm.Partition)
	assert.Equal(t, "895", alarm.Value)
	assert.Equal(t, types.SeverityCritical, alarm.Severity)
	assert.Equal(t, types.StatusActive, alarm.Status)
	require.NotNil(t, alarm.LowLimit)
	require.NotNil(t, alarm.HighLimit)
	assert.InDelta(t, 870.0, *alarm.LowLimit, 0)
	assert.InDelta(t, 890.0, *alarm.HighLimit, 0)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), alarm.Timestamp.UTC())
}

func TestNormalize_AlternativeFieldNames(t *testing.T) {
	raw := decode(t, `{
		"_id": 42,
		"name": "Main Conveyor Belt",
		"currentValue": "STOPPED",
		"expected": "RUNNING",
		"createdAt": 1767261600000
	}`)

	alarm, err := Normalize(raw, types.PartitionBinary)
	require.NoError(t, err)
	assert.Equal(t, "42", alarm.ID)
	assert.Equal(t, TypeConveyor, alarm.Type)
	assert.Equal(t, "STOPPED", alarm.Value)
	assert.Equal(t, "RUNNING", alarm.SetPoint)
	assert.Equal(t, types.SeverityCritical, alarm.Severity, "binary alarms default to critical")
	assert.Equal(t, int64(1767261600000), alarm.Timestamp.UnixMilli())
}

func TestNormalize_OptionalFieldsStayAbsent(t *testing.T) {
	raw := decode(t, `{"id":"x","description":"Tank Level","value":3,"lowLimit":"-","timestamp":"2026-01-01 10:00:00"}`)

	alarm, err := Normalize(raw, types.PartitionAnalog)
	require.NoError(t, err)
	assert.Nil(t, alarm.LowLimit, "sentinel must not default to zero")
	assert.Nil(t, alarm.HighLimit)
	assert.Empty(t, alarm.Zone)
	assert.Empty(t, alarm.Unit)
	assert.Equal(t, TypeLevel, alarm.Type)
}

func TestNormalize_LimitSentinels(t *testing.T) {
	for _, low := range []string{`"-"`, `""`, `null`, `" "`} {
		t.Run(low, func(t *testing.T) {
			raw := decode(t, `{"id":"x","description":"Tank Level","value":3,"lowLimit":`+low+`,"highLimit":"9","timestamp":"2026-01-01T00:00:00Z"}`)
			alarm, err := Normalize(raw, types.PartitionAnalog)
			require.NoError(t, err)
			assert.Nil(t, alarm.LowLimit)
			require.NotNil(t, alarm.HighLimit)
			assert.InDelta(t, 9.0, *alarm.HighLimit, 0)
		})
	}

	_, err := Normalize(decode(t, `{"id":"x","description":"Tank Level","value":3,"lowLimit":"abc","timestamp":"2026-01-01T00:00:00Z"}`), types.PartitionAnalog)
	assert.ErrorIs(t, err, types.ErrParse)
	var verr *types.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lowLimit", verr.Field)
}

func TestNormalize_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{"missing id", `{"description":"d","timestamp":"2026-01-01T00:00:00Z"}`, "id"},
		{"blank description", `{"id":"a","description":"  ","timestamp":"2026-01-01T00:00:00Z"}`, "description"},
		{"missing timestamp", `{"id":"a","description":"d"}`, "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(decode(t, tt.raw), types.PartitionAnalog)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrMissingField)
			var verr *types.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNormalize_BadTimestamp(t *testing.T) {
	_, err := Normalize(decode(t, `{"id":"a","description":"d","timestamp":"yesterday"}`), types.PartitionAnalog)
	assert.ErrorIs(t, err, types.ErrParse)
}

func TestInferType(t *testing.T) {
	tests := []struct {
		explicit    string
		description string
		partition   types.Partition
		want        string
	}{
		{"", "Kiln CO2 concentration", types.PartitionAnalog, TypeCarbon},
		{"", "Hydraulic Oil Pressure", types.PartitionAnalog, TypeOil},
		{"", "Line 2 Pressure", types.PartitionAnalog, TypePressure},
		{"", "Exhaust Fan", types.PartitionBinary, TypeFan},
		{"", "Heater Bank B", types.PartitionBinary, TypeHeater},
		{"PRESSURE", "Anything", types.PartitionAnalog, TypePressure},
		{"bogus", "Drive Motor", types.PartitionBinary, TypeMotor},
		{"", "Unknown point", types.PartitionBinary, TypeMotor},
		{"", "Unknown point", types.PartitionAnalog, TypeTemperature},
		{"fan", "Fan", types.PartitionPredictive, TypePredictive},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, inferType(tt.explicit, tt.description, tt.partition))
		})
	}
}

func TestNormalizeFeed(t *testing.T) {
	var feed types.ScadaFeed
	require.NoError(t, json.Unmarshal([]byte(`{
		"analogAlarms": [
			{"id":"a1","description":"Zone Temp","value":870,"lowLimit":850,"highLimit":880,"timestamp":"2026-01-01T00:00:00Z"},
			{"description":"no id","timestamp":"2026-01-01T00:00:00Z"}
		],
		"binaryAlarms": [
			{"id":"b1","description":"Fan 1","value":"Normal","setPoint":"Normal","timestamp":"2026-01-01T00:00:00Z"}
		]
	}`), &feed))

	alarms, errs := NormalizeFeed(feed)
	require.Len(t, alarms, 2)
	require.Len(t, errs, 1)
	assert.Equal(t, types.PartitionAnalog, alarms[0].Partition)
	assert.Equal(t, types.PartitionBinary, alarms[1].Partition)
}

func TestReading(t *testing.T) {
	low, high := 850.0, 880.0
	r, err := Reading(types.Alarm{ID: "a", Partition: types.PartitionAnalog, Value: "870", LowLimit: &low, HighLimit: &high})
	require.NoError(t, err)
	assert.Equal(t, evaluator.AnalogReading{ID: "a", Value: 870, Low: evaluator.LimitOf(850), High: evaluator.LimitOf(880)}, r)

	r, err = Reading(types.Alarm{ID: "b", Partition: types.PartitionBinary, Value: "FAILURE", SetPoint: "Normal"})
	require.NoError(t, err)
	assert.Equal(t, evaluator.BinaryReading{ID: "b", Value: "FAILURE", Expected: "Normal"}, r)

	r, err = Reading(types.Alarm{ID: "p", Partition: types.PartitionPredictive, Value: "Bearing wear", SetPoint: "Healthy"})
	require.NoError(t, err)
	assert.IsType(t, evaluator.BinaryReading{}, r)

	_, err = Reading(types.Alarm{ID: "c", Partition: types.PartitionAnalog, Value: "n/a"})
	assert.ErrorIs(t, err, types.ErrParse)
}
