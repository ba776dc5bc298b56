package normalizer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/scadawatch/scadawatch/internal/types"
)

// Alarm type vocabulary.
const (
	TypeTemperature = "temperature"
	TypeCarbon      = "carbon"
	TypeLevel       = "level"
	TypeHeater      = "heater"
	TypeFan         = "fan"
	TypeConveyor    = "conveyor"
	TypeOil         = "oil"
	TypePressure    = "pressure"
	TypeMotor       = "motor"
	TypePredictive  = "predictive"
)

var vocabulary = map[string]struct{}{
	TypeTemperature: {}, TypeCarbon: {}, TypeLevel: {}, TypeHeater: {}, TypeFan: {},
	TypeConveyor: {}, TypeOil: {}, TypePressure: {}, TypeMotor: {}, TypePredictive: {},
}

// keywords are checked in order; the first hit wins.
var keywords = []struct {
	needle string
	typ    string
}{
	{"temp", TypeTemperature},
	{"carbon", TypeCarbon},
	{"co2", TypeCarbon},
	{"level", TypeLevel},
	{"heater", TypeHeater},
	{"fan", TypeFan},
	{"conveyor", TypeConveyor},
	{"oil", TypeOil},
	{"pressure", TypePressure},
	{"motor", TypeMotor},
}

// Alternative field names seen across source arrays.
var (
	idFields          = []string{"id", "_id", "alarmId"}
	descriptionFields = []string{"description", "name", "label"}
	timestampFields   = []string{"timestamp", "time", "createdAt"}
	valueFields       = []string{"value", "currentValue"}
	setPointFields    = []string{"setPoint", "setpoint", "expected"}
	lowFields         = []string{"lowLimit", "low"}
	highFields        = []string{"highLimit", "high"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Normalize maps one raw feed record onto an Alarm. Records missing an id,
// description or timestamp fail with a ValidationError.
func Normalize(raw types.RawRecord, partition types.Partition) (types.Alarm, error) {
	id := str(first(raw, idFields))
	if id == "" {
		return types.Alarm{}, missing("id")
	}
	description := str(first(raw, descriptionFields))
	if description == "" {
		return types.Alarm{}, missing("description")
	}
	tsRaw := first(raw, timestampFields)
	if tsRaw == nil {
		return types.Alarm{}, missing("timestamp")
	}
	ts, err := parseTimestamp(tsRaw)
	if err != nil {
		return types.Alarm{}, &types.ValidationError{Field: "timestamp", Reason: err.Error(), Err: types.ErrParse}
	}

	low, err := limit(first(raw, lowFields))
	if err != nil {
		return types.Alarm{}, &types.ValidationError{Field: "lowLimit", Reason: err.Error(), Err: types.ErrParse}
	}
	high, err := limit(first(raw, highFields))
	if err != nil {
		return types.Alarm{}, &types.ValidationError{Field: "highLimit", Reason: err.Error(), Err: types.ErrParse}
	}

	alarm := types.Alarm{
		ID:                id,
		Description:       description,
		Type:              inferType(str(raw["type"]), description, partition),
		Partition:         partition,
		Zone:              str(raw["zone"]),
		Severity:          severity(str(raw["severity"]), partition),
		Status:            status(str(raw["status"])),
		Value:             str(first(raw, valueFields)),
		Unit:              str(raw["unit"]),
		SetPoint:          str(first(raw, setPointFields)),
		LowLimit:          low.Ptr(),
		HighLimit:         high.Ptr(),
		Timestamp:         ts,
		AcknowledgedBy:    str(raw["acknowledgedBy"]),
		AcknowledgedAt:    optionalTime(raw["acknowledgedAt"]),
		ResolvedBy:        str(raw["resolvedBy"]),
		ResolvedAt:        optionalTime(raw["resolvedAt"]),
		ResolutionMessage: str(raw["resolutionMessage"]),
	}
	return alarm, nil
}

// NormalizeFeed normalizes every array of the feed, tagging the partition of
// each alarm. Invalid records are skipped and reported in the error slice.
func NormalizeFeed(feed types.ScadaFeed) ([]types.Alarm, []error) {
	alarms := make([]types.Alarm, 0, len(feed.AnalogAlarms)+len(feed.BinaryAlarms)+len(feed.PredictiveAlarms))
	var errs []error
	add := func(records []types.RawRecord, partition types.Partition) {
		for _, raw := range records {
			alarm, err := Normalize(raw, partition)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			alarms = append(alarms, alarm)
		}
	}
	add(feed.AnalogAlarms, types.PartitionAnalog)
	add(feed.BinaryAlarms, types.PartitionBinary)
	add(feed.PredictiveAlarms, types.PartitionPredictive)
	return alarms, errs
}

// Reading builds the evaluator reading for a normalized alarm. Predictive
// alarms are treated as analog when their value is numeric.
func Reading(alarm types.Alarm) (evaluator.Reading, error) {
	switch alarm.Partition {
	case types.PartitionBinary:
		return binaryReading(alarm), nil
	case types.PartitionPredictive:
		if _, err := strconv.ParseFloat(strings.TrimSpace(alarm.Value), 64); err != nil {
			return binaryReading(alarm), nil
		}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(alarm.Value), 64)
	if err != nil {
		return nil, &types.ValidationError{
			Field:  "value",
			Reason: fmt.Sprintf("alarm %s: %q is not numeric", alarm.ID, alarm.Value),
			Err:    types.ErrParse,
		}
	}
	return evaluator.AnalogReading{
		ID:    alarm.ID,
		Value: v,
		Low:   evaluator.LimitFromPtr(alarm.LowLimit),
		High:  evaluator.LimitFromPtr(alarm.HighLimit),
	}, nil
}

func binaryReading(alarm types.Alarm) evaluator.BinaryReading {
	return evaluator.BinaryReading{ID: alarm.ID, Value: alarm.Value, Expected: alarm.SetPoint}
}

func missing(field string) error {
	return &types.ValidationError{Field: field, Err: types.ErrMissingField}
}

func first(raw types.RawRecord, fields []string) any {
	for _, f := range fields {
		if v, ok := raw[f]; ok && v != nil {
			if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			return v
		}
	}
	return nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func limit(v any) (evaluator.Limit, error) {
	switch t := v.(type) {
	case nil:
		return evaluator.NoLimit(), nil
	case float64:
		if math.IsNaN(t) {
			return evaluator.NoLimit(), nil
		}
		return evaluator.LimitOf(t), nil
	case string:
		return evaluator.ParseLimit(t)
	default:
		return evaluator.NoLimit(), fmt.Errorf("unsupported limit %T", v)
	}
}

func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized timestamp %q", t)
	case float64:
		// epoch milliseconds
		return time.UnixMilli(int64(t)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp %T", v)
	}
}

func optionalTime(v any) *time.Time {
	if v == nil {
		return nil
	}
	ts, err := parseTimestamp(v)
	if err != nil {
		return nil
	}
	return &ts
}

func inferType(explicit, description string, partition types.Partition) string {
	if partition == types.PartitionPredictive {
		return TypePredictive
	}
	if t := strings.ToLower(explicit); t != "" {
		if _, ok := vocabulary[t]; ok {
			return t
		}
	}
	lower := strings.ToLower(description)
	for _, kw := range keywords {
		if strings.Contains(lower, kw.needle) {
			return kw.typ
		}
	}
	if partition == types.PartitionBinary {
		return TypeMotor
	}
	return TypeTemperature
}

func severity(s string, partition types.Partition) types.Severity {
	switch sev := types.Severity(strings.ToLower(s)); sev {
	case types.SeverityCritical, types.SeverityWarning, types.SeverityInfo:
		return sev
	}
	switch partition {
	case types.PartitionBinary:
		return types.SeverityCritical
	case types.PartitionPredictive:
		return types.SeverityInfo
	default:
		return types.SeverityWarning
	}
}

func status(s string) types.Status {
	st := types.Status(strings.ToLower(s))
	if st.Valid() {
		return st
	}
	return types.StatusActive
}
