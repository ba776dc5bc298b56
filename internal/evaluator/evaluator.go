package evaluator

import (
	"fmt"
	"math"

	"github.com/scadawatch/scadawatch/internal/types"
)

// Reading is a single observation of an alarm point. It is either an
// AnalogReading or a BinaryReading; the set is closed.
type Reading interface {
	AlarmID() string
	reading()
}

// AnalogReading is a numeric value checked against optional low/high limits.
type AnalogReading struct {
	ID    string
	Value float64
	Low   Limit
	High  Limit
}

// BinaryReading is a state label checked against an expected label.
type BinaryReading struct {
	ID       string
	Value    string
	Expected string
}

func (r AnalogReading) AlarmID() string { return r.ID }
func (r BinaryReading) AlarmID() string { return r.ID }

func (AnalogReading) reading() {}
func (BinaryReading) reading() {}

// Classification is the derived in/out-of-range signal for a reading. State
// carries the current label for binary readings so that transitions can be
// tracked per label.
type Classification struct {
	OutOfRange bool
	State      string
}

// EvaluateAnalog reports whether value violates a defined low or high limit.
// NaN never violates a limit.
func EvaluateAnalog(value float64, low, high Limit) bool {
	if math.IsNaN(value) {
		return false
	}
	return (low.Set && value < low.Value) || (high.Set && value > high.Value)
}

// EvaluateBinary reports whether the current state differs from the expected
// one. Comparison is exact: the feed is authoritative for label casing.
func EvaluateBinary(value, expected string) bool {
	return value != expected
}

// Classify evaluates a reading. Malformed analog values (NaN, Inf) classify as
// in range and return a ValidationError wrapping types.ErrParse so that bad
// telemetry never raises an alarm on its own.
func Classify(r Reading) (Classification, error) {
	switch r := r.(type) {
	case AnalogReading:
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			return Classification{}, &types.ValidationError{
				Field:  "value",
				Reason: fmt.Sprintf("alarm %s: non-finite value", r.ID),
				Err:    types.ErrParse,
			}
		}
		return Classification{OutOfRange: EvaluateAnalog(r.Value, r.Low, r.High)}, nil
	case BinaryReading:
		return Classification{
			OutOfRange: EvaluateBinary(r.Value, r.Expected),
			State:      r.Value,
		}, nil
	default:
		return Classification{}, fmt.Errorf("unsupported reading %T", r)
	}
}
