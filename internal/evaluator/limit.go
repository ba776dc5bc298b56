package evaluator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// notApplicable is how some feeds render a limit that does not apply.
const notApplicable = "-"

// Limit is an optional threshold. The zero value is an undefined limit.
type Limit struct {
	Value float64
	Set   bool
}

// NoLimit returns an undefined limit.
func NoLimit() Limit { return Limit{} }

// LimitOf returns a defined limit at v.
func LimitOf(v float64) Limit { return Limit{Value: v, Set: true} }

// LimitFromPtr converts an optional float into a Limit.
func LimitFromPtr(p *float64) Limit {
	if p == nil {
		return NoLimit()
	}
	return LimitOf(*p)
}

// Ptr returns the limit as an optional float, nil when undefined.
func (l Limit) Ptr() *float64 {
	if !l.Set {
		return nil
	}
	v := l.Value
	return &v
}

func (l Limit) String() string {
	if !l.Set {
		return notApplicable
	}
	return strconv.FormatFloat(l.Value, 'f', -1, 64)
}

// ParseLimit parses a textual limit. Empty strings and "-" are undefined.
func ParseLimit(s string) (Limit, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == notApplicable {
		return NoLimit(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NoLimit(), fmt.Errorf("limit %q: %w", s, err)
	}
	if math.IsNaN(v) {
		return NoLimit(), nil
	}
	return LimitOf(v), nil
}

// UnmarshalJSON accepts numbers, numeric strings, null and "-".
func (l *Limit) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*l = NoLimit()
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := ParseLimit(s)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("limit: %w", err)
	}
	*l = LimitOf(v)
	return nil
}

// MarshalJSON writes null for an undefined limit.
func (l Limit) MarshalJSON() ([]byte, error) {
	if !l.Set {
		return []byte("null"), nil
	}
	return json.Marshal(l.Value)
}
