package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// UnmarshalJSON accepts the flat meter sample shape served by the backend,
// where every numeric field other than the identity is a channel value.
func (m *MeterReading) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = MeterReading{Values: make(map[string]float64)}
	for k, v := range raw {
		switch k {
		case "id", "_id":
			m.ID = fmt.Sprint(v)
		case "timestamp", "time":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("meter reading: %s is not a string", k)
			}
			ts, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return fmt.Errorf("meter reading: %w", err)
			}
			m.Timestamp = ts
		case "values":
			nested, ok := v.(map[string]any)
			if !ok {
				continue
			}
			for nk, nv := range nested {
				if f, ok := toFloat(nv); ok {
					m.Values[nk] = f
				}
			}
		default:
			if f, ok := toFloat(v); ok {
				m.Values[k] = f
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
