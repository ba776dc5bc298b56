package types

import "time"

// Status is the lifecycle state of an alarm as tracked by the backend.
type Status string

const (
	StatusActive       Status = "active"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusAcknowledged, StatusResolved:
		return true
	}
	return false
}

// Severity is the pre-assigned display tier of an alarm.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Partition routes an alarm to the analog, binary or predictive views.
type Partition string

const (
	PartitionAnalog     Partition = "analog"
	PartitionBinary     Partition = "binary"
	PartitionPredictive Partition = "predictive"
)

// Alert states.
const (
	AlertFiring   = "firing"
	AlertResolved = "resolved"
)

// Alert is a locally raised alarm condition tracked between a raised and a
// resolved transition.
type Alert struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Zone        string     `json:"zone,omitempty"`
	Severity    Severity   `json:"severity"`
	State       string     `json:"state"`
	FiredAt     time.Time  `json:"firedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
	Value       string     `json:"value"`
	SetPoint    string     `json:"setPoint,omitempty"`
	Unit        string     `json:"unit,omitempty"`
	Message     string     `json:"message"`
}

// Alarm is the normalized alarm entity shared by the monitor, the history
// pipeline and the status API.
type Alarm struct {
	ID                string     `json:"id"`
	Description       string     `json:"description"`
	Type              string     `json:"type"`
	Partition         Partition  `json:"alarmType"`
	Zone              string     `json:"zone,omitempty"`
	Severity          Severity   `json:"severity"`
	Status            Status     `json:"status"`
	Value             string     `json:"value"`
	Unit              string     `json:"unit,omitempty"`
	SetPoint          string     `json:"setPoint"`
	LowLimit          *float64   `json:"lowLimit,omitempty"`
	HighLimit         *float64   `json:"highLimit,omitempty"`
	Timestamp         time.Time  `json:"timestamp"`
	AcknowledgedBy    string     `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt    *time.Time `json:"acknowledgedAt,omitempty"`
	ResolvedBy        string     `json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time `json:"resolvedAt,omitempty"`
	ResolutionMessage string     `json:"resolutionMessage,omitempty"`
}

// HistoryRecord is one historical alarm instance returned by the history feed.
// Template is the stable key grouping instances of the same alarm; older
// backends omit it and the description is used instead.
type HistoryRecord struct {
	ID          string    `json:"id"`
	Template    string    `json:"template,omitempty"`
	Description string    `json:"description"`
	Type        string    `json:"type,omitempty"`
	Zone        string    `json:"zone,omitempty"`
	Severity    Severity  `json:"severity,omitempty"`
	Status      Status    `json:"status"`
	Value       any       `json:"value"`
	Unit        string    `json:"unit,omitempty"`
	SetPoint    any       `json:"setPoint,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TemplateKey returns the grouping key for the record.
func (r HistoryRecord) TemplateKey() string {
	if r.Template != "" {
		return r.Template
	}
	return r.Description
}

// Pagination describes one page of a paginated response.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// HistoryPage is a single page of the alarm history feed.
type HistoryPage struct {
	Alarms     []HistoryRecord `json:"alarms"`
	Pagination Pagination      `json:"pagination"`
}

// MeterReading is one sample from the meter history feed.
type MeterReading struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Values    map[string]float64 `json:"values,omitempty"`
}

// MeterPage is a single page of the meter history feed.
type MeterPage struct {
	Readings   []MeterReading `json:"readings"`
	Pagination Pagination     `json:"pagination"`
}

// RawRecord is an alarm record as decoded from the feed, before
// normalization. Field names vary between source arrays.
type RawRecord map[string]any

// ScadaFeed is the payload of the active alarm feed.
type ScadaFeed struct {
	AnalogAlarms     []RawRecord `json:"analogAlarms"`
	BinaryAlarms     []RawRecord `json:"binaryAlarms"`
	PredictiveAlarms []RawRecord `json:"predictiveAlarms,omitempty"`
}
