package history

import (
	"net/url"
	"strconv"
	"time"
)

// DefaultPageLimit is the page size used when none is given.
const DefaultPageLimit = 50

// Query holds the parameters of the history endpoint.
type Query struct {
	Page      int
	Limit     int
	Status    string
	Hours     int
	Search    string
	SortBy    string
	SortOrder SortOrder
	Type      string
	AlarmID   string
	StartTime time.Time
}

// QueryFor derives the server query for a filter. Invalid custom ranges are
// rejected here so that no request is issued with bad bounds.
func QueryFor(f Filter, page, limit int, order SortOrder) (Query, error) {
	if err := f.Range.Validate(); err != nil {
		return Query{}, err
	}
	q := Query{
		Page:      page,
		Limit:     limit,
		Status:    f.Status,
		Search:    f.Search,
		SortBy:    "timestamp",
		SortOrder: order,
		AlarmID:   f.AlarmID,
	}
	if f.Range.Custom() {
		q.StartTime = f.Range.Start
	} else if h, ok := f.Range.Preset.Hours(); ok {
		q.Hours = h
	}
	return q, nil
}

// Values encodes the query string.
func (q Query) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Hours > 0 {
		v.Set("hours", strconv.Itoa(q.Hours))
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sortBy", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sortOrder", string(q.SortOrder))
	}
	if q.Type != "" {
		v.Set("type", q.Type)
	}
	if q.AlarmID != "" {
		v.Set("alarmId", q.AlarmID)
	}
	if !q.StartTime.IsZero() {
		v.Set("startTime", q.StartTime.UTC().Format(time.RFC3339))
	}
	return v
}

// MeterQuery holds the parameters of the meter history endpoint.
type MeterQuery struct {
	Hours     int
	Page      int
	Limit     int
	StartTime time.Time
}

// Values encodes the query string.
func (q MeterQuery) Values() url.Values {
	v := url.Values{}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}
	v.Set("page", strconv.Itoa(page))
	v.Set("limit", strconv.Itoa(limit))
	if q.Hours > 0 {
		v.Set("hours", strconv.Itoa(q.Hours))
	}
	if !q.StartTime.IsZero() {
		v.Set("startTime", q.StartTime.UTC().Format(time.RFC3339))
	}
	return v
}
