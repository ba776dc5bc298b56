package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/scadawatch/scadawatch/internal/version"
)

// DefaultTimeout bounds every backend request.
const DefaultTimeout = 15 * time.Second

const (
	headerOrganization = "X-Organization-ID"
	headerRequestID    = "X-Request-ID"
)

// Client is the SCADA alarm backend REST client.
type Client struct {
	baseURL string
	token   string
	http    *http.Client

	mu           sync.RWMutex
	organization string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithOrganization scopes every request to an organization.
func WithOrganization(org string) Option {
	return func(c *Client) {
		c.organization = org
	}
}

// New constructs a backend client.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("client: empty base url")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Organization returns the organization the client is scoped to.
func (c *Client) Organization() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.organization
}

// SetOrganization changes the organization scope of subsequent requests.
func (c *Client) SetOrganization(org string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.organization = org
}

// FetchAlarms returns the current live alarm feed.
func (c *Client) FetchAlarms(ctx context.Context) (types.ScadaFeed, error) {
	var feed types.ScadaFeed
	if err := c.doJSON(ctx, "fetch alarms", http.MethodGet, "/api/scada/alarms", nil, &feed); err != nil {
		return types.ScadaFeed{}, err
	}
	return feed, nil
}

type statusUpdate struct {
	Status            types.Status `json:"status"`
	ResolutionMessage string       `json:"resolutionMessage,omitempty"`
}

// UpdateStatus changes the lifecycle status of an alarm and returns the
// backend's updated record.
func (c *Client) UpdateStatus(ctx context.Context, id string, status types.Status, message string) (types.RawRecord, error) {
	if id == "" {
		return nil, errors.New("client: empty alarm id")
	}
	if !status.Valid() {
		return nil, fmt.Errorf("client: invalid status %q", status)
	}
	path := "/api/alarms/" + url.PathEscape(id) + "/status"
	var updated types.RawRecord
	if err := c.doJSON(ctx, "update status", http.MethodPut, path, statusUpdate{Status: status, ResolutionMessage: message}, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// FetchHistory returns one page of alarm history.
func (c *Client) FetchHistory(ctx context.Context, q history.Query) (types.HistoryPage, error) {
	var page types.HistoryPage
	path := "/api/scada/history?" + q.Values().Encode()
	if err := c.doJSON(ctx, "fetch history", http.MethodGet, path, nil, &page); err != nil {
		return types.HistoryPage{}, err
	}
	return page, nil
}

// FetchMeterHistory returns one page of meter readings.
func (c *Client) FetchMeterHistory(ctx context.Context, q history.MeterQuery) (types.MeterPage, error) {
	var page types.MeterPage
	path := "/api/meter/history?" + q.Values().Encode()
	if err := c.doJSON(ctx, "fetch meter history", http.MethodGet, path, nil, &page); err != nil {
		return types.MeterPage{}, err
	}
	return page, nil
}

// Notification is the body of a notification submission.
type Notification struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Value       string         `json:"value"`
	Unit        string         `json:"unit,omitempty"`
	Severity    types.Severity `json:"severity"`
	Details     string         `json:"details"`
	AlarmID     string         `json:"alarmId"`
}

// SendNotification submits a notification request to the backend. The
// backend's delivery ack is not interpreted beyond its status code.
func (c *Client) SendNotification(ctx context.Context, n Notification) error {
	return c.doJSON(ctx, "send notification", http.MethodPost, "/api/alarms/notification", n, nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body any, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("client: %s: marshal: %w", op, err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set(headerRequestID, uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if org := c.Organization(); org != "" {
		req.Header.Set(headerOrganization, org)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &NetworkError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(snippet)), Err: statusErr(resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: %s: decode: %w", op, err)
	}
	return nil
}
