package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/client"
	"github.com/scadawatch/scadawatch/internal/config"
	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/scadawatch/scadawatch/internal/history"
	"github.com/scadawatch/scadawatch/internal/monitor"
	"github.com/scadawatch/scadawatch/internal/normalizer"
	"github.com/scadawatch/scadawatch/internal/poller"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/scadawatch/scadawatch/internal/webui"
)

const (
	defaultLogLimit   = 200
	defaultHistoryMax = 10
)

// Monitor is the monitoring session the API reports on.
type Monitor interface {
	Alarms() []types.Alarm
	GetActiveAlerts() []types.Alert
	State() poller.State[types.ScadaFeed]
	Organization() string
	UpdateStatus(ctx context.Context, id string, status types.Status, message string) error
	SwitchOrganization(ctx context.Context, org string) error
}

// HistoryFunc loads aggregated alarm history
type HistoryFunc func(ctx context.Context, req monitor.HistoryRequest) ([]types.HistoryRecord, error)

// Server provides HTTP API endpoints and web UI
type Server struct {
	monitor     Monitor
	logger      zerolog.Logger
	port        string
	logBuffer   *webui.LogBuffer
	config      *config.Config
	configPath  string
	startTime   time.Time
	configMu    sync.RWMutex
	version     string
	commit      string
	buildDate   string
	versionMu   sync.RWMutex
	metrics     http.Handler
	historyFunc HistoryFunc
	httpServer  *http.Server
}

// NewServer creates a new API server
func NewServer(mon Monitor, logger zerolog.Logger, port string) *Server {
	return &Server{
		monitor:   mon,
		logger:    logger.With().Str("component", "api").Logger(),
		port:      port,
		startTime: time.Now(),
	}
}

// SetLogBuffer sets the log buffer for the web UI
func (s *Server) SetLogBuffer(lb *webui.LogBuffer) {
	s.logBuffer = lb
}

// SetConfig sets the current configuration
func (s *Server) SetConfig(cfg *config.Config, configPath string) {
	s.configMu.Lock()
	defer s.configMu.Unlock()
	s.config = cfg
	s.configPath = configPath
}

// SetVersion sets the version information
func (s *Server) SetVersion(version, commit, buildDate string) {
	s.versionMu.Lock()
	defer s.versionMu.Unlock()
	s.version = version
	s.commit = commit
	s.buildDate = buildDate
}

// SetMetricsHandler exposes a Prometheus handler on /metrics
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// SetHistoryFunc enables /api/history
func (s *Server) SetHistoryFunc(fn HistoryFunc) {
	s.historyFunc = fn
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /alarms", s.handleAlarms)
	mux.HandleFunc("GET /alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/logs", s.handleLogsAPI)
	mux.HandleFunc("POST /api/alarms/{id}/ack", s.handleStatusUpdate(types.StatusAcknowledged))
	mux.HandleFunc("POST /api/alarms/{id}/resolve", s.handleStatusUpdate(types.StatusResolved))
	mux.HandleFunc("POST /api/organization", s.handleOrganization)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}

	// Web UI
	mux.HandleFunc("GET /{$}", s.handleWebUI)

	return mux
}

// Start starts the HTTP server and blocks until it stops. It returns nil
// after Shutdown.
func (s *Server) Start() error {
	addr := ":" + s.port
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info().
		Str("address", addr).
		Msg("Starting API server with Web UI")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth reports whether the alarm feed is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := s.monitor.State()
	status, code := "healthy", http.StatusOK
	if state.IsError {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if state.Err != nil {
		body["error"] = state.Err.Error()
	}
	writeJSON(w, code, body)
}

// handleStatus returns current state summary
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.monitor.State()
	alarms := s.monitor.Alarms()
	alerts := s.monitor.GetActiveAlerts()

	s.versionMu.RLock()
	version := s.version
	commit := s.commit
	buildDate := s.buildDate
	s.versionMu.RUnlock()

	status := map[string]interface{}{
		"organization":  s.monitor.Organization(),
		"alarm_count":   len(alarms),
		"active_alerts": len(alerts),
		"fetching":      state.IsFetching,
		"feed_error":    state.IsError,
		"time":          time.Now().UTC().Format(time.RFC3339),
		"uptime":        formatDuration(time.Since(s.startTime)),
		"version":       version,
		"commit":        commit,
		"build_date":    buildDate,
	}
	if !state.UpdatedAt.IsZero() {
		status["last_update"] = state.UpdatedAt.UTC().Format(time.RFC3339)
	}

	writeJSON(w, http.StatusOK, status)
}

// AlarmView is an alarm with its classification and display treatment
type AlarmView struct {
	types.Alarm
	OutOfRange bool                `json:"outOfRange"`
	Treatment  evaluator.Treatment `json:"treatment"`
	Error      string              `json:"error,omitempty"`
}

func alarmViews(alarms []types.Alarm) []AlarmView {
	views := make([]AlarmView, 0, len(alarms))
	for _, a := range alarms {
		v := AlarmView{Alarm: a}
		reading, err := normalizer.Reading(a)
		if err == nil {
			var c evaluator.Classification
			c, err = evaluator.Classify(reading)
			v.OutOfRange = c.OutOfRange
		}
		if err != nil {
			v.Error = err.Error()
		}
		v.Treatment = evaluator.Display(a.Severity, v.OutOfRange)
		views = append(views, v)
	}
	return views
}

// handleAlarms returns the classified alarm feed. ?out_of_range=true keeps
// only alarms outside their limits.
func (s *Server) handleAlarms(w http.ResponseWriter, r *http.Request) {
	views := alarmViews(s.monitor.Alarms())
	if r.URL.Query().Get("out_of_range") == "true" {
		kept := views[:0]
		for _, v := range views {
			if v.OutOfRange {
				kept = append(kept, v)
			}
		}
		views = kept
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"organization": s.monitor.Organization(),
		"alarms":       views,
		"count":        len(views),
	})
}

// handleAlerts returns active alerts
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := s.monitor.GetActiveAlerts()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// handleHistory loads and aggregates alarm history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.historyFunc == nil {
		writeError(w, http.StatusNotImplemented, "history not configured")
		return
	}
	req, err := parseHistoryRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.historyFunc(r.Context(), req)
	if err != nil {
		var rangeErr *history.DateRangeError
		if errors.As(err, &rangeErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("History request failed")
		writeError(w, statusFor(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alarms": records,
		"count":  len(records),
	})
}

func parseHistoryRequest(r *http.Request) (monitor.HistoryRequest, error) {
	q := r.URL.Query()
	req := monitor.HistoryRequest{
		Filter: history.Filter{
			Template:          q.Get("template"),
			AlarmID:           q.Get("alarmId"),
			Status:            q.Get("status"),
			Search:            q.Get("search"),
			LatestPerTemplate: q.Get("latest") == "true",
		},
		Order:    history.SortDesc,
		MaxPages: defaultHistoryMax,
	}

	switch o := history.SortOrder(q.Get("order")); o {
	case "":
	case history.SortAsc, history.SortDesc:
		req.Order = o
	default:
		return req, fmt.Errorf("invalid order %q", o)
	}

	start, end := q.Get("start"), q.Get("end")
	if start != "" || end != "" {
		var err error
		if start != "" {
			if req.Filter.Range.Start, err = time.Parse(time.RFC3339, start); err != nil {
				return req, fmt.Errorf("invalid start: %w", err)
			}
		}
		if end != "" {
			if req.Filter.Range.End, err = time.Parse(time.RFC3339, end); err != nil {
				return req, fmt.Errorf("invalid end: %w", err)
			}
		}
	} else {
		req.Filter.Range.Preset = history.Preset24h
		if p := q.Get("preset"); p != "" {
			req.Filter.Range.Preset = history.Preset(p)
		}
	}

	if v := q.Get("max_pages"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, fmt.Errorf("invalid max_pages %q", v)
		}
		req.MaxPages = n
	}
	return req, nil
}

// handleLogsAPI returns recent log entries as JSON
func (s *Server) handleLogsAPI(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultLogLimit
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	level := zerolog.TraceLevel
	if v := q.Get("level"); v != "" {
		l, err := zerolog.ParseLevel(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		level = l
	}

	var entries []webui.LogEntry
	if s.logBuffer != nil {
		entries = s.logBuffer.Query(limit, level, q.Get("component"), q.Get("alarm_id"))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

type statusUpdateRequest struct {
	Message string `json:"message"`
}

// handleStatusUpdate acknowledges or resolves an alarm
func (s *Server) handleStatusUpdate(status types.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var body statusUpdateRequest
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
		}
		if status == types.StatusResolved && strings.TrimSpace(body.Message) == "" {
			body.Message = "Resolved via scadawatch"
		}

		s.logger.Info().Str("alarm_id", id).Str("status", string(status)).Msg("Status update requested via API")

		if err := s.monitor.UpdateStatus(r.Context(), id, status, body.Message); err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"id":      id,
			"status":  status,
		})
	}
}

type organizationRequest struct {
	Organization string `json:"organization"`
}

// handleOrganization rescopes the monitoring session to another organization
func (s *Server) handleOrganization(w http.ResponseWriter, r *http.Request) {
	var body organizationRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	org := strings.TrimSpace(body.Organization)
	if org == "" {
		writeError(w, http.StatusBadRequest, "organization is required")
		return
	}

	prev := s.monitor.Organization()
	s.logger.Info().Str("from", prev).Str("to", org).Msg("Organization switch requested via API")

	// the switch itself always applies; a failed first fetch only degrades the feed
	if err := s.monitor.SwitchOrganization(r.Context(), org); err != nil {
		s.logger.Warn().Err(err).Str("organization", org).Msg("First fetch after organization switch failed")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":      true,
			"organization": org,
			"previous":     prev,
			"feed_error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"organization": org,
		"previous":     prev,
	})
}

// ConfigInfo holds configuration summary for the web UI
type ConfigInfo struct {
	BaseURL       string
	AlarmInterval string
	ConfigPath    string
}

// PageData holds all data for the web UI template
type PageData struct {
	Organization    string
	Healthy         bool
	LastError       string
	LastUpdate      time.Time
	RefreshSeconds  int
	AlarmCount      int
	OutOfRangeCount int
	AlertCount      int
	Uptime          string
	Alarms          []AlarmView
	Alerts          []types.Alert
	Logs            []webui.LogEntry
	Config          ConfigInfo
	Version         string
	Commit          string
	BuildDate       string
}

// handleWebUI renders the main web interface
func (s *Server) handleWebUI(w http.ResponseWriter, r *http.Request) {
	s.configMu.RLock()
	cfg := s.config
	configPath := s.configPath
	s.configMu.RUnlock()

	s.versionMu.RLock()
	version := s.version
	commit := s.commit
	buildDate := s.buildDate
	s.versionMu.RUnlock()

	state := s.monitor.State()
	data := PageData{
		Organization:   s.monitor.Organization(),
		Healthy:        !state.IsError,
		LastUpdate:     state.UpdatedAt,
		RefreshSeconds: 30,
		Uptime:         formatDuration(time.Since(s.startTime)),
		Alarms:         alarmViews(s.monitor.Alarms()),
		Alerts:         s.monitor.GetActiveAlerts(),
		Config:         ConfigInfo{ConfigPath: configPath},
		Version:        version,
		Commit:         commit,
		BuildDate:      buildDate,
	}
	if state.Err != nil {
		data.LastError = state.Err.Error()
	}
	data.AlarmCount = len(data.Alarms)
	data.AlertCount = len(data.Alerts)
	for _, a := range data.Alarms {
		if a.OutOfRange {
			data.OutOfRangeCount++
		}
	}

	if cfg != nil {
		data.Config.BaseURL = cfg.Server.BaseURL
		data.Config.AlarmInterval = cfg.Polling.AlarmInterval.String()
		if secs := int(cfg.Polling.AlarmInterval.Seconds()); secs > 0 {
			data.RefreshSeconds = secs
		}
	}

	if s.logBuffer != nil {
		data.Logs = s.logBuffer.GetRecentEntries(100)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := webui.Templates.ExecuteTemplate(w, "base", data); err != nil {
		s.logger.Error().Err(err).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// statusFor maps backend errors onto API response codes
func statusFor(err error) int {
	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.Round(time.Second).String()
	}
	if d < 24*time.Hour {
		return d.Round(time.Minute).String()
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, hours)
}
