package alerter

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// FlapDetector tracks rapid transitions per alarm and suppresses
// notifications while an alarm is flapping.
type FlapDetector struct {
	log       zerolog.Logger
	threshold int           // transitions that mark an alarm as flapping
	window    time.Duration // time window for threshold
	now       func() time.Time
	mu        sync.Mutex
	history   map[string][]time.Time // alarm id -> transition times
	flapping  map[string]bool        // alarm id -> currently flapping
}

// NewFlapDetector creates a flap detector. A threshold below 2 disables it.
func NewFlapDetector(log zerolog.Logger, threshold int, window time.Duration) *FlapDetector {
	return &FlapDetector{
		log:       log.With().Str("component", "flap-detector").Logger(),
		threshold: threshold,
		window:    window,
		now:       time.Now,
		history:   make(map[string][]time.Time),
		flapping:  make(map[string]bool),
	}
}

// Enabled reports whether detection is active.
func (f *FlapDetector) Enabled() bool {
	return f != nil && f.threshold >= 2 && f.window > 0
}

// RecordChange records a transition and returns whether the alarm is flapping.
// If flapping just started, returns (true, true). If already flapping, returns
// (true, false). If not flapping, returns (false, false).
func (f *FlapDetector) RecordChange(key string) (flapping bool, justStarted bool) {
	if !f.Enabled() {
		return false, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	pruned := f.prune(f.history[key], now)
	pruned = append(pruned, now)
	f.history[key] = pruned

	if len(pruned) >= f.threshold {
		wasFlapping := f.flapping[key]
		f.flapping[key] = true
		if !wasFlapping {
			f.log.Warn().Str("alarm_id", key).Int("changes", len(pruned)).Msg("flapping detected")
			return true, true
		}
		return true, false
	}
	return false, false
}

// IsFlapping returns whether an alarm is currently marked as flapping.
func (f *FlapDetector) IsFlapping(key string) bool {
	if !f.Enabled() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flapping[key]
}

// CheckStable reports whether a flapping alarm has calmed down within the
// window, clearing its flapping mark if so.
func (f *FlapDetector) CheckStable(key string) bool {
	if !f.Enabled() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.flapping[key] {
		return false
	}
	recent := f.prune(f.history[key], f.now())
	f.history[key] = recent
	if len(recent) < f.threshold {
		delete(f.flapping, key)
		f.log.Info().Str("alarm_id", key).Msg("flapping stopped")
		return true
	}
	return false
}

// Cleanup removes entries older than the window.
func (f *FlapDetector) Cleanup() {
	if !f.Enabled() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	for key, timestamps := range f.history {
		pruned := f.prune(timestamps, now)
		if len(pruned) == 0 {
			delete(f.history, key)
			delete(f.flapping, key)
		} else {
			f.history[key] = pruned
		}
	}
}

// Reset forgets all history.
func (f *FlapDetector) Reset() {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = make(map[string][]time.Time)
	f.flapping = make(map[string]bool)
}

func (f *FlapDetector) prune(timestamps []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-f.window)
	pruned := make([]time.Time, 0, len(timestamps)+1)
	for _, ts := range timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	return pruned
}
