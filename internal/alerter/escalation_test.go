package alerter

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestEscalationManager_FiresOnce(t *testing.T) {
	var fired atomic.Int32
	m := NewEscalationManager(testLogger(), map[types.Severity]time.Duration{
		types.SeverityWarning: 10 * time.Millisecond,
	}, func(types.Alert) { fired.Add(1) })
	defer m.Stop()

	m.StartEscalation(types.Alert{ID: "a", Severity: types.SeverityWarning})
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, m.Pending())
}

func TestEscalationManager_NoDelayNeverArms(t *testing.T) {
	m := NewEscalationManager(testLogger(), nil, nil)
	m.StartEscalation(types.Alert{ID: "a", Severity: types.SeverityInfo})
	assert.Zero(t, m.Pending())
}

func TestEscalationManager_RestartReplacesTimer(t *testing.T) {
	var fired atomic.Int32
	m := NewEscalationManager(testLogger(), map[types.Severity]time.Duration{
		types.SeverityCritical: 30 * time.Millisecond,
	}, func(types.Alert) { fired.Add(1) })
	defer m.Stop()

	alert := types.Alert{ID: "a", Severity: types.SeverityCritical}
	m.StartEscalation(alert)
	m.StartEscalation(alert)
	assert.Equal(t, 1, m.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestEscalationManager_Stop(t *testing.T) {
	var fired atomic.Int32
	m := NewEscalationManager(testLogger(), map[types.Severity]time.Duration{
		types.SeverityCritical: 20 * time.Millisecond,
	}, func(types.Alert) { fired.Add(1) })

	m.StartEscalation(types.Alert{ID: "a", Severity: types.SeverityCritical})
	m.StartEscalation(types.Alert{ID: "b", Severity: types.SeverityCritical})
	m.Stop()
	assert.Zero(t, m.Pending())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, fired.Load())
}
