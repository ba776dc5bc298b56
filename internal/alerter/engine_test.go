package alerter

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/scadawatch/scadawatch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []Event
}

func (d *recordingDispatcher) Dispatch(_ context.Context, event Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *recordingDispatcher) kinds() []EventKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]EventKind, len(d.events))
	for i, e := range d.events {
		out[i] = e.Kind
	}
	return out
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func analogAlarm(id string) types.Alarm {
	high := 890.0
	return types.Alarm{
		ID:          id,
		Description: "Furnace Zone Temperature",
		Type:        "temperature",
		Partition:   types.PartitionAnalog,
		Severity:    types.SeverityCritical,
		Status:      types.StatusActive,
		Value:       "895",
		Unit:        "°C",
		HighLimit:   &high,
	}
}

func TestEngine_RaiseAndResolve(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(NewTransitionStore(), d, testLogger())
	ctx := context.Background()
	alarm := analogAlarm("z1")

	assert.Equal(t, Unchanged, e.Observe(ctx, alarm, inRange))
	assert.Empty(t, d.kinds(), "first observation is not alertable")

	assert.Equal(t, Entered, e.Observe(ctx, alarm, outRange))
	require.Equal(t, []EventKind{EventRaised}, d.kinds())
	assert.Len(t, e.GetActiveAlerts(), 1)
	assert.Contains(t, d.events[0].Alert.Message, "outside limits high 890")

	e.Observe(ctx, alarm, outRange)
	e.Observe(ctx, alarm, outRange)
	assert.Len(t, d.kinds(), 1, "steady state raises nothing")

	assert.Equal(t, Left, e.Observe(ctx, alarm, inRange))
	assert.Equal(t, []EventKind{EventRaised, EventResolved}, d.kinds())
	assert.Empty(t, e.GetActiveAlerts())

	resolved := d.events[1].Alert
	assert.Equal(t, types.AlertResolved, resolved.State)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Contains(t, resolved.Message, "Recovered")
}

func TestEngine_FirstObservationOutOfRangeIsSilent(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(NewTransitionStore(), d, testLogger())

	e.Observe(context.Background(), analogAlarm("z1"), outRange)
	assert.Empty(t, d.kinds())
	assert.Empty(t, e.GetActiveAlerts())
}

func TestEngine_Reset(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(NewTransitionStore(), d, testLogger())
	ctx := context.Background()
	alarm := analogAlarm("z1")

	e.Observe(ctx, alarm, inRange)
	e.Observe(ctx, alarm, outRange)
	require.Len(t, e.GetActiveAlerts(), 1)

	e.Reset()
	assert.Empty(t, e.GetActiveAlerts())

	e.Observe(ctx, alarm, inRange)
	assert.Equal(t, []EventKind{EventRaised}, d.kinds(), "reset memory makes the next observation a first one")
}

func TestEngine_FlapSuppression(t *testing.T) {
	d := &recordingDispatcher{}
	flap := NewFlapDetector(testLogger(), 3, time.Minute)
	e := NewEngine(NewTransitionStore(), d, testLogger(), WithFlapDetector(flap))
	ctx := context.Background()
	alarm := analogAlarm("z1")

	e.Observe(ctx, alarm, inRange)
	e.Observe(ctx, alarm, outRange) // change 1
	e.Observe(ctx, alarm, inRange)  // change 2
	e.Observe(ctx, alarm, outRange) // change 3: flapping
	e.Observe(ctx, alarm, inRange)  // suppressed

	assert.Equal(t, []EventKind{EventRaised, EventResolved}, d.kinds())
	assert.True(t, flap.IsFlapping("z1"))
	assert.Empty(t, e.GetActiveAlerts(), "alert set still tracks suppressed transitions")
}

func TestEngine_Escalation(t *testing.T) {
	d := &recordingDispatcher{}
	esc := NewEscalationManager(testLogger(), map[types.Severity]time.Duration{
		types.SeverityCritical: 20 * time.Millisecond,
	}, nil)
	e := NewEngine(NewTransitionStore(), d, testLogger(), WithEscalation(esc))
	defer e.Close()
	ctx := context.Background()
	alarm := analogAlarm("z1")

	e.Observe(ctx, alarm, inRange)
	e.Observe(ctx, alarm, outRange)

	assert.Eventually(t, func() bool {
		kinds := d.kinds()
		return len(kinds) == 2 && kinds[1] == EventEscalated
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, esc.Pending())
}

func TestEngine_ResolveCancelsEscalation(t *testing.T) {
	d := &recordingDispatcher{}
	esc := NewEscalationManager(testLogger(), map[types.Severity]time.Duration{
		types.SeverityCritical: 50 * time.Millisecond,
	}, nil)
	e := NewEngine(NewTransitionStore(), d, testLogger(), WithEscalation(esc))
	defer e.Close()
	ctx := context.Background()
	alarm := analogAlarm("z1")

	e.Observe(ctx, alarm, inRange)
	e.Observe(ctx, alarm, outRange)
	require.Equal(t, 1, esc.Pending())
	e.Observe(ctx, alarm, inRange)
	assert.Zero(t, esc.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, []EventKind{EventRaised, EventResolved}, d.kinds())
}

func TestEngine_BinaryMessage(t *testing.T) {
	d := &recordingDispatcher{}
	e := NewEngine(NewTransitionStore(), d, testLogger())
	ctx := context.Background()
	alarm := types.Alarm{ID: "fan", Description: "Exhaust Fan", Partition: types.PartitionBinary, Value: "FAILURE", SetPoint: "Normal"}

	e.Observe(ctx, alarm, inRange)
	e.Observe(ctx, alarm, outRange)
	require.Len(t, d.events, 1)
	assert.Equal(t, "Exhaust Fan is FAILURE (expected Normal)", d.events[0].Alert.Message)
}
