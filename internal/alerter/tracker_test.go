package alerter

import (
	"testing"

	"github.com/scadawatch/scadawatch/internal/evaluator"
	"github.com/stretchr/testify/assert"
)

var (
	inRange  = evaluator.Classification{OutOfRange: false}
	outRange = evaluator.Classification{OutOfRange: true}
)

func TestTransitionStore_FirstObservationNeverFires(t *testing.T) {
	s := NewTransitionStore()
	assert.Equal(t, Unchanged, s.Detect("a", outRange))
	assert.Equal(t, Unchanged, s.Detect("b", inRange))
	assert.Equal(t, 2, s.Len())
}

func TestTransitionStore_Edges(t *testing.T) {
	s := NewTransitionStore()
	s.Detect("a", inRange)

	assert.Equal(t, Entered, s.Detect("a", outRange))
	assert.Equal(t, Unchanged, s.Detect("a", outRange))
	assert.Equal(t, Unchanged, s.Detect("a", outRange))
	assert.Equal(t, Unchanged, s.Detect("a", outRange))
	assert.Equal(t, Left, s.Detect("a", inRange))
	assert.Equal(t, Unchanged, s.Detect("a", inRange))
}

func TestTransitionStore_BinaryLabels(t *testing.T) {
	s := NewTransitionStore()
	s.Detect("fan", evaluator.Classification{State: "Normal"})

	assert.Equal(t, Entered, s.Detect("fan", evaluator.Classification{OutOfRange: true, State: "FAILURE"}))
	assert.Equal(t, Unchanged, s.Detect("fan", evaluator.Classification{OutOfRange: true, State: "TRIP"}),
		"changing between deviating labels is not an edge")
	last, ok := s.Last("fan")
	assert.True(t, ok)
	assert.Equal(t, "TRIP", last.State, "last observation always wins")
	assert.Equal(t, Left, s.Detect("fan", evaluator.Classification{State: "Normal"}))
}

func TestTransitionStore_Reset(t *testing.T) {
	s := NewTransitionStore()
	s.Detect("a", inRange)
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Equal(t, Unchanged, s.Detect("a", outRange), "no memory survives a reset")
}

func TestTransitionStore_Forget(t *testing.T) {
	s := NewTransitionStore()
	s.Detect("a", inRange)
	s.Forget("a")
	_, ok := s.Last("a")
	assert.False(t, ok)
}

func TestTransition_String(t *testing.T) {
	assert.Equal(t, "entered", Entered.String())
	assert.Equal(t, "left", Left.String())
	assert.Equal(t, "unchanged", Unchanged.String())
}
