package fincalc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuturesTail(t *testing.T) {
	// A notional heavier: excess over B, negated.
	v, ok := FuturesTail(0.08, 2000, 0.07, 2000)
	require.True(t, ok)
	assert.InDelta(t, -(0.08*2000-0.07*2000)/(0.07*2000), v, 1e-12)
	assert.Negative(t, v)

	// B notional heavier: excess over A, positive. The denominator
	// switches legs; the formula is not symmetric.
	v, ok = FuturesTail(0.07, 2000, 0.08, 2000)
	require.True(t, ok)
	assert.InDelta(t, (0.08*2000-0.07*2000)/(0.07*2000), v, 1e-12)
	assert.Positive(t, v)

	// Equal notionals take the else branch and report zero.
	v, ok = FuturesTail(0.08, 1000, 0.08, 1000)
	require.True(t, ok)
	assert.Zero(t, v)

	_, ok = FuturesTail(0.08, 1000, 0, 1000)
	assert.False(t, ok, "zero denominator is undefined")
}

func TestForwardFuturesTail(t *testing.T) {
	// Branch choice uses spot notionals, ratio uses spot+forward.
	v, ok := ForwardFuturesTail(0.08, 0.01, 2000, 0.07, 0.03, 2000)
	require.True(t, ok)
	aC := (0.08 + 0.01) * 2000.0
	bC := (0.07 + 0.03) * 2000.0
	assert.InDelta(t, -(aC-bC)/bC, v, 1e-12)

	v, ok = ForwardFuturesTail(0.07, 0.01, 2000, 0.08, 0.01, 2000)
	require.True(t, ok)
	aC = (0.07 + 0.01) * 2000.0
	bC = (0.08 + 0.01) * 2000.0
	assert.InDelta(t, (bC-aC)/aC, v, 1e-12)
}
