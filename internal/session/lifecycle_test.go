package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_HappyPath(t *testing.T) {
	var states []State
	l := NewLifecycle(func(s State, _ string) { states = append(states, s) })

	assert.Equal(t, StateIdle, l.State())
	require.True(t, l.Begin("connecting"))
	require.True(t, l.Live("live"))

	assert.Equal(t, StateLive, l.State())
	assert.Equal(t, []State{StateConnecting, StateLive}, states, "connecting is never skipped")
}

func TestLifecycle_ConnectIsNoopWhileBusy(t *testing.T) {
	l := NewLifecycle(nil)

	require.True(t, l.Begin("first"))
	assert.False(t, l.Begin("second"), "connect while connecting is a no-op")
	assert.Equal(t, "first", l.Status())

	require.True(t, l.Live("live"))
	assert.False(t, l.Begin("third"), "connect while live is a no-op")
	assert.Equal(t, StateLive, l.State())
}

func TestLifecycle_ErrorRequiresManualRetry(t *testing.T) {
	l := NewLifecycle(nil)

	require.True(t, l.Begin("connecting"))
	require.True(t, l.Fail("token service: boom"))
	assert.Equal(t, StateError, l.State())
	assert.Equal(t, "token service: boom", l.Status())

	// the error state holds until the operator retries
	assert.True(t, l.Begin("retrying"))
	assert.Equal(t, StateConnecting, l.State())
}

func TestLifecycle_FailFromLive(t *testing.T) {
	l := NewLifecycle(nil)

	require.True(t, l.Begin("connecting"))
	require.True(t, l.Live("live"))
	require.True(t, l.Fail("user session disconnected"))
	assert.Equal(t, StateError, l.State())
}

func TestLifecycle_IllegalTransitionsRejected(t *testing.T) {
	l := NewLifecycle(nil)

	assert.False(t, l.Live("live"), "idle cannot jump to live")
	assert.False(t, l.Fail("boom"), "idle cannot fail")

	require.True(t, l.Begin("connecting"))
	require.True(t, l.Fail("boom"))
	assert.False(t, l.Live("live"), "error cannot jump to live")
	assert.False(t, l.Fail("boom again"), "error cannot fail again")
}

func TestLifecycle_TransitionSequenceRecorded(t *testing.T) {
	var seq []string
	l := NewLifecycle(func(s State, status string) {
		seq = append(seq, s.String()+":"+status)
	})

	l.Begin("fetching credentials")
	l.Fail("no route to host")
	l.Begin("retrying")
	l.Live("live in showroom-1")
	l.Reset("idle")

	assert.Equal(t, []string{
		"connecting:fetching credentials",
		"error:no route to host",
		"connecting:retrying",
		"live:live in showroom-1",
		"idle:idle",
	}, seq)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "live", StateLive.String())
	assert.Equal(t, "error", StateError.String())
	assert.Equal(t, "unknown", State(99).String())
}
