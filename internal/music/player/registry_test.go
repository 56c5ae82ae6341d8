package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *fakeConnector, *fakeHandle) {
	handle := &fakeHandle{}
	conn := &fakeConnector{handle: handle}
	deps := Deps{
		Resolver:        &fakeResolver{},
		Voice:           conn,
		Gateway:         &fakeGateway{},
		ConnectTimeout:  time.Second,
		IdleTimeout:     time.Hour,
		RefreshInterval: time.Hour,
	}
	return NewRegistry(deps), conn, handle
}

func TestRegistryGetOrCreateReturnsSameSession(t *testing.T) {
	reg, _, _ := newTestRegistry()

	a := reg.GetOrCreate("g1")
	b := reg.GetOrCreate("g1")
	c := reg.GetOrCreate("g2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestRegistryGetMissing(t *testing.T) {
	reg, _, _ := newTestRegistry()
	_, ok := reg.Get("nope")
	assert.False(t, ok)
}

func TestRegistryStoppedSessionIsReplaced(t *testing.T) {
	reg, _, _ := newTestRegistry()

	a := reg.GetOrCreate("g1")
	a.Stop()

	b := reg.GetOrCreate("g1")
	assert.NotSame(t, a, b, "a stopped session must not be handed out again")
}

func TestRegistryStaleStopDoesNotEvictReplacement(t *testing.T) {
	reg, _, _ := newTestRegistry()

	a := reg.GetOrCreate("g1")
	// Stop in progress: marked stopped, removal not yet run.
	a.mu.Lock()
	a.stopped = true
	a.mu.Unlock()

	b := reg.GetOrCreate("g1")
	require.NotSame(t, a, b, "a stopping session must not be handed out")

	// The in-progress Stop finishing up must not remove the replacement.
	reg.remove(a)

	got, ok := reg.Get("g1")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestRegistryShutdownStopsEverything(t *testing.T) {
	reg, _, handle := newTestRegistry()

	s := reg.GetOrCreate("g1")
	require.Equal(t, EnqueueStarted, s.Enqueue(Request{
		Query:          "a",
		VoiceChannelID: "vc",
		TextChannelID:  "tc",
	}))
	require.Eventually(t, func() bool {
		return s.Status().State == StatePlaying
	}, 2*time.Second, 5*time.Millisecond)
	reg.GetOrCreate("g2")

	reg.Shutdown()

	assert.True(t, handle.isDisconnected())
	_, ok := reg.Get("g1")
	assert.False(t, ok)
	_, ok = reg.Get("g2")
	assert.False(t, ok)
}
