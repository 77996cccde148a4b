package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastReachesAllHandles(t *testing.T) {
	hub := NewHub()
	tab1 := hub.Register("alice")
	tab2 := hub.Register("alice")

	hub.Broadcast("alice", "message", "hello")

	for _, sub := range []*Subscriber{tab1, tab2} {
		ev := <-sub.Events()
		assert.Equal(t, "message", ev.Name)
		assert.Equal(t, "hello", ev.Data)
	}
}

func TestBroadcastToOfflineUserIsNoOp(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() {
		hub.Broadcast("nobody", "message", "hello")
	})
	assert.Equal(t, 0, hub.Connections("nobody"))
}

func TestUnregisterRemovesHandle(t *testing.T) {
	hub := NewHub()
	sub := hub.Register("alice")
	require.Equal(t, 1, hub.Connections("alice"))

	hub.Unregister(sub)
	assert.Equal(t, 0, hub.Connections("alice"))

	// Channel is closed so the owning handler unblocks.
	_, ok := <-sub.Events()
	assert.False(t, ok)

	// Subsequent broadcast is a silent no-op.
	assert.NotPanics(t, func() {
		hub.Broadcast("alice", "message", "late")
	})
}

func TestUnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Register("alice")

	hub.Unregister(sub)
	assert.NotPanics(t, func() {
		hub.Unregister(sub)
	})
}

func TestStalledHandleIsDroppedAlone(t *testing.T) {
	hub := NewHub()
	stalled := hub.Register("alice")
	healthy := hub.Register("alice")

	// Fill both buffers, then drain only the healthy handle.
	for i := 0; i < cap(stalled.events); i++ {
		hub.Broadcast("alice", "message", i)
	}
	for i := 0; i < cap(stalled.events); i++ {
		<-healthy.Events()
	}

	// The next broadcast overflows the stalled handle only.
	hub.Broadcast("alice", "message", "final")

	assert.Equal(t, 1, hub.Connections("alice"))
	ev := <-healthy.Events()
	assert.Equal(t, "final", ev.Data)
}

func TestRegisterAfterUnregisterStartsFresh(t *testing.T) {
	hub := NewHub()
	old := hub.Register("alice")
	hub.Unregister(old)

	fresh := hub.Register("alice")
	hub.Broadcast("alice", "message", "again")

	ev := <-fresh.Events()
	assert.Equal(t, "again", ev.Data)
}
