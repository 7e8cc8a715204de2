package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/loglens/loglens/pkg/domain"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := newWSHub(zap.NewNop())
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	entry := &domain.LogEntry{Message: "hello"}
	hub.OnEntryAdded(entry)

	got := <-ch
	assert.Same(t, entry, got)
}

func TestHubDropsWhenClientBufferIsFull(t *testing.T) {
	hub := newWSHub(zap.NewNop())
	ch := hub.subscribe()
	defer hub.unsubscribe(ch)

	for i := 0; i < wsClientBuffer+10; i++ {
		hub.OnEntryAdded(&domain.LogEntry{})
	}
	assert.Len(t, ch, wsClientBuffer, "overflow is dropped, never blocks")
	assert.EqualValues(t, 10, hub.dropped)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := newWSHub(zap.NewNop())
	ch := hub.subscribe()
	hub.unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)

	// A second unsubscribe is harmless.
	assert.NotPanics(t, func() { hub.unsubscribe(ch) })
}

func TestHubCloseAll(t *testing.T) {
	hub := newWSHub(zap.NewNop())
	a := hub.subscribe()
	b := hub.subscribe()
	hub.closeAll()

	_, okA := <-a
	_, okB := <-b
	require.False(t, okA)
	require.False(t, okB)

	// Publishing after shutdown reaches nobody and does not panic.
	assert.NotPanics(t, func() { hub.OnEntryAdded(&domain.LogEntry{}) })
}
