package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_BroadcastsToSubscribers(t *testing.T) {
	em := NewEmitter()
	defer em.Close()

	first := em.Subscribe()
	second := em.Subscribe()

	em.Emit(EventStats, &StatsSnapshot{TotalFiles: 3})

	for _, ch := range []<-chan *Event{first, second} {
		ev := <-ch
		require.Equal(t, EventStats, ev.Type)
		assert.Equal(t, 3, ev.Data.(*StatsSnapshot).TotalFiles)
		assert.False(t, ev.Time.IsZero())
	}
}

func TestEmitter_DropsWhenSubscriberFull(t *testing.T) {
	em := NewEmitter()
	defer em.Close()

	ch := em.Subscribe()

	// a slow subscriber must never block the engine
	for i := 0; i < eventBufferSize+5; i++ {
		em.Emit(EventProgress, &ProgressData{File: "f.txt"})
	}

	assert.Len(t, drainEvents(ch), eventBufferSize)
}

func TestEmitter_UnsubscribeClosesChannel(t *testing.T) {
	em := NewEmitter()
	defer em.Close()

	ch := em.Subscribe()
	em.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)

	// emitting after unsubscribe must not panic on the closed channel
	em.Emit(EventStats, &StatsSnapshot{})
}

func TestEmitter_CloseEndsAllSubscriptions(t *testing.T) {
	em := NewEmitter()
	first := em.Subscribe()
	second := em.Subscribe()

	em.Close()

	_, ok := <-first
	assert.False(t, ok)
	_, ok = <-second
	assert.False(t, ok)
}
