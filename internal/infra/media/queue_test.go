package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/podcastr/internal/app/surface"
)

func TestQueue_PushDoesNotWaitForConsumer(t *testing.T) {
	q := NewQueue()
	defer q.Close()

	for i := 0; i < 100; i++ {
		require.True(t, q.Push(surface.MediaEvent{Type: surface.EventTimeUpdate, Position: float64(i)}))
	}

	for i := 0; i < 100; i++ {
		select {
		case ev := <-q.Events():
			assert.Equal(t, float64(i), ev.Position)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue()
	q.Close()
	q.Close()

	assert.False(t, q.Push(surface.MediaEvent{}))
	select {
	case _, ok := <-q.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("events channel not closed")
	}
}
