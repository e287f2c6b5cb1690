package notification

import (
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanStream struct {
	ch  chan *Update
	err error
}

func newChanStream() *chanStream {
	return &chanStream{ch: make(chan *Update, 64)}
}

func (s *chanStream) Send(u *Update) error {
	if s.err != nil {
		return s.err
	}
	s.ch <- u
	return nil
}

func receive(t *testing.T, s *chanStream) *Update {
	t.Helper()
	select {
	case u := <-s.ch:
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return nil
	}
}

func TestManager_BroadcastInOrder(t *testing.T) {
	m := NewManager()
	defer m.Close()

	a := newChanStream()
	b := newChanStream()
	m.Subscribe(a)
	m.Subscribe(b)
	assert.Equal(t, 2, m.SubscriberCount())

	for i := 0; i < 3; i++ {
		m.Broadcast(&Update{Kind: KindState})
	}

	for _, s := range []*chanStream{a, b} {
		for want := uint64(1); want <= 3; want++ {
			assert.Equal(t, want, receive(t, s).SequenceNo)
		}
	}
	assert.Equal(t, uint64(3), m.SequenceNo())
}

func TestManager_SendTargetsOneSubscriber(t *testing.T) {
	m := NewManager()
	defer m.Close()

	a := newChanStream()
	b := newChanStream()
	idA := m.Subscribe(a)
	m.Subscribe(b)

	m.Send(idA, &Update{Kind: KindStatus})
	m.Send("unknown", &Update{Kind: KindStatus})

	assert.Equal(t, KindStatus, receive(t, a).Kind)
	select {
	case <-b.ch:
		t.Fatal("unexpected update for other subscriber")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	m := NewManager()
	defer m.Close()

	id := m.Subscribe(newChanStream())
	m.Unsubscribe(id)
	m.Unsubscribe(id)

	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_FailedStreamIsDropped(t *testing.T) {
	m := NewManager()
	defer m.Close()

	s := newChanStream()
	s.err = errors.New("client gone")
	m.Subscribe(s)

	m.Broadcast(&Update{})

	require.Eventually(t, func() bool {
		return m.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestManager_ConcurrentBroadcast(t *testing.T) {
	m := NewManager()
	defer m.Close()
	m.Subscribe(newChanStream())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Broadcast(&Update{})
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(10), m.SequenceNo())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "state", KindState.String())
	assert.Equal(t, "status", KindStatus.String())
	assert.Equal(t, "unknown", Kind(9).String())
}
