// Package notification fans out player updates to presentation subscribers.
package notification

import (
	"sync"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/podcastr/internal/app/playback"
	"github.com/osa030/podcastr/internal/app/surface"
)

const subscriptionBufferSize = 32

// Kind represents the reason an update was sent.
type Kind int

const (
	KindState  Kind = iota // Playback state changed
	KindStatus             // Adapter status changed
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Update is one notification delivered to subscribers.
type Update struct {
	SequenceNo uint64
	Kind       Kind
	Changed    playback.ChangeType
	State      playback.Snapshot
	Status     surface.Status
}

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*Update) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
	ch     chan *Update
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

// pump forwards queued updates to the stream until stopped or a send fails.
func (s *subscription) pump(onFail func(id string)) {
	for {
		select {
		case <-s.done:
			return
		case u := <-s.ch:
			if err := s.stream.Send(u); err != nil {
				zlog.Debug().Msgf("notification: send failed, dropping subscriber: id=%s error=%v", s.id, err)
				onFail(s.id)
				return
			}
		}
	}
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	sub := &subscription{
		id:     id,
		stream: stream,
		ch:     make(chan *Update, subscriptionBufferSize),
		done:   make(chan struct{}),
	}
	m.subscriptions[id] = sub
	go sub.pump(m.Unsubscribe)
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscriptions[subscriptionID]; ok {
		sub.stop()
		delete(m.subscriptions, subscriptionID)
	}
}

// nextSequenceNo returns the next sequence number.
func (m *Manager) nextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Broadcast stamps update with the next sequence number and queues it for
// every subscriber without blocking. A subscriber whose buffer is full misses
// the update and can detect the gap from the sequence numbers.
func (m *Manager) Broadcast(update *Update) {
	update.SequenceNo = m.nextSequenceNo()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscriptions {
		select {
		case sub.ch <- update:
		default:
			zlog.Warn().Msgf("notification: subscriber buffer full, dropping update: id=%s seq=%d", sub.id, update.SequenceNo)
		}
	}
}

// Send queues an update for a specific subscriber without stamping a new
// sequence number. Used for the initial state of a new subscriber.
func (m *Manager) Send(subscriptionID string, update *Update) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subscriptions[subscriptionID]
	if !ok {
		return
	}
	select {
	case sub.ch <- update:
	default:
	}
}

// SequenceNo returns the last sequence number handed out.
func (m *Manager) SequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	return m.sequenceNo
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close closes the manager and removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.subscriptions {
		sub.stop()
	}
	m.subscriptions = make(map[string]*subscription)
}
