// Package feed implements the admin notification widget and the event
// source it listens to.
package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/metrics"
)

type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

const (
	SchemaPublic           = "public"
	TableAdminNotification = "admin_notifications"
)

// Event is one row-level change delivered by an EventSource.
type Event struct {
	Kind         EventKind               `json:"event"`
	Schema       string                  `json:"schema"`
	Table        string                  `json:"table"`
	Notification model.AdminNotification `json:"payload"`
}

// InsertEvent wraps a freshly inserted notification.
func InsertEvent(n model.AdminNotification) Event {
	return Event{Kind: EventInsert, Schema: SchemaPublic, Table: TableAdminNotification, Notification: n}
}

// Subscription yields events in emission order until Close. Lagged fires
// after at least one event was dropped for this subscriber.
type Subscription interface {
	Events() <-chan Event
	Lagged() <-chan struct{}
	Close()
}

type EventSource interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

var ErrHubClosed = errors.New("event hub closed")

// Hub is an in-process EventSource. Publish never blocks: a subscriber whose
// buffer is full misses the event and is signalled on Lagged.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*hubSub]struct{}
	buffer int
	closed bool
	logger *zap.Logger
}

func NewHub(buffer int, logger *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{subs: make(map[*hubSub]struct{}), buffer: buffer, logger: logger}
}

func (h *Hub) Subscribe(ctx context.Context) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	s := &hubSub{hub: h, ch: make(chan Event, h.buffer), lag: make(chan struct{}, 1)}
	h.subs[s] = struct{}{}
	return s, nil
}

// Publish fans ev out to every subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for s := range h.subs {
		select {
		case s.ch <- ev:
			metrics.IncrementNotificationEvent("delivered")
		default:
			metrics.IncrementNotificationEvent("dropped")
			h.logger.Warn("Feed subscriber is full, dropping event",
				zap.String("table", ev.Table),
				zap.Int64("notification_id", ev.Notification.ID),
			)
			select {
			case s.lag <- struct{}{}:
			default:
			}
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription; later Subscribe calls fail.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
		delete(h.subs, s)
	}
}

type hubSub struct {
	hub  *Hub
	ch   chan Event
	lag  chan struct{}
	once sync.Once
}

func (s *hubSub) Events() <-chan Event { return s.ch }

func (s *hubSub) Lagged() <-chan struct{} { return s.lag }

func (s *hubSub) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.ch)
		}
	})
}
