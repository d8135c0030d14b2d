package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

const (
	eventBuffer  = 256
	statusBuffer = 8
)

// Hub is an in-process broker. A subscriber whose buffer is full is moved
// to the error state instead of silently losing events.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*hubSubscription]struct{} // table -> subscriptions
	closed bool
	log    *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[*hubSubscription]struct{}),
		log:  log,
	}
}

type hubSubscription struct {
	hub    *Hub
	table  string
	events chan Event
	status chan StatusChange
	failed bool
	once   sync.Once
}

func (s *hubSubscription) Events() <-chan Event         { return s.events }
func (s *hubSubscription) Status() <-chan StatusChange { return s.status }

func (s *hubSubscription) Close() error {
	s.hub.remove(s, StatusChange{Status: StatusClosed})
	return nil
}

func (s *hubSubscription) notify(sc StatusChange) {
	select {
	case s.status <- sc:
	default:
	}
}

// Subscribe registers a subscription on table. It is confirmed immediately.
func (h *Hub) Subscribe(_ context.Context, table string) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrBrokerClosed
	}

	s := &hubSubscription{
		hub:    h,
		table:  table,
		events: make(chan Event, eventBuffer),
		status: make(chan StatusChange, statusBuffer),
	}
	s.notify(StatusChange{Status: StatusPending})

	if h.subs[table] == nil {
		h.subs[table] = make(map[*hubSubscription]struct{})
	}
	h.subs[table][s] = struct{}{}

	s.notify(StatusChange{Status: StatusSubscribed})
	return s, nil
}

// Publish fans ev out to every subscriber of ev.Table.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	var slow []*hubSubscription

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrBrokerClosed
	}
	for s := range h.subs[ev.Table] {
		select {
		case s.events <- ev:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn("dropping slow realtime subscriber", zap.String("table", s.table))
		h.remove(s, StatusChange{Status: StatusError, Err: ErrSlowSubscriber})
	}
	return nil
}

// Subscribers returns the number of live subscriptions on table.
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}

// Close terminates every subscription.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	var all []*hubSubscription
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	for _, s := range all {
		s.hub.remove(s, StatusChange{Status: StatusClosed})
	}
	return nil
}

func (h *Hub) remove(s *hubSubscription, final StatusChange) {
	s.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		if set, ok := h.subs[s.table]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(h.subs, s.table)
			}
		}
		s.notify(final)
		close(s.events)
		close(s.status)
	})
}
