// Package realtime carries row change events from the persistence layer to
// live subscribers. Events are keyed by table name and event type.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// EventType is the kind of row change.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Event is a single row change on a table.
type Event struct {
	Table      string          `json:"table"`
	Type       EventType       `json:"type"`
	Record     json.RawMessage `json:"record"`
	CommitTime time.Time       `json:"commit_time"`
}

// Status is the lifecycle state of a subscription:
// pending -> subscribed -> {error, timed_out, closed}.
type Status string

const (
	StatusPending    Status = "pending"
	StatusSubscribed Status = "subscribed"
	StatusError      Status = "error"
	StatusTimedOut   Status = "timed_out"
	StatusClosed     Status = "closed"
)

// Terminal reports whether no further events follow this status.
func (s Status) Terminal() bool {
	return s == StatusError || s == StatusTimedOut || s == StatusClosed
}

// StatusChange is delivered on Subscription.Status.
type StatusChange struct {
	Status Status
	Err    error
}

// Subscription delivers events for one table until closed.
// Both channels are closed after the terminal status has been sent.
type Subscription interface {
	Events() <-chan Event
	Status() <-chan StatusChange
	Close() error
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, table string) (Subscription, error)
}

// Broker is both ends of the feed.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

var (
	ErrBrokerClosed   = errors.New("realtime broker closed")
	ErrSlowSubscriber = errors.New("subscriber too slow, events dropped")
)

// NewEvent encodes record as the payload of a change event.
func NewEvent(table string, typ EventType, record any) (Event, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Table:      table,
		Type:       typ,
		Record:     raw,
		CommitTime: time.Now().UTC(),
	}, nil
}
