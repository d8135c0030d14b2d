package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "realtime:"

// RedisBroker fans events out across processes over Redis Pub/Sub.
type RedisBroker struct {
	client           *redis.Client
	subscribeTimeout time.Duration
	log              *zap.Logger
}

func NewRedisBroker(client *redis.Client, subscribeTimeout time.Duration, log *zap.Logger) *RedisBroker {
	return &RedisBroker{
		client:           client,
		subscribeTimeout: subscribeTimeout,
		log:              log,
	}
}

func channelName(table string) string {
	return channelPrefix + table
}

func (b *RedisBroker) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channelName(ev.Table), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Table, err)
	}
	return nil
}

// Subscribe opens a Pub/Sub subscription on table. Confirmation happens in
// the background: the subscription reports timed_out if Redis does not
// acknowledge it within the subscribe timeout.
func (b *RedisBroker) Subscribe(ctx context.Context, table string) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &redisSubscription{
		ps:     b.client.Subscribe(ctx, channelName(table)),
		cancel: cancel,
		events: make(chan Event, eventBuffer),
		status: make(chan StatusChange, statusBuffer),
	}
	s.status <- StatusChange{Status: StatusPending}

	go s.run(ctx, b.subscribeTimeout, b.log.With(zap.String("table", table)))
	return s, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

type redisSubscription struct {
	ps     *redis.PubSub
	cancel context.CancelFunc
	events chan Event
	status chan StatusChange
	closed atomic.Bool
	once   sync.Once
}

func (s *redisSubscription) Events() <-chan Event         { return s.events }
func (s *redisSubscription) Status() <-chan StatusChange { return s.status }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		s.cancel()
		err = s.ps.Close()
	})
	return err
}

func (s *redisSubscription) run(ctx context.Context, timeout time.Duration, log *zap.Logger) {
	defer close(s.status)
	defer close(s.events)

	confirmCtx, cancel := context.WithTimeout(ctx, timeout)
	_, err := s.ps.Receive(confirmCtx)
	if err != nil && confirmCtx.Err() == context.DeadlineExceeded {
		err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	cancel()
	if err != nil {
		s.finish(err, log)
		return
	}
	s.status <- StatusChange{Status: StatusSubscribed}

	for {
		msg, err := s.ps.ReceiveMessage(ctx)
		if err != nil {
			s.finish(err, log)
			return
		}

		var ev Event
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Warn("discarding malformed realtime event", zap.Error(err))
			continue
		}

		select {
		case s.events <- ev:
		default:
			log.Warn("realtime subscriber too slow")
			_ = s.Close()
			s.status <- StatusChange{Status: StatusError, Err: ErrSlowSubscriber}
			return
		}
	}
}

func (s *redisSubscription) finish(err error, log *zap.Logger) {
	switch {
	case s.closed.Load():
		s.status <- StatusChange{Status: StatusClosed}
	case isTimeout(err):
		log.Warn("realtime subscribe timed out")
		_ = s.Close()
		s.status <- StatusChange{Status: StatusTimedOut, Err: err}
	default:
		log.Warn("realtime subscription failed", zap.Error(err))
		_ = s.Close()
		s.status <- StatusChange{Status: StatusError, Err: err}
	}
}

// isTimeout covers both context deadlines and socket read deadlines, which
// go-redis derives from the context.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
