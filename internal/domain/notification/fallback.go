package notification

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// startFallback switches the session to polling for good. The live feed is
// never reopened afterwards.
func (e *Engine) startFallback() {
	if e.pollTicker != nil {
		return
	}
	e.feedMode = FeedFallback
	e.pollTicker = e.opts.NewTicker(e.opts.FallbackPollInterval)
	e.dirty = true
	e.log.Info("fallback polling started",
		zap.Duration("interval", e.opts.FallbackPollInterval),
		zap.Duration("window", e.opts.FallbackWindow))
}

// onPollTick queries the recent window off the loop. A tick that lands while
// the previous query is still running is skipped.
func (e *Engine) onPollTick(ctx context.Context) {
	if e.polling {
		return
	}
	e.polling = true
	since := e.opts.Now().UTC().Add(-e.opts.FallbackWindow)

	go func() {
		recs, err := e.store.ListCreatedSince(ctx, since)
		e.post(func() { e.applyPoll(recs, err) })
	}()
}

func (e *Engine) applyPoll(recs []Notification, err error) {
	e.polling = false
	if err != nil {
		e.metrics.FallbackPoll("error")
		e.log.Warn("fallback poll failed", zap.Error(err))
		return
	}
	e.metrics.FallbackPoll("ok")
	e.admitNew(recs, "poll")
}

func (e *Engine) pollC() <-chan time.Time {
	if e.pollTicker == nil {
		return nil
	}
	return e.pollTicker.C()
}
