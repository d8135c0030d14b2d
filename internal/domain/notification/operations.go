package notification

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"go.uber.org/zap"
)

const purgeTimeout = 30 * time.Second

// State returns a copy of the current state.
func (e *Engine) State(ctx context.Context) (State, error) {
	var s State
	err := e.exec(ctx, func() { s = e.snapshot() })
	return s, err
}

// MarkAsRead updates the working set first, then the store. A store failure
// is logged and the local change kept.
func (e *Engine) MarkAsRead(ctx context.Context, id string) error {
	at := e.opts.Now().UTC()
	persist := false

	err := e.exec(ctx, func() {
		i := e.indexOf(id)
		if i < 0 || e.items[i].n.IsRead {
			return
		}
		e.items[i].n.MarkRead(at)
		e.items = normalize(e.items, e.operator, &e.admins)
		e.changed()
		persist = true
	})
	if err != nil || !persist {
		return err
	}

	if err := e.store.MarkRead(ctx, []string{id}, at); err != nil {
		e.log.Error("persisting read state failed", zap.String("notification_id", id), zap.Error(err))
	}
	return nil
}

// MarkAllAsRead persists the bulk update and then mirrors it locally. With
// nothing unread it does nothing.
func (e *Engine) MarkAllAsRead(ctx context.Context) error {
	var ids []string
	err := e.exec(ctx, func() {
		for i := range e.items {
			if !e.items[i].n.IsRead {
				ids = append(ids, e.items[i].n.ID)
			}
		}
	})
	if err != nil || len(ids) == 0 {
		return err
	}

	at := e.opts.Now().UTC()
	if err := e.store.MarkRead(ctx, ids, at); err != nil {
		e.log.Error("persisting bulk read failed", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("mark all read: %w", err)
	}

	return e.exec(ctx, func() {
		for _, id := range ids {
			if i := e.indexOf(id); i >= 0 {
				e.items[i].n.MarkRead(at)
			}
		}
		e.items = normalize(e.items, e.operator, &e.admins)
		e.changed()
	})
}

// DeleteNotification removes id locally, then from the store. The store
// result is returned so the caller can react.
func (e *Engine) DeleteNotification(ctx context.Context, id string) error {
	if err := e.exec(ctx, func() { e.discard(id) }); err != nil {
		return err
	}
	if err := e.store.Delete(ctx, id); err != nil {
		e.log.Error("deleting notification failed", zap.String("notification_id", id), zap.Error(err))
		return err
	}
	return nil
}

// ClearNotifications empties the working set immediately and purges
// records past retention in the background.
func (e *Engine) ClearNotifications(ctx context.Context) error {
	if err := e.exec(ctx, func() {
		ids := make([]string, len(e.items))
		for i := range e.items {
			ids[i] = e.items[i].n.ID
		}
		e.discard(ids...)
		e.items = nil
		e.changed()
	}); err != nil {
		return err
	}

	cutoff := e.opts.Now().UTC().Add(-e.opts.Retention)
	go func() {
		purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purgeTimeout)
		defer cancel()

		deleted, err := e.store.DeleteOlderThan(purgeCtx, cutoff)
		if err != nil {
			e.log.Error("purging old notifications failed", zap.Error(err))
			return
		}
		e.log.Info("purged old notifications", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}()
	return nil
}

// ToggleSound flips sound output and returns the new setting. Disabling
// stops priority alerting at once.
func (e *Engine) ToggleSound(ctx context.Context) (bool, error) {
	var enabled bool
	err := e.exec(ctx, func() {
		e.soundEnabled = !e.soundEnabled
		enabled = e.soundEnabled
		e.changed()
	})
	return enabled, err
}

// TestSound plays cue regardless of the sound setting.
func (e *Engine) TestSound(ctx context.Context, cue SoundCue) error {
	if cue == "" {
		cue = CueGeneral
	}
	return e.exec(ctx, func() { e.presenter.play(cue) })
}

// TriggerTestNotification stores a diagnostic notification and admits it
// without waiting for the feed to echo it back.
func (e *Engine) TriggerTestNotification(ctx context.Context) (*Notification, error) {
	n := newTestNotification(e.opts.Now())
	if err := e.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create test notification: %w", err)
	}

	if err := e.exec(ctx, func() { e.admitNew([]Notification{*n}, "test") }); err != nil {
		return nil, err
	}
	return n, nil
}

func newTestNotification(now time.Time) *Notification {
	now = now.UTC()
	return &Notification{
		Type:      TypeSystem,
		Title:     "Test notification",
		Message:   "Notification center check sent at " + now.Format(time.RFC3339Nano),
		Priority:  PriorityNormal,
		CreatedAt: now,
		Metadata: datatypes.JSONMap{
			MetaSource:  "diagnostic",
			MetaSubtype: "test",
		},
	}
}
