package notification

import (
	"context"
	"time"

	"buildhub/internal/realtime"

	"go.uber.org/zap"
)

// Service persists notifications and emits a change event for every write
// so live sessions can follow along.
type Service struct {
	repo *Repository
	pub  realtime.Publisher
	log  *zap.Logger
}

func NewService(repo *Repository, pub realtime.Publisher, log *zap.Logger) *Service {
	return &Service{repo: repo, pub: pub, log: log}
}

func (s *Service) Create(ctx context.Context, n *Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return err
	}
	s.publish(ctx, realtime.EventInsert, n)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*Notification, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *Service) ListCreatedSince(ctx context.Context, since time.Time) ([]Notification, error) {
	return s.repo.ListCreatedSince(ctx, since)
}

// List returns a page, the unread total and the overall total.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Notification, int64, int64, error) {
	list, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, 0, err
	}
	unread, err := s.repo.CountUnread(ctx)
	if err != nil {
		return nil, 0, 0, err
	}
	return list, unread, total, nil
}

func (s *Service) UnreadCount(ctx context.Context) (int64, error) {
	return s.repo.CountUnread(ctx)
}

func (s *Service) MarkRead(ctx context.Context, ids []string, at time.Time) error {
	changed, err := s.repo.MarkRead(ctx, ids, at)
	if err != nil {
		return err
	}
	for i := range changed {
		s.publish(ctx, realtime.EventUpdate, &changed[i])
	}
	return nil
}

// MarkAllRead flags every unread notification and returns how many changed.
func (s *Service) MarkAllRead(ctx context.Context) (int, error) {
	ids, err := s.repo.UnreadIDs(ctx)
	if err != nil || len(ids) == 0 {
		return 0, err
	}
	if err := s.MarkRead(ctx, ids, time.Now().UTC()); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, realtime.EventDelete, &Notification{ID: id})
	return nil
}

// DeleteOlderThan is the retention sweep. It is not published: sessions
// drop aged records on their next load.
func (s *Service) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.repo.DeleteOlderThan(ctx, cutoff)
}

// publish is best effort. The write already succeeded and subscribers that
// miss it catch up through fallback polling or the next load.
func (s *Service) publish(ctx context.Context, typ realtime.EventType, n *Notification) {
	if s.pub == nil {
		return
	}
	ev, err := realtime.NewEvent(Table, typ, n)
	if err == nil {
		err = s.pub.Publish(ctx, ev)
	}
	if err != nil {
		s.log.Warn("publishing notification change failed",
			zap.String("type", string(typ)), zap.String("notification_id", n.ID), zap.Error(err))
	}
}
