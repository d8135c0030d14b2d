package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, n *Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotificationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// ListRecent returns the newest limit notifications, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Notification, error) {
	list, _, err := r.List(ctx, limit, 0)
	return list, err
}

// List pages through notifications newest first and reports the total.
func (r *Repository) List(ctx context.Context, limit, offset int) ([]Notification, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&Notification{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	var list []Notification
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return list, total, nil
}

// ListCreatedSince returns notifications created at or after since, newest first.
// Bounds are compared in UTC; SQLite orders stored times as text.
func (r *Repository) ListCreatedSince(ctx context.Context, since time.Time) ([]Notification, error) {
	since = since.UTC()
	var list []Notification
	err := r.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list notifications since %s: %w", since.Format(time.RFC3339), err)
	}
	return list, nil
}

func (r *Repository) CountUnread(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Notification{}).Where("is_read = ?", false).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}

func (r *Repository) UnreadIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&Notification{}).Where("is_read = ?", false).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list unread ids: %w", err)
	}
	return ids, nil
}

// MarkRead flags the unread rows among ids and returns the rows it changed.
func (r *Repository) MarkRead(ctx context.Context, ids []string, at time.Time) ([]Notification, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	at = at.UTC()

	var changed []Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pending []string
		if err := tx.Model(&Notification{}).
			Where("id IN ? AND is_read = ?", ids, false).
			Pluck("id", &pending).Error; err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		if err := tx.Model(&Notification{}).
			Where("id IN ?", pending).
			Updates(map[string]any{"is_read": true, "read_at": at}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", pending).Find(&changed).Error
	})
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return changed, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Notification{})
	if res.Error != nil {
		return fmt.Errorf("delete notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// DeleteOlderThan removes notifications created before cutoff.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Notification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete notifications before %s: %w", cutoff.Format(time.RFC3339), res.Error)
	}
	return res.RowsAffected, nil
}
