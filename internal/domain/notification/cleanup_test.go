package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPurger struct{}

func (failingPurger) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestCleanupOldNotifications(t *testing.T) {
	store := &fakeStore{}
	svc := NewCleanupService(store, testLogger(t))
	svc.now = func() time.Time { return testNow }

	deleted, err := svc.CleanupOldNotifications(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 3, deleted)
	assert.Equal(t, []time.Time{testNow.Add(-7 * 24 * time.Hour)}, store.Purged())
}

func TestCleanupOldNotifications_Error(t *testing.T) {
	svc := NewCleanupService(failingPurger{}, testLogger(t))

	_, err := svc.CleanupOldNotifications(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestScheduleCleanup(t *testing.T) {
	store := &fakeStore{}
	svc := NewCleanupService(store, testLogger(t))

	stop := svc.ScheduleCleanup(context.Background(), CleanupConfig{
		Retention:              time.Hour,
		CleanupInterval:        5 * time.Millisecond,
		EnableAutomaticCleanup: true,
	})
	require.NotNil(t, stop)

	require.Eventually(t, func() bool { return len(store.Purged()) >= 2 }, time.Second, 5*time.Millisecond)
	close(stop)
}

func TestScheduleCleanup_Disabled(t *testing.T) {
	svc := NewCleanupService(&fakeStore{}, testLogger(t))

	cfg := DefaultCleanupConfig()
	cfg.EnableAutomaticCleanup = false
	assert.Nil(t, svc.ScheduleCleanup(context.Background(), cfg))
}

func TestScheduleCleanup_StopsWithContext(t *testing.T) {
	store := &fakeStore{}
	svc := NewCleanupService(store, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	svc.ScheduleCleanup(ctx, CleanupConfig{Retention: time.Hour, CleanupInterval: 5 * time.Millisecond, EnableAutomaticCleanup: true})
	require.Eventually(t, func() bool { return len(store.Purged()) >= 1 }, time.Second, 5*time.Millisecond)
	cancel()

	time.Sleep(20 * time.Millisecond)
	n := len(store.Purged())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, len(store.Purged()))
}
