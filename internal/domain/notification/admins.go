package notification

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// AdminDirectory resolves administrator identities.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

// AdminSet is the engine-owned set of administrator ids. Until the first
// successful load Contains always reports false.
type AdminSet struct {
	ids    map[string]struct{}
	loaded bool
}

func (s *AdminSet) Loaded() bool {
	return s != nil && s.loaded
}

func (s *AdminSet) Contains(id string) bool {
	if !s.Loaded() {
		return false
	}
	_, ok := s.ids[id]
	return ok
}

func (s *AdminSet) replace(ids []string) {
	s.ids = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	s.loaded = true
}

type adminResult struct {
	ids []string
	err error
}

// loadAdmins retries dir until it succeeds or ctx ends. Every attempt's
// outcome is passed to report.
func loadAdmins(ctx context.Context, dir AdminDirectory, initial, max time.Duration, report func(adminResult), log *zap.Logger) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max

	ids, err := backoff.Retry(ctx, func() ([]string, error) {
		return dir.AdminIDs(ctx)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("admin lookup failed, membership check disabled",
				zap.Error(err), zap.Duration("retry_in", next))
			report(adminResult{err: err})
		}),
	)
	if err != nil {
		// only ctx cancellation ends the retry loop
		return
	}
	report(adminResult{ids: ids})
}
