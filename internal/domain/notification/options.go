package notification

import (
	"time"

	"buildhub/internal/config"
)

// Options tunes an engine. Zero fields take the defaults.
type Options struct {
	SnapshotLimit         int
	PriorityAlertInterval time.Duration
	FallbackPollInterval  time.Duration
	FallbackWindow        time.Duration
	Retention             time.Duration
	AdminRetryInitial     time.Duration
	AdminRetryMax         time.Duration
	SoundDisabled         bool

	NewTicker TickerFactory
	Now       func() time.Time
}

func DefaultOptions() Options {
	return Options{
		SnapshotLimit:         50,
		PriorityAlertInterval: 30 * time.Second,
		FallbackPollInterval:  10 * time.Second,
		FallbackWindow:        60 * time.Second,
		Retention:             30 * 24 * time.Hour,
		AdminRetryInitial:     time.Second,
		AdminRetryMax:         time.Minute,
		NewTicker:             NewTimeTicker,
		Now:                   time.Now,
	}
}

// OptionsFromConfig maps the process configuration onto engine options.
func OptionsFromConfig(cfg config.NotificationConfig) Options {
	o := DefaultOptions()
	o.SnapshotLimit = cfg.SnapshotLimit
	o.PriorityAlertInterval = cfg.PriorityAlertInterval
	o.FallbackPollInterval = cfg.FallbackPollInterval
	o.FallbackWindow = cfg.FallbackWindow
	o.Retention = cfg.Retention
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.SnapshotLimit <= 0 {
		o.SnapshotLimit = d.SnapshotLimit
	}
	if o.PriorityAlertInterval <= 0 {
		o.PriorityAlertInterval = d.PriorityAlertInterval
	}
	if o.FallbackPollInterval <= 0 {
		o.FallbackPollInterval = d.FallbackPollInterval
	}
	if o.FallbackWindow <= 0 {
		o.FallbackWindow = d.FallbackWindow
	}
	if o.Retention <= 0 {
		o.Retention = d.Retention
	}
	if o.AdminRetryInitial <= 0 {
		o.AdminRetryInitial = d.AdminRetryInitial
	}
	if o.AdminRetryMax <= 0 {
		o.AdminRetryMax = d.AdminRetryMax
	}
	if o.NewTicker == nil {
		o.NewTicker = d.NewTicker
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	return o
}
