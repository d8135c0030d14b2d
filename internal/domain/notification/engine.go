package notification

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"buildhub/internal/realtime"

	"go.uber.org/zap"
)

// Table is the realtime topic notifications are published on.
const Table = "notifications"

// Store is the persistence the engine reads from and mirrors mutations to.
type Store interface {
	ListRecent(ctx context.Context, limit int) ([]Notification, error)
	ListCreatedSince(ctx context.Context, since time.Time) ([]Notification, error)
	MarkRead(ctx context.Context, ids []string, at time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	Create(ctx context.Context, n *Notification) error
}

// Metrics is what the engine reports. internal/metrics.Recorder implements it.
type Metrics interface {
	Admitted(source string, n int)
	Filtered(reason string)
	FeedStatus(status string)
	FallbackPoll(result string)
	PriorityAlert()
	SessionOpened()
	SessionClosed()
}

type nopMetrics struct{}

func (nopMetrics) Admitted(string, int)  {}
func (nopMetrics) Filtered(string)       {}
func (nopMetrics) FeedStatus(string)     {}
func (nopMetrics) FallbackPoll(string)   {}
func (nopMetrics) PriorityAlert()        {}
func (nopMetrics) SessionOpened()        {}
func (nopMetrics) SessionClosed()        {}

// FeedMode says how the working set is kept fresh.
type FeedMode string

const (
	FeedNone     FeedMode = "none"
	FeedLive     FeedMode = "live"
	FeedFallback FeedMode = "fallback"
)

// State is a copy of the engine's observable state.
type State struct {
	Notifications []Notification  `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
	Loading       bool            `json:"loading"`
	SoundEnabled  bool            `json:"sound_enabled"`
	Alerting      bool            `json:"alerting"`
	FeedMode      FeedMode        `json:"feed_mode"`
	FeedStatus    realtime.Status `json:"feed_status,omitempty"`
}

// Deps are the collaborators of one engine. Feed, Admins, Operator, Output
// and Metrics may be nil.
type Deps struct {
	Store    Store
	Feed     realtime.Subscriber
	Admins   AdminDirectory
	Operator *Operator
	Output   Output
	Metrics  Metrics
	Log      *zap.Logger
}

// Engine reconciles one operator session's working set. All state below is
// owned by the goroutine running Run; other goroutines reach it through
// exec and post.
type Engine struct {
	store     Store
	feed      realtime.Subscriber
	directory AdminDirectory
	operator  *Operator
	presenter presenter
	metrics   Metrics
	log       *zap.Logger
	opts      Options

	inbox   chan func()
	stopped chan struct{}
	running atomic.Bool

	items        []entry
	seq          uint64
	discarded    map[string]struct{} // deleted or cleared here; polls must not bring them back
	admins       AdminSet
	adminTried   bool
	loading      bool
	soundEnabled bool
	dirty        bool

	feedMode   FeedMode
	feedStatus realtime.Status
	feedOpened bool
	sub        realtime.Subscription
	subEvents  <-chan realtime.Event
	subStatus  <-chan realtime.StatusChange

	pollTicker  Ticker
	polling     bool
	alertTicker Ticker
}

func NewEngine(deps Deps, opts Options) *Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	if deps.Operator != nil && deps.Operator.ID != "" {
		log = log.With(zap.String("operator_id", deps.Operator.ID))
	} else {
		deps.Operator = nil
	}
	m := deps.Metrics
	if m == nil {
		m = nopMetrics{}
	}
	opts = opts.withDefaults()

	return &Engine{
		store:        deps.Store,
		feed:         deps.Feed,
		directory:    deps.Admins,
		operator:     deps.Operator,
		presenter:    presenter{out: deps.Output, log: log},
		metrics:      m,
		log:          log,
		opts:         opts,
		inbox:        make(chan func()),
		stopped:      make(chan struct{}),
		soundEnabled: !opts.SoundDisabled,
		feedMode:     FeedNone,
	}
}

// Run drives the engine until ctx is cancelled. Teardown closes the
// subscription and stops every ticker.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrEngineRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer close(e.stopped)
	defer e.teardown()

	e.metrics.SessionOpened()
	defer e.metrics.SessionClosed()

	e.loading = true
	e.dirty = true
	go e.fetchSnapshot(ctx)

	switch {
	case e.operator == nil:
		e.log.Info("no authenticated operator, live feed and self-origin filter disabled")
	case e.directory == nil:
		e.openFeed(ctx)
	default:
		go loadAdmins(ctx, e.directory, e.opts.AdminRetryInitial, e.opts.AdminRetryMax, func(r adminResult) {
			e.post(func() { e.applyAdmins(ctx, r) })
		}, e.log)
	}

	for {
		if e.dirty {
			e.dirty = false
			e.presenter.state(e.snapshot())
		}

		select {
		case <-ctx.Done():
			return nil
		case fn := <-e.inbox:
			fn()
		case ev, ok := <-e.subEvents:
			if !ok {
				e.subEvents = nil
				continue
			}
			e.handleEvent(ev)
		case sc, ok := <-e.subStatus:
			if !ok {
				e.subStatus = nil
				e.sub = nil
				continue
			}
			e.handleStatus(sc)
		case <-e.alertC():
			e.onAlertTick()
		case <-e.pollC():
			e.onPollTick(ctx)
		}
	}
}

// exec runs fn on the loop and waits for it to finish.
func (e *Engine) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.inbox <- func() { fn(); close(done) }:
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-e.stopped:
		return ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn without waiting. After teardown fn is dropped.
func (e *Engine) post(fn func()) {
	select {
	case e.inbox <- fn:
	case <-e.stopped:
	}
}

func (e *Engine) teardown() {
	e.closeSub()
	e.stopAlert()
	if e.pollTicker != nil {
		e.pollTicker.Stop()
		e.pollTicker = nil
	}
	e.log.Debug("notification engine stopped")
}

func (e *Engine) fetchSnapshot(ctx context.Context) {
	recs, err := e.store.ListRecent(ctx, e.opts.SnapshotLimit)
	e.post(func() { e.applySnapshot(recs, err) })
}

// applySnapshot appends the initial load behind anything the feed already
// delivered. Snapshot records are not announced.
func (e *Engine) applySnapshot(recs []Notification, err error) {
	e.loading = false
	e.dirty = true
	if err != nil {
		e.log.Error("initial notification load failed", zap.Error(err))
		return
	}

	added := 0
	for i := range recs {
		n := recs[i]
		if reason := admit(&n, e.operator, &e.admins); reason != "" {
			e.metrics.Filtered(reason)
			continue
		}
		if e.indexOf(n.ID) >= 0 {
			continue
		}
		e.seq++
		e.items = append(e.items, entry{n: n, seq: e.seq})
		added++
	}
	before := len(e.items)
	e.items = normalize(e.items, e.operator, &e.admins)
	for i := len(e.items); i < before; i++ {
		e.metrics.Filtered(ReasonDuplicate)
	}
	e.metrics.Admitted("snapshot", added-(before-len(e.items)))
	e.changed()
}

// applyAdmins records an admin lookup attempt. The feed opens after the
// first attempt whether or not it succeeded.
func (e *Engine) applyAdmins(ctx context.Context, r adminResult) {
	if r.err == nil {
		e.admins.replace(r.ids)
		e.log.Debug("admin set loaded", zap.Int("admins", len(r.ids)))
		e.items = normalize(e.items, e.operator, &e.admins)
		e.changed()
	}
	if !e.adminTried {
		e.adminTried = true
		e.openFeed(ctx)
	}
}

func (e *Engine) openFeed(ctx context.Context) {
	if e.feedOpened {
		return
	}
	e.feedOpened = true

	if e.feed == nil {
		e.log.Warn("no realtime feed configured, polling instead")
		e.startFallback()
		return
	}

	sub, err := e.feed.Subscribe(ctx, Table)
	if err != nil {
		e.log.Warn("realtime subscribe failed, polling instead", zap.Error(err))
		e.metrics.FeedStatus(string(realtime.StatusError))
		e.feedStatus = realtime.StatusError
		e.startFallback()
		return
	}

	e.sub = sub
	e.subEvents = sub.Events()
	e.subStatus = sub.Status()
	e.feedMode = FeedLive
	e.feedStatus = realtime.StatusPending
	e.dirty = true
}

func (e *Engine) closeSub() {
	if e.sub != nil {
		if err := e.sub.Close(); err != nil {
			e.log.Debug("closing realtime subscription", zap.Error(err))
		}
	}
	e.sub = nil
	e.subEvents = nil
	e.subStatus = nil
}

func (e *Engine) handleStatus(sc realtime.StatusChange) {
	e.metrics.FeedStatus(string(sc.Status))
	e.feedStatus = sc.Status
	e.dirty = true

	switch sc.Status {
	case realtime.StatusSubscribed:
		e.log.Info("realtime feed subscribed")
	case realtime.StatusError, realtime.StatusTimedOut:
		e.log.Warn("realtime feed failed, switching to polling",
			zap.String("status", string(sc.Status)), zap.Error(sc.Err))
		e.closeSub()
		e.startFallback()
	case realtime.StatusClosed:
		e.log.Info("realtime feed closed")
	}
}

func (e *Engine) handleEvent(ev realtime.Event) {
	var n Notification
	if err := json.Unmarshal(ev.Record, &n); err != nil || n.ID == "" {
		e.log.Warn("discarding malformed notification event",
			zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	switch ev.Type {
	case realtime.EventInsert:
		e.admitNew([]Notification{n}, "live")
	case realtime.EventUpdate:
		e.applyUpdate(n)
	case realtime.EventDelete:
		e.remove(n.ID)
	}
}

// admitNew prepends records not yet in the working set and announces the
// ones that survive filtering and dedup. recs are newest first.
func (e *Engine) admitNew(recs []Notification, source string) {
	var fresh []entry
	for i := range recs {
		n := recs[i]
		if reason := admit(&n, e.operator, &e.admins); reason != "" {
			e.metrics.Filtered(reason)
			continue
		}
		if e.indexOf(n.ID) >= 0 || indexIn(fresh, n.ID) >= 0 {
			continue
		}
		if _, gone := e.discarded[n.ID]; gone && source == "poll" {
			continue
		}
		e.seq++
		fresh = append(fresh, entry{n: n, seq: e.seq})
	}
	if len(fresh) == 0 {
		return
	}

	e.items = normalize(append(fresh, e.items...), e.operator, &e.admins)

	admitted := 0
	for i := range fresh {
		if e.indexOf(fresh[i].n.ID) < 0 {
			e.metrics.Filtered(ReasonDuplicate)
			continue
		}
		admitted++
		e.presenter.announce(&fresh[i].n, e.soundEnabled)
	}
	e.metrics.Admitted(source, admitted)
	e.changed()
}

// applyUpdate replaces a known record in place. Unknown ids are ignored so
// deleted entries are not resurrected.
func (e *Engine) applyUpdate(n Notification) {
	i := e.indexOf(n.ID)
	if i < 0 {
		return
	}
	e.items[i].n = n
	e.items = normalize(e.items, e.operator, &e.admins)
	e.changed()
}

func (e *Engine) remove(id string) bool {
	i := e.indexOf(id)
	if i < 0 {
		return false
	}
	e.items = append(e.items[:i:i], e.items[i+1:]...)
	e.changed()
	return true
}

// changed marks state for publication and re-evaluates the alert timer.
// discard removes ids from the working set and remembers them for the rest
// of the session.
func (e *Engine) discard(ids ...string) {
	if e.discarded == nil {
		e.discarded = make(map[string]struct{}, len(ids))
	}
	for _, id := range ids {
		e.discarded[id] = struct{}{}
		e.remove(id)
	}
}

func (e *Engine) changed() {
	e.dirty = true
	e.reevaluateAlert()
}

func (e *Engine) indexOf(id string) int {
	return indexIn(e.items, id)
}

func indexIn(items []entry, id string) int {
	for i := range items {
		if items[i].n.ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) unreadCount() int {
	count := 0
	for i := range e.items {
		if !e.items[i].n.IsRead {
			count++
		}
	}
	return count
}

func (e *Engine) snapshot() State {
	list := make([]Notification, len(e.items))
	for i := range e.items {
		list[i] = e.items[i].n
	}
	return State{
		Notifications: list,
		UnreadCount:   e.unreadCount(),
		Loading:       e.loading,
		SoundEnabled:  e.soundEnabled,
		Alerting:      e.alertTicker != nil,
		FeedMode:      e.feedMode,
		FeedStatus:    e.feedStatus,
	}
}
