package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"buildhub/internal/realtime"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func testLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
}

// fakeStore records every call.
type fakeStore struct {
	mu sync.Mutex

	recent    []Notification
	recentErr error
	since     []Notification
	sinceErr  error
	markErr   error
	deleteErr error
	createErr error

	sinceCalls   []time.Time
	marked       [][]string
	deleted      []string
	purgedBefore []time.Time
	created      []*Notification
}

func (s *fakeStore) ListRecent(_ context.Context, limit int) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.recent) > limit {
		return append([]Notification(nil), s.recent[:limit]...), s.recentErr
	}
	return append([]Notification(nil), s.recent...), s.recentErr
}

func (s *fakeStore) ListCreatedSince(_ context.Context, since time.Time) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinceCalls = append(s.sinceCalls, since)
	return append([]Notification(nil), s.since...), s.sinceErr
}

func (s *fakeStore) MarkRead(_ context.Context, ids []string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, append([]string(nil), ids...))
	return s.markErr
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	return s.deleteErr
}

func (s *fakeStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgedBefore = append(s.purgedBefore, cutoff)
	return 3, nil
}

func (s *fakeStore) Create(_ context.Context, n *Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if n.ID == "" {
		n.ID = "created-" + time.Now().Format("150405.000000000")
	}
	s.created = append(s.created, n)
	return nil
}

func (s *fakeStore) Marked() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.marked...)
}

func (s *fakeStore) SinceCalls() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.sinceCalls...)
}

func (s *fakeStore) Purged() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.purgedBefore...)
}

// fakeFeed hands out subscriptions whose channels the test drives.
type fakeFeed struct {
	mu   sync.Mutex
	subs []*fakeSub
	err  error
	ch   chan *fakeSub
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{ch: make(chan *fakeSub, 4)}
}

func (f *fakeFeed) Subscribe(_ context.Context, table string) (realtime.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSub{
		table:  table,
		events: make(chan realtime.Event, 16),
		status: make(chan realtime.StatusChange, 4),
	}
	f.subs = append(f.subs, s)
	f.ch <- s
	return s, nil
}

func (f *fakeFeed) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

type fakeSub struct {
	table  string
	events chan realtime.Event
	status chan realtime.StatusChange
	closed atomic.Bool
}

func (s *fakeSub) Events() <-chan realtime.Event         { return s.events }
func (s *fakeSub) Status() <-chan realtime.StatusChange { return s.status }
func (s *fakeSub) Close() error {
	s.closed.Store(true)
	return nil
}

// manualTicker only ticks when the test fires it.
type manualTicker struct {
	d       time.Duration
	c       chan time.Time
	stopped atomic.Bool
}

func (t *manualTicker) C() <-chan time.Time { return t.c }
func (t *manualTicker) Stop()               { t.stopped.Store(true) }

// fire reports whether the engine received the tick.
func (t *manualTicker) fire() bool {
	if t.stopped.Load() {
		return false
	}
	select {
	case t.c <- testNow:
		return true
	case <-time.After(200 * time.Millisecond):
		return false
	}
}

type tickerSet struct {
	mu  sync.Mutex
	all []*manualTicker
}

func (ts *tickerSet) factory(d time.Duration) Ticker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	t := &manualTicker{d: d, c: make(chan time.Time)}
	ts.all = append(ts.all, t)
	return t
}

func (ts *tickerSet) active(d time.Duration) []*manualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []*manualTicker
	for _, t := range ts.all {
		if t.d == d && !t.stopped.Load() {
			out = append(out, t)
		}
	}
	return out
}

func (ts *tickerSet) created(d time.Duration) []*manualTicker {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	var out []*manualTicker
	for _, t := range ts.all {
		if t.d == d {
			out = append(out, t)
		}
	}
	return out
}

type recordingOutput struct {
	mu     sync.Mutex
	sounds []SoundCue
	toasts []Toast
	states []State
}

func (o *recordingOutput) PlaySound(cue SoundCue) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sounds = append(o.sounds, cue)
	return nil
}

func (o *recordingOutput) ShowToast(t Toast) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.toasts = append(o.toasts, t)
}

func (o *recordingOutput) StateChanged(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, s)
}

func (o *recordingOutput) Sounds() []SoundCue {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]SoundCue(nil), o.sounds...)
}

func (o *recordingOutput) Toasts() []Toast {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Toast(nil), o.toasts...)
}

func (o *recordingOutput) count(cue SoundCue) int {
	n := 0
	for _, c := range o.Sounds() {
		if c == cue {
			n++
		}
	}
	return n
}

type staticDirectory struct {
	mu       sync.Mutex
	ids      []string
	failures int
	calls    int
}

func (d *staticDirectory) AdminIDs(context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if d.calls <= d.failures {
		return nil, errors.New("directory unavailable")
	}
	return d.ids, nil
}

func (d *staticDirectory) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type harness struct {
	t       *testing.T
	engine  *Engine
	store   *fakeStore
	feed    *fakeFeed
	dir     *staticDirectory
	out     *recordingOutput
	tickers *tickerSet
	opts    Options
	cancel  context.CancelFunc
	done    chan error
	once    sync.Once
}

type harnessOption func(h *harness, deps *Deps)

func withoutOperator() harnessOption {
	return func(_ *harness, deps *Deps) { deps.Operator = nil }
}

func withSnapshot(ns ...Notification) harnessOption {
	return func(h *harness, _ *Deps) { h.store.recent = ns }
}

func newHarness(t *testing.T, options ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		t:       t,
		store:   &fakeStore{},
		feed:    newFakeFeed(),
		dir:     &staticDirectory{ids: []string{"admin-1"}},
		out:     &recordingOutput{},
		tickers: &tickerSet{},
		done:    make(chan error, 1),
	}
	h.opts = DefaultOptions()
	h.opts.AdminRetryInitial = time.Millisecond
	h.opts.AdminRetryMax = 5 * time.Millisecond
	h.opts.NewTicker = h.tickers.factory
	h.opts.Now = func() time.Time { return testNow }

	deps := Deps{
		Store:    h.store,
		Feed:     h.feed,
		Admins:   h.dir,
		Operator: testOperator,
		Output:   h.out,
		Log:      testLogger(t),
	}
	for _, o := range options {
		o(h, &deps)
	}
	h.engine = NewEngine(deps, h.opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.engine.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.once.Do(func() {
		h.cancel()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			h.t.Error("engine did not stop")
		}
	})
}

func (h *harness) state() State {
	h.t.Helper()
	s, err := h.engine.State(context.Background())
	require.NoError(h.t, err)
	return s
}

func (h *harness) eventually(cond func(State) bool, msg string) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return cond(h.state()) }, 2*time.Second, 5*time.Millisecond, msg)
}

func (h *harness) loaded() State {
	h.t.Helper()
	h.eventually(func(s State) bool { return !s.Loading }, "snapshot never loaded")
	return h.state()
}

func (h *harness) sub() *fakeSub {
	h.t.Helper()
	select {
	case s := <-h.feed.ch:
		return s
	case <-time.After(2 * time.Second):
		h.t.Fatal("engine never subscribed")
		return nil
	}
}

func (h *harness) push(s *fakeSub, typ realtime.EventType, n Notification) {
	h.t.Helper()
	ev, err := realtime.NewEvent(Table, typ, n)
	require.NoError(h.t, err)
	s.events <- ev
}

// pushAndSettle sends n followed by a marker and waits for the marker, so
// n has been handled when it returns.
func (h *harness) pushAndSettle(s *fakeSub, typ realtime.EventType, n Notification) {
	h.t.Helper()
	h.push(s, typ, n)
	marker := Notification{ID: "marker-" + n.ID, Type: TypeSystem, Title: "marker " + n.ID, CreatedAt: testNow}
	h.push(s, realtime.EventInsert, marker)
	h.eventually(func(st State) bool { return containsID(st, marker.ID) }, "marker never arrived")
}

func containsID(s State, id string) bool {
	for _, n := range s.Notifications {
		if n.ID == id {
			return true
		}
	}
	return false
}

func stateIDs(s State) []string {
	out := make([]string, len(s.Notifications))
	for i, n := range s.Notifications {
		out[i] = n.ID
	}
	return out
}
