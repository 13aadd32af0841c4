package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"brokenweave/internal/model"
	"brokenweave/pkg/metrics"
	"brokenweave/pkg/util"
)

// ErrLocked is returned when closing the panel while notifications are unread.
var ErrLocked = errors.New("notification panel is locked until all notifications are read")

type PanelState string

const (
	PanelDismissible PanelState = "dismissible"
	PanelLocked      PanelState = "locked"
)

// Store is the backend side of the widget.
type Store interface {
	Recent(ctx context.Context, limit int) ([]model.AdminNotification, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context) error
}

type Options struct {
	// Limit is how many notifications Mount loads.
	Limit int
	// MaxItems caps the kept list; older items fall off the tail.
	MaxItems int
	// CallTimeout bounds each backend call.
	CallTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = 20
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 5 * time.Second
	}
	if o.MaxItems < o.Limit {
		o.MaxItems = o.Limit * 5
	}
	return o
}

type Snapshot struct {
	Items     []model.AdminNotification `json:"items"`
	Unread    int                       `json:"unread"`
	Panel     PanelState                `json:"panel"`
	Open      bool                      `json:"open"`
	LastError string                    `json:"last_error,omitempty"`
}

// Widget keeps the newest notifications, the unread count and the panel
// state for one admin. The panel is locked open while anything is unread.
type Widget struct {
	store  Store
	source EventSource
	opts   Options
	logger *zap.Logger

	lifecycle sync.Mutex

	mu       sync.Mutex
	items    []model.AdminNotification
	seen     map[int64]struct{}
	unread   int
	open     bool
	lastErr  error
	mounted  bool
	sub      Subscription
	loopDone chan struct{}
	watchers map[chan Snapshot]struct{}
}

func NewWidget(store Store, source EventSource, opts Options, logger *zap.Logger) *Widget {
	return &Widget{
		store:    store,
		source:   source,
		opts:     opts.withDefaults(),
		logger:   logger,
		items:    []model.AdminNotification{},
		seen:     make(map[int64]struct{}),
		watchers: make(map[chan Snapshot]struct{}),
	}
}

// Mount subscribes to the event source, loads the newest notifications and
// starts applying inserts. A failed load is recorded in LastError and the
// widget stays mounted.
func (w *Widget) Mount(ctx context.Context) error {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	sub, err := w.source.Subscribe(ctx)
	if err != nil {
		return err
	}

	var items []model.AdminNotification
	loadErr := w.call(ctx, "widget_load", func(ctx context.Context) error {
		var err error
		items, err = w.store.Recent(ctx, w.opts.Limit)
		return err
	})

	w.mu.Lock()
	w.sub = sub
	w.mounted = true
	w.loopDone = make(chan struct{})
	w.lastErr = loadErr
	for _, n := range items {
		if _, dup := w.seen[n.ID]; dup {
			continue
		}
		w.seen[n.ID] = struct{}{}
		w.items = append(w.items, n)
		if !n.IsRead {
			w.unread++
		}
	}
	if w.unread > 0 {
		w.open = true
	}
	done := w.loopDone
	w.notifyLocked()
	w.mu.Unlock()

	go w.loop(sub, done)
	return nil
}

func (w *Widget) loop(sub Subscription, done chan struct{}) {
	defer close(done)
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			w.apply(ev)
		case <-sub.Lagged():
			if !w.resync(sub) {
				return
			}
		}
	}
}

// resync discards whatever is still buffered and reloads from the store, so
// inserts the source dropped show up again. It reports false once the
// subscription is closed.
func (w *Widget) resync(sub Subscription) bool {
	for drained := false; !drained; {
		select {
		case _, ok := <-sub.Events():
			if !ok {
				return false
			}
		default:
			drained = true
		}
	}

	var items []model.AdminNotification
	err := w.call(context.Background(), "widget_resync", func(ctx context.Context) error {
		var err error
		items, err = w.store.Recent(ctx, w.opts.Limit)
		return err
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	if err == nil {
		w.items = w.items[:0]
		w.seen = make(map[int64]struct{}, len(items))
		w.unread = 0
		for _, n := range items {
			if _, dup := w.seen[n.ID]; dup {
				continue
			}
			w.seen[n.ID] = struct{}{}
			w.items = append(w.items, n)
			if !n.IsRead {
				w.unread++
			}
		}
		if w.unread > 0 {
			w.open = true
		}
		metrics.IncrementNotificationEvent("resynced")
	}
	w.notifyLocked()
	return true
}

func (w *Widget) apply(ev Event) {
	if ev.Kind != EventInsert || ev.Table != TableAdminNotification {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	n := ev.Notification
	if _, dup := w.seen[n.ID]; dup {
		return
	}
	w.seen[n.ID] = struct{}{}
	w.items = append([]model.AdminNotification{n}, w.items...)
	if !n.IsRead {
		w.unread++
		w.open = true
	}
	w.trimLocked()
	metrics.IncrementNotificationEvent("applied")
	w.notifyLocked()
}

// MarkRead flips id locally and then persists it. The counter only moves for
// a loaded unread item, so repeated calls are harmless.
func (w *Widget) MarkRead(ctx context.Context, id int64) error {
	w.mu.Lock()
	for i := range w.items {
		if w.items[i].ID == id && !w.items[i].IsRead {
			w.items[i].IsRead = true
			if w.unread > 0 {
				w.unread--
			}
			break
		}
	}
	w.notifyLocked()
	w.mu.Unlock()

	return w.persist(ctx, "widget_mark_read", func(ctx context.Context) error {
		return w.store.MarkRead(ctx, id)
	})
}

// MarkAllRead flips every loaded item and zeroes the counter.
func (w *Widget) MarkAllRead(ctx context.Context) error {
	w.mu.Lock()
	for i := range w.items {
		w.items[i].IsRead = true
	}
	w.unread = 0
	w.notifyLocked()
	w.mu.Unlock()

	return w.persist(ctx, "widget_mark_all_read", w.store.MarkAllRead)
}

// persist runs a backend update and records the outcome as the visible
// error state. Local state is never rolled back.
func (w *Widget) persist(ctx context.Context, name string, fn func(context.Context) error) error {
	err := w.call(ctx, name, fn)

	w.mu.Lock()
	w.lastErr = err
	w.notifyLocked()
	w.mu.Unlock()
	return err
}

// call runs fn with the per-call timeout, retrying once on a retryable error.
func (w *Widget) call(ctx context.Context, name string, fn func(context.Context) error) error {
	attempt := func() error {
		ctx, cancel := context.WithTimeout(ctx, w.opts.CallTimeout)
		defer cancel()
		return fn(ctx)
	}

	err := attempt()
	if retryable, _ := util.IsRetryableError(err); retryable {
		w.logger.Warn("Widget backend call failed, retrying",
			zap.String("side_effect", name),
			zap.Error(err),
		)
		err = attempt()
	}

	if err != nil {
		_, errType := util.IsRetryableError(err)
		w.logger.Error("Widget backend call failed",
			zap.String("side_effect", name),
			zap.String("error_type", errType),
			zap.Error(err),
		)
		metrics.IncrementSideEffect(name, "failed")
		return err
	}
	metrics.IncrementSideEffect(name, "ok")
	return nil
}

func (w *Widget) Open() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.open = true
	w.notifyLocked()
}

// Close hides the panel, or returns ErrLocked while anything is unread.
func (w *Widget) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unread > 0 {
		return ErrLocked
	}
	w.open = false
	w.notifyLocked()
	return nil
}

func (w *Widget) Toggle() error {
	w.mu.Lock()
	open := w.open || w.unread > 0
	w.mu.Unlock()
	if open {
		return w.Close()
	}
	w.Open()
	return nil
}

func (w *Widget) Unread() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.unread
}

func (w *Widget) Panel() PanelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panelLocked()
}

func (w *Widget) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Widget) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// Watch streams a snapshot after every change, starting with the current
// one. Only the latest snapshot is kept for a slow reader. The channel is
// closed by cancel or Unmount.
func (w *Widget) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	w.mu.Lock()
	ch <- w.snapshotLocked()
	w.watchers[ch] = struct{}{}
	w.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if _, ok := w.watchers[ch]; ok {
				delete(w.watchers, ch)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Unmount unsubscribes and waits for the event loop to exit.
func (w *Widget) Unmount() {
	w.lifecycle.Lock()
	defer w.lifecycle.Unlock()

	w.mu.Lock()
	if !w.mounted {
		w.mu.Unlock()
		return
	}
	w.mounted = false
	sub, done := w.sub, w.loopDone
	w.sub = nil
	for ch := range w.watchers {
		delete(w.watchers, ch)
		close(ch)
	}
	w.mu.Unlock()

	sub.Close()
	<-done
}

// trimLocked drops the oldest items past MaxItems. An unread item that falls
// off keeps counting: the counter follows the backend, not the visible list.
func (w *Widget) trimLocked() {
	if len(w.items) <= w.opts.MaxItems {
		return
	}
	for _, n := range w.items[w.opts.MaxItems:] {
		delete(w.seen, n.ID)
	}
	clear(w.items[w.opts.MaxItems:])
	w.items = w.items[:w.opts.MaxItems]
}

func (w *Widget) panelLocked() PanelState {
	if w.unread > 0 {
		return PanelLocked
	}
	return PanelDismissible
}

func (w *Widget) snapshotLocked() Snapshot {
	s := Snapshot{
		Items:  append([]model.AdminNotification{}, w.items...),
		Unread: w.unread,
		Panel:  w.panelLocked(),
		Open:   w.open || w.unread > 0,
	}
	if w.lastErr != nil {
		s.LastError = w.lastErr.Error()
	}
	return s
}

func (w *Widget) notifyLocked() {
	if len(w.watchers) == 0 {
		return
	}
	snap := w.snapshotLocked()
	for ch := range w.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
