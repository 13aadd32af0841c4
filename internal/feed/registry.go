package feed

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrDropped is returned by Get when the session was dropped while its
// widget was mounting.
var ErrDropped = errors.New("notification widget dropped for ended session")

// Registry owns one mounted widget per admin session.
type Registry struct {
	store  Store
	source EventSource
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	widgets map[string]*Widget
}

func NewRegistry(store Store, source EventSource, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		store:   store,
		source:  source,
		opts:    opts,
		logger:  logger,
		widgets: make(map[string]*Widget),
	}
}

// Get returns the session's widget, mounting it on first use.
func (r *Registry) Get(ctx context.Context, sessionID string) (*Widget, error) {
	r.mu.Lock()
	w, ok := r.widgets[sessionID]
	if !ok {
		w = NewWidget(r.store, r.source, r.opts, r.logger.With(zap.String("session_id", sessionID)))
		r.widgets[sessionID] = w
	}
	r.mu.Unlock()

	if err := w.Mount(ctx); err != nil {
		r.mu.Lock()
		if r.widgets[sessionID] == w {
			delete(r.widgets, sessionID)
		}
		r.mu.Unlock()
		return nil, err
	}

	r.mu.Lock()
	current := r.widgets[sessionID]
	r.mu.Unlock()
	if current != w {
		w.Unmount()
		return nil, ErrDropped
	}
	return w, nil
}

// Drop unmounts and forgets the session's widget.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	w, ok := r.widgets[sessionID]
	delete(r.widgets, sessionID)
	r.mu.Unlock()

	if ok {
		w.Unmount()
		r.logger.Debug("Notification widget unmounted", zap.String("session_id", sessionID))
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.widgets)
}

// CloseAll unmounts every widget.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	widgets := r.widgets
	r.widgets = make(map[string]*Widget)
	r.mu.Unlock()

	for _, w := range widgets {
		w.Unmount()
	}
}
