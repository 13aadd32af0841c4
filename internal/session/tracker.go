package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Tracker remembers when every session seen by the API expires and runs the
// end hooks once a session is logged out, rejected as dead, or swept.
type Tracker struct {
	mu      sync.Mutex
	expires map[string]time.Time
	hooks   []func(sessionID string)
	now     func() time.Time
	logger  *zap.Logger
}

func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{expires: make(map[string]time.Time), now: time.Now, logger: logger}
}

// OnEnd registers fn to run with the id of every ended session.
func (t *Tracker) OnEnd(fn func(sessionID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, fn)
}

// Touch records a live session.
func (t *Tracker) Touch(s *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expires[s.ID] = s.ExpiresAt
}

// End forgets sessionID and runs the hooks. Hooks must tolerate ids they
// never saw.
func (t *Tracker) End(sessionID string) {
	t.mu.Lock()
	delete(t.expires, sessionID)
	hooks := append([]func(string){}, t.hooks...)
	t.mu.Unlock()

	for _, fn := range hooks {
		fn(sessionID)
	}
}

// Sweep ends every tracked session past its expiry and returns how many.
func (t *Tracker) Sweep() int {
	now := t.now()

	t.mu.Lock()
	var dead []string
	for id, exp := range t.expires {
		if !now.Before(exp) {
			dead = append(dead, id)
		}
	}
	t.mu.Unlock()

	for _, id := range dead {
		t.End(id)
	}
	if len(dead) > 0 {
		t.logger.Info("Expired sessions swept", zap.Int("count", len(dead)))
	}
	return len(dead)
}

// Run sweeps every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Sweep()
		}
	}
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.expires)
}
