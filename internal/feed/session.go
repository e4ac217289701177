package feed

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"snapfeed/internal/providers"
	"snapfeed/internal/structures"
)

// Session binds one ledger and one coordinator to a connected screen. Each
// screen gets its own pair, so independent screens never race on shared
// ledger state. The session context is cancelled on Close, which keeps a
// fetch that outlives its screen from starting any further work.
type Session struct {
	ID        string
	User      string
	CreatedAt time.Time

	Ledger      *Ledger
	Coordinator *Coordinator

	ctx        context.Context
	cancel     context.CancelFunc
	lastActive atomic.Time
}

func NewSession(id string, user string, gateway Gateway, conf *structures.Config, logger providers.Logger) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := NewLedger(conf.Feed.MaxContainers, logger)
	s := &Session{
		ID:          id,
		User:        user,
		CreatedAt:   time.Now(),
		Ledger:      ledger,
		Coordinator: NewCoordinator(gateway, ledger, conf, logger),
		ctx:         ctx,
		cancel:      cancel,
	}
	s.Touch()
	return s
}

// Context is cancelled when the session closes. All gateway calls made on
// behalf of the session run under it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Touch marks the session as just used, resetting its idle clock.
func (s *Session) Touch() {
	s.lastActive.Store(time.Now())
}

// IdleFor returns how long ago the session was last touched.
func (s *Session) IdleFor() time.Duration {
	return time.Since(s.lastActive.Load())
}

// Close cancels the session context. Safe to call more than once.
func (s *Session) Close() {
	s.cancel()
}

// Closed reports whether the session has been closed.
func (s *Session) Closed() bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}
