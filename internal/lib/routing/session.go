package routing

import (
	"context"
	"sync/atomic"

	"github.com/dpup/wayfinder/internal/metrics"
)

// Session guards one logical "directions" conversation against stale
// responses. Every request takes the next sequence number; a response is only
// delivered if no newer request was issued while it was in flight.
type Session struct {
	router Router
	latest atomic.Uint64
}

// NewSession creates a session that routes through router
func NewSession(router Router) *Session {
	return &Session{router: router}
}

// Begin issues the next sequence number
func (s *Session) Begin() uint64 {
	return s.latest.Add(1)
}

// IsCurrent reports whether seq is the most recently issued sequence number
func (s *Session) IsCurrent(seq uint64) bool {
	return s.latest.Load() == seq
}

// Route issues a new sequence number and routes req. It returns ErrSuperseded
// when a newer request began before this one finished, and ErrNoRoute when
// fallback is disabled and nothing was found.
func (s *Session) Route(ctx context.Context, req Request) (*Result, uint64, error) {
	seq := s.Begin()
	result := s.router.Route(ctx, req)

	if !s.IsCurrent(seq) {
		metrics.SupersededTotal.Inc()
		return nil, seq, ErrSuperseded
	}
	if result == nil {
		return nil, seq, ErrNoRoute
	}
	return result, seq, nil
}
