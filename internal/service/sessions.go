package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cyberguard/assistant/pkg/metrics"
)

// Sessions holds one controller per user. State is kept for the lifetime of
// the process only.
type Sessions struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*Controller
	closed   bool
}

// NewSessions creates an empty session table.
func NewSessions(cfg Config) *Sessions {
	return &Sessions{
		cfg:      cfg,
		sessions: make(map[string]*Controller),
	}
}

// For returns the controller of userID, creating it on first use.
func (s *Sessions) For(userID string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if c, ok := s.sessions[userID]; ok {
		return c, nil
	}

	c := NewController(userID, s.cfg)
	s.sessions[userID] = c
	metrics.SessionsActive.Inc()
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info("session started", zap.String("user_id", userID))
	}
	return c, nil
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close shuts down every session and refuses new ones.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*Controller)
	s.mu.Unlock()

	for _, c := range sessions {
		c.Close()
		metrics.SessionsActive.Dec()
	}
}
