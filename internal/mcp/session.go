package mcp

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filesystem-mcp/internal/id"
	"github.com/GriffinCanCode/filesystem-mcp/internal/types"
)

// Session is the per-connection protocol state. Requests within a session
// are handled in arrival order.
type Session struct {
	ID        string
	Transport types.Transport
	Started   time.Time

	initialized atomic.Bool
}

// Initialized reports whether the client sent its initialized notification.
func (s *Session) Initialized() bool {
	return s.initialized.Load()
}

// NewSession creates an untracked session, used by request-scoped
// transports such as plain HTTP.
func NewSession(transport types.Transport) *Session {
	return &Session{
		ID:        id.NewSessionID().String(),
		Transport: transport,
		Started:   time.Now(),
	}
}

// OpenSession starts a session on transport and counts it as active.
func (s *Server) OpenSession(transport types.Transport) *Session {
	sess := NewSession(transport)
	if s.metrics != nil {
		s.metrics.SessionOpened(string(transport))
	}
	return sess
}

// CloseSession ends a session opened with OpenSession.
func (s *Server) CloseSession(sess *Session) {
	if s.metrics != nil {
		s.metrics.SessionClosed(string(sess.Transport))
	}
	s.logger.Debug("Session closed",
		zap.String("session_id", sess.ID),
		zap.String("transport", string(sess.Transport)),
		zap.Bool("initialized", sess.Initialized()),
		zap.Duration("duration", time.Since(sess.Started)),
	)
}
