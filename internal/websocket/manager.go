// Package websocket serves the interactive question surface: one question
// per message, streamed progress frames while the pipeline runs, and a
// bounded pool of concurrent sessions.
package websocket

import (
	"sync"
	"time"

	"trek-assistant-be/internal/pkg/logger"
	"trek-assistant-be/internal/repository/memory"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Manager bounds how many sessions run at once. Connections beyond the
// bound are refused with close code 1013 (try again later) instead of being
// queued, so a stuck pipeline can never pile up waiting sockets.
type Manager struct {
	slots    chan struct{}
	sessions *memory.SessionRepository
	logger   logger.ILogger
}

func NewManager(maxSessions int, sessions *memory.SessionRepository, log logger.ILogger) *Manager {
	if maxSessions <= 0 {
		maxSessions = 10
	}
	return &Manager{
		slots:    make(chan struct{}, maxSessions),
		sessions: sessions,
		logger:   log,
	}
}

// Acquire claims a session slot. The returned release function is safe to
// call from any exit path; the session is counted exactly once either way.
func (m *Manager) Acquire(conn *websocket.Conn) (release func(), ok bool) {
	select {
	case m.slots <- struct{}{}:
	default:
		m.logger.Warn("websocket", "connection refused, session pool full", map[string]interface{}{
			"remote_addr": conn.RemoteAddr().String(),
			"max":         cap(m.slots),
		})
		return nil, false
	}

	session := &memory.Session{
		ID:          uuid.NewString(),
		RemoteAddr:  conn.RemoteAddr().String(),
		ConnectedAt: time.Now().UTC(),
	}
	m.sessions.Save(session)

	var once sync.Once
	release = func() {
		once.Do(func() {
			m.sessions.Delete(session.ID)
			<-m.slots
		})
	}
	return release, true
}

// ActiveSessions reports how many sessions are currently registered.
func (m *Manager) ActiveSessions() int {
	return m.sessions.Count()
}
