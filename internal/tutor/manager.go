// Package tutor serves the chat tutor over a WebSocket.
package tutor

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the open chat sockets of every session. A session may
// have several, one per browser tab.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the connection registered under sessionID and connID.
func (m *ConnManager) GetActive(sessionID, connID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if conns, ok := m.active[sessionID]; ok {
		return conns[connID]
	}
	return nil
}

// Register adds a connection. A different connection already registered under
// the same id is closed.
func (m *ConnManager) Register(sessionID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[sessionID]; !exists {
		m.active[sessionID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[sessionID][connID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[sessionID][connID] = conn
	slog.Debug("Chat socket registered", "session_id", sessionID, "conn_id", connID)
}

// Unregister removes a connection if it is still the registered one.
func (m *ConnManager) Unregister(sessionID, connID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conns, ok := m.active[sessionID]
	if !ok {
		return
	}
	if current, exists := conns[connID]; exists && current == conn {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(m.active, sessionID)
		}
		slog.Debug("Chat socket unregistered", "session_id", sessionID, "conn_id", connID)
	}
}

// CloseSession closes every socket of an ended session.
func (m *ConnManager) CloseSession(sessionID string) {
	m.mu.Lock()
	conns, ok := m.active[sessionID]
	delete(m.active, sessionID)
	m.mu.Unlock()
	if !ok {
		return
	}

	for connID, conn := range conns {
		_ = conn.Close(websocket.StatusGoingAway, "session ended")
		slog.Info("Chat socket closed", "session_id", sessionID, "conn_id", connID)
	}
}

// Count returns the number of open sockets of a session.
func (m *ConnManager) Count(sessionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.active[sessionID])
}
