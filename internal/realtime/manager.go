// Package realtime serves chat sessions over WebSocket.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnManager tracks the live socket for each visitor tab. A tab holds at
// most one socket; a newer one replaces the older.
type ConnManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnManager creates an empty connection manager.
func NewConnManager() *ConnManager {
	return &ConnManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register records conn for the tab and closes any socket it replaces.
func (m *ConnManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Debug("Chat socket registered", "user_id", userID, "session_id", sessionID)
}

// Unregister forgets conn if it is still the tab's current socket.
func (m *ConnManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Debug("Chat socket unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// CloseAll closes every live socket. Used on shutdown, since hijacked
// connections are not closed by http.Server.Shutdown.
func (m *ConnManager) CloseAll(reason string) {
	m.mu.Lock()
	active := m.active
	m.active = make(map[string]map[string]*websocket.Conn)
	m.mu.Unlock()

	for userID, sessions := range active {
		for sid, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, reason)
			slog.Debug("Chat socket closed", "user_id", userID, "session_id", sid)
		}
	}
}

// Count returns the number of live sockets.
func (m *ConnManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, sessions := range m.active {
		n += len(sessions)
	}
	return n
}
