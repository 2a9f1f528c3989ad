package websocket

import (
	"encoding/json"
	"sync"

	"talkback-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
)

// Registry maps an opaque session id to its live connection handle. Entries
// are added on connection-accept and removed on disconnect. Single-process
// in-memory mapping; multi-process deployments are out of scope.
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*websocket.Conn
	logger logger.ILogger
}

func NewRegistry(log logger.ILogger) *Registry {
	return &Registry{
		conns:  make(map[string]*websocket.Conn),
		logger: log,
	}
}

func (r *Registry) Add(sessionId string, conn *websocket.Conn) {
	r.mu.Lock()
	r.conns[sessionId] = conn
	r.mu.Unlock()
	r.logger.Info("Registry", "Connection registered", map[string]interface{}{
		"session_id": sessionId,
	})
}

func (r *Registry) Get(sessionId string) (*websocket.Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[sessionId]
	return conn, ok
}

func (r *Registry) Remove(sessionId string) {
	r.mu.Lock()
	delete(r.conns, sessionId)
	r.mu.Unlock()
	r.logger.Info("Registry", "Connection removed", map[string]interface{}{
		"session_id": sessionId,
	})
}

// PushJSON delivers a JSON payload to the session's connection if present.
// Delivery is best-effort: an absent handle or a send failure is logged and
// reported as false, never an error, and must not affect the pipeline.
func (r *Registry) PushJSON(sessionId string, payload interface{}) bool {
	conn, ok := r.Get(sessionId)
	if !ok {
		return false
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("Registry", "Failed to marshal push payload", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return false
	}

	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		r.logger.Error("Registry", "Failed to push JSON over websocket", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return false
	}
	return true
}

// PushBytes delivers a raw binary payload (audio bytes) best-effort.
func (r *Registry) PushBytes(sessionId string, data []byte) bool {
	conn, ok := r.Get(sessionId)
	if !ok {
		return false
	}

	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		r.logger.Error("Registry", "Failed to push bytes over websocket", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return false
	}
	return true
}
