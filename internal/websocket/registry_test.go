package websocket

import (
	"path/filepath"
	"testing"

	"talkback-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(logger.NewZapLogger(filepath.Join(t.TempDir(), "test.log"), false))
}

func TestAddGetRemove(t *testing.T) {
	registry := newTestRegistry(t)

	_, ok := registry.Get("session-1")
	assert.False(t, ok)

	registry.Add("session-1", nil)
	_, ok = registry.Get("session-1")
	assert.True(t, ok)

	registry.Remove("session-1")
	_, ok = registry.Get("session-1")
	assert.False(t, ok)
}

func TestRemoveUnknownSessionIsIdempotent(t *testing.T) {
	registry := newTestRegistry(t)

	registry.Remove("never-added")
	registry.Remove("never-added")

	_, ok := registry.Get("never-added")
	assert.False(t, ok)
}

func TestPushToAbsentSessionReportsFalse(t *testing.T) {
	registry := newTestRegistry(t)

	assert.False(t, registry.PushJSON("ghost", map[string]string{"k": "v"}))
	assert.False(t, registry.PushBytes("ghost", []byte{0x01}))
}

func TestSessionsAreIsolated(t *testing.T) {
	registry := newTestRegistry(t)

	registry.Add("session-1", nil)
	registry.Add("session-2", nil)
	registry.Remove("session-1")

	_, ok := registry.Get("session-2")
	assert.True(t, ok)
}
