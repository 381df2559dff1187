package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"classattend/internal/observability"
)

// ErrNotFound is returned for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Manager owns the open sessions, one per camera.
type Manager struct {
	cfg  Config
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewManager creates a manager. deps.Notify receives updates of every session.
func NewManager(cfg Config, deps Deps) *Manager {
	return &Manager{cfg: cfg, deps: deps, sessions: make(map[string]*Controller)}
}

// Open starts a new idle session.
func (m *Manager) Open() *Controller {
	c := NewController(uuid.NewString(), m.cfg, m.deps)
	m.mu.Lock()
	m.sessions[c.ID()] = c
	m.mu.Unlock()
	observability.ActiveSessions.Inc()
	return c
}

// Get looks a session up by id.
func (m *Manager) Get(id string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Close tears a session down and forgets it.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	c, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	c.Close()
	observability.ActiveSessions.Dec()
	return nil
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Controller)
	m.mu.Unlock()
	for _, c := range all {
		c.Close()
		observability.ActiveSessions.Dec()
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
