package session

import (
	"context"
	"sort"
	"sync"
)

// Manager keeps the live sessions of a server, one per browser tab.
type Manager struct {
	loader Loader
	opts   Options

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions read from loader.
func NewManager(loader Loader, opts Options) *Manager {
	return &Manager{
		loader:   loader,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	s, err := New(ctx, m.loader, m.opts)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Delete closes and forgets a session. It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session ids, sorted.
func (m *Manager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// OfferShard passes a shard arrival on to every live session.
func (m *Manager) OfferShard(ctx context.Context, label string) {
	for _, s := range m.snapshot() {
		if err := s.OfferShard(ctx, label); err != nil {
			m.opts.logger().Printf("docnav: offering shard %s to session %s: %v", label, s.ID, err)
		}
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
