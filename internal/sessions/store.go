package sessions

import "sync"

// Store abstracts session persistence. The default implementation is
// in-memory; the durable record of a session is the session_id column on its
// trades, so losing the registry on restart only loses lifecycle state.
type Store interface {
	Put(session *Session) error
	Get(id string) (*Session, bool)
	List() []Session
}

// Compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore is a thread-safe in-memory session store
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Put inserts or replaces a session
func (s *MemoryStore) Put(session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = *session
	return nil
}

// Get returns a copy of the session with the given id
func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	copied := session
	return &copied, true
}

// List returns copies of all stored sessions in unspecified order
func (s *MemoryStore) List() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}
