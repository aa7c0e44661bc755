package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/tilawa/backend/internal/model/recital"
)

// Patch describes a partial session update. Nil fields are left untouched.
type Patch struct {
	LastTranscript *string
	AppendHistory  []string
	TransportRef   *string
}

// Store is the registry of live sessions.
type Store interface {
	Create(topic, language string) string
	Get(id string) (recital.Session, bool)
	Update(id string, patch Patch) bool
	Remove(id string) bool
	EvictOlderThan(maxAge time.Duration) int
	Len() int
}

type entry struct {
	mu      sync.Mutex
	session recital.Session
}

// touch advances LastActivity without ever moving it backwards. Caller holds e.mu.
func (e *entry) touch(now time.Time) {
	if now.After(e.session.LastActivity) {
		e.session.LastActivity = now
	}
}

func (e *entry) snapshot() recital.Session {
	s := e.session
	s.History = append([]string(nil), e.session.History...)
	return s
}

// MemoryStore keeps sessions in process memory. The map is guarded by mu
// and every session carries its own lock, so work on one session never
// blocks another.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// Option customises a MemoryStore.
type Option func(*MemoryStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore builds an empty in-memory registry.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*entry),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new session and returns its identifier. The language
// is stored as given; validation belongs to the caller.
func (s *MemoryStore) Create(topic, language string) string {
	now := s.now()
	e := &entry{session: recital.Session{
		ID:           uuid.NewString(),
		Topic:        topic,
		Language:     language,
		CreatedAt:    now,
		LastActivity: now,
		History:      make([]string, 0, 16),
	}}

	s.mu.Lock()
	s.sessions[e.session.ID] = e
	s.mu.Unlock()

	return e.session.ID
}

func (s *MemoryStore) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// Get returns a snapshot of the session and refreshes its activity time.
func (s *MemoryStore) Get(id string) (recital.Session, bool) {
	e, ok := s.lookup(id)
	if !ok {
		return recital.Session{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch(s.now())
	return e.snapshot(), true
}

// Update merges patch into the session. It reports false when the session is gone.
func (s *MemoryStore) Update(id string, patch Patch) bool {
	e, ok := s.lookup(id)
	if !ok {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if patch.LastTranscript != nil {
		e.session.LastTranscript = *patch.LastTranscript
	}
	if len(patch.AppendHistory) > 0 {
		e.session.History = append(e.session.History, patch.AppendHistory...)
	}
	if patch.TransportRef != nil {
		e.session.TransportRef = *patch.TransportRef
	}
	e.touch(s.now())
	return true
}

// Remove deletes the session.
func (s *MemoryStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// EvictOlderThan removes sessions idle for longer than maxAge.
func (s *MemoryStore) EvictOlderThan(maxAge time.Duration) int {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		e.mu.Lock()
		idle := e.session.LastActivity.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
