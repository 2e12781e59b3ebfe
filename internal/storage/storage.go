package storage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/medigen/catalyst/internal/session"
)

// Entry holds one session's state. The mutex serializes the session's
// actions so each one sees the result of the previous.
type Entry struct {
	mu    sync.Mutex
	state session.State
}

// Update runs fn with exclusive access to the state and stores its result
func (e *Entry) Update(fn func(session.State) session.State) session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = fn(e.state)
	return e.state
}

// Snapshot returns the current state
func (e *Entry) Snapshot() session.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SessionStore keeps live sessions in memory. Sessions idle for longer than
// the TTL, or pushed out by newer sessions, are evicted and onEnd is called.
type SessionStore struct {
	sessions *expirable.LRU[string, *Entry]
	now      func() time.Time
}

// New creates a store for at most size sessions
func New(size int, ttl time.Duration, onEnd func(sessionID string)) *SessionStore {
	onEvict := func(id string, _ *Entry) {
		slog.Info("Session ended", "session_id", id)
		if onEnd != nil {
			onEnd(id)
		}
	}
	return &SessionStore{
		sessions: expirable.NewLRU[string, *Entry](size, onEvict, ttl),
		now:      time.Now,
	}
}

// Create starts a new empty session
func (s *SessionStore) Create() (string, *Entry) {
	id := uuid.NewString()
	entry := &Entry{state: session.New(id, s.now())}
	s.sessions.Add(id, entry)
	slog.Info("Session created", "session_id", id)
	return id, entry
}

// Get returns a live session and extends its lifetime
func (s *SessionStore) Get(sessionID string) (*Entry, bool) {
	entry, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false
	}
	s.sessions.Add(sessionID, entry)
	return entry, true
}

// GetOrCreate returns the session for sessionID, creating a new one under a
// fresh id when it does not exist.
func (s *SessionStore) GetOrCreate(sessionID string) (string, *Entry) {
	if sessionID != "" {
		if entry, ok := s.Get(sessionID); ok {
			return sessionID, entry
		}
	}
	return s.Create()
}

// Len returns the number of live sessions
func (s *SessionStore) Len() int {
	return s.sessions.Len()
}

// Delete ends a session immediately
func (s *SessionStore) Delete(sessionID string) {
	s.sessions.Remove(sessionID)
}
