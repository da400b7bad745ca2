package chat

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound indicates the session id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is one UI session: an id, its transcript and a busy flag.
type Session struct {
	id         string
	transcript *Transcript
	processing atomic.Bool

	mu       sync.Mutex
	lastSeen time.Time
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Transcript returns the session's transcript.
func (s *Session) Transcript() *Transcript { return s.transcript }

// Processing reports whether a submit is in flight for this session.
func (s *Session) Processing() bool { return s.processing.Load() }

// Begin marks the session busy. It returns false if a submit is already
// in flight.
func (s *Session) Begin() bool { return s.processing.CompareAndSwap(false, true) }

// End marks the session idle again.
func (s *Session) End() { s.processing.Store(false) }

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// NewSession creates an empty session with a fresh id.
func NewSession() *Session {
	return &Session{
		id:         uuid.NewString(),
		transcript: &Transcript{},
		lastSeen:   time.Now(),
	}
}

// Store keeps sessions in memory, keyed by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates an in-memory session store. Sessions idle for longer
// than ttl are dropped by Sweep; ttl <= 0 keeps them for the process lifetime.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Ensure returns the session for id, or creates a new empty one when id is
// empty or unknown. The returned session's id may differ from the argument.
func (s *Store) Ensure(id string) *Session {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.sessions[id]; ok {
			sess.touch(now)
			return sess
		}
	}

	sess := NewSession()
	sess.touch(now)
	s.sessions[sess.id] = sess
	return sess
}

// Get returns an existing session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	sess.touch(s.now())
	return sess, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions with a submit in flight are kept.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.Processing() {
			continue
		}
		if sess.idleSince(now) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
