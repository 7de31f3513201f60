// Package session keeps the in-flight publish sessions. Sessions are
// process-local: a restart drops them and the client restarts the
// publish handshake from the initiate step.
package session

import (
	"sync"
	"time"

	"github.com/pubcask/pubcask/pkg/archive"
	"github.com/pubcask/pubcask/pkg/logger"
)

// Session is one uploaded-but-not-finalized package archive, keyed by
// its opaque token.
type Session struct {
	Token     string
	Archive   *archive.PackageArchive
	CreatedAt time.Time
}

// Store is a mutex-guarded session table. Put, Get and Remove are its
// only operations; nothing outside the publish engine should reach in.
// Removal is deliberately separate from lookup so a failed finalize
// leaves the session in place for a retry.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// DefaultTTL bounds how long an abandoned upload is kept before the
// janitor sweeps it.
const DefaultTTL = time.Hour

// NewStore creates a session store. A ttl of zero falls back to
// DefaultTTL; the janitor goroutine runs until Close.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Put inserts a session under its token. The session is fully
// constructed before it becomes visible to Get.
func (s *Store) Put(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sess
}

// Get returns the session for token, or false if unknown or expired.
func (s *Store) Get(token string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || s.expired(sess) {
		return nil, false
	}
	return sess, true
}

// Remove deletes the session for token if present.
func (s *Store) Remove(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// Len reports the current number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops the janitor goroutine.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) expired(sess *Session) bool {
	return time.Since(sess.CreatedAt) > s.ttl
}

func (s *Store) janitor() {
	ticker := time.NewTicker(s.ttl / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if s.expired(sess) {
			logger.Debug("Evicting expired publish session",
				"token", token,
				"package", sess.Archive.Name,
				"version", sess.Archive.Version,
				"age", time.Since(sess.CreatedAt).String())
			delete(s.sessions, token)
		}
	}
}
