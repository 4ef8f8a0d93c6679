package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTTL is applied when a store is created with a non-positive TTL
const DefaultTTL = 30 * time.Minute

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Session holds the credential and header state of one authenticated
// interaction with a target site.
type Session struct {
	ID        string            `json:"id"`
	TargetID  string            `json:"target_id"`
	SubjectID string            `json:"subject_id"`
	Cookies   map[string]string `json:"cookies"`
	Headers   map[string]string `json:"headers"`
	UserAgent string            `json:"user_agent"`
	CreatedAt time.Time         `json:"created_at"`
	LastUsed  time.Time         `json:"last_used"`
	ExpiresAt time.Time         `json:"expires_at"`
}

// Fields is the partial session state accepted by Create and Update
type Fields struct {
	Cookies   map[string]string
	Headers   map[string]string
	UserAgent string
}

// Store keeps sessions in memory and enforces expiry lazily on read and
// in batch via SweepExpired.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *slog.Logger

	now func() time.Time // overridable in tests
}

// NewStore creates a session store with the given default TTL
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Create stores a new session and returns its identifier. Expiry is the
// creation time plus the store TTL.
func (s *Store) Create(targetID, subjectID string, fields Fields) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sessionID := fmt.Sprintf("%s_%s_%d", targetID, subjectID, now.UnixMilli())

	sess := &Session{
		ID:        sessionID,
		TargetID:  targetID,
		SubjectID: subjectID,
		Cookies:   fields.Cookies,
		Headers:   fields.Headers,
		UserAgent: fields.UserAgent,
		CreatedAt: now,
		LastUsed:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if sess.Cookies == nil {
		sess.Cookies = make(map[string]string)
	}
	if sess.Headers == nil {
		sess.Headers = make(map[string]string)
	}
	if sess.UserAgent == "" {
		sess.UserAgent = defaultUserAgent
	}

	s.sessions[sessionID] = sess

	s.logger.Info("Created session",
		slog.String("session_id", sessionID),
		slog.String("target_id", targetID),
		slog.String("subject_id", subjectID),
	)

	return sessionID
}

// Get returns the session if present and not expired. An expired session is
// deleted as a side effect of the read. A hit refreshes LastUsed but does
// not move ExpiresAt; only Create and Extend set a new expiry.
func (s *Store) Get(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return Session{}, false
	}

	now := s.now()
	if now.After(sess.ExpiresAt) {
		delete(s.sessions, sessionID)
		s.logger.Info("Removed expired session",
			slog.String("session_id", sessionID),
		)
		return Session{}, false
	}

	sess.LastUsed = now
	return *sess, true
}

// Update merges the given fields into an existing session
func (s *Store) Update(sessionID string, fields Fields) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	if fields.Cookies != nil {
		sess.Cookies = fields.Cookies
	}
	if fields.Headers != nil {
		sess.Headers = fields.Headers
	}
	if fields.UserAgent != "" {
		sess.UserAgent = fields.UserAgent
	}
	sess.LastUsed = s.now()

	return true
}

// Extend resets the session expiry to now plus the given number of minutes.
// A non-positive value uses the default of 30 minutes.
func (s *Store) Extend(sessionID string, minutes int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return false
	}

	if minutes <= 0 {
		minutes = 30
	}

	now := s.now()
	sess.ExpiresAt = now.Add(time.Duration(minutes) * time.Minute)
	sess.LastUsed = now

	s.logger.Info("Extended session",
		slog.String("session_id", sessionID),
		slog.Int("minutes", minutes),
	)

	return true
}

// Remove deletes a session. Removing an absent session is a no-op and
// returns false.
func (s *Store) Remove(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false
	}

	delete(s.sessions, sessionID)
	s.logger.Info("Removed session",
		slog.String("session_id", sessionID),
	)

	return true
}

// SweepExpired removes every session whose expiry has passed and returns
// the number removed. Safe to call concurrently with Get and Remove.
func (s *Store) SweepExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0

	for sessionID, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, sessionID)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Cleaned up expired sessions",
			slog.Int("removed", removed),
		)
	}

	return removed
}

// Active returns the number of sessions currently held, expired or not
func (s *Store) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
