package interactions

import (
	"errors"
	"sync"
	"time"
)

// ErrInFlight is returned when a token already has a running session.
var ErrInFlight = errors.New("session already in flight")

// Session tracks one deferred command between the acknowledgment and its
// completion edit.
type Session struct {
	AppID     string
	Token     string
	Command   string
	StartedAt time.Time
}

// Registry tracks in-flight sessions keyed by interaction token. A token
// maps to at most one session, which is what guarantees a single completion
// edit per acknowledgment.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Register records a session, rejecting duplicates for the same token.
func (r *Registry) Register(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[s.Token]; ok {
		return ErrInFlight
	}
	r.sessions[s.Token] = s
	return nil
}

// Deregister removes the session for token, if any.
func (r *Registry) Deregister(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// Len returns the number of in-flight sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
