package statemachine

import (
	"fmt"
	"sync"

	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
)

// Registry maps a state machine name (Session.Type in original_source) to
// the application-provided storage.StateMachine that serves it, letting one
// Raft cluster host more than one named state machine, per
// OpenSessionPayload.StateMachine.
type Registry struct {
	mu       sync.RWMutex
	machines map[string]storage.StateMachine
}

func NewRegistry() *Registry {
	return &Registry{machines: make(map[string]storage.StateMachine)}
}

func (r *Registry) Register(name string, sm storage.StateMachine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[name] = sm
}

func (r *Registry) get(name string) (storage.StateMachine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sm, ok := r.machines[name]
	if !ok {
		return nil, fmt.Errorf("no state machine registered under %q", name)
	}
	return sm, nil
}

// sessionRegistry tracks live sessions by ID, guarded separately from the
// state-machine registry since it is mutated on every command/keepalive
// while machines is essentially static after startup.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[message.SessionID]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[message.SessionID]*Session)}
}

func (s *sessionRegistry) open(id message.SessionID, name, sm string, timeout int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := newSession(id, name, sm, timeout)
	s.sessions[id] = sess
	return sess
}

func (s *sessionRegistry) get(id message.SessionID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *sessionRegistry) close(id message.SessionID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Close()
	}
}

// expireOlderThan closes and drops every session whose Timeout has elapsed
// as of now (a log-timestamp, not wall-clock, so every replica agrees),
// mirroring RaftSessionContext's expiration sweep.
func (s *sessionRegistry) expireOlderThan(now int64) []message.SessionID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []message.SessionID
	for id, sess := range s.sessions {
		if sess.expiredAt(now) {
			sess.Expire()
			expired = append(expired, id)
			delete(s.sessions, id)
		}
	}
	return expired
}
