// Package statemachine applies committed log entries in order, routes
// client commands and queries to the registered application state machine
// for a session, and tracks per-session sequencing so a retried command
// never applies twice. Grounded on RaftSessionContext.java from
// original_source and the teacher's applyLogs/dispatchEntries sequencing in
// raft.go.
package statemachine

import (
	"github.com/xmh1011/go-raft/message"
)

// MaxCachedResults bounds how many past command results a session retains
// before the oldest are evicted regardless of acknowledgement, keeping a
// slow or vanished client from growing the cache without bound.
const MaxCachedResults = 8

// SessionState mirrors RaftSessionContext's OPEN/EXPIRED/CLOSED lifecycle.
type SessionState int

const (
	SessionOpen SessionState = iota
	SessionExpired
	SessionClosed
)

type cachedResult struct {
	sequence uint64
	result   any
	err      error
}

// Session is one client's linearizable command/query context: the sequence
// watermark that lets a retried CommandRequest be answered from cache
// instead of reapplied, plus retained event batches for resend after a
// missed Publish.
type Session struct {
	ID          message.SessionID
	Name        string
	StateMachine string
	Timeout     int64

	state        SessionState
	lastActivity int64

	requestSequence uint64
	commandSequence uint64
	lastApplied     message.Index

	results         []cachedResult
	commandLowWater uint64

	events        []message.EventBatch
	eventIndex    message.Index
	completeIndex message.Index
}

func newSession(id message.SessionID, name, sm string, timeout int64) *Session {
	return &Session{
		ID:            id,
		Name:          name,
		StateMachine:  sm,
		Timeout:       timeout,
		state:         SessionOpen,
		lastApplied:   message.Index(id),
		eventIndex:    message.Index(id),
		completeIndex: message.Index(id),
	}
}

func (s *Session) State() SessionState { return s.state }

func (s *Session) Expire() { s.state = SessionExpired }
func (s *Session) Close()  { s.state = SessionClosed }

// NextSequence reports whether seq is the command this session expects
// next, is already applied (a safe-to-answer-from-cache retry), or is out
// of order (Manager rejects it with a CommandFailure error).
func (s *Session) NextSequence(seq uint64) (isNext, isRetry bool) {
	if seq == s.commandSequence+1 {
		return true, false
	}
	if seq <= s.commandSequence {
		return false, true
	}
	return false, false
}

func (s *Session) recordCommand(seq uint64, result any, err error) {
	s.commandSequence = seq
	s.results = append(s.results, cachedResult{sequence: seq, result: result, err: err})
	if len(s.results) > MaxCachedResults {
		s.results = s.results[len(s.results)-MaxCachedResults:]
	}
}

func (s *Session) cachedResult(seq uint64) (any, error, bool) {
	for _, r := range s.results {
		if r.sequence == seq {
			return r.result, r.err, true
		}
	}
	return nil, nil, false
}

// AckCommands evicts cached results at or below sequence, called from
// KeepAliveRequest.CommandAckSeq.
func (s *Session) AckCommands(sequence uint64) {
	if sequence <= s.commandLowWater {
		return
	}
	s.commandLowWater = sequence
	kept := s.results[:0]
	for _, r := range s.results {
		if r.sequence > sequence {
			kept = append(kept, r)
		}
	}
	s.results = kept
}

// publish appends events produced while applying index to the session's
// retained batch, matching RaftSessionContext.publish/commit: one
// EventBatch per committed index that actually published something.
func (s *Session) publish(index message.Index, events []any) {
	if len(events) == 0 {
		return
	}
	if index <= s.completeIndex {
		return
	}
	previous := s.eventIndex
	s.eventIndex = index
	s.events = append(s.events, message.EventBatch{
		Session:       s.ID,
		EventIndex:    index,
		PreviousIndex: previous,
		Events:        events,
	})
}

// AckEvents discards batches at or below index, called by Manager with
// KeepAliveRequest.EventAckIndex.
func (s *Session) AckEvents(index message.Index) {
	if index > s.completeIndex {
		s.completeIndex = index
	}
	kept := s.events[:0]
	for _, b := range s.events {
		if b.EventIndex > index {
			kept = append(kept, b)
		}
	}
	s.events = kept
}

// PendingEvents returns every retained batch after index.
func (s *Session) PendingEvents(after message.Index) []message.EventBatch {
	var out []message.EventBatch
	for _, b := range s.events {
		if b.EventIndex > after {
			out = append(out, b)
		}
	}
	return out
}

// LastApplied reports the highest index this session has observed, the
// watermark a min-index query waits on.
func (s *Session) LastApplied() message.Index { return s.lastApplied }

// CommandSequence reports the last command sequence applied for this
// session, the watermark a min-sequence query waits on.
func (s *Session) CommandSequence() uint64 { return s.commandSequence }

func (s *Session) setLastApplied(index message.Index) {
	if index > s.lastApplied {
		s.lastApplied = index
	}
}

// touch records committed-entry time as the session's last-activity mark,
// used for expiration. Driven off the log's own timestamps rather than each
// replica's wall clock so every replica expires a session at the same
// point in the committed sequence.
func (s *Session) touch(now int64) {
	if now > s.lastActivity {
		s.lastActivity = now
	}
}

// expiredAt reports whether an open session's lastActivity+Timeout lies
// before now.
func (s *Session) expiredAt(now int64) bool {
	return s.state == SessionOpen && now-s.lastActivity > s.Timeout
}
