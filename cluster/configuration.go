package cluster

import (
	"sync"
	"time"

	"github.com/xmh1011/go-raft/message"
)

// Configuration is the member set in effect at a point in the log, plus the
// log index it was appended at and a logical timestamp. A server always
// operates under its latest known configuration, committed or not (the
// "uncommitted-config-in-use" rule); at most one uncommitted configuration
// may exist at a time, enforced by membership.Coordinator rather than here.
type Configuration struct {
	Index   message.Index
	Time    int64
	Members []Member
}

func (c Configuration) Spec() []message.MemberSpec {
	out := make([]message.MemberSpec, len(c.Members))
	for i, m := range c.Members {
		out[i] = m.Spec()
	}
	return out
}

func FromSpecs(index message.Index, t int64, specs []message.MemberSpec) Configuration {
	members := make([]Member, len(specs))
	for i, s := range specs {
		members[i] = FromSpec(s)
	}
	return Configuration{Index: index, Time: t, Members: members}
}

// Member looks up a member by ID.
func (c Configuration) Member(id message.MemberID) (Member, bool) {
	for _, m := range c.Members {
		if m.ID == id {
			return m, true
		}
	}
	return Member{}, false
}

// Voters returns the active (voting) members.
func (c Configuration) Voters() []Member {
	var out []Member
	for _, m := range c.Members {
		if m.IsVoter() {
			out = append(out, m)
		}
	}
	return out
}

// Majority returns the number of votes required for a majority of the
// active voters in this configuration.
func (c Configuration) Majority() int {
	return len(c.Voters())/2 + 1
}

// Replicated reports whether index is present on a majority of the active
// voters, per matchIndexOf. The caller's own match (the leader itself) must
// be included in matchIndexOf if the leader is a voter.
func (c Configuration) Replicated(index message.Index, matchIndexOf func(message.MemberID) message.Index) bool {
	count := 0
	for _, m := range c.Voters() {
		if matchIndexOf(m.ID) >= index {
			count++
		}
	}
	return count >= c.Majority()
}

// State is the goroutine-safe holder for the current (possibly uncommitted)
// configuration plus per-member leader bookkeeping. It is mutated only on
// the protocol execution context; the mutex exists to let other contexts
// take read-only snapshots.
type State struct {
	mu      sync.RWMutex
	current Configuration
	members map[message.MemberID]*PerMember
}

func NewState(initial Configuration) *State {
	s := &State{current: initial, members: make(map[message.MemberID]*PerMember)}
	return s
}

func (s *State) Current() Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *State) SetCurrent(cfg Configuration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = cfg
}

// PerMember returns (creating if absent) the bookkeeping for id.
func (s *State) PerMember(id message.MemberID, lastLogIndex message.Index) *PerMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	pm, ok := s.members[id]
	if !ok {
		pm = NewPerMember(lastLogIndex)
		s.members[id] = pm
	}
	return pm
}

// RemoveMember drops bookkeeping for a member that has left the cluster.
func (s *State) RemoveMember(id message.MemberID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, id)
}

// MatchIndex returns the last known replicated index for id (0 if unknown).
func (s *State) MatchIndex(id message.MemberID) message.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pm, ok := s.members[id]; ok {
		return pm.MatchIndex
	}
	return 0
}

// Contact reports whether id is currently marked available and, if so, when
// it last acknowledged a leader RPC. Used by LEASE reads to judge whether
// the leader has heard from a majority recently enough to answer locally.
func (s *State) Contact(id message.MemberID) (last time.Time, available bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pm, ok := s.members[id]; ok {
		return pm.LastContact, pm.Available
	}
	return time.Time{}, false
}
