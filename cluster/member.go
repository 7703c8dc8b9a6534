// Package cluster owns the configuration (member set + index + logical
// time) and per-member leader-side replication bookkeeping.
package cluster

import (
	"time"

	"github.com/xmh1011/go-raft/message"
)

// Member is a cluster participant. Active members vote; passive members
// receive every committed entry but never vote; reserve members receive
// only configuration and heartbeats and are candidates for promotion;
// inactive members are placeholders.
type Member struct {
	ID      message.MemberID
	Role    message.MemberRole
	Address string
}

func (m Member) Spec() message.MemberSpec {
	return message.MemberSpec{ID: m.ID, Role: m.Role, Address: m.Address}
}

func FromSpec(s message.MemberSpec) Member {
	return Member{ID: s.ID, Role: s.Role, Address: s.Address}
}

// IsVoter reports whether the member counts toward voting quorums.
func (m Member) IsVoter() bool { return m.Role == message.RoleActive }

// PerMember is the leader-side replication bookkeeping for one follower or
// learner.
type PerMember struct {
	MatchIndex         message.Index
	NextIndex          message.Index
	NextSnapshotIndex  message.Index
	NextSnapshotOffset uint64
	InFlight           int
	FailureCount       int
	ConfigIndex        message.Index
	ConfigTerm         message.Term
	Available          bool
	LastContact        time.Time
}

// NewPerMember seeds bookkeeping for a member the leader has just learned
// about; NextIndex starts optimistically at lastLogIndex+1.
func NewPerMember(lastLogIndex message.Index) *PerMember {
	return &PerMember{
		NextIndex: lastLogIndex + 1,
		Available: true,
	}
}

// RecordFailure increments the failure counter. Logging throttling (first
// three failures, then every 100th) lives with the caller since it needs
// the member's ID for the log line.
func (p *PerMember) RecordFailure() int {
	p.FailureCount++
	p.Available = false
	return p.FailureCount
}

// RecordSuccess resets failure accounting after a successful RPC round and
// stamps LastContact, the signal a LEASE read checks for majority freshness.
func (p *PerMember) RecordSuccess() {
	p.FailureCount = 0
	p.Available = true
	p.LastContact = time.Now()
}

// ShouldLogFailure reports whether this failure should be logged: the
// first three, then every 100th thereafter.
func (p *PerMember) ShouldLogFailure() bool {
	return p.FailureCount <= 3 || p.FailureCount%100 == 0
}

// ResetSnapshotProgress restarts a stalled Install pipeline from offset 0.
func (p *PerMember) ResetSnapshotProgress() {
	p.NextSnapshotIndex = 0
	p.NextSnapshotOffset = 0
}
