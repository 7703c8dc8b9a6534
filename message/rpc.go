package message

import "github.com/xmh1011/go-raft/errkind"

// VoteRequest is the standard RequestVote RPC.
type VoteRequest struct {
	Term         Term
	Candidate    MemberID
	LastLogIndex Index
	LastLogTerm  Term
}

type VoteResponse struct {
	Status ResponseStatus
	Term   Term
	Voted  bool
}

// PollRequest is a pre-vote probe: it never increments the candidate's term
// and never causes the receiver to change its vote.
type PollRequest struct {
	Term         Term
	Candidate    MemberID
	LastLogIndex Index
	LastLogTerm  Term
}

type PollResponse struct {
	Status   ResponseStatus
	Term     Term
	Accepted bool
}

// AppendRequest is AppendEntries: a possibly-empty batch of entries plus a
// heartbeat when Entries is empty.
type AppendRequest struct {
	Term         Term
	Leader       MemberID
	PrevLogIndex Index
	PrevLogTerm  Term
	Entries      []Entry
	CommitIndex  Index
}

type AppendResponse struct {
	Status        ResponseStatus
	Term          Term
	Succeeded     bool
	LastLogIndex  Index
	ConflictIndex Index
	ConflictTerm  Term
}

// InstallRequest carries one chunk of a snapshot.
type InstallRequest struct {
	Term            Term
	Leader          MemberID
	SnapshotID      uint64
	SnapshotIndex   Index
	SnapshotTerm    Term
	Offset          uint64
	Data            []byte
	Complete        bool
}

type InstallResponse struct {
	Status ResponseStatus
	Term   Term
}

// ConfigureRequest pushes a full configuration to a member without going
// through the log (used to bootstrap RESERVE/PASSIVE learners with the
// current member set).
type ConfigureRequest struct {
	Term         Term
	Leader       MemberID
	ConfigIndex  Index
	ConfigTime   int64
	Members      []MemberSpec
}

type ConfigureResponse struct {
	Status ResponseStatus
	Term   Term
}

// ResponseStatus is OK or an error kind carried in the response.
type ResponseStatus struct {
	OK      bool
	Kind    errkind.Kind
	Message string
}

func OK() ResponseStatus { return ResponseStatus{OK: true} }

func Err(kind errkind.Kind, format string, args ...any) ResponseStatus {
	e := errkind.New(kind, format, args...)
	return ResponseStatus{OK: false, Kind: e.Kind, Message: e.Message}
}
