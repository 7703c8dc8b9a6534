// Package role implements the Raft role state machine as a set of small
// types sharing one Base: Inactive, Reserve, Passive, Follower, Candidate,
// and Leader. Exactly one is active in a server.Context at a time; Base
// holds the request handlers common to every role, and each role embeds it
// and overrides the behavior that differs (timers, vote-granting, append
// generation).
package role

import (
	"sync"

	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/server"
	"github.com/xmh1011/go-raft/storage"
	"github.com/xmh1011/go-raft/transport"
)

// Base implements transport.ProtocolHandler with the behavior shared by
// every role: term bookkeeping, log-matching on Append, and membership
// message routing to the membership coordinator. Roles that need
// different behavior for a given RPC (Candidate ignoring Append, Leader
// answering its own Configure, ...) override the corresponding method on
// their own type rather than Base's.
type Base struct {
	Ctx     *server.Context
	Trans   transport.Transport
	Members membership
	State   statemachine

	recvMu sync.Mutex
	recv   *installRecv
}

// statemachine is the subset of statemachine.Manager Base needs to signal a
// completed snapshot install; kept narrow for the same reason as membership.
type statemachine interface {
	InstallSnapshot(data []byte) error
}

// installRecv tracks an in-progress inbound snapshot transfer.
type installRecv struct {
	writer storage.SnapshotWriter
	id     uint64
	offset uint64
}

// membership is the subset of membership.Coordinator role handlers need,
// kept narrow so role does not import membership directly (membership
// imports role to reach *role.Leader when driving promotions).
type membership interface {
	HandleJoin(*message.JoinRequest) (*message.JoinResponse, error)
	HandleLeave(*message.LeaveRequest) (*message.LeaveResponse, error)
	HandleReconfigure(*message.ReconfigureRequest) (*message.ReconfigureResponse, error)
}

func (b *Base) HandleJoin(req *message.JoinRequest) (*message.JoinResponse, error) {
	if b.Members == nil {
		return &message.JoinResponse{Status: message.Err(errkind.ProtocolError, "membership coordinator not wired")}, nil
	}
	return b.Members.HandleJoin(req)
}

func (b *Base) HandleLeave(req *message.LeaveRequest) (*message.LeaveResponse, error) {
	if b.Members == nil {
		return &message.LeaveResponse{Status: message.Err(errkind.ProtocolError, "membership coordinator not wired")}, nil
	}
	return b.Members.HandleLeave(req)
}

func (b *Base) HandleReconfigure(req *message.ReconfigureRequest) (*message.ReconfigureResponse, error) {
	if b.Members == nil {
		return &message.ReconfigureResponse{Status: message.Err(errkind.ProtocolError, "membership coordinator not wired")}, nil
	}
	return b.Members.HandleReconfigure(req)
}

// HandleConfigure applies a leader-pushed full configuration without going
// through the log, used to bootstrap RESERVE/PASSIVE learners.
func (b *Base) HandleConfigure(req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	if req.Term < b.Ctx.CurrentTerm() {
		return &message.ConfigureResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm()}, nil
	}
	b.Ctx.SetTerm(req.Term)
	b.Ctx.SetLeader(req.Leader)
	cfg := cluster.FromSpecs(req.ConfigIndex, req.ConfigTime, req.Members)
	b.Ctx.Cluster.SetCurrent(cfg)
	return &message.ConfigureResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm()}, nil
}

// HandleVote implements the standard RequestVote rule: grant iff the
// candidate's term is current, its log is at least as up to date as ours,
// and we have not already voted for someone else this term.
func (b *Base) HandleVote(req *message.VoteRequest) (*message.VoteResponse, error) {
	if req.Term < b.Ctx.CurrentTerm() {
		return &message.VoteResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Voted: false}, nil
	}
	if req.Term > b.Ctx.CurrentTerm() {
		b.Ctx.SetTerm(req.Term)
	}
	votedFor := b.Ctx.VotedFor()
	if votedFor != message.NoLeader && votedFor != req.Candidate {
		return &message.VoteResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Voted: false}, nil
	}
	if !upToDate(b.Ctx, req.LastLogTerm, req.LastLogIndex) {
		return &message.VoteResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Voted: false}, nil
	}
	if err := b.Ctx.Vote(req.Candidate); err != nil {
		return nil, err
	}
	return &message.VoteResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Voted: true}, nil
}

// HandlePoll is a pre-vote probe: it never mutates term or voted_for.
// Acceptance requires the requester's log to be at least as up to date as
// ours. Whether we have recently heard from a leader is not considered,
// and Follower does not override this handler.
func (b *Base) HandlePoll(req *message.PollRequest) (*message.PollResponse, error) {
	if req.Term < b.Ctx.CurrentTerm() {
		return &message.PollResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Accepted: false}, nil
	}
	accepted := upToDate(b.Ctx, req.LastLogTerm, req.LastLogIndex)
	return &message.PollResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm(), Accepted: accepted}, nil
}

// appendCore implements the log-matching half of AppendEntries, shared by
// every role. Term handling and timer resets are the caller's job.
func appendCore(ctx *server.Context, req *message.AppendRequest) *message.AppendResponse {
	resp := &message.AppendResponse{Status: message.OK(), Term: ctx.CurrentTerm()}

	if req.PrevLogIndex > 0 {
		entry, ok := entryAt(ctx, req.PrevLogIndex)
		if !ok || entry.Term != req.PrevLogTerm {
			last, _ := ctx.Log.Writer().LastIndex()
			resp.Succeeded = false
			resp.LastLogIndex = last
			if ok {
				// Entry present but the wrong term: the conflict starts here.
				resp.ConflictTerm = entry.Term
				resp.ConflictIndex = req.PrevLogIndex
			} else {
				// Our log is shorter than PrevLogIndex: there is nothing to
				// disagree about yet, the leader should just retry from here.
				resp.ConflictTerm = 0
				resp.ConflictIndex = last + 1
			}
			return resp
		}
	}

	if len(req.Entries) > 0 {
		if err := ctx.Log.Writer().TruncateFrom(req.Entries[0].Index); err != nil {
			resp.Succeeded = false
			return resp
		}
		if err := ctx.Log.Writer().Append(req.Entries); err != nil {
			resp.Succeeded = false
			return resp
		}
		adoptConfiguration(ctx, req.Entries)
	}

	last, _ := ctx.Log.Writer().LastIndex()
	resp.Succeeded = true
	resp.LastLogIndex = last

	if req.CommitIndex > ctx.CommitIndex() {
		newCommit := req.CommitIndex
		if last < newCommit {
			newCommit = last
		}
		ctx.SetCommitIndex(newCommit)
	}
	return resp
}

// HandleInstall implements the follower side of snapshot installation: on a
// new (id, index) pair or offset 0, open a fresh writer; otherwise append
// to the one already in progress. On complete, commit the snapshot and hand
// the bytes to the state machine; the log prefix is not compacted.
func (b *Base) HandleInstall(req *message.InstallRequest) (*message.InstallResponse, error) {
	if req.Term < b.Ctx.CurrentTerm() {
		return &message.InstallResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm()}, nil
	}
	b.Ctx.SetTerm(req.Term)
	b.Ctx.SetLeader(req.Leader)

	b.recvMu.Lock()
	defer b.recvMu.Unlock()

	if b.recv == nil || b.recv.id != req.SnapshotID || req.Offset == 0 {
		w, err := b.Ctx.Snapshot.Create(req.SnapshotIndex, req.SnapshotTerm, req.SnapshotID)
		if err != nil {
			return nil, err
		}
		b.recv = &installRecv{writer: w, id: req.SnapshotID}
	}
	if req.Offset != b.recv.offset {
		return &message.InstallResponse{Status: message.Err(errkind.ProtocolError, "out-of-order snapshot chunk"), Term: b.Ctx.CurrentTerm()}, nil
	}
	if err := b.recv.writer.WriteAt(req.Offset, req.Data); err != nil {
		return nil, err
	}
	b.recv.offset += uint64(len(req.Data))

	if !req.Complete {
		return &message.InstallResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm()}, nil
	}

	if _, err := b.recv.writer.Commit(); err != nil {
		return nil, err
	}
	// The log prefix up to SnapshotIndex stays in place: storage.Log has
	// no compact operation, and nothing here calls memstore.Log's Compact.
	if b.State != nil {
		r, rerr := b.Ctx.Snapshot.OpenReader(storage.SnapshotHandle{ID: req.SnapshotID, Index: req.SnapshotIndex, Term: req.SnapshotTerm})
		if rerr == nil {
			data := make([]byte, 0)
			buf := make([]byte, 4096)
			for {
				n, rerr := r.Read(buf)
				if n > 0 {
					data = append(data, buf[:n]...)
				}
				if rerr != nil {
					break
				}
			}
			r.Close()
			_ = b.State.InstallSnapshot(data)
		}
	}
	b.recv = nil
	return &message.InstallResponse{Status: message.OK(), Term: b.Ctx.CurrentTerm()}, nil
}

// adoptConfiguration applies the last KindConfiguration entry in a newly
// appended batch to ctx.Cluster immediately, before that entry commits.
// This is the "uncommitted configuration in use" rule: every server
// operates under the newest configuration it has seen in its own log, not
// the newest committed one, so a membership change takes effect on every
// replica at the moment it is replicated rather than once a majority has
// acked it.
func adoptConfiguration(ctx *server.Context, entries []message.Entry) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != message.KindConfiguration {
			continue
		}
		p, ok := e.Payload.(message.ConfigurationPayload)
		if !ok {
			continue
		}
		ctx.Cluster.SetCurrent(cluster.FromSpecs(e.Index, p.Time, p.Members))
		return
	}
}

// lastLogInfo reports (lastIndex, lastTerm) for vote/poll comparisons.
func lastLogInfo(ctx *server.Context) (message.Index, message.Term) {
	idx, _ := ctx.Log.Writer().LastIndex()
	if idx == 0 {
		return 0, 0
	}
	entry, ok := entryAt(ctx, idx)
	if !ok {
		return idx, 0
	}
	return idx, entry.Term
}

// entryAt is a helper shared by Base and its embedders; memstore and any
// other storage.Log implementation expose random access through a fresh
// reader seeked to the index.
func entryAt(ctx *server.Context, idx message.Index) (message.Entry, bool) {
	r := ctx.Log.NewReader()
	r.Lock()
	defer r.Unlock()
	if err := r.Seek(idx); err != nil {
		return message.Entry{}, false
	}
	e, err := r.Current()
	if err != nil {
		return message.Entry{}, false
	}
	return e, true
}

// upToDate reports whether (candidateTerm, candidateIndex) is at least as
// up to date as this server's own last log entry.
func upToDate(ctx *server.Context, lastTerm message.Term, lastIndex message.Index) bool {
	ourIndex, ourTerm := lastLogInfo(ctx)
	if lastTerm != ourTerm {
		return lastTerm > ourTerm
	}
	return lastIndex >= ourIndex
}
