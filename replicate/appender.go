// Package replicate implements the leader-side per-member replication
// pipeline: Appender drives AppendEntries for one follower or learner,
// switching to InstallPipeline when the follower has fallen behind the
// leader's log start. Grounded on the teacher's sendAppendEntries /
// replicateLogsToPeer goroutine-per-peer pattern, generalized to run its
// continuations through an executor.Context instead of a bare goroutine +
// mutex.
package replicate

import (
	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
	"github.com/xmh1011/go-raft/transport"
)

// MaxBatchSize bounds how many entries an Append batches before splitting,
// mirroring AbstractAppender's MAX_BATCH_SIZE.
const MaxBatchSize = 32 * 1024

// MaxInFlight is the number of pipelined Append requests permitted per
// follower before the appender waits for a response (K in AbstractAppender
// pipelining). The source leaves the exact value unspecified; 1 keeps
// ordering trivial to reason about and is revisited if throughput demands
// otherwise.
const MaxInFlight = 1

// LeaderView is the subset of server.Context an Appender needs. Kept as an
// interface so replicate does not import server (server owns role, which
// owns replicate's callers), avoiding an import cycle.
type LeaderView interface {
	CurrentTerm() message.Term
	CommitIndex() message.Index
	ID() message.MemberID
	StepDown(higherTerm message.Term)
	Post(func())
}

// Appender drives replication to one member. Member owns the leader-side
// bookkeeping (next_index, match_index, failure counts); Appender only
// reads and updates it.
type Appender struct {
	view    LeaderView
	trans   transport.Transport
	log     storage.Log
	member  *cluster.Member
	tracker *cluster.PerMember
	sink    logging.Sink

	install *InstallPipeline
	sending bool
}

func NewAppender(view LeaderView, trans transport.Transport, log storage.Log, member *cluster.Member, tracker *cluster.PerMember, snap storage.SnapshotStore, sink logging.Sink) *Appender {
	if sink == nil {
		sink = logging.Discard()
	}
	return &Appender{
		view:    view,
		trans:   trans,
		log:     log,
		member:  member,
		tracker: tracker,
		sink:    logging.Tagged{Sink: sink, Tag: "Log Replication"},
		install: NewInstallPipeline(view, trans, snap, member, tracker, sink),
	}
}

// Tick is invoked once per heartbeat interval, or immediately after a
// successful response, to send the next batch (or heartbeat) to this
// member.
func (a *Appender) Tick() {
	if a.sending || a.tracker.InFlight >= MaxInFlight {
		return
	}

	firstIndex, err := a.log.Writer().FirstIndex()
	if err != nil {
		a.sink.Printf("member %d: failed to read log start: %v", a.member.ID, err)
		return
	}
	if a.tracker.NextIndex < firstIndex {
		a.sending = true
		a.tracker.InFlight++
		a.install.Start(a.onInstallDone)
		return
	}

	prevIndex := a.tracker.NextIndex - 1
	prevTerm := a.termAt(prevIndex)

	// A member with outstanding failures gets a heartbeat-only Append
	// instead of a fresh batch, mirroring AbstractAppender's
	// buildAppendRequest: don't pile more unacknowledged entries onto a
	// follower we can't currently reach or agree with yet.
	var entries []message.Entry
	if a.tracker.FailureCount == 0 && a.tracker.Available {
		entries = a.batch(a.tracker.NextIndex)
	}

	req := &message.AppendRequest{
		Term:         a.view.CurrentTerm(),
		Leader:       a.view.ID(),
		PrevLogIndex: prevIndex,
		PrevLogTerm:  prevTerm,
		Entries:      entries,
		CommitIndex:  a.view.CommitIndex(),
	}

	a.sending = true
	a.tracker.InFlight++
	go func() {
		resp, err := a.trans.Append(a.member.Address, req)
		a.view.Post(func() { a.onResponse(req, resp, err) })
	}()
}

func (a *Appender) onInstallDone(ok bool) {
	a.sending = false
	a.tracker.InFlight--
	if ok {
		a.tracker.RecordSuccess()
	} else {
		a.tracker.RecordFailure()
	}
}

func (a *Appender) onResponse(req *message.AppendRequest, resp *message.AppendResponse, err error) {
	a.sending = false
	a.tracker.InFlight--

	if err != nil || resp == nil {
		n := a.tracker.RecordFailure()
		if a.tracker.ShouldLogFailure() {
			a.sink.Printf("member %d: append failed (%d): %v", a.member.ID, n, err)
		}
		return
	}
	if resp.Term > a.view.CurrentTerm() {
		a.view.StepDown(resp.Term)
		return
	}
	if resp.Succeeded {
		newNext := req.PrevLogIndex + message.Index(len(req.Entries)) + 1
		a.tracker.NextIndex = newNext
		a.tracker.MatchIndex = newNext - 1
		a.tracker.RecordSuccess()
		if a.tracker.NextIndex <= a.lastLogIndex() {
			a.Tick()
		}
		return
	}

	// Log mismatch: fast-backtrack to the follower-reported conflict term's
	// last occurrence in our own log, or to its ConflictIndex if we never
	// had that term at all.
	hint := a.backtrackHint(resp)
	a.tracker.NextIndex = hint
	if a.tracker.MatchIndex >= hint {
		a.tracker.MatchIndex = hint - 1
	}
	n := a.tracker.RecordFailure()
	if a.tracker.ShouldLogFailure() {
		a.sink.Printf("member %d: log mismatch, retry from %d (failure %d)", a.member.ID, hint, n)
	}
	a.Tick()
}

// backtrackHint implements the fast-backtrack optimization: if our log
// still holds an entry at resp.ConflictTerm, retry from just past its last
// occurrence; otherwise the follower's whole ConflictTerm run is foreign to
// us and we retry from resp.ConflictIndex directly. If the follower's own
// log doesn't even reach our retained log start, retry from just past its
// reported LastLogIndex rather than resending our whole retained log.
func (a *Appender) backtrackHint(resp *message.AppendResponse) message.Index {
	firstIndex, _ := a.log.Writer().FirstIndex()
	if resp.ConflictTerm == 0 {
		if resp.ConflictIndex < firstIndex {
			return resp.LastLogIndex + 1
		}
		return resp.ConflictIndex
	}

	last := a.lastLogIndex()
	r := a.log.NewReader()
	r.Lock()
	defer r.Unlock()
	for idx := last; idx >= firstIndex && idx > 0; idx-- {
		if err := r.Seek(idx); err != nil {
			break
		}
		e, err := r.Current()
		if err != nil {
			break
		}
		if e.Term == resp.ConflictTerm {
			return idx + 1
		}
		if e.Term < resp.ConflictTerm {
			break
		}
	}
	if resp.ConflictIndex < firstIndex {
		return resp.LastLogIndex + 1
	}
	return resp.ConflictIndex
}

func (a *Appender) lastLogIndex() message.Index {
	idx, _ := a.log.Writer().LastIndex()
	return idx
}

func (a *Appender) termAt(index message.Index) message.Term {
	if index == 0 {
		return 0
	}
	r := a.log.NewReader()
	r.Lock()
	defer r.Unlock()
	if err := r.Seek(index); err != nil {
		return 0
	}
	e, err := r.Current()
	if err != nil {
		return 0
	}
	return e.Term
}

// batch reads sequential entries from index, stopping at MaxBatchSize
// bytes (approximated by entry count here, since payload sizes are
// application-defined) or at a compacted (nil-payload) slot, which
// triggers the caller's snapshot cut-over on the next Tick.
func (a *Appender) batch(from message.Index) []message.Entry {
	last := a.lastLogIndex()
	if from > last {
		return nil
	}
	r := a.log.NewReader()
	r.Lock()
	defer r.Unlock()
	if err := r.Seek(from); err != nil {
		return nil
	}
	var out []message.Entry
	for idx := from; idx <= last && len(out) < MaxBatchSize; idx++ {
		e, err := r.Current()
		if err != nil {
			break
		}
		if e.Payload == nil {
			break
		}
		out = append(out, e)
		r.Next()
	}
	return out
}
