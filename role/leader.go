package role

import (
	"time"

	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/replicate"
)

// Leader drives replication to every other member and advances the commit
// index once an entry sits on a majority of active voters. One Appender
// runs per follower/learner; a heartbeat timer ticks all of them whether or
// not they have anything new to send, keeping other roles' election timers
// from firing.
type Leader struct {
	*Base

	timer          *executor.Timer
	appenders      map[message.MemberID]*replicate.Appender
	becomeFollower func()
}

func NewLeader(base *Base, becomeFollower func()) *Leader {
	return &Leader{Base: base, appenders: make(map[message.MemberID]*replicate.Appender), becomeFollower: becomeFollower}
}

func (l *Leader) Name() string { return "LEADER" }

func (l *Leader) Open() {
	l.Ctx.SetLeader(l.Ctx.ID)
	l.appendNoOp()
	l.rebuildAppenders()
	l.tick()
}

func (l *Leader) Close() {
	if l.timer != nil {
		l.timer.Stop()
	}
}

// appendNoOp writes an entry for the new term before serving any client
// request, the standard fix for the "leader cannot know an earlier term's
// entry is committed by count alone" hazard.
func (l *Leader) appendNoOp() {
	last, _ := l.Ctx.Log.Writer().LastIndex()
	entry := message.Entry{Index: last + 1, Term: l.Ctx.CurrentTerm(), Kind: message.KindInitialize}
	_ = l.Ctx.Log.Writer().Append([]message.Entry{entry})
}

func (l *Leader) rebuildAppenders() {
	cfg := l.Ctx.Cluster.Current()
	last, _ := l.Ctx.Log.Writer().LastIndex()
	seen := make(map[message.MemberID]bool)
	for i := range cfg.Members {
		m := cfg.Members[i]
		if m.ID == l.Ctx.ID {
			continue
		}
		seen[m.ID] = true
		if _, ok := l.appenders[m.ID]; ok {
			continue
		}
		tracker := l.Ctx.Cluster.PerMember(m.ID, last)
		l.appenders[m.ID] = replicate.NewAppender(l, l.Trans, l.Ctx.Log, &cfg.Members[i], tracker, l.Ctx.Snapshot, l.Ctx.Sink)
	}
	for id := range l.appenders {
		if !seen[id] {
			delete(l.appenders, id)
			l.Ctx.Cluster.RemoveMember(id)
		}
	}
}

func (l *Leader) tick() {
	l.rebuildAppenders()
	for _, a := range l.appenders {
		a.Tick()
	}
	l.updateCommitIndex()

	if l.timer != nil {
		l.timer.Reset(l.Ctx.HeartbeatTimeout)
		return
	}
	l.timer = executor.NewTimer(l.Ctx.Protocol, l.Ctx.HeartbeatTimeout, l.tick)
}

// updateCommitIndex advances the commit index to the highest entry
// replicated to a majority of active voters, provided that entry belongs
// to the current term (the Raft safety rule against committing a previous
// leader's entries by count alone).
func (l *Leader) updateCommitIndex() {
	cfg := l.Ctx.Cluster.Current()
	last, _ := l.Ctx.Log.Writer().LastIndex()
	matchIndexOf := func(id message.MemberID) message.Index {
		if id == l.Ctx.ID {
			return last
		}
		return l.Ctx.Cluster.MatchIndex(id)
	}
	for idx := last; idx > l.Ctx.CommitIndex(); idx-- {
		entry, ok := entryAt(l.Ctx, idx)
		if !ok || entry.Term != l.Ctx.CurrentTerm() {
			continue
		}
		if cfg.Replicated(idx, matchIndexOf) {
			l.Ctx.SetCommitIndex(idx)
			break
		}
	}
}

// LeaderView implementation, consumed by replicate.Appender/InstallPipeline.

func (l *Leader) CurrentTerm() message.Term  { return l.Ctx.CurrentTerm() }
func (l *Leader) CommitIndex() message.Index { return l.Ctx.CommitIndex() }
func (l *Leader) ID() message.MemberID       { return l.Ctx.ID }
func (l *Leader) Post(fn func())             { l.Ctx.Protocol.Post(fn) }

// StepDown is invoked by an Appender on discovering a higher term in a
// peer's response.
func (l *Leader) StepDown(higherTerm message.Term) {
	l.Ctx.SetTerm(higherTerm)
	if l.becomeFollower != nil {
		l.becomeFollower()
	}
}

// Resign steps down without a term bump, for a leader that has just
// committed its own removal from the configuration: it has no peers left
// to lead and must stop ticking appenders and advancing commit index.
func (l *Leader) Resign() {
	if l.becomeFollower != nil {
		l.becomeFollower()
	}
}

// HandleVote and HandlePoll fall through to Base: a leader still grants
// votes to a legitimately higher-term candidate, at which point Base's
// SetTerm bump is observed on the next heartbeat tick and StepDown follows
// via a subsequent Append/Vote exchange rather than here directly.

// HandleAppend rejects same-term appends from another leader (should never
// happen: at most one leader per term) and defers to Base for anything
// with a genuinely higher term, stepping down first.
func (l *Leader) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	if req.Term <= l.Ctx.CurrentTerm() {
		return &message.AppendResponse{Status: message.OK(), Term: l.Ctx.CurrentTerm(), Succeeded: false}, nil
	}
	l.Ctx.SetTerm(req.Term)
	l.Ctx.SetLeader(req.Leader)
	if l.becomeFollower != nil {
		l.becomeFollower()
	}
	return appendCore(l.Ctx, req), nil
}

// Propose appends a client-originated entry and returns its index; the
// caller (statemachine.Handler, via Manager.WaitFor) is responsible for
// waiting until it is applied before replying to the client. Runs on the protocol context
// so it never races with the heartbeat tick's own log/appender access.
func (l *Leader) Propose(kind message.EntryKind, payload any) (message.Index, error) {
	var index message.Index
	var outErr error
	l.Ctx.Protocol.PostSync(func() {
		last, err := l.Ctx.Log.Writer().LastIndex()
		if err != nil {
			outErr = err
			return
		}
		entry := message.Entry{Index: last + 1, Term: l.Ctx.CurrentTerm(), Kind: kind, Payload: payload}
		if err := l.Ctx.Log.Writer().Append([]message.Entry{entry}); err != nil {
			outErr = err
			return
		}
		adoptConfiguration(l.Ctx, []message.Entry{entry})
		l.tick()
		index = entry.Index
	})
	return index, outErr
}

// HasRecentQuorum reports whether this leader has heard from a majority of
// active voters (itself included) within the election timeout, the
// freshness check a LEASE read relies on instead of a log round-trip.
func (l *Leader) HasRecentQuorum() bool {
	cfg := l.Ctx.Cluster.Current()
	now := time.Now()
	count := 0
	for _, m := range cfg.Voters() {
		if m.ID == l.Ctx.ID {
			count++
			continue
		}
		last, available := l.Ctx.Cluster.Contact(m.ID)
		if available && now.Sub(last) <= l.Ctx.ElectionTimeout {
			count++
		}
	}
	return count >= cfg.Majority()
}

// HasPendingConfiguration reports whether the current configuration has
// not yet committed, the single-change-at-a-time guard membership.Coordinator
// uses before proposing another one.
func (l *Leader) HasPendingConfiguration() bool {
	return l.Ctx.Cluster.Current().Index > l.Ctx.CommitIndex()
}

var _ replicate.LeaderView = (*Leader)(nil)
