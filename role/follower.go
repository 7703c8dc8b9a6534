package role

import (
	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/message"
)

// Follower maintains a randomized heartbeat timer; on expiry it clears the
// leader hint and probes the cluster with a pre-vote Poll before becoming
// Candidate, the standard pre-vote extension that keeps a partitioned
// member from forcing needless term increases.
type Follower struct {
	*Base

	timer           *executor.Timer
	votes           int
	voters          int
	becomeCandidate func()
}

// NewFollower constructs a Follower. becomeCandidate is invoked (on the
// protocol context) once a majority of active voters accept this node's
// pre-vote poll.
func NewFollower(base *Base, becomeCandidate func()) *Follower {
	return &Follower{Base: base, becomeCandidate: becomeCandidate}
}

func (f *Follower) Name() string { return "FOLLOWER" }

func (f *Follower) Open() {
	f.resetTimer()
}

func (f *Follower) Close() {
	if f.timer != nil {
		f.timer.Stop()
	}
}

func (f *Follower) resetTimer() {
	if f.timer != nil {
		f.timer.Reset(executor.RandomizedDuration(f.Ctx.ElectionTimeout))
		return
	}
	f.timer = executor.NewTimer(f.Ctx.Protocol, executor.RandomizedDuration(f.Ctx.ElectionTimeout), f.onTimeout)
}

func (f *Follower) onTimeout() {
	f.Ctx.SetLeader(message.NoLeader)
	f.resetTimer()
	f.startPreVote()
}

func (f *Follower) startPreVote() {
	cfg := f.Ctx.Cluster.Current()
	voters := cfg.Voters()
	f.voters = len(voters)
	f.votes = 1 // implicit self-vote if self is a voter; harmless otherwise
	if len(voters) == 1 && voters[0].ID == f.Ctx.ID {
		// A lone voter already holds a majority with its own vote.
		if f.becomeCandidate != nil {
			f.becomeCandidate()
		}
		return
	}

	lastIndex, lastTerm := lastLogInfo(f.Ctx)
	req := &message.PollRequest{
		Term:         f.Ctx.CurrentTerm() + 1,
		Candidate:    f.Ctx.ID,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}
	for _, m := range voters {
		if m.ID == f.Ctx.ID {
			continue
		}
		go func(addr string) {
			resp, err := f.Trans.Poll(addr, req)
			if err != nil || resp == nil {
				return
			}
			f.Ctx.Protocol.Post(func() { f.onPollResponse(resp) })
		}(m.Address)
	}
}

func (f *Follower) onPollResponse(resp *message.PollResponse) {
	if resp.Term > f.Ctx.CurrentTerm() {
		f.Ctx.SetTerm(resp.Term)
		return
	}
	if !resp.Accepted {
		return
	}
	f.votes++
	// Fire only on the poll that first reaches a majority.
	if f.votes*2 > f.voters && (f.votes-1)*2 <= f.voters && f.becomeCandidate != nil {
		f.becomeCandidate()
	}
}

// HandleAppend resets the heartbeat timer on any append with a valid term,
// even if log matching fails, per the pre-vote extension's liveness rule.
func (f *Follower) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	if req.Term < f.Ctx.CurrentTerm() {
		return &message.AppendResponse{Status: message.OK(), Term: f.Ctx.CurrentTerm(), Succeeded: false}, nil
	}
	f.Ctx.SetTerm(req.Term)
	f.Ctx.SetLeader(req.Leader)
	f.resetTimer()
	return appendCore(f.Ctx, req), nil
}

func (f *Follower) HandleInstall(req *message.InstallRequest) (*message.InstallResponse, error) {
	resp, err := f.Base.HandleInstall(req)
	if err == nil && req.Term >= f.Ctx.CurrentTerm() {
		f.resetTimer()
	}
	return resp, err
}

func (f *Follower) HandleConfigure(req *message.ConfigureRequest) (*message.ConfigureResponse, error) {
	resp, err := f.Base.HandleConfigure(req)
	if err == nil {
		f.resetTimer()
	}
	return resp, err
}
