package role

import (
	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/message"
)

// Candidate advances the term, votes for itself, and requests votes from
// every active voter. A single election timer restarts the whole process
// with a fresh term if no majority arrives in time.
type Candidate struct {
	*Base

	timer          *executor.Timer
	votes          int
	voters         int
	electTerm      message.Term
	becomeLeader   func()
	becomeFollower func()
}

func NewCandidate(base *Base, becomeLeader, becomeFollower func()) *Candidate {
	return &Candidate{Base: base, becomeLeader: becomeLeader, becomeFollower: becomeFollower}
}

func (c *Candidate) Name() string { return "CANDIDATE" }

func (c *Candidate) Open() {
	c.startElection()
}

func (c *Candidate) Close() {
	if c.timer != nil {
		c.timer.Stop()
	}
}

func (c *Candidate) startElection() {
	c.Ctx.SetTerm(c.Ctx.CurrentTerm() + 1)
	c.electTerm = c.Ctx.CurrentTerm()
	c.Ctx.Vote(c.Ctx.ID)

	cfg := c.Ctx.Cluster.Current()
	voters := cfg.Voters()
	c.voters = len(voters)
	c.votes = 1

	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = executor.NewTimer(c.Ctx.Protocol, executor.RandomizedDuration(c.Ctx.ElectionTimeout), c.startElection)

	if c.votes*2 > c.voters {
		if c.becomeLeader != nil {
			c.becomeLeader()
		}
		return
	}

	lastIndex, lastTerm := lastLogInfo(c.Ctx)
	req := &message.VoteRequest{
		Term:         c.electTerm,
		Candidate:    c.Ctx.ID,
		LastLogIndex: lastIndex,
		LastLogTerm:  lastTerm,
	}
	for _, m := range voters {
		if m.ID == c.Ctx.ID {
			continue
		}
		go func(addr string) {
			resp, err := c.Trans.Vote(addr, req)
			if err != nil || resp == nil {
				return
			}
			c.Ctx.Protocol.Post(func() { c.onVoteResponse(resp) })
		}(m.Address)
	}
}

func (c *Candidate) onVoteResponse(resp *message.VoteResponse) {
	if resp.Term > c.Ctx.CurrentTerm() {
		c.Ctx.SetTerm(resp.Term)
		if c.becomeFollower != nil {
			c.becomeFollower()
		}
		return
	}
	if c.electTerm != c.Ctx.CurrentTerm() {
		return // stale response from an earlier election round
	}
	if !resp.Voted {
		return
	}
	c.votes++
	// Fire only on the vote that first reaches a majority.
	if c.votes*2 > c.voters && (c.votes-1)*2 <= c.voters && c.becomeLeader != nil {
		c.becomeLeader()
	}
}

// HandleAppend steps down to Follower on any append carrying a term at
// least as high as ours; a new leader has been elected.
func (c *Candidate) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	if req.Term < c.Ctx.CurrentTerm() {
		return &message.AppendResponse{Status: message.OK(), Term: c.Ctx.CurrentTerm(), Succeeded: false}, nil
	}
	c.Ctx.SetTerm(req.Term)
	c.Ctx.SetLeader(req.Leader)
	if c.becomeFollower != nil {
		c.becomeFollower()
	}
	return appendCore(c.Ctx, req), nil
}
