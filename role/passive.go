package role

import "github.com/xmh1011/go-raft/message"

// Passive is a non-voting learner that receives every committed entry as
// the leader replicates it, so it can be promoted to ACTIVE with a caught
// up log. It never times out and never starts an election.
type Passive struct {
	*Base
}

func NewPassive(base *Base) *Passive { return &Passive{Base: base} }

func (p *Passive) Name() string { return "PASSIVE" }
func (p *Passive) Open()        {}
func (p *Passive) Close()       {}

func (p *Passive) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	if req.Term < p.Ctx.CurrentTerm() {
		return &message.AppendResponse{Status: message.OK(), Term: p.Ctx.CurrentTerm(), Succeeded: false}, nil
	}
	p.Ctx.SetTerm(req.Term)
	p.Ctx.SetLeader(req.Leader)
	return appendCore(p.Ctx, req), nil
}

// HandleVote and HandlePoll: a learner holds no vote and reports it has
// none, rather than falling through to Base's voter logic.
func (p *Passive) HandleVote(req *message.VoteRequest) (*message.VoteResponse, error) {
	if req.Term > p.Ctx.CurrentTerm() {
		p.Ctx.SetTerm(req.Term)
	}
	return &message.VoteResponse{Status: message.OK(), Term: p.Ctx.CurrentTerm(), Voted: false}, nil
}

func (p *Passive) HandlePoll(req *message.PollRequest) (*message.PollResponse, error) {
	return &message.PollResponse{Status: message.OK(), Term: p.Ctx.CurrentTerm(), Accepted: false}, nil
}
