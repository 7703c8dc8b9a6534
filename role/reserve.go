package role

import "github.com/xmh1011/go-raft/message"

// Reserve is a learner that has not yet been promoted to receive the log:
// it only sees heartbeats and pushed configurations, tracking the leader's
// term so it is ready to promote to PASSIVE once the coordinator decides
// it has been stable long enough.
type Reserve struct {
	*Base
}

func NewReserve(base *Base) *Reserve { return &Reserve{Base: base} }

func (r *Reserve) Name() string { return "RESERVE" }
func (r *Reserve) Open()        {}
func (r *Reserve) Close()       {}

// HandleAppend tracks leader/term from a heartbeat but never writes to the
// log; a reserve member is promoted to PASSIVE before it starts receiving
// entries.
func (r *Reserve) HandleAppend(req *message.AppendRequest) (*message.AppendResponse, error) {
	if req.Term < r.Ctx.CurrentTerm() {
		return &message.AppendResponse{Status: message.OK(), Term: r.Ctx.CurrentTerm(), Succeeded: false}, nil
	}
	r.Ctx.SetTerm(req.Term)
	r.Ctx.SetLeader(req.Leader)
	last, _ := r.Ctx.Log.Writer().LastIndex()
	return &message.AppendResponse{Status: message.OK(), Term: r.Ctx.CurrentTerm(), Succeeded: true, LastLogIndex: last}, nil
}

func (r *Reserve) HandleVote(req *message.VoteRequest) (*message.VoteResponse, error) {
	if req.Term > r.Ctx.CurrentTerm() {
		r.Ctx.SetTerm(req.Term)
	}
	return &message.VoteResponse{Status: message.OK(), Term: r.Ctx.CurrentTerm(), Voted: false}, nil
}

func (r *Reserve) HandlePoll(req *message.PollRequest) (*message.PollResponse, error) {
	return &message.PollResponse{Status: message.OK(), Term: r.Ctx.CurrentTerm(), Accepted: false}, nil
}
