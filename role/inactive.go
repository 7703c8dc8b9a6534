package role

import (
	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
)

// Inactive is a placeholder role for a member that has been removed from
// the configuration but whose process is still running (or has not yet
// rejoined). It refuses Append, Vote, Poll and Install with an
// IllegalMemberState error rather than participating; every other request
// falls through to Base.
type Inactive struct {
	*Base
}

func NewInactive(base *Base) *Inactive { return &Inactive{Base: base} }

func (i *Inactive) Name() string { return "INACTIVE" }
func (i *Inactive) Open()        {}
func (i *Inactive) Close()       {}

func (i *Inactive) HandleAppend(*message.AppendRequest) (*message.AppendResponse, error) {
	return &message.AppendResponse{Status: message.Err(errkind.IllegalMemberState, "member is inactive")}, nil
}

func (i *Inactive) HandleVote(*message.VoteRequest) (*message.VoteResponse, error) {
	return &message.VoteResponse{Status: message.Err(errkind.IllegalMemberState, "member is inactive")}, nil
}

func (i *Inactive) HandlePoll(*message.PollRequest) (*message.PollResponse, error) {
	return &message.PollResponse{Status: message.Err(errkind.IllegalMemberState, "member is inactive")}, nil
}

func (i *Inactive) HandleInstall(*message.InstallRequest) (*message.InstallResponse, error) {
	return &message.InstallResponse{Status: message.Err(errkind.IllegalMemberState, "member is inactive")}, nil
}
