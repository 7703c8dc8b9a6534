package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/message"
)

func TestPassive_Name(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	p := NewPassive(&Base{Ctx: ctx})
	assert.Equal(t, "PASSIVE", p.Name())
}

func TestPassive_HandleAppend_WritesLikeAFollower(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	p := NewPassive(&Base{Ctx: ctx})

	resp, err := p.HandleAppend(&message.AppendRequest{
		Term: 1, Leader: 2,
		Entries:     []message.Entry{{Index: 1, Term: 1}},
		CommitIndex: 1,
	})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded)
	assert.Equal(t, message.Index(1), ctx.CommitIndex())
}

func TestPassive_HandleAppend_RejectsLowerTerm(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(5)
	require.NoError(t, err)
	p := NewPassive(&Base{Ctx: ctx})

	resp, err := p.HandleAppend(&message.AppendRequest{Term: 1})
	require.NoError(t, err)
	assert.False(t, resp.Succeeded)
}

func TestPassive_NeverVotesOrAcceptsPolls(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	p := NewPassive(&Base{Ctx: ctx})

	voteResp, err := p.HandleVote(&message.VoteRequest{Term: 1, Candidate: 2})
	require.NoError(t, err)
	assert.False(t, voteResp.Voted)

	pollResp, err := p.HandlePoll(&message.PollRequest{Term: 1, Candidate: 2})
	require.NoError(t, err)
	assert.False(t, pollResp.Accepted)
}
