package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/message"
)

func TestLeader_Name(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)
	assert.Equal(t, "LEADER", l.Name())
}

func TestLeader_Open_WritesNoOpAndSetsLeaderHint(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(1)
	require.NoError(t, err)
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)
	defer l.Close()

	ctx.Protocol.PostSync(l.Open)

	assert.Equal(t, message.MemberID(1), ctx.Leader())
	last, err := ctx.Log.Writer().LastIndex()
	require.NoError(t, err)
	assert.Equal(t, message.Index(1), last)
	assert.Len(t, l.appenders, 2, "one appender per other member")
}

func TestLeader_RebuildAppenders_DropsMembersNoLongerInConfiguration(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)

	ctx.Protocol.PostSync(l.rebuildAppenders)
	assert.Len(t, l.appenders, 2)

	cfg := ctx.Cluster.Current()
	cfg.Members = cfg.Members[:2] // drop member 3
	ctx.Cluster.SetCurrent(cfg)

	ctx.Protocol.PostSync(l.rebuildAppenders)
	assert.Len(t, l.appenders, 1)
	_, stillTracked := l.appenders[3]
	assert.False(t, stillTracked)
}

func TestLeader_UpdateCommitIndex_OnlyCurrentTermEntriesCount(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(2)
	require.NoError(t, err)
	require.NoError(t, ctx.Log.Writer().Append([]message.Entry{
		{Index: 1, Term: 1}, // from a previous leader's term
		{Index: 2, Term: 2},
	}))
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)

	ctx.Protocol.PostSync(func() {
		ctx.Cluster.PerMember(2, 0).MatchIndex = 2
		ctx.Cluster.PerMember(3, 0).MatchIndex = 2
		l.updateCommitIndex()
	})

	assert.Equal(t, message.Index(2), ctx.CommitIndex())
}

func TestLeader_UpdateCommitIndex_RefusesToCommitPastTermBoundary(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(2)
	require.NoError(t, err)
	require.NoError(t, ctx.Log.Writer().Append([]message.Entry{
		{Index: 1, Term: 1},
	}))
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)

	ctx.Protocol.PostSync(func() {
		ctx.Cluster.PerMember(2, 0).MatchIndex = 1
		ctx.Cluster.PerMember(3, 0).MatchIndex = 1
		l.updateCommitIndex()
	})

	assert.Equal(t, message.Index(0), ctx.CommitIndex(), "an entry from an earlier term cannot be committed by count alone")
}

func TestLeader_Propose_AppendsEntryAndReturnsItsIndex(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(1)
	require.NoError(t, err)
	l := NewLeader(&Base{Ctx: ctx, Trans: &fakeTransport{}}, nil)
	defer l.Close()

	ctx.Protocol.PostSync(l.Open) // no-op entry at index 1

	index, err := l.Propose(message.KindCommand, "payload")
	require.NoError(t, err)
	assert.Equal(t, message.Index(2), index)
}

func TestLeader_HasPendingConfiguration(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	l := NewLeader(&Base{Ctx: ctx}, nil)

	assert.False(t, l.HasPendingConfiguration())

	cfg := ctx.Cluster.Current()
	cfg.Index = ctx.CommitIndex() + 1
	ctx.Cluster.SetCurrent(cfg)
	assert.True(t, l.HasPendingConfiguration())
}

func TestLeader_StepDown(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	steppedDown := false
	l := NewLeader(&Base{Ctx: ctx}, func() { steppedDown = true })

	l.StepDown(7)
	assert.True(t, steppedDown)
	assert.Equal(t, message.Term(7), ctx.CurrentTerm())
}

func TestLeader_HandleAppend_RejectsSameOrLowerTerm(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	_, err := ctx.SetTerm(3)
	require.NoError(t, err)
	l := NewLeader(&Base{Ctx: ctx}, nil)

	resp, err := l.HandleAppend(&message.AppendRequest{Term: 3, Leader: 2})
	require.NoError(t, err)
	assert.False(t, resp.Succeeded, "at most one leader per term, a same-term append must be rejected")
}

func TestLeader_HandleAppend_StepsDownOnHigherTerm(t *testing.T) {
	ctx := newRoleContext(t, 1, 2, 3)
	steppedDown := false
	l := NewLeader(&Base{Ctx: ctx}, func() { steppedDown = true })

	resp, err := l.HandleAppend(&message.AppendRequest{Term: 9, Leader: 2})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded)
	assert.True(t, steppedDown)
	assert.Equal(t, message.MemberID(2), ctx.Leader())
}
