package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/role"
)

func TestHandler_HandleOpenSession_RedirectsWhenNotLeader(t *testing.T) {
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, NewManager(NewRegistry()))

	resp, err := h.HandleOpenSession(&message.OpenSessionRequest{Name: "a", StateMachine: "kv"})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK)
	assert.Equal(t, errkind.NoLeader, resp.Status.Kind)
}

func TestHandler_HandleCommand_RedirectsWhenNotLeaderAndNoCachedSession(t *testing.T) {
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, NewManager(NewRegistry()))

	resp, err := h.HandleCommand(&message.CommandRequest{Session: 1, Sequence: 1, Payload: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK)
	assert.Equal(t, errkind.NoLeader, resp.Status.Kind)
}

func TestHandler_HandleCommand_RetryIsAnsweredFromCacheWithoutALeader(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)

	id := openSession(t, mgr, 1, "kv")
	sess, ok := mgr.Session(id)
	require.True(t, ok)
	sess.recordCommand(1, "cached-result", nil)

	resp, err := h.HandleCommand(&message.CommandRequest{Session: id, Sequence: 1, Payload: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Status.OK, "a retried sequence with a cached result must be answered without needing a leader")
	assert.Equal(t, "cached-result", resp.Result)
}

func TestHandler_HandleCommand_RetryWithCachedErrorIsAnsweredAsFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)

	id := openSession(t, mgr, 1, "kv")
	sess, ok := mgr.Session(id)
	require.True(t, ok)
	sess.recordCommand(1, nil, errkind.New(errkind.CommandFailure, "boom"))

	resp, err := h.HandleCommand(&message.CommandRequest{Session: id, Sequence: 1, Payload: "x"})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK)
	assert.Equal(t, errkind.CommandFailure, resp.Status.Kind)
}

func TestHandler_HandleQuery_UnknownSessionFails(t *testing.T) {
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, NewManager(NewRegistry()))

	resp, err := h.HandleQuery(&message.QueryRequest{Session: 99, Consistency: message.ConsistencyLease})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK)
	assert.Equal(t, errkind.UnknownSession, resp.Status.Kind)
}

func TestHandler_HandleQuery_LeaseConsistencyRedirectsWithoutALeader(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)
	id := openSession(t, mgr, 1, "kv")

	resp, err := h.HandleQuery(&message.QueryRequest{Session: id, Consistency: message.ConsistencyLease, Payload: "get x"})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK, "LEASE needs the leader's own recent-quorum freshness, not a bare local read")
	assert.Equal(t, errkind.NoLeader, resp.Status.Kind)
}

func TestHandler_HandleQuery_LeaseConsistencyServesLocallyOnceLeaderHasQuorum(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)
	id := openSession(t, mgr, 1, "kv")

	l := role.NewLeader(&role.Base{Ctx: ctx}, nil)
	ctx.Transition(l)
	defer l.Close()

	resp, err := h.HandleQuery(&message.QueryRequest{Session: id, Consistency: message.ConsistencyLease, Payload: "get x"})
	require.NoError(t, err)
	assert.True(t, resp.Status.OK, "a single-voter leader always has quorum with itself")
	assert.NotEmpty(t, resp.Result)
}

func TestHandler_HandleQuery_EventualConsistencyServesDirectly(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)
	id := openSession(t, mgr, 1, "kv")

	resp, err := h.HandleQuery(&message.QueryRequest{Session: id, Consistency: message.ConsistencyEventual, Payload: "get x"})
	require.NoError(t, err)
	assert.True(t, resp.Status.OK)
}

func TestHandler_HandleQuery_StrictConsistencyRedirectsWhenNotLeader(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, mgr)
	id := openSession(t, mgr, 1, "kv")

	resp, err := h.HandleQuery(&message.QueryRequest{Session: id, Consistency: message.ConsistencyStrict, Payload: "get x"})
	require.NoError(t, err)
	assert.False(t, resp.Status.OK, "a STRICT read must go through the log and therefore needs a leader")
	assert.Equal(t, errkind.NoLeader, resp.Status.Kind)
}

func TestHandler_HandleMetadata(t *testing.T) {
	ctx := newTestServerContext(t)
	h := NewHandler(ctx, NewManager(NewRegistry()))

	resp, err := h.HandleMetadata(&message.MetadataRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Status.OK)
	assert.Len(t, resp.Members, 1)
}
