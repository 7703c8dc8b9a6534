package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/errkind"
	"github.com/xmh1011/go-raft/message"
)

func openSession(t *testing.T, mgr *Manager, index message.Index, sm string) message.SessionID {
	t.Helper()
	wait := mgr.WaitFor(index)
	mgr.Apply(message.Entry{Index: index, Kind: message.KindOpenSession, Payload: message.OpenSessionPayload{
		Name: "client-a", StateMachine: sm, Timeout: 1000,
	}})
	select {
	case outcome := <-wait:
		require.NoError(t, outcome.err)
		return outcome.session
	case <-time.After(time.Second):
		t.Fatal("OpenSession never notified")
		return 0
	}
}

func TestManager_OpenSession_IDEqualsEntryIndex(t *testing.T) {
	mgr := NewManager(NewRegistry())
	id := openSession(t, mgr, 5, "kv")
	assert.Equal(t, message.SessionID(5), id)

	sess, ok := mgr.Session(id)
	require.True(t, ok)
	assert.Equal(t, SessionOpen, sess.State())
}

func TestManager_CloseSession(t *testing.T) {
	mgr := NewManager(NewRegistry())
	id := openSession(t, mgr, 1, "kv")

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCloseSession, Payload: message.CloseSessionPayload{Session: id}})
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("CloseSession never notified")
	}

	sess, _ := mgr.Session(id)
	assert.Equal(t, SessionClosed, sess.State())
}

func TestManager_ApplyCommand_DispatchesToRegisteredMachine(t *testing.T) {
	registry := NewRegistry()
	sm := &fakeMachine{}
	registry.Register("kv", sm)
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCommand, Payload: message.CommandPayload{
		Session: id, Sequence: 1, Command: "set x=1",
	}})

	select {
	case outcome := <-wait:
		require.NoError(t, outcome.err)
		assert.Equal(t, "applied-2", outcome.result)
	case <-time.After(time.Second):
		t.Fatal("Command never notified")
	}
	require.Len(t, sm.applied, 1)
}

func TestManager_ApplyCommand_RetryIsAnsweredFromCacheWithoutReapplying(t *testing.T) {
	registry := NewRegistry()
	sm := &fakeMachine{}
	registry.Register("kv", sm)
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCommand, Payload: message.CommandPayload{Session: id, Sequence: 1, Command: "set x=1"}})
	<-wait

	wait = mgr.WaitFor(3)
	mgr.Apply(message.Entry{Index: 3, Kind: message.KindCommand, Payload: message.CommandPayload{Session: id, Sequence: 1, Command: "set x=1"}})
	select {
	case outcome := <-wait:
		require.NoError(t, outcome.err)
		assert.Equal(t, "applied-2", outcome.result)
	case <-time.After(time.Second):
		t.Fatal("retried command never notified")
	}
	assert.Len(t, sm.applied, 1, "a retried sequence must be answered from cache, not reapplied")
}

func TestManager_ApplyCommand_OutOfOrderSequenceFails(t *testing.T) {
	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCommand, Payload: message.CommandPayload{Session: id, Sequence: 5, Command: "x"}})

	select {
	case outcome := <-wait:
		require.Error(t, outcome.err)
		var e *errkind.Error
		require.ErrorAs(t, outcome.err, &e)
		assert.Equal(t, errkind.CommandFailure, e.Kind)
	case <-time.After(time.Second):
		t.Fatal("out-of-order command never notified")
	}
}

func TestManager_ApplyCommand_UnknownStateMachineFails(t *testing.T) {
	mgr := NewManager(NewRegistry())
	id := openSession(t, mgr, 1, "missing-machine")

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCommand, Payload: message.CommandPayload{Session: id, Sequence: 1, Command: "x"}})

	select {
	case outcome := <-wait:
		require.Error(t, outcome.err)
	case <-time.After(time.Second):
		t.Fatal("command against an unregistered machine never notified")
	}
}

func TestManager_Query_ServesDirectlyWithoutApplying(t *testing.T) {
	registry := NewRegistry()
	sm := &fakeMachine{}
	registry.Register("kv", sm)
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")
	sess, _ := mgr.Session(id)

	result, err := mgr.Query(sess, message.QueryPayload{Session: id, Query: "get x"})
	require.NoError(t, err)
	assert.NotEmpty(t, result)
	assert.Len(t, sm.applied, 1, "Query still dispatches through Apply, but outside the log/commit path")
}

func TestManager_Query_WaitsForMinIndexAndMinSequenceToBeSatisfied(t *testing.T) {
	registry := NewRegistry()
	sm := &fakeMachine{}
	registry.Register("kv", sm)
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")
	sess, _ := mgr.Session(id)

	done := make(chan struct{})
	go func() {
		_, err := mgr.Query(sess, message.QueryPayload{Session: id, MinSequence: 1, MinIndex: 2, Query: "get x"})
		assert.NoError(t, err)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("query must not return before the session reaches min-sequence/min-index")
	case <-time.After(20 * time.Millisecond):
	}

	wait := mgr.WaitFor(2)
	mgr.Apply(message.Entry{Index: 2, Kind: message.KindCommand, Payload: message.CommandPayload{Session: id, Sequence: 1, Command: "set x=1"}})
	<-wait

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("query never returned once the session caught up")
	}
}

func TestManager_Query_TimesOutIfSessionNeverCatchesUp(t *testing.T) {
	previous := queryWatermarkTimeout
	queryWatermarkTimeout = 20 * time.Millisecond
	defer func() { queryWatermarkTimeout = previous }()

	registry := NewRegistry()
	registry.Register("kv", &fakeMachine{})
	mgr := NewManager(registry)
	id := openSession(t, mgr, 1, "kv")
	sess, _ := mgr.Session(id)

	_, err := mgr.Query(sess, message.QueryPayload{Session: id, MinIndex: 1000, Query: "get x"})
	require.Error(t, err)
	var e *errkind.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, errkind.QueryFailure, e.Kind)
}

func TestManager_InstallSnapshot_RestoresEveryRegisteredMachine(t *testing.T) {
	registry := NewRegistry()
	sm1 := &fakeMachine{}
	sm2 := &fakeMachine{}
	registry.Register("kv", sm1)
	registry.Register("kv2", sm2)
	mgr := NewManager(registry)

	require.NoError(t, mgr.InstallSnapshot([]byte("snapshot-bytes")))
	assert.Equal(t, []byte("snapshot-bytes"), sm1.restored)
	assert.Equal(t, []byte("snapshot-bytes"), sm2.restored)
}

func TestManager_Apply_ExpiresStaleSessionsOnEveryEntry(t *testing.T) {
	mgr := NewManager(NewRegistry())
	mgr.Apply(message.Entry{Index: 1, Kind: message.KindOpenSession, Payload: message.OpenSessionPayload{
		Name: "client-a", StateMachine: "kv", Timeout: 10,
	}})
	sess, ok := mgr.Session(message.SessionID(1))
	require.True(t, ok)
	assert.Equal(t, SessionOpen, sess.State())

	// No activity on this session for 1000 log-index-units, far past its
	// Timeout of 10: the next applied entry, of any kind, must expire it.
	mgr.Apply(message.Entry{Index: 1001, Kind: message.KindMetadata})

	assert.Equal(t, SessionExpired, sess.State())
}

func TestManager_ExpireSessions(t *testing.T) {
	mgr := NewManager(NewRegistry())
	id := openSession(t, mgr, 1, "kv")
	sess, _ := mgr.Session(id)
	sess.touch(10)

	expired := mgr.ExpireSessions(2000)
	require.Len(t, expired, 1)
	assert.Equal(t, id, expired[0])
}
