// Package server owns the server-wide volatile state a Raft node needs
// outside of any particular role: current term, leader hint, commit index,
// the durable metadata handle, the registered listeners, and the two
// cooperative execution contexts every other package runs on.
package server

import (
	"sync"
	"time"

	"github.com/xmh1011/go-raft/cluster"
	"github.com/xmh1011/go-raft/executor"
	"github.com/xmh1011/go-raft/logging"
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
)

// Role is the interface every role state machine (Follower, Candidate,
// Leader, Passive, Reserve, Inactive) implements. Context transitions
// between roles by closing the current one and opening the next.
type Role interface {
	Name() string
	Open()
	Close()
}

// Context is the exclusive owner of server-wide state. Every field it
// guards is mutated only from the protocol execution context; other
// contexts observe term/leader/commit through the accessor methods, which
// take a lock rather than assuming volatile semantics.
type Context struct {
	ID message.MemberID

	Log      storage.Log
	Meta     storage.MetaStore
	Snapshot storage.SnapshotStore

	Cluster *cluster.State

	Protocol *executor.Context
	State    *executor.Context

	Sink logging.Sink

	ElectionTimeout  time.Duration
	HeartbeatTimeout time.Duration

	mu          sync.RWMutex
	currentTerm message.Term
	votedFor    message.MemberID
	leader      message.MemberID
	commitIndex message.Index
	lastApplied message.Index
	role        Role

	listeners Listeners
}

// New constructs a Context with cold volatile state; callers must call
// Restore before opening any role.
func New(id message.MemberID, log storage.Log, meta storage.MetaStore, snap storage.SnapshotStore, cfg *cluster.State, sink logging.Sink) *Context {
	if sink == nil {
		sink = logging.Default()
	}
	return &Context{
		ID:               id,
		Log:              log,
		Meta:             meta,
		Snapshot:         snap,
		Cluster:          cfg,
		Protocol:         executor.New("protocol", 256),
		State:            executor.New("state", 256),
		Sink:             sink,
		ElectionTimeout:  150 * time.Millisecond,
		HeartbeatTimeout: 50 * time.Millisecond,
	}
}

// Restore loads term and vote from durable metadata. Must run before the
// server accepts any RPC.
func (c *Context) Restore() error {
	term, err := c.Meta.LoadTerm()
	if err != nil {
		return err
	}
	vote, err := c.Meta.LoadVote()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.currentTerm = term
	c.votedFor = vote
	c.mu.Unlock()
	return nil
}

// CurrentTerm reports the current term.
func (c *Context) CurrentTerm() message.Term {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTerm
}

// VotedFor reports who this server voted for in the current term.
func (c *Context) VotedFor() message.MemberID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.votedFor
}

// SetTerm advances current_term if T is strictly greater, clearing
// voted_for and the leader hint, and persists the term before returning.
// A T that is not strictly greater is a no-op and returns false.
func (c *Context) SetTerm(t message.Term) (bool, error) {
	c.mu.Lock()
	if t <= c.currentTerm {
		c.mu.Unlock()
		return false, nil
	}
	c.currentTerm = t
	c.votedFor = message.NoLeader
	c.leader = message.NoLeader
	c.mu.Unlock()

	if err := c.Meta.StoreTerm(t); err != nil {
		return false, err
	}
	if err := c.Meta.StoreVote(message.NoLeader); err != nil {
		return false, err
	}
	return true, nil
}

// Vote records a vote for candidate in the current term and persists it.
func (c *Context) Vote(candidate message.MemberID) error {
	c.mu.Lock()
	c.votedFor = candidate
	c.mu.Unlock()
	return c.Meta.StoreVote(candidate)
}

// Leader reports the current leader hint.
func (c *Context) Leader() message.MemberID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.leader
}

// SetLeader updates the leader hint. Setting to NoLeader always succeeds.
// Setting to a specific member requires it be in the active configuration;
// leader-election listeners fire exactly once per distinct leader per term.
func (c *Context) SetLeader(id message.MemberID) {
	c.mu.Lock()
	if id != message.NoLeader {
		if _, ok := c.Cluster.Current().Member(id); !ok {
			c.mu.Unlock()
			return
		}
	}
	changed := c.leader != id
	c.leader = id
	term := c.currentTerm
	c.mu.Unlock()
	if changed && id != message.NoLeader {
		c.listeners.fireLeader(id, term)
	}
}

// CommitIndex reports the current commit index.
func (c *Context) CommitIndex() message.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.commitIndex
}

// SetCommitIndex advances the commit index monotonically. It does not check
// idx against the log's last index; its callers (appendCore and the
// Leader's commit advance) bound it before calling. Nothing is done here
// for configuration entries the new index crosses.
func (c *Context) SetCommitIndex(idx message.Index) {
	c.mu.Lock()
	if idx <= c.commitIndex {
		c.mu.Unlock()
		return
	}
	c.commitIndex = idx
	c.mu.Unlock()
	c.listeners.fireCommit(idx)
}

// LastApplied reports the highest index applied to the state machine.
func (c *Context) LastApplied() message.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastApplied
}

// SetLastApplied records the highest index applied to the state machine.
func (c *Context) SetLastApplied(idx message.Index) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx > c.lastApplied {
		c.lastApplied = idx
	}
}

// Role reports the currently active role.
func (c *Context) Role() Role {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.role
}

// Transition closes the current role, installs next, and opens it. It does
// not check which goroutine calls it.
func (c *Context) Transition(next Role) {
	c.mu.Lock()
	prev := c.role
	c.role = next
	c.mu.Unlock()

	if prev != nil {
		prev.Close()
	}
	next.Open()
	c.listeners.fireStateChange(next.Name())
}

// Listeners exposes the registry so callers can subscribe.
func (c *Context) Listeners() *Listeners { return &c.listeners }

// Shutdown closes the current role and the log, metadata and snapshot
// stores, and stops both execution contexts within grace before
// force-returning.
func (c *Context) Shutdown(grace time.Duration) {
	if r := c.Role(); r != nil {
		r.Close()
	}
	c.Log.Close()
	c.Meta.Close()
	c.Snapshot.Close()
	c.Protocol.Close(grace)
	c.State.Close(grace)
}
