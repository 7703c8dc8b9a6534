package server

import (
	"sync"
	"sync/atomic"

	"github.com/xmh1011/go-raft/message"
)

// LeaderListener is notified exactly once per distinct leader per term.
type LeaderListener func(leader message.MemberID, term message.Term)

// StateChangeListener is notified whenever the active role changes.
type StateChangeListener func(role string)

// CommitListener is notified whenever the commit index advances, letting
// statemachine.Driver apply newly committed entries without server
// depending on statemachine.
type CommitListener func(index message.Index)

// Listeners is a copy-on-write subscriber registry. Subscribing never
// blocks an in-flight invocation; invocation always sees a fixed snapshot
// of subscribers taken at fire time.
type Listeners struct {
	mu       sync.Mutex
	leader   atomic.Value // []LeaderListener
	state    atomic.Value // []StateChangeListener
	commit   atomic.Value // []CommitListener
	initOnce sync.Once
}

func (l *Listeners) init() {
	l.initOnce.Do(func() {
		l.leader.Store([]LeaderListener(nil))
		l.state.Store([]StateChangeListener(nil))
		l.commit.Store([]CommitListener(nil))
	})
}

// OnCommit subscribes to commit-index advancement.
func (l *Listeners) OnCommit(fn CommitListener) {
	l.init()
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.commit.Load().([]CommitListener)
	next := make([]CommitListener, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = fn
	l.commit.Store(next)
}

func (l *Listeners) fireCommit(index message.Index) {
	l.init()
	for _, fn := range l.commit.Load().([]CommitListener) {
		fn(index)
	}
}

// OnLeaderChange subscribes to leader-election events.
func (l *Listeners) OnLeaderChange(fn LeaderListener) {
	l.init()
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.leader.Load().([]LeaderListener)
	next := make([]LeaderListener, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = fn
	l.leader.Store(next)
}

// OnStateChange subscribes to role transitions.
func (l *Listeners) OnStateChange(fn StateChangeListener) {
	l.init()
	l.mu.Lock()
	defer l.mu.Unlock()
	cur := l.state.Load().([]StateChangeListener)
	next := make([]StateChangeListener, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = fn
	l.state.Store(next)
}

func (l *Listeners) fireLeader(leader message.MemberID, term message.Term) {
	l.init()
	for _, fn := range l.leader.Load().([]LeaderListener) {
		fn(leader, term)
	}
}

func (l *Listeners) fireStateChange(role string) {
	l.init()
	for _, fn := range l.state.Load().([]StateChangeListener) {
		fn(role)
	}
}
