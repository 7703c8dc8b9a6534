package statemachine

import (
	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/server"
)

// Driver applies newly committed log entries to Manager in order, running
// on the server's dedicated state execution context so state-machine
// application never races with anything else touching that context.
// Grounded on the teacher's applyLogs loop in raft.go, which walks
// lastApplied..commitIndex on its own goroutine after every commit-index
// change; here the walk is triggered by server.Context's commit listener
// instead of a condition variable the teacher polls.
type Driver struct {
	ctx *server.Context
	mgr *Manager
}

// NewDriver constructs a Driver and subscribes it to ctx's commit-index
// listener. The caller does not need to pump it manually.
func NewDriver(ctx *server.Context, mgr *Manager) *Driver {
	d := &Driver{ctx: ctx, mgr: mgr}
	ctx.Listeners().OnCommit(func(message.Index) {
		ctx.State.Post(d.drain)
	})
	return d
}

func (d *Driver) drain() {
	for {
		applied := d.ctx.LastApplied()
		commit := d.ctx.CommitIndex()
		if applied >= commit {
			return
		}
		next := applied + 1
		entry, ok := d.readEntry(next)
		if !ok {
			return
		}
		d.mgr.Apply(entry)
		d.ctx.SetLastApplied(next)
	}
}

func (d *Driver) readEntry(index message.Index) (message.Entry, bool) {
	r := d.ctx.Log.NewReader()
	r.Lock()
	defer r.Unlock()
	if err := r.Seek(index); err != nil {
		return message.Entry{}, false
	}
	e, err := r.Current()
	if err != nil {
		return message.Entry{}, false
	}
	return e, true
}
