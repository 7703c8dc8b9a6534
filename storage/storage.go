// Package storage defines the external storage and state-machine contracts
// treated as out-of-scope collaborators: MetaStore, Log, SnapshotStore, and
// StateMachine. Only in-memory implementations (for tests, storage/memstore)
// and one minimal durable MetaStore (for the raftd CLI default,
// storage/filestore) live in this module; a production deployment is
// expected to bring its own Log/SnapshotStore backed by a real allocator.
package storage

import "github.com/xmh1011/go-raft/message"

// MetaStore persists the small, frequently-written Raft metadata: current
// term, voted-for, and the last configuration. A successful store call
// returns only once the value is stable against a process crash.
type MetaStore interface {
	LoadTerm() (message.Term, error)
	StoreTerm(message.Term) error

	LoadVote() (message.MemberID, error)
	StoreVote(message.MemberID) error

	LoadConfiguration() (*message.ConfigurationPayload, message.Index, error)
	StoreConfiguration(*message.ConfigurationPayload, message.Index) error

	Close() error
	Delete() error
}

// Log is the durable, append-only log store. Writers are single-producer;
// readers may run concurrently, each through its own Reader.
type Log interface {
	Open() error

	Writer() LogWriter
	NewReader() LogReader

	Close() error
	Delete() error
}

type LogWriter interface {
	Append(entries []message.Entry) error
	// TruncateFrom deletes every entry at or after index, used when a
	// follower's uncommitted suffix conflicts with the leader.
	TruncateFrom(index message.Index) error
	Commit(index message.Index) error
	LastIndex() (message.Index, error)
	FirstIndex() (message.Index, error)
}

// LogReader is a per-consumer cursor into the log. Reset re-seeks the
// cursor to index, like Seek.
type LogReader interface {
	Seek(index message.Index) error
	HasNext() bool
	Next() (message.Entry, error)
	Current() (message.Entry, error)
	Reset(index message.Index) error
	Lock()
	Unlock()
}

// SnapshotStore persists point-in-time state-machine snapshots. Writers are
// append-only; readers are immutable once opened.
type SnapshotStore interface {
	Create(index message.Index, term message.Term, id uint64) (SnapshotWriter, error)
	GetByIndex(index message.Index) (SnapshotHandle, error)
	GetCurrent() (SnapshotHandle, error)
	OpenReader(SnapshotHandle) (SnapshotReader, error)

	Close() error
	Delete() error
}

// SnapshotHandle names a stored snapshot without holding its bytes.
type SnapshotHandle struct {
	ID    uint64
	Index message.Index
	Term  message.Term
}

type SnapshotWriter interface {
	// WriteAt appends data at the declared offset.
	WriteAt(offset uint64, data []byte) error
	// Commit atomically finalizes the snapshot, superseding any earlier one
	// for the same ID.
	Commit() (SnapshotHandle, error)
	Abort() error
}

type SnapshotReader interface {
	Read(p []byte) (int, error)
	Close() error
}

// StateMachine is the application-provided state machine interface. Apply
// runs on the state execution context in committed-index order for
// committed entries; statemachine.Manager.Query also calls it from the RPC
// goroutine with a KindQuery entry for LEASE and EVENTUAL reads.
type StateMachine interface {
	Apply(entry message.Entry) (result any, err error)
	Snapshot() ([]byte, error)
	Restore(data []byte) error
}
