package memstore

import (
	"bytes"
	"errors"
	"io"
	"sync"

	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
)

var ErrNoSnapshot = errors.New("memstore: no snapshot available")

// Snapshots is an in-memory storage.SnapshotStore. At most one snapshot is
// "active" at a time; Create/Commit enforce that atomically.
type Snapshots struct {
	mu      sync.RWMutex
	current *snapshotEntry
}

type snapshotEntry struct {
	handle storage.SnapshotHandle
	data   []byte
}

func NewSnapshots() *Snapshots { return &Snapshots{} }

func (s *Snapshots) Create(index message.Index, term message.Term, id uint64) (storage.SnapshotWriter, error) {
	return &writer{store: s, handle: storage.SnapshotHandle{ID: id, Index: index, Term: term}}, nil
}

func (s *Snapshots) GetByIndex(index message.Index) (storage.SnapshotHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.handle.Index != index {
		return storage.SnapshotHandle{}, ErrNoSnapshot
	}
	return s.current.handle, nil
}

func (s *Snapshots) GetCurrent() (storage.SnapshotHandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return storage.SnapshotHandle{}, ErrNoSnapshot
	}
	return s.current.handle, nil
}

func (s *Snapshots) OpenReader(h storage.SnapshotHandle) (storage.SnapshotReader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.current.handle.ID != h.ID {
		return nil, ErrNoSnapshot
	}
	return io.NopCloser(bytes.NewReader(s.current.data)), nil
}

func (s *Snapshots) Close() error { return nil }
func (s *Snapshots) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	return nil
}

type writer struct {
	store  *Snapshots
	handle storage.SnapshotHandle
	buf    bytes.Buffer
}

// WriteAt appends at the declared offset. The in-memory store keeps chunks
// strictly ordered, matching how a real leader streams a snapshot
// sequentially; out-of-order offsets are rejected.
func (w *writer) WriteAt(offset uint64, data []byte) error {
	if uint64(w.buf.Len()) != offset {
		return errors.New("memstore: out-of-order snapshot chunk")
	}
	w.buf.Write(data)
	return nil
}

func (w *writer) Commit() (storage.SnapshotHandle, error) {
	w.store.mu.Lock()
	defer w.store.mu.Unlock()
	w.store.current = &snapshotEntry{handle: w.handle, data: append([]byte(nil), w.buf.Bytes()...)}
	return w.handle, nil
}

func (w *writer) Abort() error {
	w.buf.Reset()
	return nil
}

var _ storage.SnapshotStore = (*Snapshots)(nil)
