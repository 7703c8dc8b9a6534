package memstore

import (
	"errors"
	"sync"

	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
)

var (
	ErrEntryNotFound = errors.New("memstore: log entry not found")
	ErrOutOfBounds   = errors.New("memstore: index out of bounds")
)

// Log is an in-memory storage.Log. It keeps a dense slice offset by the
// index of the first live entry, so compaction copies the kept suffix into
// a fresh slice and moves the offset.
type Log struct {
	mu      sync.RWMutex
	entries []message.Entry // entries[0] is a dummy; real index = offset+i
	offset  message.Index
	commit  message.Index
}

func NewLog() *Log {
	return &Log{entries: make([]message.Entry, 1)}
}

func (l *Log) Open() error  { return nil }
func (l *Log) Close() error { return nil }
func (l *Log) Delete() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make([]message.Entry, 1)
	l.offset = 0
	l.commit = 0
	return nil
}

func (l *Log) Writer() storage.LogWriter { return &logWriter{l} }
func (l *Log) NewReader() storage.LogReader {
	return &logReader{l: l}
}

func (l *Log) getLocked(index message.Index) (message.Entry, bool) {
	if index < l.offset+1 || index >= l.offset+message.Index(len(l.entries)) {
		return message.Entry{}, false
	}
	return l.entries[index-l.offset], true
}

// compact drops entries at or below upTo.
func (l *Log) compact(upTo message.Index) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if upTo < l.offset {
		return nil
	}
	last := l.offset + message.Index(len(l.entries)) - 1
	if upTo > last {
		upTo = last
	}
	keepFrom := upTo - l.offset + 1
	newEntries := make([]message.Entry, 1, 1+len(l.entries)-int(keepFrom))
	newEntries = append(newEntries, l.entries[keepFrom:]...)
	l.entries = newEntries
	l.offset = upTo
	return nil
}

type logWriter struct{ l *Log }

func (w *logWriter) Append(entries []message.Entry) error {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	w.l.entries = append(w.l.entries, entries...)
	return nil
}

func (w *logWriter) TruncateFrom(index message.Index) error {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	if index < w.l.offset {
		return ErrOutOfBounds
	}
	if index >= w.l.offset+message.Index(len(w.l.entries)) {
		return nil
	}
	w.l.entries = w.l.entries[:index-w.l.offset]
	return nil
}

func (w *logWriter) Commit(index message.Index) error {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	if index > w.l.commit {
		w.l.commit = index
	}
	return nil
}

func (w *logWriter) LastIndex() (message.Index, error) {
	w.l.mu.RLock()
	defer w.l.mu.RUnlock()
	return w.l.offset + message.Index(len(w.l.entries)) - 1, nil
}

func (w *logWriter) FirstIndex() (message.Index, error) {
	w.l.mu.RLock()
	defer w.l.mu.RUnlock()
	return w.l.offset + 1, nil
}

// logReader is a per-consumer cursor, its own lock held only for the
// duration of Lock()/Unlock() bracketed reads.
type logReader struct {
	mu  sync.Mutex
	l   *Log
	pos message.Index
}

func (r *logReader) Lock()   { r.mu.Lock() }
func (r *logReader) Unlock() { r.mu.Unlock() }

func (r *logReader) Seek(index message.Index) error {
	r.pos = index
	return nil
}

func (r *logReader) Reset(index message.Index) error {
	r.pos = index
	return nil
}

func (r *logReader) HasNext() bool {
	last, _ := r.l.Writer().LastIndex()
	return r.pos <= last
}

func (r *logReader) Next() (message.Entry, error) {
	e, ok := r.l.getLocked(r.pos)
	if !ok {
		return message.Entry{}, ErrEntryNotFound
	}
	r.pos++
	return e, nil
}

func (r *logReader) Current() (message.Entry, error) {
	e, ok := r.l.getLocked(r.pos)
	if !ok {
		return message.Entry{}, ErrEntryNotFound
	}
	return e, nil
}

var _ storage.Log = (*Log)(nil)

// Get is a convenience accessor for random access rather than a
// sequential reader (mirrors the teacher's store.GetEntry).
func (l *Log) Get(index message.Index) (message.Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.getLocked(index)
}

// Compact exposes the compaction step to callers outside the package.
func (l *Log) Compact(upTo message.Index) error { return l.compact(upTo) }

// CommitIndex reports the writer's last-committed index.
func (l *Log) CommitIndex() message.Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.commit
}
