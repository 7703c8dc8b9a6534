// Package filestore implements a minimal durable storage.MetaStore: term,
// vote, and last configuration are serialized with encoding/gob and
// fsynced to a single file on every write, a whole-state-per-write
// strategy simple enough to reason about for a few dozen bytes updated on
// every election and configuration change. Log and snapshot storage are
// left to storage/memstore or a real deployment's own backend.
package filestore

import (
	"encoding/gob"
	"os"
	"sync"

	"github.com/xmh1011/go-raft/message"
)

type onDisk struct {
	Term   message.Term
	Vote   message.MemberID
	Config *message.ConfigurationPayload
	CfgIdx message.Index
}

// Meta is a file-backed storage.MetaStore.
type Meta struct {
	mu   sync.Mutex
	path string
	data onDisk
}

// Open loads path if it exists, or creates it with zero state.
func Open(path string) (*Meta, error) {
	m := &Meta{path: path}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, m.persistLocked()
		}
		return nil, err
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(&m.data); err != nil {
		return nil, err
	}
	return m, nil
}

// persistLocked writes the full state to a temp file and renames it into
// place, so a crash mid-write never leaves a truncated metadata file.
func (m *Meta) persistLocked() error {
	tmp := m.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(m.data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, m.path)
}

func (m *Meta) LoadTerm() (message.Term, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Term, nil
}

func (m *Meta) StoreTerm(t message.Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Term = t
	return m.persistLocked()
}

func (m *Meta) LoadVote() (message.MemberID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Vote, nil
}

func (m *Meta) StoreVote(id message.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Vote = id
	return m.persistLocked()
}

func (m *Meta) LoadConfiguration() (*message.ConfigurationPayload, message.Index, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.Config, m.data.CfgIdx, nil
}

func (m *Meta) StoreConfiguration(cfg *message.ConfigurationPayload, index message.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Config = cfg
	m.data.CfgIdx = index
	return m.persistLocked()
}

func (m *Meta) Close() error { return nil }

func (m *Meta) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return os.Remove(m.path)
}
