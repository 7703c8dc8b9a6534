// Package memstore implements storage.MetaStore, storage.Log, and
// storage.SnapshotStore entirely in memory, split into the three narrower
// contracts storage.go defines. It is used by package tests and by
// node.New for each node's log and snapshots.
package memstore

import (
	"sync"

	"github.com/xmh1011/go-raft/message"
	"github.com/xmh1011/go-raft/storage"
)

// Meta is an in-memory storage.MetaStore. Nothing here survives a restart;
// production deployments must supply a durable implementation.
type Meta struct {
	mu     sync.RWMutex
	term   message.Term
	vote   message.MemberID
	config *message.ConfigurationPayload
	cfgIdx message.Index
}

func NewMeta() *Meta { return &Meta{} }

func (m *Meta) LoadTerm() (message.Term, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.term, nil
}

func (m *Meta) StoreTerm(t message.Term) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.term = t
	return nil
}

func (m *Meta) LoadVote() (message.MemberID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vote, nil
}

func (m *Meta) StoreVote(id message.MemberID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vote = id
	return nil
}

func (m *Meta) LoadConfiguration() (*message.ConfigurationPayload, message.Index, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config, m.cfgIdx, nil
}

func (m *Meta) StoreConfiguration(cfg *message.ConfigurationPayload, index message.Index) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = cfg
	m.cfgIdx = index
	return nil
}

func (m *Meta) Close() error  { return nil }
func (m *Meta) Delete() error { return nil }

var _ storage.MetaStore = (*Meta)(nil)
