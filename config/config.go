// Package config holds the knobs cmd/raftd binds to cobra flags, split out
// so tests that start a cluster in-process (role, membership,
// statemachine package tests) can construct the same shape programmatically
// instead of going through a command line.
package config

import (
	"runtime"
	"time"

	"github.com/xmh1011/go-raft/transport/inmemory"
)

// StorageKind selects a Config's durability tradeoff, mirroring the
// teacher's --storage flag.
type StorageKind string

const (
	StorageMemory StorageKind = "inmemory"
	StorageFile   StorageKind = "file"
)

// TransportKind selects a Config's wire protocol, mirroring the teacher's
// --transport flag.
type TransportKind string

const (
	TransportTCP      TransportKind = "tcp"
	TransportGRPC     TransportKind = "grpc"
	TransportInMemory TransportKind = "inmemory"
)

// Config is the full set of parameters a node needs to start. ID and
// PeerAddresses are required; everything else has a usable default.
type Config struct {
	ID            uint64
	PeerAddresses map[uint64]string

	DataDir   string
	Storage   StorageKind
	Transport TransportKind

	ElectionTimeout  time.Duration
	HeartbeatTimeout time.Duration

	// WorkerPoolSize sizes the bounded pool used for snapshot reads and
	// metadata I/O off the protocol/state contexts. Zero means
	// runtime.NumCPU().
	WorkerPoolSize int

	// StateMachineName is the name this node's sole state machine is
	// registered under, matched against OpenSessionRequest.StateMachine.
	StateMachineName string

	// InMemoryRegistry is the shared switchboard every node in a test
	// cluster dials through when Transport is TransportInMemory; nil is an
	// error for that transport kind, since there is no registry to bind
	// an address into otherwise.
	InMemoryRegistry *inmemory.Registry
}

// WithDefaults returns a copy of c with zero-valued fields replaced by the
// teacher's usual defaults.
func (c Config) WithDefaults() Config {
	if c.ElectionTimeout == 0 {
		c.ElectionTimeout = 150 * time.Millisecond
	}
	if c.HeartbeatTimeout == 0 {
		c.HeartbeatTimeout = 50 * time.Millisecond
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = runtime.NumCPU()
	}
	if c.Storage == "" {
		c.Storage = StorageFile
	}
	if c.Transport == "" {
		c.Transport = TransportGRPC
	}
	if c.StateMachineName == "" {
		c.StateMachineName = "kv"
	}
	if c.DataDir == "" {
		c.DataDir = "raft-data"
	}
	return c
}
