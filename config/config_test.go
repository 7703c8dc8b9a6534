package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaultsFillsZeroValues(t *testing.T) {
	cfg := Config{ID: 1, PeerAddresses: map[uint64]string{1: "node-1"}}

	out := cfg.WithDefaults()

	assert.Equal(t, 150*time.Millisecond, out.ElectionTimeout)
	assert.Equal(t, 50*time.Millisecond, out.HeartbeatTimeout)
	assert.Positive(t, out.WorkerPoolSize)
	assert.Equal(t, StorageFile, out.Storage)
	assert.Equal(t, TransportGRPC, out.Transport)
	assert.Equal(t, "kv", out.StateMachineName)
	assert.Equal(t, "raft-data", out.DataDir)
}

func TestConfig_WithDefaultsLeavesExplicitValuesAlone(t *testing.T) {
	cfg := Config{
		ID:               1,
		ElectionTimeout:  10 * time.Millisecond,
		HeartbeatTimeout: 2 * time.Millisecond,
		WorkerPoolSize:   4,
		Storage:          StorageMemory,
		Transport:        TransportTCP,
		StateMachineName: "ledger",
		DataDir:          "/tmp/custom",
	}

	out := cfg.WithDefaults()

	assert.Equal(t, 10*time.Millisecond, out.ElectionTimeout)
	assert.Equal(t, 2*time.Millisecond, out.HeartbeatTimeout)
	assert.Equal(t, 4, out.WorkerPoolSize)
	assert.Equal(t, StorageMemory, out.Storage)
	assert.Equal(t, TransportTCP, out.Transport)
	assert.Equal(t, "ledger", out.StateMachineName)
	assert.Equal(t, "/tmp/custom", out.DataDir)
}
