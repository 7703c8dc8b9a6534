// Package kvstore is a minimal storage.StateMachine implementation, the
// default one cmd/raftd registers when the operator does not bring their
// own: a plain in-memory key/value map. Grounded on the teacher's
// storage/inmemory/state_machine.go (Apply/Get/GetSnapshot/ApplySnapshot
// over a map[string]string), adapted from param.LogEntry/param.KVCommand to
// message.Entry and the Command/Query payloads the session layer wraps
// client operations in.
package kvstore

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/xmh1011/go-raft/message"
)

var ErrKeyNotFound = errors.New("key not found")

// Op names a KVCommand's operation.
type Op string

const (
	OpSet    Op = "set"
	OpDelete Op = "delete"
	OpGet    Op = "get"
)

// Command is the payload carried inside a CommandPayload.Command or
// QueryPayload.Query for this state machine.
type Command struct {
	Op    Op
	Key   string
	Value string
}

func init() {
	// Command rides inside message.CommandPayload.Command/QueryPayload.Query,
	// both typed any, so gob needs to know its concrete type to encode it
	// across the wire transports.
	gob.Register(Command{})
}

// StateMachine is an in-memory key/value store, safe for the concurrent
// reads a Query can issue against it while Apply runs serially on the
// state execution context.
type StateMachine struct {
	mu    sync.RWMutex
	store map[string]string
}

func New() *StateMachine {
	return &StateMachine{store: make(map[string]string)}
}

// Apply applies one entry. Both KindCommand and KindQuery route here: a
// KindQuery entry arrives for a STRICT read recorded in the log, and also
// for LEASE/EVENTUAL reads, which statemachine.Manager.Query passes in
// directly without appending anything to the log.
func (sm *StateMachine) Apply(entry message.Entry) (any, error) {
	switch entry.Kind {
	case message.KindCommand:
		p, ok := entry.Payload.(message.CommandPayload)
		if !ok {
			return nil, fmt.Errorf("kvstore: command entry with unexpected payload type %T", entry.Payload)
		}
		cmd, ok := p.Command.(Command)
		if !ok {
			return nil, fmt.Errorf("kvstore: unrecognized command %T", p.Command)
		}
		return sm.apply(cmd)
	case message.KindQuery:
		p, ok := entry.Payload.(message.QueryPayload)
		if !ok {
			return nil, fmt.Errorf("kvstore: query entry with unexpected payload type %T", entry.Payload)
		}
		cmd, ok := p.Query.(Command)
		if !ok {
			return nil, fmt.Errorf("kvstore: unrecognized query %T", p.Query)
		}
		return sm.read(cmd)
	default:
		return nil, fmt.Errorf("kvstore: entry kind %s has no state-machine effect", entry.Kind)
	}
}

func (sm *StateMachine) apply(cmd Command) (any, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	switch cmd.Op {
	case OpSet:
		sm.store[cmd.Key] = cmd.Value
		return nil, nil
	case OpDelete:
		delete(sm.store, cmd.Key)
		return nil, nil
	case OpGet:
		val, ok := sm.store[cmd.Key]
		if !ok {
			return nil, ErrKeyNotFound
		}
		return val, nil
	default:
		return nil, fmt.Errorf("kvstore: unknown operation %q", cmd.Op)
	}
}

func (sm *StateMachine) read(cmd Command) (any, error) {
	if cmd.Op != OpGet {
		return nil, fmt.Errorf("kvstore: query must be a get, got %q", cmd.Op)
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.store[cmd.Key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return val, nil
}

// Get reads a key directly, outside the Apply path.
func (sm *StateMachine) Get(key string) (string, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	val, ok := sm.store[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return val, nil
}

func (sm *StateMachine) Snapshot() ([]byte, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return json.Marshal(sm.store)
}

func (sm *StateMachine) Restore(data []byte) error {
	store := make(map[string]string)
	if err := json.Unmarshal(data, &store); err != nil {
		return fmt.Errorf("kvstore: restore snapshot: %w", err)
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.store = store
	return nil
}
