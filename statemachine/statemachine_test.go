package statemachine

import (
	"fmt"

	"github.com/xmh1011/go-raft/message"
)

// fakeMachine is a storage.StateMachine stub recording every entry it was
// asked to Apply, so tests can assert dispatch without a real kvstore.
type fakeMachine struct {
	applied  []message.Entry
	applyFn  func(entry message.Entry) (any, error)
	restored []byte
	restoreErr error
}

func (f *fakeMachine) Apply(entry message.Entry) (any, error) {
	f.applied = append(f.applied, entry)
	if f.applyFn != nil {
		return f.applyFn(entry)
	}
	return fmt.Sprintf("applied-%d", entry.Index), nil
}

func (f *fakeMachine) Snapshot() ([]byte, error) { return nil, nil }

func (f *fakeMachine) Restore(data []byte) error {
	f.restored = data
	return f.restoreErr
}
