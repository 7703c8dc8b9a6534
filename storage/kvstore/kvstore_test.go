package kvstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xmh1011/go-raft/message"
)

func commandEntry(op Op, key, value string) message.Entry {
	return message.Entry{
		Kind:    message.KindCommand,
		Payload: message.CommandPayload{Command: Command{Op: op, Key: key, Value: value}},
	}
}

func queryEntry(key string) message.Entry {
	return message.Entry{
		Kind:    message.KindQuery,
		Payload: message.QueryPayload{Query: Command{Op: OpGet, Key: key}},
	}
}

func TestStateMachine(t *testing.T) {
	t.Run("New initializes correctly", func(t *testing.T) {
		sm := New()
		assert.NotNil(t, sm)
		assert.NotNil(t, sm.store)
	})

	t.Run("apply set and delete", func(t *testing.T) {
		sm := New()

		_, err := sm.Get("key1")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		result, err := sm.Apply(commandEntry(OpSet, "key1", "value1"))
		assert.NoError(t, err)
		assert.Nil(t, result)

		val, err := sm.Get("key1")
		assert.NoError(t, err)
		assert.Equal(t, "value1", val)

		_, err = sm.Apply(commandEntry(OpSet, "key1", "valueUpdated"))
		assert.NoError(t, err)
		val, _ = sm.Get("key1")
		assert.Equal(t, "valueUpdated", val)

		result, err = sm.Apply(commandEntry(OpDelete, "key1", ""))
		assert.NoError(t, err)
		assert.Nil(t, result)

		_, err = sm.Get("key1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("apply with unknown operation", func(t *testing.T) {
		sm := New()
		_, err := sm.Apply(commandEntry(Op("bogus"), "key1", "value1"))
		assert.Error(t, err)
	})

	t.Run("apply with unexpected payload type", func(t *testing.T) {
		sm := New()
		_, err := sm.Apply(message.Entry{Kind: message.KindCommand, Payload: message.QueryPayload{}})
		assert.Error(t, err)
	})

	t.Run("STRICT query entry reads through Apply", func(t *testing.T) {
		sm := New()
		_, err := sm.Apply(commandEntry(OpSet, "name", "gopher"))
		assert.NoError(t, err)

		result, err := sm.Apply(queryEntry("name"))
		assert.NoError(t, err)
		assert.Equal(t, "gopher", result)

		_, err = sm.Apply(queryEntry("missing"))
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("entry kind with no state machine effect", func(t *testing.T) {
		sm := New()
		_, err := sm.Apply(message.Entry{Kind: message.KindInitialize})
		assert.Error(t, err)
	})

	t.Run("snapshot and restore", func(t *testing.T) {
		sm1 := New()
		_, _ = sm1.Apply(commandEntry(OpSet, "name", "gopher"))
		_, _ = sm1.Apply(commandEntry(OpSet, "lang", "go"))

		snapshot, err := sm1.Snapshot()
		assert.NoError(t, err)
		assert.NotEmpty(t, snapshot)

		sm2 := New()
		err = sm2.Restore(snapshot)
		assert.NoError(t, err)

		val, err := sm2.Get("name")
		assert.NoError(t, err)
		assert.Equal(t, "gopher", val)

		val, err = sm2.Get("lang")
		assert.NoError(t, err)
		assert.Equal(t, "go", val)

		_, _ = sm1.Apply(commandEntry(OpSet, "newKey", "newValue"))
		_, err = sm2.Get("newKey")
		assert.Error(t, err)
	})

	t.Run("restore overwrites existing state", func(t *testing.T) {
		sm1 := New()
		_, _ = sm1.Apply(commandEntry(OpSet, "a", "1"))
		_, _ = sm1.Apply(commandEntry(OpSet, "b", "2"))
		snapshot, _ := sm1.Snapshot()

		sm2 := New()
		_, _ = sm2.Apply(commandEntry(OpSet, "b", "old_value"))
		_, _ = sm2.Apply(commandEntry(OpSet, "c", "3"))

		err := sm2.Restore(snapshot)
		assert.NoError(t, err)

		val, err := sm2.Get("a")
		assert.NoError(t, err)
		assert.Equal(t, "1", val)
		val, err = sm2.Get("b")
		assert.NoError(t, err)
		assert.Equal(t, "2", val)
		_, err = sm2.Get("c")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("restore with invalid data", func(t *testing.T) {
		sm := New()
		err := sm.Restore([]byte("{not-valid-json}"))
		assert.Error(t, err)
	})
}
