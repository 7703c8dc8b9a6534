package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xmh1011/go-raft/message"
)

func TestMeta_TermRoundtrip(t *testing.T) {
	m := NewMeta()

	term, err := m.LoadTerm()
	require.NoError(t, err)
	assert.Equal(t, message.Term(0), term)

	require.NoError(t, m.StoreTerm(7))
	term, err = m.LoadTerm()
	require.NoError(t, err)
	assert.Equal(t, message.Term(7), term)
}

func TestMeta_VoteRoundtrip(t *testing.T) {
	m := NewMeta()

	vote, err := m.LoadVote()
	require.NoError(t, err)
	assert.Equal(t, message.NoLeader, vote)

	require.NoError(t, m.StoreVote(3))
	vote, err = m.LoadVote()
	require.NoError(t, err)
	assert.Equal(t, message.MemberID(3), vote)
}

func TestMeta_ConfigurationRoundtrip(t *testing.T) {
	m := NewMeta()

	cfg, idx, err := m.LoadConfiguration()
	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, message.Index(0), idx)

	payload := &message.ConfigurationPayload{Members: []message.MemberSpec{{ID: 1}}, Time: 42}
	require.NoError(t, m.StoreConfiguration(payload, 5))

	cfg, idx, err = m.LoadConfiguration()
	require.NoError(t, err)
	assert.Same(t, payload, cfg)
	assert.Equal(t, message.Index(5), idx)
}
