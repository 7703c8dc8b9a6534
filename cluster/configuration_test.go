package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xmh1011/go-raft/message"
)

func threeActiveOnePassive() Configuration {
	return FromSpecs(1, 100, []message.MemberSpec{
		{ID: 1, Role: message.RoleActive, Address: "a1"},
		{ID: 2, Role: message.RoleActive, Address: "a2"},
		{ID: 3, Role: message.RoleActive, Address: "a3"},
		{ID: 4, Role: message.RolePassive, Address: "a4"},
	})
}

func TestConfiguration_MemberLookup(t *testing.T) {
	cfg := threeActiveOnePassive()

	m, ok := cfg.Member(2)
	assert.True(t, ok)
	assert.Equal(t, message.MemberID(2), m.ID)

	_, ok = cfg.Member(99)
	assert.False(t, ok)
}

func TestConfiguration_VotersAndMajority(t *testing.T) {
	cfg := threeActiveOnePassive()

	assert.Len(t, cfg.Voters(), 3)
	assert.Equal(t, 2, cfg.Majority())
}

func TestConfiguration_Replicated(t *testing.T) {
	cfg := threeActiveOnePassive()
	match := map[message.MemberID]message.Index{1: 10, 2: 10, 3: 5, 4: 10}
	matchIndexOf := func(id message.MemberID) message.Index { return match[id] }

	assert.True(t, cfg.Replicated(10, matchIndexOf))
	assert.False(t, cfg.Replicated(11, matchIndexOf))

	// The passive learner's match index never counts toward quorum.
	match[2] = 0
	assert.False(t, cfg.Replicated(10, matchIndexOf))
}

func TestConfiguration_SpecRoundtrip(t *testing.T) {
	cfg := threeActiveOnePassive()
	roundtripped := FromSpecs(cfg.Index, cfg.Time, cfg.Spec())
	assert.Equal(t, cfg, roundtripped)
}

func TestState_CurrentAndSetCurrent(t *testing.T) {
	s := NewState(threeActiveOnePassive())
	assert.Len(t, s.Current().Members, 4)

	next := FromSpecs(2, 200, nil)
	s.SetCurrent(next)
	assert.Equal(t, next, s.Current())
}

func TestState_PerMemberCreatesOnce(t *testing.T) {
	s := NewState(Configuration{})

	pm := s.PerMember(1, 5)
	assert.Equal(t, message.Index(6), pm.NextIndex)

	pm.MatchIndex = 5
	again := s.PerMember(1, 999)
	assert.Same(t, pm, again)
	assert.Equal(t, message.Index(5), again.MatchIndex)
}

func TestState_MatchIndexAndRemoveMember(t *testing.T) {
	s := NewState(Configuration{})
	assert.Equal(t, message.Index(0), s.MatchIndex(1))

	pm := s.PerMember(1, 0)
	pm.MatchIndex = 7
	assert.Equal(t, message.Index(7), s.MatchIndex(1))

	s.RemoveMember(1)
	assert.Equal(t, message.Index(0), s.MatchIndex(1))
}
