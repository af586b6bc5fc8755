package variable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreshAssignsDenseIDs(t *testing.T) {
	s := New()
	a := s.Fresh(StatePresent)
	b := s.Fresh(Uncontrollable)
	c := s.FreshNamed(Controllable, "controllable_x")

	assert.Equal(t, ID(1), a)
	assert.Equal(t, ID(2), b)
	assert.Equal(t, ID(3), c)
	assert.Equal(t, "controllable_x", s.Info(c).Name)
	assert.Equal(t, Controllable, s.Info(c).Kind)
}

func TestVarsOfTracksKinds(t *testing.T) {
	s := New()
	s.Fresh(StatePresent)
	s.Fresh(Temporary)
	s.Fresh(StatePresent)

	assert.Len(t, s.VarsOf(StatePresent), 2)
	assert.Len(t, s.VarsOf(Temporary), 1)
	assert.Empty(t, s.VarsOf(Controllable))
}

func TestResetToLastPushReleasesTemporaries(t *testing.T) {
	s := New()
	keep := s.Fresh(StatePresent)
	s.Push()
	s.Fresh(Temporary)
	s.Fresh(Temporary)
	require.Equal(t, 4, s.Len())

	s.ResetToLastPush()
	assert.Equal(t, 2, s.Len())
	assert.Empty(t, s.VarsOf(Temporary))
	assert.Equal(t, StatePresent, s.Info(keep).Kind)

	// Fresh ids are reusable after a reset.
	again := s.Fresh(Temporary)
	assert.Equal(t, ID(2), again)
	s.Pop()
}

func TestResetIsRepeatableWithoutPop(t *testing.T) {
	s := New()
	s.Push()
	for round := 0; round < 3; round++ {
		s.Fresh(Temporary)
		s.Fresh(Temporary)
		s.ResetToLastPush()
		assert.Equal(t, 1, s.Len())
	}
	s.Pop()
}

func TestReclassify(t *testing.T) {
	s := New()
	v := s.Fresh(Temporary)
	s.Reclassify(v, StatePresent)

	assert.Equal(t, StatePresent, s.Info(v).Kind)
	assert.Empty(t, s.VarsOf(Temporary))
	assert.Equal(t, []ID{v}, s.VarsOf(StatePresent))
}

func TestPopWithoutPushPanics(t *testing.T) {
	s := New()
	assert.Panics(t, func() { s.Pop() })
	assert.Panics(t, func() { s.ResetToLastPush() })
}

func TestInfoOutOfRangePanics(t *testing.T) {
	s := New()
	assert.Panics(t, func() { s.Info(0) })
	assert.Panics(t, func() { s.Info(7) })
}
