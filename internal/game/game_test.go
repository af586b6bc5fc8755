package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/cnf"
)

func TestObligationQueueOrdersByLevelThenFIFO(t *testing.T) {
	q := NewObligationQueue()
	q.PushObligation(&ProofObligation{State: cnf.Cube{1}, Level: 3})
	q.PushObligation(&ProofObligation{State: cnf.Cube{2}, Level: 1})
	q.PushObligation(&ProofObligation{State: cnf.Cube{3}, Level: 1})
	q.PushObligation(&ProofObligation{State: cnf.Cube{4}, Level: 2})

	assert.Equal(t, cnf.Cube{2}, q.PopObligation().State, "lowest level first")
	assert.Equal(t, cnf.Cube{3}, q.PopObligation().State, "FIFO among equal levels")
	assert.Equal(t, cnf.Cube{4}, q.PopObligation().State)
	assert.Equal(t, cnf.Cube{1}, q.PopObligation().State)
	assert.Nil(t, q.PopObligation())
}

func TestFrameEqualIgnoresOrder(t *testing.T) {
	a := NewFrame(1)
	b := NewFrame(2)
	a.Add(cnf.Clause{1, -2})
	a.Add(cnf.Clause{3})
	b.Add(cnf.Clause{3})
	b.Add(cnf.Clause{-2, 1})

	assert.True(t, a.Equal(b))

	b.Add(cnf.Clause{4})
	assert.False(t, a.Equal(b))
}

func TestRegionHolds(t *testing.T) {
	w := cnf.New()
	w.Add(cnf.Clause{-1}) // state 1 must be low

	plain := &Region{CNF: w}
	assert.True(t, plain.Holds(cnf.Cube{-1, -2}))
	assert.False(t, plain.Holds(cnf.Cube{1, -2}))

	compl := &Region{CNF: w, Complemented: true}
	assert.False(t, compl.Holds(cnf.Cube{-1, -2}))
	assert.True(t, compl.Holds(cnf.Cube{1, -2}))
}

// fixedMinimizer drops every literal not in keep, refusing cubes that
// lose all of keep.
type fixedMinimizer struct {
	keeps []cnf.Cube
}

func (f *fixedMinimizer) Generalize(full cnf.Cube, forbid map[cnf.Lit]bool) (cnf.Cube, bool) {
	for _, keep := range f.keeps {
		ok := true
		for _, l := range keep {
			if forbid[l] {
				ok = false
				break
			}
		}
		if ok {
			return keep, true
		}
	}
	return nil, false
}

func TestEnumerateMinimalCubes(t *testing.T) {
	// Two minimal generalizations of {1,2,3}: {1} and {2,3}. The
	// hitting-set tree must find both, exactly once each.
	min := &fixedMinimizer{keeps: []cnf.Cube{{1}, {2, 3}}}
	cubes := EnumerateMinimalCubes(cnf.Cube{1, 2, 3}, min)

	require.Len(t, cubes, 2)
	assert.Equal(t, cnf.Cube{1}, cubes[0])
	assert.Equal(t, cnf.Cube{2, 3}, cubes[1])
}

func TestEnumerateMinimalCubesDeadBranch(t *testing.T) {
	min := &fixedMinimizer{keeps: []cnf.Cube{{1, 2}}}
	cubes := EnumerateMinimalCubes(cnf.Cube{1, 2}, min)
	require.Len(t, cubes, 1)
}
