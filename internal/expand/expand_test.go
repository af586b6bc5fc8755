package expand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// TestExpandEliminatesUniversal checks that for F = (x ∨ y), ∀y.F is
// equivalent (after expansion) to x being forced true, since y=0 makes
// the disjunct require x.
func TestExpandEliminatesUniversal(t *testing.T) {
	store := variable.New()
	x := store.Fresh(variable.Controllable)
	y := store.Fresh(variable.Uncontrollable)

	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(x), cnf.Of(y)})

	expanded, err := Expand(store, matrix, []variable.ID{y}, nil, 0)
	require.NoError(t, err)

	s := sat.NewGini(store, sat.Options{})
	withXFalse := expanded.Clone()
	withXFalse.Add(cnf.Clause{cnf.Of(x).Not()})
	assert.False(t, s.Solve(withXFalse), "x=0 must be unsat once y is universally expanded")

	withXTrue := expanded.Clone()
	withXTrue.Add(cnf.Clause{cnf.Of(x)})
	assert.True(t, s.Solve(withXTrue))
}

func TestExpandTooLarge(t *testing.T) {
	store := variable.New()
	ids := make([]variable.ID, 8)
	for i := range ids {
		ids[i] = store.Fresh(variable.Uncontrollable)
	}
	matrix := cnf.New()
	lits := make(cnf.Clause, len(ids))
	for i, id := range ids {
		lits[i] = cnf.Of(id)
	}
	matrix.Add(lits)

	_, err := Expand(store, matrix, ids, nil, 4)
	require.Error(t, err)
	var tooLarge ErrTooLarge
	assert.ErrorAs(t, err, &tooLarge)
}

func TestExpandRejectsOversizedBlock(t *testing.T) {
	store := variable.New()
	ids := make([]variable.ID, MaxUniversalVars+1)
	for i := range ids {
		ids[i] = store.Fresh(variable.Uncontrollable)
	}
	matrix := cnf.New()
	_, err := Expand(store, matrix, ids, nil, 0)
	assert.Error(t, err)
}
