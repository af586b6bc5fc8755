package sat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

func TestSolveOneShot(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.StatePresent)
	b := store.Fresh(variable.StatePresent)

	s := NewGini(store, Options{})

	sat := cnf.New()
	sat.Add(cnf.Clause{cnf.Of(a), cnf.Of(b)})
	sat.Add(cnf.Clause{cnf.Of(a).Not(), cnf.Of(b).Not()})
	assert.True(t, s.Solve(sat))

	unsat := cnf.New()
	unsat.Add(cnf.Clause{cnf.Of(a)})
	unsat.Add(cnf.Clause{cnf.Of(a).Not()})
	assert.False(t, s.Solve(unsat))
}

func TestIncSATRequiresBeginInc(t *testing.T) {
	store := variable.New()
	s := NewGini(store, Options{})

	assert.PanicsWithError(t, "sat: IncAddClause called before BeginInc", func() {
		s.IncAddClause(cnf.Clause{1})
	})
}

func TestIncPushPopUndoesAddedClauses(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.StatePresent)

	s := NewGini(store, Options{})
	s.BeginInc(nil, false)

	require.True(t, s.IncSAT(nil))

	s.IncPush()
	s.IncAddClause(cnf.Clause{cnf.Of(a)})
	s.IncAddClause(cnf.Clause{cnf.Of(a).Not()})
	// unsatisfiable while the pushed clauses are active
	assert.False(t, s.IncSAT(nil))

	s.IncPop()
	// satisfiable again once the scope is popped
	assert.True(t, s.IncSAT(nil))
}

func TestIncSATModelOrCore(t *testing.T) {
	store := variable.New()
	a := store.Fresh(variable.StatePresent)
	b := store.Fresh(variable.StatePresent)

	s := NewGini(store, Options{})
	s.BeginInc(nil, false)
	s.IncAddClause(cnf.Clause{cnf.Of(a).Not(), cnf.Of(b)})

	result := s.IncSATModelOrCore(cnf.Cube{cnf.Of(a)}, nil, []variable.ID{a, b})
	require.Equal(t, Sat, result.Outcome)
	assert.Contains(t, result.Model, cnf.Of(b))

	s.IncAddClause(cnf.Clause{cnf.Of(b).Not()})
	result = s.IncSATModelOrCore(cnf.Cube{cnf.Of(a)}, nil, []variable.ID{a, b})
	assert.Equal(t, Unsat, result.Outcome)
	assert.Contains(t, result.Core, cnf.Of(a))
}
