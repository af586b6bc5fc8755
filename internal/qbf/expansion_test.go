package qbf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

func newExpansionForTest(store *variable.Store) Solver {
	return NewExpansion(store, ExpansionOptions{
		Reclaim: true,
		NewSAT:  func() sat.Solver { return sat.NewGini(store, sat.Options{}) },
	})
}

func TestExpansionForallExistsSat(t *testing.T) {
	store := variable.New()
	y := store.Fresh(variable.Uncontrollable)
	z := store.Fresh(variable.Controllable)

	// ∀y. ∃z. (y ∨ z) ∧ (¬y ∨ ¬z): z = ¬y works.
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(y), cnf.Of(z)})
	matrix.Add(cnf.Clause{cnf.Of(y).Not(), cnf.Of(z).Not()})

	prefix := Prefix{
		{Quantifier: ForAll, Vars: []variable.ID{y}},
		{Quantifier: Exists, Vars: []variable.ID{z}},
	}
	s := newExpansionForTest(store)
	assert.True(t, s.IsSat(prefix, matrix))
}

func TestExpansionForallExistsUnsat(t *testing.T) {
	store := variable.New()
	y := store.Fresh(variable.Uncontrollable)
	z := store.Fresh(variable.Controllable)

	// ∀y. ∃z. z ∧ y: fails for y = 0.
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(z)})
	matrix.Add(cnf.Clause{cnf.Of(y)})

	prefix := Prefix{
		{Quantifier: ForAll, Vars: []variable.ID{y}},
		{Quantifier: Exists, Vars: []variable.ID{z}},
	}
	s := newExpansionForTest(store)
	assert.False(t, s.IsSat(prefix, matrix))
}

func TestExpansionModelOverOutermost(t *testing.T) {
	store := variable.New()
	x := store.Fresh(variable.StatePresent)
	y := store.Fresh(variable.Uncontrollable)
	z := store.Fresh(variable.Controllable)

	// ∃x. ∀y. ∃z. x ∧ (z ∨ ¬y) ∧ (¬z ∨ y): z = y, so any x = 1 model.
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(x)})
	matrix.Add(cnf.Clause{cnf.Of(z), cnf.Of(y).Not()})
	matrix.Add(cnf.Clause{cnf.Of(z).Not(), cnf.Of(y)})

	prefix := Prefix{
		{Quantifier: Exists, Vars: []variable.ID{x}},
		{Quantifier: ForAll, Vars: []variable.ID{y}},
		{Quantifier: Exists, Vars: []variable.ID{z}},
	}
	s := newExpansionForTest(store)
	model, ok := s.IsSatModel(prefix, matrix)
	require.True(t, ok)
	require.Len(t, model, 1)
	assert.Equal(t, cnf.Of(x), model[0])
}

func TestExpansionUnprefixedVarsAreInnermost(t *testing.T) {
	store := variable.New()
	y := store.Fresh(variable.Uncontrollable)
	tmp := store.Fresh(variable.Temporary)

	// ∀y. ∃t. (t ↔ y), with t only implicitly quantified: must be SAT
	// because t may depend on y. A shared (outer) t would be UNSAT.
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(tmp).Not(), cnf.Of(y)})
	matrix.Add(cnf.Clause{cnf.Of(tmp), cnf.Of(y).Not()})

	prefix := Prefix{{Quantifier: ForAll, Vars: []variable.ID{y}}}
	s := newExpansionForTest(store)
	assert.True(t, s.IsSat(prefix, matrix))
}

func TestExpansionReclaimsTemporaries(t *testing.T) {
	store := variable.New()
	y := store.Fresh(variable.Uncontrollable)
	z := store.Fresh(variable.Controllable)
	matrix := cnf.New()
	matrix.Add(cnf.Clause{cnf.Of(y), cnf.Of(z)})
	prefix := Prefix{
		{Quantifier: ForAll, Vars: []variable.ID{y}},
		{Quantifier: Exists, Vars: []variable.ID{z}},
	}

	s := newExpansionForTest(store)
	before := store.Len()
	require.True(t, s.IsSat(prefix, matrix))
	assert.Equal(t, before, store.Len(), "per-query expansion copies must be released")
}

func TestExpansionIncrementalUnsupported(t *testing.T) {
	store := variable.New()
	s := newExpansionForTest(store)
	err := s.BeginInc(nil)
	require.Error(t, err)
	assert.IsType(t, ErrIncrementalUnsupported{}, err)
}
