package cnf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/variable"
)

func TestNewClauseTautology(t *testing.T) {
	type tc struct {
		Name      string
		Lits      []Lit
		WantTaut  bool
		WantClause Clause
	}

	for _, tt := range []tc{
		{Name: "simple", Lits: []Lit{1, -2, 3}, WantClause: Clause{1, -2, 3}},
		{Name: "duplicate", Lits: []Lit{1, 1, -2}, WantClause: Clause{1, -2}},
		{Name: "tautology", Lits: []Lit{1, -1}, WantTaut: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			cl, taut := NewClause(tt.Lits...)
			assert.Equal(t, tt.WantTaut, taut)
			if !taut {
				assert.Equal(t, tt.WantClause, cl)
			}
		})
	}
}

func TestAddSimplifiedIdempotent(t *testing.T) {
	c := New()
	c.AddSimplified(Clause{1, 2})
	c.AddSimplified(Clause{1, 2})
	require.Equal(t, 1, c.Len())
}

func TestAddSimplifiedSubsumption(t *testing.T) {
	c := New()
	c.AddSimplified(Clause{1, 2, 3})
	c.AddSimplified(Clause{1, 2})
	// {1,2} subsumes {1,2,3}: only the shorter clause should remain.
	require.Equal(t, 1, c.Len())
	assert.Equal(t, Clause{1, 2}, liveClauses(c)[0])

	c.AddSimplified(Clause{1, 2, 4})
	// redundant: {1,2} already subsumes it
	require.Equal(t, 1, c.Len())
}

func liveClauses(c *CNF) []Clause {
	var out []Clause
	for _, cl := range c.Clauses {
		if cl != nil {
			out = append(out, cl)
		}
	}
	return out
}

func TestContainsSatAssignment(t *testing.T) {
	c := New()
	c.Add(Clause{1, 2})
	c.Add(Clause{-1, 3})

	assert.True(t, c.ContainsSatAssignment(Cube{1, 3}))
	assert.False(t, c.ContainsSatAssignment(Cube{-2, -3}))
}

func TestNegateEmptyIsFalse(t *testing.T) {
	store := variable.New()
	c := New()
	neg := c.Negate(store)
	require.Len(t, neg.Clauses, 1)
	assert.Empty(t, neg.Clauses[0])
}

func TestNegateIntroducesOneTempPerClause(t *testing.T) {
	store := variable.New()
	store.Fresh(variable.StatePresent)
	store.Fresh(variable.StatePresent)

	c := New()
	c.Add(Clause{1, 2})
	c.Add(Clause{-1})

	before := store.Len()
	neg := c.Negate(store)
	after := store.Len()

	assert.Equal(t, 2, after-before, "one temporary per clause")
	// 2 implication clauses for the first (len 2), 1 for the reverse,
	// 1 implication clause for the second (len 1), 1 for the reverse,
	// plus the final disjunction clause.
	assert.Equal(t, 2+1+1+1+1, len(neg.Clauses))
}

func TestSwapPresentToNextInvolution(t *testing.T) {
	store := variable.New()
	s := store.Fresh(variable.StatePresent)
	sp := store.Fresh(variable.StateNext)
	pairing := PresentNextPairing([]variable.ID{s}, []variable.ID{sp})

	c := New()
	c.Add(Clause{Of(s), Of(sp).Not()})

	once := c.SwapPresentToNext(pairing)
	twice := once.SwapPresentToNext(pairing)

	assert.Equal(t, c.Clauses, twice.Clauses)
}
