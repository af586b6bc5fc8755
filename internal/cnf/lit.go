// Package cnf implements the clause-store algebra: an
// ordered list of clauses over signed variable ids, with subsumption-aware
// insertion, Tseitin negation, and the present/next-state renamings the
// winning-region engines need.
package cnf

import (
	"fmt"

	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Lit is a signed reference to a variable.ID: positive literals assert
// the variable, negative literals assert its complement. Lit 0 is
// invalid and never appears in a well-formed Clause or Cube.
type Lit int32

// Of returns the positive literal for id.
func Of(id variable.ID) Lit {
	return Lit(id)
}

// Not returns the negation of m.
func (m Lit) Not() Lit {
	return -m
}

// Var returns the underlying variable.ID, independent of sign.
func (m Lit) Var() variable.ID {
	if m < 0 {
		return variable.ID(-m)
	}
	return variable.ID(m)
}

// IsPos reports whether m asserts its variable (as opposed to its
// complement).
func (m Lit) IsPos() bool {
	return m > 0
}

func (m Lit) String() string {
	if m < 0 {
		return fmt.Sprintf("-%s", m.Var())
	}
	return m.Var().String()
}

// Clause is a disjunction of literals: it is read "at least one of
// these literals is true". Invariants: no literal repeats
// with the same sign; no literal appears in both polarities (such a
// clause is tautological and is simplified to nil by NewClause).
type Clause []Lit

// NewClause builds a Clause from the given literals, deduplicating and
// detecting tautologies. A tautological clause is represented as a nil
// Clause with a true returned bool.
func NewClause(lits ...Lit) (Clause, bool) {
	seen := make(map[variable.ID]Lit, len(lits))
	out := make(Clause, 0, len(lits))
	for _, m := range lits {
		if prev, ok := seen[m.Var()]; ok {
			if prev != m {
				return nil, true // tautology: v and -v both present
			}
			continue // duplicate of the same polarity
		}
		seen[m.Var()] = m
		out = append(out, m)
	}
	return out, false
}

// Cube is a conjunction of literals: it is read "every one of these
// literals is true".
type Cube []Lit

// Negate returns the complement of every literal in the cube, in the
// same order — i.e. the clause that is falsified by exactly this cube.
func (c Cube) Negate() Clause {
	out := make(Clause, len(c))
	for i, m := range c {
		out[i] = m.Not()
	}
	return out
}

// AllNegative reports whether every literal of c is negative, i.e.
// whether the all-zero initial valuation satisfies the cube.
func (c Cube) AllNegative() bool {
	for _, m := range c {
		if m.IsPos() {
			return false
		}
	}
	return true
}

// Contains reports whether the literal m itself appears in c; its
// negation does not count.
func (c Cube) Contains(m Lit) bool {
	for _, x := range c {
		if x == m {
			return true
		}
	}
	return false
}
