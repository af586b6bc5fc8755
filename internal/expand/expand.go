// Package expand eliminates a universal quantifier block by brute-force
// case splitting, for callers that want to hand a SAT
// solver a quantifier-free query instead of invoking the QBF backend.
package expand

import (
	"fmt"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// MaxUniversalVars bounds |Y| for expansion to be attempted at all;
// 16 is the practical limit since the expander makes
// 2^|Y| copies of the matrix.
const MaxUniversalVars = 16

// ErrTooLarge is returned when the expansion would exceed budget
// clauses. The in-process QBF backend (internal/qbf) does not fall back
// to a non-expanded query on it: it treats the error as fatal and
// panics.
type ErrTooLarge struct {
	Produced int
	Budget   int
}

func (e ErrTooLarge) Error() string {
	return fmt.Sprintf("expand: expansion too large: %d clauses exceeds budget %d", e.Produced, e.Budget)
}

// Expand eliminates the universal block y from the prefix ∃x.∀y.∃z.F,
// returning a CNF equivalent to ⋀_{assignment of y} F[y↦assignment,
// z↦fresh copy]. zVars names the existentially-quantified-later
// variables that need a fresh renamed copy per assignment; every other
// variable in matrix is shared across all copies. Fresh copies are
// allocated from store. budget caps the clause count of the result; 0
// means unbounded.
func Expand(store *variable.Store, matrix *cnf.CNF, y []variable.ID, zVars []variable.ID, budget int) (*cnf.CNF, error) {
	if len(y) > MaxUniversalVars {
		return nil, fmt.Errorf("expand: %d universal variables exceeds practical limit %d", len(y), MaxUniversalVars)
	}

	nAssignments := 1 << uint(len(y))
	out := cnf.New()

	for a := 0; a < nAssignments; a++ {
		ren := make(cnf.RenameMap, len(y)+len(zVars))
		for _, yi := range y {
			ren[yi] = store.Fresh(variable.Temporary)
		}
		for _, z := range zVars {
			ren[z] = store.Fresh(variable.Temporary)
		}

		copyCNF := matrix.Rename(ren)
		// Assignment-fixing of y is expressed as unit clauses over the
		// renamed (dedicated per-copy) sentinel variables, rather than
		// literal substitution, so the CNF algebra stays purely
		// clause-based (no special substitution-of-constants path).
		for i, yi := range y {
			lit := cnf.Of(ren[yi])
			if a&(1<<uint(i)) == 0 {
				lit = lit.Not()
			}
			copyCNF.Add(cnf.Clause{lit})
		}

		out.AddAll(copyCNF)
		if budget > 0 && out.Len() > budget {
			return nil, ErrTooLarge{Produced: out.Len(), Budget: budget}
		}
	}

	return out, nil
}

