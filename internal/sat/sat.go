// Package sat defines the polymorphic incremental SAT solver interface
// the winning-region engines are built against, plus an
// in-process adapter over github.com/go-air/gini.
package sat

import (
	"fmt"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Outcome is the three-valued result of a SAT query.
type Outcome int

const (
	Unknown Outcome = iota
	Sat
	Unsat
)

func (o Outcome) String() string {
	switch o {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// ModelOrCore is the result of an incremental solve under assumptions:
// exactly one of Model or Core is populated, according to Outcome.
type ModelOrCore struct {
	Outcome Outcome
	// Model holds, for Sat, the literals of relevant that are true
	// under the found assignment.
	Model cnf.Cube
	// Core holds, for Unsat, a subset of the assumption cube whose
	// conjunction with the permanent clauses is unsatisfiable.
	Core cnf.Cube
}

// errNotIncremental is returned/panicked when an Inc* method is called
// outside an incremental session; that is a programming
// error, so it is fatal rather than recoverable.
type errNotIncremental struct{ op string }

func (e errNotIncremental) Error() string {
	return fmt.Sprintf("sat: %s called before BeginInc", e.op)
}

// Solver is the polymorphic SAT backend interface every engine is
// written against. A Solver has two states: idle and incremental-open;
// methods prefixed Inc require an open incremental session.
type Solver interface {
	// Solve performs a one-shot satisfiability check of cnf.
	Solve(c *cnf.CNF) bool
	// SolveModel is like Solve, but on success also returns the
	// restriction of a satisfying model to relevant.
	SolveModel(c *cnf.CNF, relevant []variable.ID) (cnf.Cube, bool)

	// BeginInc starts an incremental session. Variables in keep must
	// not be eliminated by any solver-internal simplification.
	BeginInc(keep []variable.ID, randomizeModels bool)
	IncAddClause(c cnf.Clause)
	IncAddCNF(c *cnf.CNF)
	IncAddCube(c cnf.Cube)
	IncAddNegCube(c cnf.Cube)
	IncPush()
	IncPop()

	// IncSAT checks satisfiability under the given assumption cube.
	IncSAT(assumptions cnf.Cube) bool
	// IncSATModelOrCore is like IncSAT, but returns a model over
	// relevant on success or a core on failure. Both assumptionCube and
	// split are asserted as hard assumptions for this solve; the split
	// is only in how an Unsat answer is explained — the returned core
	// is restricted to assumptionCube's literals, never split's. The
	// engines rely on this to e.g. fix a concrete input cube while
	// generalizing only the state part of a blocked transition.
	IncSATModelOrCore(assumptionCube, split cnf.Cube, relevant []variable.ID) ModelOrCore
}

// Options configures a Solver's optional behaviors.
type Options struct {
	// MinimizeCores, if set, reduces every unsat core returned by
	// IncSATModelOrCore to a local minimum by trying to drop each
	// literal in turn (O(|core|) extra solves).
	MinimizeCores bool
}
