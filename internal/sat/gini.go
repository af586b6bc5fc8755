package sat

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

const (
	giniSat   = 1
	giniUnsat = -1
)

func toLit(m cnf.Lit) z.Lit {
	return z.Dimacs2Lit(int(m))
}

func fromLit(m z.Lit) cnf.Lit {
	return cnf.Lit(m.Dimacs())
}

func toCube(c cnf.Cube) []z.Lit {
	out := make([]z.Lit, len(c))
	for i, m := range c {
		out[i] = toLit(m)
	}
	return out
}

// giniSolver is the in-process SAT adapter over github.com/go-air/gini.
// It is the sole in-process backend; an
// out-of-process backend (invoking an external SAT binary via
// internal/xtool) would implement the same Solver interface without
// sharing any state with this one.
type giniSolver struct {
	g       inter.S
	store   *variable.Store
	opts    Options
	incOpen bool

	// guards implements inc_push/inc_pop atop a solver that has no native clause-retraction:
	// every clause added within a push scope is tagged with that
	// scope's guard literal, and inc_pop permanently asserts the guard
	// true, which trivially satisfies (and so neutralizes) every
	// tagged clause from then on. While a scope is open, every
	// incremental solve assumes its guard false, so the tagged clauses
	// are in force until the matching inc_pop.
	guards []variable.ID
}

// NewGini returns a Solver backed by a fresh gini instance. store
// supplies fresh ids for inc_push scope guards; it should be the same
// Store used to build the CNFs this Solver will be asked to solve.
func NewGini(store *variable.Store, opts Options) Solver {
	return &giniSolver{g: gini.New(), store: store, opts: opts}
}

func (s *giniSolver) requireInc(op string) {
	if !s.incOpen {
		panic(errNotIncremental{op})
	}
}

func (s *giniSolver) currentGuard() (cnf.Lit, bool) {
	if len(s.guards) == 0 {
		return 0, false
	}
	return cnf.Of(s.guards[len(s.guards)-1]), true
}

// assumeOpenGuards assumes every open scope guard false for the next
// incremental solve.
func (s *giniSolver) assumeOpenGuards() {
	for _, guard := range s.guards {
		s.g.Assume(toLit(cnf.Of(guard).Not()))
	}
}

func (s *giniSolver) addClauseTo(g inter.Adder, cl cnf.Clause) {
	if guard, ok := s.currentGuard(); ok && g == inter.Adder(s.g) {
		tagged := make(cnf.Clause, len(cl)+1)
		copy(tagged, cl)
		tagged[len(cl)] = guard
		cl = tagged
	}
	for _, m := range cl {
		g.Add(toLit(m))
	}
	g.Add(z.LitNull)
}

func (s *giniSolver) addCNFTo(g inter.Adder, c *cnf.CNF) {
	for _, cl := range c.Clauses {
		if cl == nil {
			continue
		}
		s.addClauseTo(g, cl)
	}
}

// Solve performs a stateless one-shot check, independent of any open
// incremental session, so it never disturbs BeginInc state.
func (s *giniSolver) Solve(c *cnf.CNF) bool {
	g := gini.New()
	s.addCNFTo(g, c)
	return g.Solve() == giniSat
}

func (s *giniSolver) SolveModel(c *cnf.CNF, relevant []variable.ID) (cnf.Cube, bool) {
	g := gini.New()
	s.addCNFTo(g, c)
	if g.Solve() != giniSat {
		return nil, false
	}
	return modelOf(g, relevant), true
}

func modelOf(g inter.S, relevant []variable.ID) cnf.Cube {
	model := make(cnf.Cube, len(relevant))
	for i, id := range relevant {
		m := cnf.Of(id)
		if g.Value(toLit(m)) {
			model[i] = m
		} else {
			model[i] = m.Not()
		}
	}
	return model
}

func (s *giniSolver) BeginInc(keep []variable.ID, randomizeModels bool) {
	// gini has no variable-elimination preprocessing exposed through
	// inter.S, so "keep" has nothing to protect against here; it is
	// accepted for interface parity with backends that do preprocess
	// (e.g. an out-of-process backend piping through a SAT preprocessor).
	_ = keep
	_ = randomizeModels
	s.incOpen = true
}

func (s *giniSolver) IncAddClause(cl cnf.Clause) {
	s.requireInc("IncAddClause")
	s.addClauseTo(s.g, cl)
}

func (s *giniSolver) IncAddCNF(c *cnf.CNF) {
	s.requireInc("IncAddCNF")
	s.addCNFTo(s.g, c)
}

func (s *giniSolver) IncAddCube(c cnf.Cube) {
	s.requireInc("IncAddCube")
	for _, m := range c {
		s.addClauseTo(s.g, cnf.Clause{m})
	}
}

func (s *giniSolver) IncAddNegCube(c cnf.Cube) {
	s.requireInc("IncAddNegCube")
	s.addClauseTo(s.g, c.Negate())
}

func (s *giniSolver) IncPush() {
	s.requireInc("IncPush")
	s.guards = append(s.guards, s.store.Fresh(variable.Temporary))
}

func (s *giniSolver) IncPop() {
	s.requireInc("IncPop")
	n := len(s.guards)
	if n == 0 {
		panic("sat: IncPop without matching IncPush")
	}
	guard := s.guards[n-1]
	s.guards = s.guards[:n-1]
	s.addClauseTo(s.g, cnf.Clause{cnf.Of(guard)})
}

func (s *giniSolver) IncSAT(assumptions cnf.Cube) bool {
	s.requireInc("IncSAT")
	s.assumeOpenGuards()
	s.g.Assume(toCube(assumptions)...)
	return s.g.Solve() == giniSat
}

func (s *giniSolver) IncSATModelOrCore(assumptionCube, split cnf.Cube, relevant []variable.ID) ModelOrCore {
	s.requireInc("IncSATModelOrCore")

	// Both cubes are asserted as hard assumptions; they differ only in
	// core extraction, which keeps assumptionCube's literals and drops
	// split's (see coreOf).
	s.assumeOpenGuards()
	s.g.Assume(toCube(split)...)
	s.g.Assume(toCube(assumptionCube)...)

	if s.g.Solve() == giniSat {
		return ModelOrCore{Outcome: Sat, Model: modelOf(s.g, relevant)}
	}

	core := s.coreOf(assumptionCube)
	if s.opts.MinimizeCores {
		core = s.minimizeCore(core)
	}
	return ModelOrCore{Outcome: Unsat, Core: core}
}

func (s *giniSolver) coreOf(assumptionCube cnf.Cube) cnf.Cube {
	why := s.g.Why(nil)
	inAssumptions := make(map[cnf.Lit]bool, len(assumptionCube))
	for _, m := range assumptionCube {
		inAssumptions[m] = true
	}
	var core cnf.Cube
	for _, m := range why {
		lit := fromLit(m)
		if inAssumptions[lit] {
			core = append(core, lit)
		}
	}
	if core == nil {
		// Conservatively fall back to the full assumption cube if the
		// solver's why-trail didn't map back to any of it.
		core = append(cnf.Cube(nil), assumptionCube...)
	}
	return core
}

// minimizeCore reduces core to a local minimum by trying to drop each
// literal and re-checking unsatisfiability.
func (s *giniSolver) minimizeCore(core cnf.Cube) cnf.Cube {
	current := append(cnf.Cube(nil), core...)
	for i := 0; i < len(current); {
		candidate := append(append(cnf.Cube(nil), current[:i]...), current[i+1:]...)
		s.assumeOpenGuards()
		s.g.Assume(toCube(candidate)...)
		if s.g.Solve() == giniUnsat {
			current = candidate
			continue
		}
		i++
	}
	return current
}
