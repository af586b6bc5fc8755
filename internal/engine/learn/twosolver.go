package learn

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/config"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

// TwoSolver is the two-competing-SAT-solvers counterexample search of
// the learning loop. solverI holds T ∧ ¬W′ ∧ W, where the next-state copy
// ¬W′ is a snapshot taken at the last restart and only the
// current-state copy is updated eagerly; solverCtrl holds
// T ∧ P(s′) ∧ W ∧ W′ with both copies updated eagerly.
//
// TwoSolver is shared between the single-threaded SAT engine and the
// parallel coordinator's clause explorers; the latter feed peer clauses
// in through ApplyPeerClause and take over restarts via RestartFn.
type TwoSolver struct {
	m        *specmodel.Model
	newSAT   func() sat.Solver
	counters *stats.Counters
	log      *logrus.Entry

	// allocMu, when non-nil, is the registry lock guarding fresh
	// variable allocation and restarts. Single-threaded
	// callers leave it nil.
	allocMu *sync.Mutex

	// prev is non-nil when the RC reachability strengthening restricts
	// counterexample search to initial-or-reachable states.
	prev *prevContext

	win        *cnf.CNF
	solverI    sat.Solver
	solverCtrl sat.Solver

	// precise records whether solverI's next-state copy of W is
	// coherent with win. Only a coherent unsat answer proves that no
	// counterexample exists.
	precise      bool
	restartLevel int

	// pending holds clauses from non-explorer sources received while
	// precise; they join solverI's current-state copy at the next
	// restart.
	pending []cnf.Clause

	// Stop, when non-nil, is polled between oracle calls; a true return
	// aborts the current search (parallel result-flag termination).
	Stop func() bool
	// OnUseless, when non-nil, is invoked for every useless-input
	// clause derived locally, keyed by the current restart level, so
	// peers at the same level can share it.
	OnUseless func(clause cnf.Clause, level int)
	// RestartFn, when non-nil, replaces the default restart: the
	// parallel coordinator uses it to serialize restarts through the
	// registry lock and align explorers on a shared W snapshot. The
	// hook must leave both solvers rebuilt and the region coherent.
	RestartFn func()
}

// NewTwoSolver builds the search over a fresh pair of solvers seeded
// with W = Safe. Rebuild must be called once before FindCounterexample.
func NewTwoSolver(m *specmodel.Model, newSAT func() sat.Solver, cfg Config, counters *stats.Counters, log *logrus.Entry, allocMu *sync.Mutex) *TwoSolver {
	t := &TwoSolver{
		m:        m,
		newSAT:   newSAT,
		counters: counters,
		log:      log.WithField("engine", "two-solver"),
		allocMu:  allocMu,
		win:      m.Safe.Clone(),
	}
	if cfg.Mode.Has(config.ModeRC) {
		t.prev = newPrevContext(m)
	}
	return t
}

// W exposes the current winning-region clause set. Callers must not
// mutate it; Block and ApplyPeerClause are the write paths.
func (t *TwoSolver) W() *cnf.CNF { return t.win }

// RestartLevel returns the restart epoch used to key useless-input
// clause exchange.
func (t *TwoSolver) RestartLevel() int { return t.restartLevel }

func (t *TwoSolver) lockAlloc() {
	if t.allocMu != nil {
		t.allocMu.Lock()
	}
}

func (t *TwoSolver) unlockAlloc() {
	if t.allocMu != nil {
		t.allocMu.Unlock()
	}
}

func (t *TwoSolver) stopped() bool { return t.Stop != nil && t.Stop() }

// Rebuild constructs both solvers from the current W. It is called
// once at start, at every restart, and after maintenance resets.
func (t *TwoSolver) Rebuild() {
	t.lockAlloc()
	defer t.unlockAlloc()
	t.rebuildLocked()
}

func (t *TwoSolver) rebuildLocked() {
	keep := t.m.AllQueryVars()

	t.solverI = t.newSAT()
	t.solverI.BeginInc(keep, true)
	t.solverI.IncAddCNF(t.m.Trans)
	wNext := t.win.Rename(t.m.Next)
	t.solverI.IncAddCNF(wNext.Negate(t.m.Store))
	t.solverI.IncAddCNF(t.win)
	if t.prev != nil {
		t.solverI.IncAddCNF(t.prev.Constraint(t.win))
	}

	t.solverCtrl = t.newSAT()
	t.solverCtrl.BeginInc(keep, false)
	t.solverCtrl.IncAddCNF(t.m.Trans)
	t.solverCtrl.IncAddCNF(t.m.NextSafe)
	t.solverCtrl.IncAddCNF(t.win)
	t.solverCtrl.IncAddCNF(wNext)

	t.pending = t.pending[:0]
	t.precise = true
}

func (t *TwoSolver) restart() {
	t.counters.Restarts.Inc()
	if t.RestartFn != nil {
		t.RestartFn()
		return
	}
	t.lockAlloc()
	t.restartLevel++
	t.rebuildLocked()
	t.unlockAlloc()
}

// ReplaceWAndRebuild swaps the local region for snapshot and rebuilds
// both solvers. The caller must hold the registry lock; no internal
// locking is performed.
func (t *TwoSolver) ReplaceWAndRebuild(snapshot *cnf.CNF) {
	t.win = snapshot.Clone()
	t.rebuildLocked()
}

// SetRestartLevel aligns this search's restart epoch with the
// coordinator-wide one.
func (t *TwoSolver) SetRestartLevel(level int) { t.restartLevel = level }

// Block adds a locally learned blocking clause to W and updates both
// solvers eagerly in the copies that can take it cheaply: solverI's
// current-state copy only, solverCtrl's both copies.
func (t *TwoSolver) Block(clause cnf.Clause) {
	t.win.AddSimplified(clause)
	t.counters.BlockedClauses.Inc()
	t.counters.WinningRegionSize.Set(float64(t.win.Len()))
	t.solverI.IncAddClause(clause)
	if t.prev != nil {
		t.solverI.IncAddClause(t.prev.PrevClause(clause))
	}
	t.addToCtrl(clause)
	t.precise = false
}

// ApplyPeerClause merges a clause learned by another worker. Clauses
// from explorers join solverI's current-state copy immediately; clauses
// from other worker kinds join it only when the solver is already known
// to be imprecise; otherwise they wait in pending until the next
// rebuild. Either way the solver is marked imprecise afterwards.
func (t *TwoSolver) ApplyPeerClause(clause cnf.Clause, fromExplorer bool) {
	t.win.AddSimplified(clause)
	t.addToCtrl(clause)
	if fromExplorer || !t.precise {
		t.solverI.IncAddClause(clause)
		if t.prev != nil {
			t.solverI.IncAddClause(t.prev.PrevClause(clause))
		}
	} else {
		t.pending = append(t.pending, clause)
	}
	t.precise = false
}

func (t *TwoSolver) addToCtrl(clause cnf.Clause) {
	t.solverCtrl.IncAddClause(clause)
	carrier := cnf.New()
	carrier.Add(clause)
	t.solverCtrl.IncAddClause(carrier.Rename(t.m.Next).Clauses[0])
}

// AddUselessInput installs a useless-input clause received from a peer
// explorer. It is dropped unless the peer observed the same restart
// level, since the clause is only sound against the next-state W
// snapshot of that level.
func (t *TwoSolver) AddUselessInput(clause cnf.Clause, level int) {
	if level != t.restartLevel {
		return
	}
	t.solverI.IncAddClause(clause)
}

// FindCounterexample runs the inner search loop. It returns the
// generalized state cube and the full state-input core witnessing that
// the antagonist can force leaving W, or found=false when the search
// proved (coherently) that no counterexample exists. A nil, nil, false
// return with Stop set may also mean the search was aborted.
func (t *TwoSolver) FindCounterexample() (state, stateInput cnf.Cube, found bool) {
	for {
		if t.stopped() {
			return nil, nil, false
		}

		t.counters.SATCalls.Inc()
		res := t.solverI.IncSATModelOrCore(nil, nil, t.m.StateInput())
		if res.Outcome == sat.Unsat {
			if t.precise {
				return nil, nil, false
			}
			t.restart()
			continue
		}

		si := res.Model

		t.counters.SATCalls.Inc()
		resp := t.solverCtrl.IncSATModelOrCore(si, nil, t.m.Controllable)
		if resp.Outcome == sat.Unsat {
			// No control response keeps the successor in W: the core
			// over (s,i) is a counterexample generalization.
			core := resp.Core
			return t.m.RestrictToState(core), core, true
		}

		// A response exists: this state-input pair is of no use to the
		// antagonist. Generalize it against ¬W′ with the control cube
		// assumed and record the useless-input clause.
		ctrl := resp.Model
		t.counters.SATCalls.Inc()
		blocked := t.solverI.IncSATModelOrCore(si, ctrl, nil)
		if blocked.Outcome != sat.Unsat {
			panic(fmt.Sprintf("learn: control response %v does not block %v against the stale region", ctrl, si))
		}
		useless := blocked.Core.Negate()
		t.solverI.IncAddClause(useless)
		if t.OnUseless != nil {
			t.OnUseless(useless, t.restartLevel)
		}
	}
}

// GeneralizeCore drops further literals from a counterexample core by
// re-querying solverCtrl: a literal stays dropped when the reduced
// state-input cube still has no control response into W.
func (t *TwoSolver) GeneralizeCore(core cnf.Cube) cnf.Cube {
	cand := append(cnf.Cube(nil), core...)
	for i := 0; i < len(cand); {
		if len(cand) == 1 {
			break
		}
		tentative := make(cnf.Cube, 0, len(cand)-1)
		tentative = append(tentative, cand[:i]...)
		tentative = append(tentative, cand[i+1:]...)
		t.counters.SATCalls.Inc()
		if !t.solverCtrl.IncSAT(tentative) {
			cand = tentative
			continue
		}
		i++
	}
	t.counters.Generalizations.Inc()
	return cand
}

// responseMinimizer adapts ctrl-solver generalization to
// game.Minimizer for hitting-set enumeration: the input part of the
// counterexample is held fixed as the witness while state literals are
// varied.
type responseMinimizer struct {
	solver   sat.Solver
	input    cnf.Cube
	counters *stats.Counters
}

// NewResponseMinimizer returns a game.Minimizer enumerating minimal
// state-cube generalizations of a counterexample whose input witness is
// input, against a solver holding T ∧ P(s′) ∧ W ∧ W′.
func NewResponseMinimizer(solver sat.Solver, input cnf.Cube, counters *stats.Counters) game.Minimizer {
	return &responseMinimizer{solver: solver, input: input, counters: counters}
}

// NewMinimizer returns a game.Minimizer over this search's ctrl solver.
func (t *TwoSolver) NewMinimizer(input cnf.Cube) game.Minimizer {
	return NewResponseMinimizer(t.solverCtrl, input, t.counters)
}

func (c *responseMinimizer) Generalize(full cnf.Cube, forbid map[cnf.Lit]bool) (cnf.Cube, bool) {
	cand := make(cnf.Cube, 0, len(full))
	for _, l := range full {
		if !forbid[l] {
			cand = append(cand, l)
		}
	}
	assume := func(state cnf.Cube) cnf.Cube {
		out := make(cnf.Cube, 0, len(state)+len(c.input))
		out = append(out, state...)
		out = append(out, c.input...)
		return out
	}
	c.counters.SATCalls.Inc()
	if len(cand) == 0 || c.solver.IncSAT(assume(cand)) {
		return nil, false
	}
	for i := 0; i < len(cand); {
		if len(cand) == 1 {
			break
		}
		tentative := make(cnf.Cube, 0, len(cand)-1)
		tentative = append(tentative, cand[:i]...)
		tentative = append(tentative, cand[i+1:]...)
		c.counters.SATCalls.Inc()
		if !c.solver.IncSAT(assume(tentative)) {
			cand = tentative
			continue
		}
		i++
	}
	c.counters.Generalizations.Inc()
	return cand, true
}
