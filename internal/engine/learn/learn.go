// Package learn implements the counterexample-guided learning
// engines: a loop that shrinks a winning-region guess from Safe
// downward by finding counterexample states, generalizing them by
// literal dropping against a SAT or QBF oracle, and blocking the
// generalized cube. The QBF flavor asks one quantified query per
// counterexample; the SAT flavor races two incremental solvers.
package learn

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/config"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/qbf"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Config carries the per-engine algorithmic variant selection and the
// maintenance tunable.
type Config struct {
	Mode config.Mode
	// MaintenanceInterval is the number of blocked cubes between
	// simplify/recompute/snapshot-reset passes; 0 means the default.
	MaintenanceInterval int
}

func (c Config) interval() int {
	if c.MaintenanceInterval > 0 {
		return c.MaintenanceInterval
	}
	return 100
}

const shuffleSeed = 0x5eed

// QBFEngine is the QBF-oracle learning engine. It also
// serves the qbf_reduction back end, where the oracle is the
// expansion-based in-process solver rather than an external binary.
type QBFEngine struct {
	m        *specmodel.Model
	oracle   qbf.Solver
	cfg      Config
	counters *stats.Counters
	log      *logrus.Entry
	rng      *rand.Rand

	win  *cnf.CNF
	prev *prevContext
}

// NewQBF returns a learning engine that decides both the counterexample
// check and the generalization query through the given QBF oracle.
func NewQBF(m *specmodel.Model, oracle qbf.Solver, cfg Config, counters *stats.Counters, log *logrus.Entry) *QBFEngine {
	e := &QBFEngine{
		m:        m,
		oracle:   oracle,
		cfg:      cfg,
		counters: counters,
		log:      log.WithField("engine", "learn-qbf"),
		rng:      rand.New(rand.NewSource(shuffleSeed)),
		win:      m.Safe.Clone(),
	}
	if cfg.Mode.Has(config.ModeRG) || cfg.Mode.Has(config.ModeRC) {
		e.prev = newPrevContext(m)
	}
	return e
}

// Solve runs the learning loop to the greatest fixpoint of safe
// states.
func (e *QBFEngine) Solve(ctx context.Context) (engine.Result, error) {
	store := e.m.Store
	store.Push()
	defer store.Pop()

	blocked := 0
	for {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, err
		}
		e.counters.Iterations.Inc()

		ce, found := e.findCounterexample()
		if !found {
			e.log.WithField("clauses", e.win.Len()).Debug("no counterexample left, fixpoint reached")
			return engine.Result{
				Verdict: engine.Realizable,
				Win:     &game.Region{CNF: e.win.Clone()},
			}, nil
		}

		full := e.m.RestrictToState(ce)
		e.rng.Shuffle(len(full), func(i, j int) { full[i], full[j] = full[j], full[i] })

		var cubes []cnf.Cube
		if e.cfg.Mode.Has(config.ModeHittingSet) {
			cubes = game.EnumerateMinimalCubes(full, e)
		} else {
			g, ok := e.Generalize(full, nil)
			if !ok {
				return engine.Result{}, fmt.Errorf("learn: counterexample %v is not losing under generalization", full)
			}
			cubes = []cnf.Cube{g}
		}
		if len(cubes) == 0 {
			return engine.Result{}, fmt.Errorf("learn: hitting-set enumeration produced no generalization for %v", full)
		}

		for _, g := range cubes {
			if g.AllNegative() {
				e.log.Debug("generalized losing cube covers the initial state")
				return engine.Result{Verdict: engine.Unrealizable}, nil
			}
			e.win.AddSimplified(g.Negate())
			e.counters.BlockedClauses.Inc()
			blocked++
		}
		e.counters.WinningRegionSize.Set(float64(e.win.Len()))

		if blocked >= e.cfg.interval() {
			blocked = 0
			e.maintain()
		}
	}
}

// findCounterexample solves ∃s,i. ∀c. ∃s′,t. W ∧ T ∧ ¬W′, with the
// RC reachability strengthening when enabled.
func (e *QBFEngine) findCounterexample() (cnf.Cube, bool) {
	matrix := cnf.New()
	matrix.AddAll(e.win)
	matrix.AddAll(e.m.Trans)
	wNext := e.win.Rename(e.m.Next)
	matrix.AddAll(wNext.Negate(e.m.Store))

	outer := make([]variable.ID, 0, len(e.m.State)+len(e.m.Uncontrollable))
	outer = append(outer, e.m.State...)
	outer = append(outer, e.m.Uncontrollable...)
	if e.cfg.Mode.Has(config.ModeRC) {
		matrix.AddAll(e.prev.Constraint(e.win))
		outer = append(outer, e.prev.outer...)
	}

	prefix := qbf.Prefix{
		{Quantifier: qbf.Exists, Vars: outer},
		{Quantifier: qbf.ForAll, Vars: e.m.Controllable},
	}
	e.counters.QBFCalls.Inc()
	return e.oracle.IsSatModel(prefix, matrix)
}

// Generalize shrinks a counterexample state cube to a minimal losing
// sub-cube by dropping literals. forbid lists
// literals the result must not contain (hitting-set enumeration); they
// are pre-removed, and Generalize reports false when no losing cube
// avoids them. Generalize implements game.Minimizer.
func (e *QBFEngine) Generalize(full cnf.Cube, forbid map[cnf.Lit]bool) (cnf.Cube, bool) {
	cand := make(cnf.Cube, 0, len(full))
	for _, l := range full {
		if !forbid[l] {
			cand = append(cand, l)
		}
	}
	if len(cand) == 0 || !e.isLosing(cand) {
		return nil, false
	}
	for i := 0; i < len(cand); {
		if len(cand) == 1 {
			break
		}
		tentative := make(cnf.Cube, 0, len(cand)-1)
		tentative = append(tentative, cand[:i]...)
		tentative = append(tentative, cand[i+1:]...)
		if e.isLosing(tentative) {
			cand = tentative
			continue
		}
		i++
	}
	e.counters.Generalizations.Inc()
	return cand, true
}

// isLosing reports whether ∃s. ∀i. ∃c,s′,t. W ∧ T ∧ W′ ∧ cube is
// unsatisfiable, i.e. no state in the cube (and in W) has a control
// response for every input that stays in W. With RG enabled, the query
// is strengthened so that unreachable states never count as winning.
func (e *QBFEngine) isLosing(cube cnf.Cube) bool {
	matrix := cnf.New()
	matrix.AddAll(e.win)
	matrix.AddAll(e.m.Trans)
	matrix.AddAll(e.win.Rename(e.m.Next))
	matrix.AddCubeAsClauses(cube)

	outer := make([]variable.ID, 0, len(e.m.State))
	outer = append(outer, e.m.State...)
	if e.cfg.Mode.Has(config.ModeRG) {
		matrix.AddAll(e.prev.Constraint(e.win))
		outer = append(outer, e.prev.outer...)
	}

	prefix := qbf.Prefix{
		{Quantifier: qbf.Exists, Vars: outer},
		{Quantifier: qbf.ForAll, Vars: e.m.Uncontrollable},
	}
	e.counters.QBFCalls.Inc()
	return !e.oracle.IsSat(prefix, matrix)
}

// IsLosing decides whether every state of cube that lies in w is
// losing: it reports that ∃s. ∀i. ∃c,s′,t. W ∧ T ∧ W′ ∧ cube is
// unsatisfiable. The parallel clause minimizers ask it; the QBF
// engine's generalization step asks the same query through its own
// isLosing method, which adds the RG strengthening when enabled.
func IsLosing(oracle qbf.Solver, m *specmodel.Model, w *cnf.CNF, cube cnf.Cube, counters *stats.Counters) bool {
	matrix := cnf.New()
	matrix.AddAll(w)
	matrix.AddAll(m.Trans)
	matrix.AddAll(w.Rename(m.Next))
	matrix.AddCubeAsClauses(cube)

	prefix := qbf.Prefix{
		{Quantifier: qbf.Exists, Vars: m.State},
		{Quantifier: qbf.ForAll, Vars: m.Uncontrollable},
	}
	counters.QBFCalls.Inc()
	return !oracle.IsSat(prefix, matrix)
}

// maintain is the periodic housekeeping pass: re-simplify W,
// recompute the query CNFs from scratch (they are rebuilt per query
// here, so dropping the negation temporaries is the whole job), and
// reset the variable snapshot.
func (e *QBFEngine) maintain() {
	e.counters.MaintenancePasses.Inc()
	rebuilt := cnf.New()
	for _, cl := range e.win.Clauses {
		if cl != nil {
			rebuilt.AddSimplified(cl)
		}
	}
	e.win = rebuilt
	e.m.Store.ResetToLastPush()
}
