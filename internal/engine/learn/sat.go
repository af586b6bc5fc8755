package learn

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/config"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

// SATEngine is the SAT-oracle learning engine: the two-solver
// search finds and pre-generalizes counterexamples, and blocking
// clauses are refined purely with incremental SAT queries.
type SATEngine struct {
	m        *specmodel.Model
	newSAT   func() sat.Solver
	cfg      Config
	counters *stats.Counters
	log      *logrus.Entry
}

// NewSAT returns the two-solver learning engine.
func NewSAT(m *specmodel.Model, newSAT func() sat.Solver, cfg Config, counters *stats.Counters, log *logrus.Entry) *SATEngine {
	return &SATEngine{
		m:        m,
		newSAT:   newSAT,
		cfg:      cfg,
		counters: counters,
		log:      log.WithField("engine", "learn-sat"),
	}
}

// Solve runs the learning loop with the two-solver counterexample
// search until the winning region is a fixpoint or the initial state
// falls out of it.
func (e *SATEngine) Solve(ctx context.Context) (engine.Result, error) {
	store := e.m.Store

	search := NewTwoSolver(e.m, e.newSAT, e.cfg, e.counters, e.log, nil)
	store.Push()
	defer store.Pop()
	search.Rebuild()
	search.Stop = func() bool { return ctx.Err() != nil }

	blocked := 0
	for {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, err
		}
		e.counters.Iterations.Inc()

		_, core, found := search.FindCounterexample()
		if !found {
			if err := ctx.Err(); err != nil {
				return engine.Result{}, err
			}
			return engine.Result{
				Verdict: engine.Realizable,
				Win:     &game.Region{CNF: search.W().Clone()},
			}, nil
		}

		gen := search.GeneralizeCore(core)
		state := e.m.RestrictToState(gen)
		if state.AllNegative() {
			return engine.Result{Verdict: engine.Unrealizable}, nil
		}

		var cubes []cnf.Cube
		if e.cfg.Mode.Has(config.ModeHittingSet) {
			min := search.NewMinimizer(e.m.RestrictToInput(gen))
			cubes = game.EnumerateMinimalCubes(state, min)
		}
		if len(cubes) == 0 {
			cubes = []cnf.Cube{state}
		}
		for _, g := range cubes {
			if g.AllNegative() {
				return engine.Result{Verdict: engine.Unrealizable}, nil
			}
			search.Block(g.Negate())
			blocked++
		}

		if blocked >= e.cfg.interval() {
			blocked = 0
			e.counters.MaintenancePasses.Inc()
			rebuilt := cnf.New()
			for _, cl := range search.W().Clauses {
				if cl != nil {
					rebuilt.AddSimplified(cl)
				}
			}
			search.win = rebuilt
			store.ResetToLastPush()
			search.Rebuild()
		}
	}
}
