package parallel

import (
	"context"
	"time"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/ic3"
	"github.com/lonsing-synth/rsynth/internal/engine/learn"
	"github.com/lonsing-synth/rsynth/internal/game"
)

// uselessClause is a useless-input clause in flight between explorers,
// keyed by the restart level at which it was derived.
type uselessClause struct {
	clause cnf.Clause
	level  int
}

// clauseExplorer runs the two-solver counterexample search as a
// worker, exchanging winning-region and useless-input clauses with its
// peers.
type clauseExplorer struct {
	c     *Coordinator
	idx   int
	inbox inbox
	// uin holds incoming useless-input clauses, guarded by the inbox
	// lock.
	uin []uselessClause
}

func newClauseExplorer(c *Coordinator, idx int) *clauseExplorer {
	return &clauseExplorer{c: c, idx: idx}
}

// postUseless delivers a peer's useless-input clause; serialized by the
// inbox lock.
func (x *clauseExplorer) postUseless(uc uselessClause) {
	x.inbox.mu.Lock()
	x.uin = append(x.uin, uc)
	x.inbox.mu.Unlock()
}

func (x *clauseExplorer) drainUseless() []uselessClause {
	x.inbox.mu.Lock()
	defer x.inbox.mu.Unlock()
	out := x.uin
	x.uin = nil
	return out
}

// restart implements the coordinated restart protocol: under the registry lock,
// join the newest restart epoch (or open one, snapshotting the shared
// W as its next-state copy), rebuild both solvers against that
// snapshot, and re-apply any locally known clause the snapshot lacks.
func (x *clauseExplorer) restart(ts *learn.TwoSolver) {
	c := x.c

	c.registryMu.Lock()
	oldW := ts.W().Clone()
	if c.restartLevel <= ts.RestartLevel() {
		c.restartLevel++
		c.winMu.Lock()
		c.restartW = c.winReg.Clone()
		c.winMu.Unlock()
	}
	level := c.restartLevel
	snapshot := c.restartW
	ts.ReplaceWAndRebuild(snapshot)
	ts.SetRestartLevel(level)
	c.registryMu.Unlock()

	have := make(map[string]bool, snapshot.Len())
	for _, cl := range snapshot.Clauses {
		if cl != nil {
			have[game.ClauseKey(cl)] = true
		}
	}
	for _, cl := range oldW.Clauses {
		if cl != nil && !have[game.ClauseKey(cl)] {
			ts.ApplyPeerClause(cl, true)
		}
	}
}

func (x *clauseExplorer) drainInboxes(ts *learn.TwoSolver) {
	for _, tc := range x.inbox.drain() {
		ts.ApplyPeerClause(tc.clause, tc.source == SourceExplorer)
	}
	for _, uc := range x.drainUseless() {
		ts.AddUselessInput(uc.clause, uc.level)
	}
}

func (x *clauseExplorer) run(ctx context.Context) error {
	c := x.c
	log := c.log.WithField("worker", "explorer").WithField("idx", x.idx)
	ts := learn.NewTwoSolver(c.m, c.cfg.NewSAT, learn.Config{}, c.counters, log, &c.registryMu)
	ts.Stop = func() bool { return c.stopped() || ctx.Err() != nil }
	ts.OnUseless = func(cl cnf.Clause, level int) {
		for _, peer := range c.explorers {
			if peer != x {
				peer.postUseless(uselessClause{clause: cl, level: level})
			}
		}
	}
	ts.RestartFn = func() { x.restart(ts) }
	x.restart(ts)

	for {
		if c.stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		c.counters.Iterations.Inc()
		x.drainInboxes(ts)

		_, core, found := ts.FindCounterexample()
		if !found {
			if c.stopped() || ctx.Err() != nil {
				return ctx.Err()
			}
			c.finish(flagRealizable, &game.Region{CNF: ts.W().Clone()})
			return nil
		}

		gen := ts.GeneralizeCore(core)
		state := c.m.RestrictToState(gen)
		if state.AllNegative() {
			c.finish(flagUnrealizable, nil)
			return nil
		}
		clause := state.Negate()
		c.publishClause(clause, SourceExplorer, x)
		ts.Block(clause)
		c.postCounterexample(counterexample{state: state, input: c.m.RestrictToInput(gen)})
		c.postUnminimized(clause)
	}
}

// ifmWorker embeds the IC3-style frame engine as a worker.
type ifmWorker struct {
	c     *Coordinator
	inbox inbox
}

func newIFMWorker(c *Coordinator) *ifmWorker {
	return &ifmWorker{c: c}
}

func (w *ifmWorker) run(ctx context.Context) error {
	c := w.c
	log := c.log.WithField("worker", "ifm")
	eng := ic3.New(c.m, c.cfg.NewSAT, c.counters, log, ic3.Hooks{
		Stop: func() bool { return c.stopped() || ctx.Err() != nil },
		PublishLose: func(cl cnf.Clause) {
			c.publishClause(cl, SourceIFM, w)
		},
		DrainPeer: func() []cnf.Clause {
			items := w.inbox.drain()
			out := make([]cnf.Clause, len(items))
			for i, tc := range items {
				out[i] = tc.clause
			}
			return out
		},
	})

	res, err := eng.Solve(ctx)
	if err != nil {
		if c.stopped() {
			return nil
		}
		return err
	}
	switch res.Verdict {
	case engine.Realizable:
		c.finish(flagRealizable, res.Win)
	case engine.Unrealizable:
		c.finish(flagUnrealizable, nil)
	}
	return nil
}

// runGeneralizer consumes posted counterexamples and enumerates every
// minimal generalization via the hitting-set tree, posting each new
// blocking clause.
func (c *Coordinator) runGeneralizer(ctx context.Context) error {
	for {
		if c.stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ce, ok := c.popCounterexample()
		if !ok {
			time.Sleep(idleWait)
			continue
		}

		w := c.snapshotW()
		solver := c.cfg.NewSAT()
		solver.BeginInc(c.m.AllQueryVars(), false)
		solver.IncAddCNF(c.m.Trans)
		solver.IncAddCNF(c.m.NextSafe)
		solver.IncAddCNF(w)
		solver.IncAddCNF(w.Rename(c.m.Next))

		min := learn.NewResponseMinimizer(solver, ce.input, c.counters)
		for _, cube := range game.EnumerateMinimalCubes(ce.state, min) {
			if c.stopped() {
				return nil
			}
			if cube.AllNegative() {
				c.finish(flagUnrealizable, nil)
				return nil
			}
			c.publishClause(cube.Negate(), SourceGeneralizer, nil)
		}
	}
}

// runMinimizer consumes unminimized winning-region clauses and
// re-generalizes them through the QBF oracle.
func (c *Coordinator) runMinimizer(ctx context.Context) error {
	oracle := c.cfg.NewQBF(&c.registryMu)
	for {
		if c.stopped() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		clause, ok := c.popUnminimized()
		if !ok {
			time.Sleep(idleWait)
			continue
		}

		w := c.snapshotW()
		cube := cubeOf(clause)
		changed := false
		for i := 0; i < len(cube); {
			if len(cube) == 1 {
				break
			}
			tentative := make(cnf.Cube, 0, len(cube)-1)
			tentative = append(tentative, cube[:i]...)
			tentative = append(tentative, cube[i+1:]...)
			if learn.IsLosing(oracle, c.m, w, tentative, c.counters) {
				cube = tentative
				changed = true
				continue
			}
			i++
		}
		if !changed {
			continue
		}
		if cube.AllNegative() {
			c.finish(flagUnrealizable, nil)
			return nil
		}
		// Publish only if the smaller clause is not already implied:
		// some W-state must still satisfy the cube.
		chk := w.Clone()
		chk.AddCubeAsClauses(cube)
		if c.cfg.NewSAT().Solve(chk) {
			c.publishClause(cube.Negate(), SourceMinimizer, nil)
		}
	}
}
