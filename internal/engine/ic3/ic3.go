// Package ic3 implements an incremental-induction frame engine:
// per-rank frontiers R[k] refined by proof obligations,
// blocked state-input pairs U[k], and forward clause propagation until
// two adjacent frames coincide. The fixpoint frame is the antagonist's
// winning region; its complement is reported as the protagonist's.
package ic3

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Hooks let the parallel coordinator embed the engine as a worker. All
// fields are optional; the single-threaded mode leaves them nil.
type Hooks struct {
	// Stop is polled between oracle calls; true aborts the solve.
	Stop func() bool
	// PublishLose is invoked for every clause added to the global W.
	PublishLose func(clause cnf.Clause)
	// DrainPeer returns clauses learned by other workers since the
	// last call; they join the local W.
	DrainPeer func() []cnf.Clause
}

// Engine is the IC3-style frame engine.
type Engine struct {
	m        *specmodel.Model
	newSAT   func() sat.Solver
	counters *stats.Counters
	log      *logrus.Entry
	hooks    Hooks

	// win is the global protagonist over-approximation W, a clause set
	// over state variables seeded with Safe.
	win *cnf.CNF

	// r and u are the frame and blocked-transition clause sets; r[0]
	// is ¬P. The solver pairs are created lazily per level, index 0
	// unused, so each pair's lifetime matches its frame's.
	r         []*cnf.CNF
	u         []*cnf.CNF
	gotoLower []sat.Solver
	genBlock  []sat.Solver
	gotoWin   sat.Solver

	initCube cnf.Cube
	errLit   cnf.Lit
}

// New builds the engine. hooks may be the zero value.
func New(m *specmodel.Model, newSAT func() sat.Solver, counters *stats.Counters, log *logrus.Entry, hooks Hooks) *Engine {
	e := &Engine{
		m:        m,
		newSAT:   newSAT,
		counters: counters,
		log:      log.WithField("engine", "ic3"),
		hooks:    hooks,
		win:      m.Safe.Clone(),
		initCube: m.InitialCube(),
		errLit:   cnf.Of(m.ErrState),
	}
	e.r = []*cnf.CNF{m.Unsafe.Clone()}
	e.u = []*cnf.CNF{m.Unsafe.Clone()}
	e.gotoLower = []sat.Solver{nil}
	e.genBlock = []sat.Solver{nil}

	e.gotoWin = newSAT()
	e.gotoWin.BeginInc(m.AllQueryVars(), false)
	e.gotoWin.IncAddCNF(m.Trans)
	e.gotoWin.IncAddCNF(m.NextSafe)
	return e
}

func (e *Engine) stopped() bool { return e.hooks.Stop != nil && e.hooks.Stop() }

// drainPeers merges clauses posted by other workers into the local W
// and the goto-win solver's next-state copy.
func (e *Engine) drainPeers() {
	if e.hooks.DrainPeer == nil {
		return
	}
	for _, cl := range e.hooks.DrainPeer() {
		e.win.AddSimplified(cl)
		e.gotoWin.IncAddClause(e.renameNext(cl))
	}
}

func (e *Engine) renameNext(cl cnf.Clause) cnf.Clause {
	carrier := cnf.New()
	carrier.Add(cl)
	return carrier.Rename(e.m.Next).Clauses[0]
}

// Solve runs the outer loop: grow the frontier, block
// the initial obligation at each rank, propagate, and stop when two
// adjacent frames agree or the initial state is losing.
func (e *Engine) Solve(ctx context.Context) (engine.Result, error) {
	for k := 1; ; k++ {
		if err := ctx.Err(); err != nil {
			return engine.Result{}, err
		}
		if e.stopped() {
			return engine.Result{}, context.Canceled
		}
		e.counters.Iterations.Inc()
		e.log.WithField("k", k).Debug("frontier iteration")

		lose := e.recBlockCube(e.initCube, k)
		if lose {
			return engine.Result{Verdict: engine.Unrealizable}, nil
		}
		if e.stopped() {
			return engine.Result{}, context.Canceled
		}

		equal := e.propagateBlockedStates(k)
		if e.stopped() {
			return engine.Result{}, context.Canceled
		}
		if equal > 0 {
			e.log.WithFields(logrus.Fields{"lower": equal - 1, "upper": equal}).
				Debug("adjacent frames equal, fixpoint reached")
			return engine.Result{
				Verdict: engine.Realizable,
				Win:     &game.Region{CNF: e.getR(equal - 1).Clone(), Complemented: true},
			}, nil
		}
	}
}

// recBlockCube decides whether rank(state) > level by working through a
// priority queue of proof obligations. It returns true
// when the state (always the initial state here) turned out losing.
func (e *Engine) recBlockCube(state cnf.Cube, level int) bool {
	queue := game.NewObligationQueue()
	queue.PushObligation(&game.ProofObligation{State: state, Level: level})

	for queue.Len() > 0 {
		if e.stopped() {
			return false
		}
		ob := queue.PopObligation()
		e.drainPeers()

		if e.isLose(ob.State) {
			continue
		}
		if e.isBlocked(ob.State, ob.Level) {
			if ob.PredStateInput != nil {
				e.genAndBlockTrans(ob.PredStateInput, ob.PredControl, ob.Level+1)
			}
			continue
		}

		e.counters.SATCalls.Inc()
		res := e.getGotoLower(ob.Level).IncSATModelOrCore(ob.State, nil, e.m.AllQueryVars())
		if res.Outcome == sat.Sat {
			if unrealizable := e.handleTransition(queue, ob, res.Model); unrealizable {
				return true
			}
			continue
		}

		// No transition from this sub-cube to R[level-1]: block it
		// here and at every lower level, then push it forward.
		e.addBlockedState(res.Core, ob.Level)
		if ob.PredStateInput != nil {
			e.genAndBlockTrans(ob.PredStateInput, ob.PredControl, ob.Level+1)
		}
	}
	return false
}

// handleTransition processes a satisfiable goto-lower query: the
// antagonist found a move from ob.State toward R[level-1]. It reports
// true when the game turned out unrealizable.
func (e *Engine) handleTransition(queue *game.ObligationQueue, ob *game.ProofObligation, model cnf.Cube) bool {
	succ := e.nextAsPresent(model)

	if ob.Level > 1 && !e.isLose(succ) {
		// The successor still looks winning: decide it one rank down
		// first, then come back to this obligation.
		queue.PushObligation(&game.ProofObligation{
			State: succ, Level: ob.Level - 1,
			PredStateInput: e.presentInput(model),
			PredControl:    e.m.RestrictToControl(model),
		})
		queue.PushObligation(ob)
		return false
	}

	// Successor is losing (or we are at the lowest rank): can the
	// protagonist steer this state-input pair into W instead?
	stateCube := e.m.RestrictToState(model)
	inCube := e.m.RestrictToInput(model)
	e.drainPeers()
	e.counters.SATCalls.Inc()
	resp := e.gotoWin.IncSATModelOrCore(stateCube, inCube, e.m.AllQueryVars())
	if resp.Outcome == sat.Sat {
		winSucc := e.nextAsPresent(resp.Model)
		winSI := e.presentInput(resp.Model)
		winCtrl := e.m.RestrictToControl(resp.Model)
		if ob.Level == 1 || e.isBlocked(winSucc, ob.Level-1) {
			e.genAndBlockTrans(winSI, winCtrl, ob.Level)
		} else {
			queue.PushObligation(&game.ProofObligation{
				State: winSucc, Level: ob.Level - 1,
				PredStateInput: winSI, PredControl: winCtrl,
			})
		}
		queue.PushObligation(ob)
		return false
	}

	// The control was forced: every state in the core is losing.
	core := resp.Core
	if core.AllNegative() {
		return true
	}
	e.addLose(core)
	return false
}

// addLose removes a state cube from the global W.
func (e *Engine) addLose(core cnf.Cube) {
	clause := core.Negate()
	e.win.AddSimplified(clause)
	e.counters.BlockedClauses.Inc()
	e.counters.WinningRegionSize.Set(float64(e.win.Len()))
	e.gotoWin.IncAddClause(e.renameNext(clause))
	if e.hooks.PublishLose != nil {
		e.hooks.PublishLose(clause)
	}
}

// addBlockedState removes core from R[level] and every lower frame,
// forcing the error literal into the clause so ¬P never leaves the
// blocked set, then propagates the clause forward while it holds.
func (e *Engine) addBlockedState(core cnf.Cube, level int) {
	clause := core.Negate()
	if !cnf.Cube(clause).Contains(e.errLit) {
		clause = append(clause, e.errLit)
	}
	nextClause := e.renameNext(clause)
	for j := 0; j <= level; j++ {
		e.getR(j).Add(clause)
		e.incAddIfLive(j+1, nextClause)
	}

	// Push the clause forward as far as it keeps holding: no
	// transition from its cube into R[j-1] means no state of the cube
	// belongs to R[j] either.
	negClause := append(cnf.Cube(nil), core...)
	if !negClause.Contains(e.errLit.Not()) {
		negClause = append(negClause, e.errLit.Not())
	}
	for j := level + 1; j < len(e.r); j++ {
		e.counters.SATCalls.Inc()
		if e.getGotoLower(j).IncSAT(negClause) {
			break
		}
		e.getR(j).Add(clause)
		e.incAddIfLive(j+1, nextClause)
	}
}

// incAddIfLive feeds the next-state copy of a frame clause to the
// solver pair of the level above, if that pair already exists; a pair
// created later preloads the accumulated frame instead.
func (e *Engine) incAddIfLive(level int, nextClause cnf.Clause) {
	if level < len(e.gotoLower) {
		e.gotoLower[level].IncAddClause(nextClause)
	}
	if level < len(e.genBlock) {
		e.genBlock[level].IncAddClause(nextClause)
	}
}

// genAndBlockTrans generalizes a blocked transition against R[level-1]′
// (unsat-core over the gen solver with the control cube assumed) and
// records it in U[1..level].
func (e *Engine) genAndBlockTrans(si, ctrl cnf.Cube, level int) {
	e.counters.SATCalls.Inc()
	res := e.getGenBlock(level).IncSATModelOrCore(si, ctrl, nil)
	if res.Outcome != sat.Unsat {
		panic(fmt.Sprintf("ic3: transition %v with control %v unexpectedly reaches the lower frame", si, ctrl))
	}
	clause := res.Core.Negate()
	for j := 1; j <= level; j++ {
		e.getU(j).AddSimplified(clause)
		if j < len(e.gotoLower) {
			e.gotoLower[j].IncAddClause(clause)
		}
	}
}

// propagateBlockedStates pushes frame clauses forward and reports N > 0
// when R[N-1] and R[N] coincide.
func (e *Engine) propagateBlockedStates(maxLevel int) int {
	for i := 0; i <= maxLevel; i++ {
		e.getR(i).RemoveDuplicates()
	}
	for i := 1; i <= maxLevel; i++ {
		if e.stopped() {
			return 0
		}
		equal := true
		have := clauseKeys(e.getR(i + 1))
		for _, cl := range e.getR(i).Clauses {
			if cl == nil {
				continue
			}
			if have[keyOf(cl)] {
				continue
			}
			negClause := make(cnf.Cube, len(cl))
			for n, l := range cl {
				negClause[n] = l.Not()
			}
			e.counters.SATCalls.Inc()
			if e.getGotoLower(i+1).IncSAT(negClause) {
				equal = false
				continue
			}
			e.getR(i + 1).Add(cl)
			e.incAddIfLive(i+2, e.renameNext(cl))
		}
		if equal {
			return i + 1
		}
	}
	return 0
}

func clauseKeys(c *cnf.CNF) map[string]bool {
	out := make(map[string]bool, c.Len())
	for _, cl := range c.Clauses {
		if cl != nil {
			out[keyOf(cl)] = true
		}
	}
	return out
}

func keyOf(cl cnf.Clause) string {
	sorted := append(cnf.Clause(nil), cl...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	b := make([]byte, 0, len(sorted)*4)
	for _, m := range sorted {
		b = append(b, []byte(m.String())...)
		b = append(b, ',')
	}
	return string(b)
}

// isLose reports whether the full state cube falsifies the global W.
func (e *Engine) isLose(state cnf.Cube) bool {
	e.drainPeers()
	return !e.win.ContainsSatAssignment(state)
}

// isBlocked reports whether the full state cube is outside R[level].
func (e *Engine) isBlocked(state cnf.Cube, level int) bool {
	return !e.getR(level).ContainsSatAssignment(state)
}

// nextAsPresent extracts the successor state from a transition model,
// renamed to present-state literals.
func (e *Engine) nextAsPresent(model cnf.Cube) cnf.Cube {
	out := make(cnf.Cube, 0, len(e.m.State))
	for _, l := range model {
		if e.m.Store.Info(l.Var()).Kind != variable.StateNext {
			continue
		}
		mapped := e.m.Next[l.Var()]
		if l.IsPos() {
			out = append(out, cnf.Of(mapped))
		} else {
			out = append(out, cnf.Of(mapped).Not())
		}
	}
	return out
}

// presentInput extracts the present-state and input literals of a
// transition model.
func (e *Engine) presentInput(model cnf.Cube) cnf.Cube {
	out := make(cnf.Cube, 0, len(model))
	out = append(out, e.m.RestrictToState(model)...)
	out = append(out, e.m.RestrictToInput(model)...)
	return out
}

func (e *Engine) getR(i int) *cnf.CNF {
	for len(e.r) <= i {
		e.r = append(e.r, cnf.New())
		e.counters.FrameCount.Set(float64(len(e.r)))
	}
	return e.r[i]
}

func (e *Engine) getU(i int) *cnf.CNF {
	for len(e.u) <= i {
		e.u = append(e.u, cnf.New())
	}
	return e.u[i]
}

// getGotoLower lazily creates the solver holding U[i] ∧ T ∧ R[i-1]′.
func (e *Engine) getGotoLower(i int) sat.Solver {
	for len(e.gotoLower) <= i {
		idx := len(e.gotoLower)
		s := e.newSAT()
		s.BeginInc(e.m.AllQueryVars(), false)
		s.IncAddCNF(e.m.Trans)
		if idx == 1 {
			s.IncAddCNF(e.m.NextUnsafe)
		} else {
			s.IncAddCNF(e.getR(idx - 1).Rename(e.m.Next))
		}
		for _, cl := range e.getU(idx).Clauses {
			if cl != nil {
				s.IncAddClause(cl)
			}
		}
		e.gotoLower = append(e.gotoLower, s)
	}
	return e.gotoLower[i]
}

// getGenBlock lazily creates the solver holding T ∧ R[i-1]′.
func (e *Engine) getGenBlock(i int) sat.Solver {
	for len(e.genBlock) <= i {
		idx := len(e.genBlock)
		s := e.newSAT()
		s.BeginInc(e.m.AllQueryVars(), false)
		s.IncAddCNF(e.m.Trans)
		if idx == 1 {
			s.IncAddCNF(e.m.NextUnsafe)
		} else {
			s.IncAddCNF(e.getR(idx - 1).Rename(e.m.Next))
		}
		e.genBlock = append(e.genBlock, s)
	}
	return e.genBlock[i]
}
