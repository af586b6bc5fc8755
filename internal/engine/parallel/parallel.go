// Package parallel implements the multi-threaded coordinator:
// a fixed mix of worker kinds, selected by thread count,
// cooperating on one shared winning-region clause database. Clause
// explorers run the two-solver search, an IFM explorer runs the
// IC3-style engine, clause minimizers re-generalize discovered clauses
// through the QBF oracle, and counterexample generalizers enumerate
// all minimal generalizations of posted counterexamples.
package parallel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/qbf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

// Source tags every shared clause with the worker kind that produced
// it; explorers treat clauses from non-explorers specially.
type Source int

const (
	SourceExplorer Source = iota
	SourceGeneralizer
	SourceMinimizer
	SourceIFM
)

// result-flag states; Unknown and the two verdicts mirror
// engine.Verdict, InternalError is the distinguished worker-failure
// state for a worker failure orthogonal to realizability.
const (
	flagUnknown int32 = iota
	flagRealizable
	flagUnrealizable
	flagInternalError
)

// mix is the worker-kind count table by total thread count.
type mix struct {
	explorers, ifm, minimizers, generalizers int
}

func mixFor(threads int) mix {
	switch threads {
	case 1:
		return mix{explorers: 1}
	case 2:
		return mix{explorers: 2}
	case 3:
		return mix{explorers: 2, generalizers: 1}
	case 4:
		return mix{explorers: 2, minimizers: 1, generalizers: 1}
	case 5:
		return mix{explorers: 3, minimizers: 1, generalizers: 1}
	case 6:
		return mix{explorers: 3, ifm: 1, minimizers: 1, generalizers: 1}
	case 7:
		return mix{explorers: 3, ifm: 1, minimizers: 1, generalizers: 2}
	case 8:
		return mix{explorers: 4, ifm: 1, minimizers: 1, generalizers: 2}
	default:
		return mix{explorers: threads - 4, ifm: 1, minimizers: 1, generalizers: 2}
	}
}

// taggedClause is a winning-region clause in flight to a worker inbox.
type taggedClause struct {
	clause cnf.Clause
	source Source
}

// counterexample is a state cube (with its input witness) posted by an
// explorer for exhaustive re-generalization.
type counterexample struct {
	state cnf.Cube
	input cnf.Cube
}

// Config wires the backends the workers draw on.
type Config struct {
	Threads int
	// NewSAT builds one SAT backend; called once per solver instance,
	// never shared across workers.
	NewSAT func() sat.Solver
	// NewQBF builds the minimizers' QBF oracle; mu is the registry lock
	// the oracle must hold while allocating fresh variables.
	NewQBF func(mu *sync.Mutex) qbf.Solver
}

// Coordinator runs the worker fleet and owns all shared state.
type Coordinator struct {
	m        *specmodel.Model
	cfg      Config
	counters *stats.Counters
	log      *logrus.Entry

	// winMu guards the shared winning region; writers append with
	// AddSimplified under the lock held.
	winMu  sync.Mutex
	winReg *cnf.CNF

	// registryMu is the variable-registry lock, held during restarts
	// and fresh-variable allocation. It also guards the restart epoch:
	// restartLevel counts coordinator-wide restarts and restartW is the
	// W snapshot every explorer at that level rebuilt against, so
	// useless-input clauses exchanged at equal levels refer to the same
	// next-state copy.
	registryMu   sync.Mutex
	restartLevel int
	restartW     *cnf.CNF

	unminMu     sync.Mutex
	unminimized []cnf.Clause

	ceMu sync.Mutex
	ces  []counterexample

	result atomic.Int32

	regionMu sync.Mutex
	region   *game.Region

	explorers []*clauseExplorer
	ifms      []*ifmWorker
}

// New builds a coordinator for the given thread count.
func New(m *specmodel.Model, cfg Config, counters *stats.Counters, log *logrus.Entry) *Coordinator {
	return &Coordinator{
		m:        m,
		cfg:      cfg,
		counters: counters,
		log:      log.WithField("engine", "parallel"),
		winReg:   m.Safe.Clone(),
		restartW: m.Safe.Clone(),
	}
}

func (c *Coordinator) stopped() bool { return c.result.Load() != flagUnknown }

// finish publishes a verdict. The first writer wins; later calls are
// no-ops, so a racing realizable/unrealizable pair resolves to
// whichever worker completed first with a sound proof.
func (c *Coordinator) finish(flag int32, region *game.Region) {
	if !c.result.CompareAndSwap(flagUnknown, flag) {
		return
	}
	c.regionMu.Lock()
	c.region = region
	c.regionMu.Unlock()
}

// publishClause appends a clause to the shared winning region and
// broadcasts it to every worker inbox except the poster's own. A
// clause falsified by the initial valuation decides the game.
func (c *Coordinator) publishClause(clause cnf.Clause, source Source, from interface{}) {
	if cubeOf(clause).AllNegative() {
		// ¬clause covers the all-zero state: initial is losing.
		c.finish(flagUnrealizable, nil)
		return
	}
	c.winMu.Lock()
	c.winReg.AddSimplified(clause)
	c.counters.WinningRegionSize.Set(float64(c.winReg.Len()))
	c.winMu.Unlock()
	c.counters.BlockedClauses.Inc()

	for _, w := range c.explorers {
		if w != from {
			w.inbox.post(taggedClause{clause: clause, source: source})
		}
	}
	for _, w := range c.ifms {
		if w != from {
			w.inbox.post(taggedClause{clause: clause, source: source})
		}
	}
}

// cubeOf reads a blocking clause back as the cube it blocks.
func cubeOf(clause cnf.Clause) cnf.Cube {
	cube := make(cnf.Cube, len(clause))
	for i, l := range clause {
		cube[i] = l.Not()
	}
	return cube
}

// snapshotW returns a private copy of the shared winning region.
func (c *Coordinator) snapshotW() *cnf.CNF {
	c.winMu.Lock()
	defer c.winMu.Unlock()
	return c.winReg.Clone()
}

func (c *Coordinator) postCounterexample(ce counterexample) {
	c.ceMu.Lock()
	c.ces = append(c.ces, ce)
	c.ceMu.Unlock()
}

func (c *Coordinator) popCounterexample() (counterexample, bool) {
	c.ceMu.Lock()
	defer c.ceMu.Unlock()
	if len(c.ces) == 0 {
		return counterexample{}, false
	}
	ce := c.ces[0]
	c.ces = c.ces[1:]
	return ce, true
}

func (c *Coordinator) postUnminimized(clause cnf.Clause) {
	c.unminMu.Lock()
	c.unminimized = append(c.unminimized, clause)
	c.unminMu.Unlock()
}

func (c *Coordinator) popUnminimized() (cnf.Clause, bool) {
	c.unminMu.Lock()
	defer c.unminMu.Unlock()
	if len(c.unminimized) == 0 {
		return nil, false
	}
	cl := c.unminimized[0]
	c.unminimized = c.unminimized[1:]
	return cl, true
}

// Solve spawns the worker mix, joins it, and maps the result flag to a
// verdict.
func (c *Coordinator) Solve(ctx context.Context) (engine.Result, error) {
	mx := mixFor(c.cfg.Threads)
	c.log.WithFields(logrus.Fields{
		"threads": c.cfg.Threads, "explorers": mx.explorers, "ifm": mx.ifm,
		"minimizers": mx.minimizers, "generalizers": mx.generalizers,
	}).Debug("starting worker fleet")

	for i := 0; i < mx.explorers; i++ {
		c.explorers = append(c.explorers, newClauseExplorer(c, i))
	}
	for i := 0; i < mx.ifm; i++ {
		c.ifms = append(c.ifms, newIFMWorker(c))
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, w := range c.explorers {
		w := w
		g.Go(func() error { return c.guard(func() error { return w.run(ctx) }) })
	}
	for _, w := range c.ifms {
		w := w
		g.Go(func() error { return c.guard(func() error { return w.run(ctx) }) })
	}
	for i := 0; i < mx.minimizers; i++ {
		g.Go(func() error { return c.guard(func() error { return c.runMinimizer(ctx) }) })
	}
	for i := 0; i < mx.generalizers; i++ {
		g.Go(func() error { return c.guard(func() error { return c.runGeneralizer(ctx) }) })
	}

	err := g.Wait()

	switch c.result.Load() {
	case flagRealizable:
		c.regionMu.Lock()
		region := c.region
		c.regionMu.Unlock()
		return engine.Result{Verdict: engine.Realizable, Win: region}, nil
	case flagUnrealizable:
		return engine.Result{Verdict: engine.Unrealizable}, nil
	default:
		if err == nil {
			err = fmt.Errorf("parallel: workers exited without a verdict")
		}
		return engine.Result{}, err
	}
}

// guard converts a worker panic or error into the distinguished
// internal-error flag so every other worker drains out.
func (c *Coordinator) guard(f func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parallel: worker panic: %v", r)
		}
		if err != nil && err != context.Canceled {
			c.result.CompareAndSwap(flagUnknown, flagInternalError)
		}
	}()
	return f()
}

// inbox is a small lock-guarded mailbox of tagged clauses.
type inbox struct {
	mu    sync.Mutex
	items []taggedClause
}

func (b *inbox) post(tc taggedClause) {
	b.mu.Lock()
	b.items = append(b.items, tc)
	b.mu.Unlock()
}

func (b *inbox) drain() []taggedClause {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.items
	b.items = nil
	return out
}

// idleWait is how long queue-driven workers sleep when their queue is
// empty; they have no oracle to block on while idle.
const idleWait = 2 * time.Millisecond
