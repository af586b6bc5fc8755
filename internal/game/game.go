// Package game holds the data types the IC3-style engine and the
// parallel coordinator share: winning regions, frames, proof
// obligations, and the hitting-set tree used to enumerate minimal
// counterexample generalizations.
package game

import (
	"container/heap"

	"github.com/lonsing-synth/rsynth/internal/cnf"
)

// WinningRegion is the protagonist's current over-approximation of the
// safe states: a CNF over state
// variables, grown monotonically by AddSimplified during the fixpoint
// search.
type WinningRegion struct {
	W *cnf.CNF
}

// NewWinningRegion returns a WinningRegion seeded with an initial guess
// (by convention, a clone of the specification's Safe CNF).
func NewWinningRegion(seed *cnf.CNF) *WinningRegion {
	return &WinningRegion{W: seed.Clone()}
}

// Block adds a blocking clause to the region via AddSimplified, the
// sole insertion path used during fixpoint iteration.
func (r *WinningRegion) Block(clause cnf.Clause) {
	r.W.AddSimplified(clause)
}

// Region is a set of states described by a clause set, possibly
// complemented: the learning engines report the winning region as the
// CNF itself (Complemented false), the IC3-style engine reports it as
// the complement of the antagonist's fixpoint frame (Complemented
// true). Both forms range over state variables only, which is what the
// strategy extractor consumes.
type Region struct {
	CNF          *cnf.CNF
	Complemented bool
}

// Holds reports whether the full state cube is a member of the region.
// The check is syntactic (ContainsSatAssignment), so cube must assign
// every state variable the region's clauses mention.
func (r *Region) Holds(cube cnf.Cube) bool {
	sat := r.CNF.ContainsSatAssignment(cube)
	if r.Complemented {
		return !sat
	}
	return sat
}

// Frame is one level of the IC3-style engine's frame sequence: R[k]
// over-approximates "states the antagonist can force to reach ¬P in
// <= k steps". Frame owns its clause set; the
// engine that produces a Frame also owns its associated solver pair.
type Frame struct {
	Level   int
	Clauses *cnf.CNF
}

// NewFrame returns an empty Frame at level, typically seeded
// separately by the caller (R[0] = ¬P, by convention).
func NewFrame(level int) *Frame {
	return &Frame{Level: level, Clauses: cnf.New()}
}

// Add adds a clause to the frame via AddSimplified, preserving the
// spec's monotonicity invariant (R[k] >= R[k+1] as clause sets) when
// the caller also adds the same clause to every R[j], j <= k.
func (f *Frame) Add(clause cnf.Clause) {
	f.Clauses.AddSimplified(clause)
}

// Equal reports whether f and other hold the same clause set, used by
// the outer loop to detect that the frontier has reached a fixpoint.
// Clauses are compared as sets of literals, independent of insertion order or duplicate tombstones.
func (f *Frame) Equal(other *Frame) bool {
	a, b := clauseSet(f.Clauses), clauseSet(other.Clauses)
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func clauseSet(c *cnf.CNF) map[string]bool {
	out := make(map[string]bool, c.Len())
	for _, cl := range c.Clauses {
		if cl != nil {
			out[clauseKey(cl)] = true
		}
	}
	return out
}

// ClauseKey returns an order-independent identity key for a clause,
// for callers tracking clause sets across workers.
func ClauseKey(cl cnf.Clause) string { return clauseKey(cl) }

func clauseKey(cl cnf.Clause) string {
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

// ProofObligation is a (state, level, optional predecessor) tuple:
// "decide whether rank(s) > level". Priority is level, ties broken
// FIFO.
type ProofObligation struct {
	State          cnf.Cube
	Level          int
	PredStateInput cnf.Cube // optional: nil if this is a root obligation
	PredControl    cnf.Cube // optional

	seq int // insertion order, for FIFO tie-breaking
}

// ObligationQueue is a priority queue of ProofObligations ordered by
// Level (lowest first), FIFO among equal levels. It implements
// container/heap.Interface directly, the same "plain min-heap" shape
// this queue needs: the number of concurrent obligations stays small.
type ObligationQueue struct {
	items  []*ProofObligation
	nextSeq int
}

// NewObligationQueue returns an empty queue.
func NewObligationQueue() *ObligationQueue {
	return &ObligationQueue{}
}

// PushObligation adds ob to the queue. It is not named Push so callers
// don't confuse it with container/heap.Push, which it calls and which
// in turn calls the heap.Interface Push method below.
func (q *ObligationQueue) PushObligation(ob *ProofObligation) {
	ob.seq = q.nextSeq
	q.nextSeq++
	heap.Push(q, ob)
}

// PopObligation removes and returns the minimum-level, earliest-FIFO
// obligation, or nil if the queue is empty.
func (q *ObligationQueue) PopObligation() *ProofObligation {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(*ProofObligation)
}

func (q *ObligationQueue) Len() int { return len(q.items) }

func (q *ObligationQueue) Less(i, j int) bool {
	if q.items[i].Level != q.items[j].Level {
		return q.items[i].Level < q.items[j].Level
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *ObligationQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
}

func (q *ObligationQueue) Push(x any) {
	q.items = append(q.items, x.(*ProofObligation))
}

func (q *ObligationQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
