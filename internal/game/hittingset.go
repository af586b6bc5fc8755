package game

import "github.com/lonsing-synth/rsynth/internal/cnf"

// HittingSetNode is one entry of the Reiter-style hitting-set tree
// used for enumerating every minimal
// generalization of a counterexample: "the queue holds literal sets
// that a generalization 'must-not-contain'". A node is fulfilled by
// any previously-computed minimal cube disjoint from Forbidden;
// otherwise the caller re-generalizes from the counterexample with
// Forbidden pre-removed.
type HittingSetNode struct {
	Forbidden map[cnf.Lit]bool
}

// HittingSetQueue is a FIFO deque of HittingSetNodes.
type HittingSetQueue struct {
	items []HittingSetNode
}

// NewHittingSetQueue returns a queue seeded with the empty
// must-not-contain set, the root of the tree.
func NewHittingSetQueue() *HittingSetQueue {
	return &HittingSetQueue{items: []HittingSetNode{{Forbidden: map[cnf.Lit]bool{}}}}
}

// Empty reports whether the queue has no pending nodes.
func (q *HittingSetQueue) Empty() bool { return len(q.items) == 0 }

// PopFront removes and returns the earliest-enqueued node.
func (q *HittingSetQueue) PopFront() HittingSetNode {
	n := q.items[0]
	q.items = q.items[1:]
	return n
}

// PushChild enqueues a node whose Forbidden set extends parent by one
// literal, the standard Reiter expansion step: for every literal m of
// a newly discovered minimal cube, a child node is created that must
// not contain m, forcing the next generalization to drop a different
// literal.
func (q *HittingSetQueue) PushChild(parent HittingSetNode, extra cnf.Lit) {
	child := HittingSetNode{Forbidden: make(map[cnf.Lit]bool, len(parent.Forbidden)+1)}
	for m := range parent.Forbidden {
		child.Forbidden[m] = true
	}
	child.Forbidden[extra] = true
	q.items = append(q.items, child)
}

// DisjointFrom reports whether cube shares no literal with n.Forbidden,
// i.e. whether a previously-computed minimal cube can fulfill this node
// without any further solver work.
func (n HittingSetNode) DisjointFrom(cube cnf.Cube) bool {
	for _, m := range cube {
		if n.Forbidden[m] {
			return false
		}
	}
	return true
}

// Minimizer generalizes a counterexample state cube to a minimal
// losing sub-cube, optionally pre-removing a forbidden set of literals
// before attempting to drop the rest. Implementations live in
// internal/engine/learn (the generalization step needs a live SAT
// solver and the current winning region, which this package does not
// own).
type Minimizer interface {
	Generalize(full cnf.Cube, forbid map[cnf.Lit]bool) (cnf.Cube, bool)
}

// EnumerateMinimalCubes runs the hitting-set tree to completion,
// returning every distinct minimal generalization of full found by m.
// known caches previously discovered cubes so a node whose Forbidden set is already disjoint
// from one of them doesn't need a fresh solver call.
func EnumerateMinimalCubes(full cnf.Cube, m Minimizer) []cnf.Cube {
	q := NewHittingSetQueue()
	var known []cnf.Cube
	seen := make(map[string]bool)

	for !q.Empty() {
		node := q.PopFront()

		var cube cnf.Cube
		reused := false
		for _, k := range known {
			if node.DisjointFrom(k) {
				cube = k
				reused = true
				break
			}
		}
		if !reused {
			var ok bool
			cube, ok = m.Generalize(full, node.Forbidden)
			if !ok {
				continue // this branch of the tree is dead: no generalization avoiding Forbidden exists
			}
			key := clauseKeyOfCube(cube)
			if !seen[key] {
				seen[key] = true
				known = append(known, cube)
			}
		}

		if reused {
			continue // nothing new to expand; this node was only a consistency check
		}
		for _, lit := range cube {
			q.PushChild(node, lit)
		}
	}

	return known
}

func clauseKeyOfCube(cube cnf.Cube) string {
	return clauseKey(cnf.Clause(cube))
}
