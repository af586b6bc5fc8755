// Package extract turns a winning region into a combinational strategy
// for the controllable inputs and splices it back into the
// specification AIG. The control functions are the
// Herbrand witnesses of the synthesis QBF, computed here by cofactor
// elimination directly on the and-inverter graph: for each controllable
// signal, the positive cofactor of "some completion of the remaining
// controls keeps the successor in W" is itself a sound choice function.
package extract

import (
	"github.com/lonsing-synth/rsynth/internal/aiger"
)

// builder hash-conses new AND gates on top of an existing AIG's literal
// space. Gate definitions of the original graph and of newly built
// gates share one definition table, so cone rebuilds can recurse
// through both.
type builder struct {
	maxVar uint32
	gates  []aiger.AndGate
	def    map[uint32]aiger.AndGate
	cache  map[[2]aiger.Lit]aiger.Lit
}

func newBuilder(orig *aiger.AIG) *builder {
	b := &builder{
		maxVar: uint32(orig.MaxVar),
		def:    make(map[uint32]aiger.AndGate, len(orig.Gates)),
		cache:  make(map[[2]aiger.Lit]aiger.Lit),
	}
	for _, g := range orig.Gates {
		b.def[g.Out.Index()] = g
	}
	return b
}

func lnot(l aiger.Lit) aiger.Lit { return l ^ 1 }

func (b *builder) and(x, y aiger.Lit) aiger.Lit {
	if x == aiger.ConstFalse || y == aiger.ConstFalse {
		return aiger.ConstFalse
	}
	if x == aiger.ConstTrue {
		return y
	}
	if y == aiger.ConstTrue {
		return x
	}
	if x == y {
		return x
	}
	if x == lnot(y) {
		return aiger.ConstFalse
	}
	if x < y {
		x, y = y, x
	}
	key := [2]aiger.Lit{x, y}
	if out, ok := b.cache[key]; ok {
		return out
	}
	b.maxVar++
	out := aiger.Lit(2 * b.maxVar)
	gate := aiger.AndGate{Out: out, LHS: x, RHS: y}
	b.gates = append(b.gates, gate)
	b.def[out.Index()] = gate
	b.cache[key] = out
	return out
}

func (b *builder) or(x, y aiger.Lit) aiger.Lit {
	return lnot(b.and(lnot(x), lnot(y)))
}

// rewrite rebuilds the cone of l with leaf replaced by repl: every gate
// on a path from l to the replaced variable is re-expressed through the
// builder, and untouched subgraphs are folded by the gate cache. memo
// holds the per-call results, keyed by stripped literal index.
func (b *builder) rewrite(l aiger.Lit, leaf aiger.Lit, repl aiger.Lit, memo map[uint32]aiger.Lit) aiger.Lit {
	if l == aiger.ConstFalse || l == aiger.ConstTrue {
		return l
	}
	if l.Strip() == leaf.Strip() {
		if l.Negated() != leaf.Negated() {
			return lnot(repl)
		}
		return repl
	}
	gate, ok := b.def[l.Index()]
	if !ok {
		// An input or latch other than the leaf: unchanged.
		return l
	}
	base, ok := memo[l.Index()]
	if !ok {
		base = b.and(
			b.rewrite(gate.LHS, leaf, repl, memo),
			b.rewrite(gate.RHS, leaf, repl, memo),
		)
		memo[l.Index()] = base
	}
	if l.Negated() {
		return lnot(base)
	}
	return base
}

// cofactor substitutes a constant for leaf in the cone of l.
func (b *builder) cofactor(l aiger.Lit, leaf aiger.Lit, val bool) aiger.Lit {
	repl := aiger.ConstFalse
	if val {
		repl = aiger.ConstTrue
	}
	return b.rewrite(l, leaf, repl, map[uint32]aiger.Lit{})
}

// substitute replaces leaf by an arbitrary function in the cone of l.
func (b *builder) substitute(l aiger.Lit, leaf aiger.Lit, repl aiger.Lit) aiger.Lit {
	return b.rewrite(l, leaf, repl, map[uint32]aiger.Lit{})
}

// dependsOn reports whether the cone of l reaches any literal of vars.
func (b *builder) dependsOn(l aiger.Lit, vars map[uint32]bool) bool {
	seen := map[uint32]bool{}
	var walk func(aiger.Lit) bool
	walk = func(x aiger.Lit) bool {
		idx := x.Index()
		if idx == 0 || seen[idx] {
			return false
		}
		seen[idx] = true
		if vars[idx] {
			return true
		}
		gate, ok := b.def[idx]
		if !ok {
			return false
		}
		return walk(gate.LHS) || walk(gate.RHS)
	}
	return walk(l)
}
