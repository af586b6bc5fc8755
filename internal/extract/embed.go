package extract

import (
	"fmt"

	"github.com/lonsing-synth/rsynth/internal/aiger"
)

// Embed splices a Strategy into the specification AIG:
// the controllable inputs are removed, the strategy gates are
// concatenated ahead of the specification's own gates (they only read
// inputs and latches), and every reference to a controllable input is
// renamed onto its strategy output. The whole graph is renumbered into
// a dense, topologically ordered literal space, so both the ASCII and
// the delta-encoded binary writers accept it.
func Embed(orig *aiger.AIG, strat *Strategy) (*aiger.AIG, error) {
	out := &aiger.AIG{InputSym: map[int]string{}}

	// ren maps an old variable index to the (possibly negated) new
	// literal standing for its positive old literal.
	ren := make(map[uint32]aiger.Lit)
	mapLit := func(l aiger.Lit) (aiger.Lit, error) {
		if l == aiger.ConstFalse || l == aiger.ConstTrue {
			return l, nil
		}
		base, ok := ren[l.Index()]
		if !ok {
			return 0, fmt.Errorf("aig embed: literal %d referenced before definition", l)
		}
		if l.Negated() {
			return lnot(base), nil
		}
		return base, nil
	}

	var v uint32

	for i, in := range orig.Inputs {
		if orig.IsControllable(i) {
			continue
		}
		v++
		lit := aiger.Lit(2 * v)
		ren[in.Index()] = lit
		out.Inputs = append(out.Inputs, lit)
		if name := orig.InputName(i); name != "" {
			out.InputSym[len(out.Inputs)-1] = name
		}
	}
	if len(out.Inputs) == len(orig.Inputs) {
		return nil, fmt.Errorf("aig embed: no controllable inputs to replace")
	}

	for i := range orig.Latches {
		v++
		ren[orig.Latches[i].Lit.Index()] = aiger.Lit(2 * v)
	}

	// Strategy gates first: their operands are inputs, latches, and
	// earlier strategy gates, all mapped by now.
	emit := func(g aiger.AndGate) error {
		lhs, err := mapLit(g.LHS)
		if err != nil {
			return err
		}
		rhs, err := mapLit(g.RHS)
		if err != nil {
			return err
		}
		if lhs < rhs {
			lhs, rhs = rhs, lhs
		}
		v++
		newOut := aiger.Lit(2 * v)
		ren[g.Out.Index()] = newOut
		out.Gates = append(out.Gates, aiger.AndGate{Out: newOut, LHS: lhs, RHS: rhs})
		return nil
	}
	for _, g := range strat.Gates {
		if err := emit(g); err != nil {
			return nil, err
		}
	}

	// Wire each controllable input onto its strategy output. A negated
	// or constant function maps directly at the literal level; no
	// pass-through gate is needed.
	for i, in := range orig.Inputs {
		if !orig.IsControllable(i) {
			continue
		}
		fn, ok := strat.Outputs[i]
		if !ok {
			return nil, fmt.Errorf("aig embed: no strategy output for controllable input %d", i)
		}
		mapped, err := mapLit(fn)
		if err != nil {
			return nil, err
		}
		ren[in.Index()] = mapped
	}

	// The specification's own gates follow; controllable references
	// now resolve through the strategy.
	for _, g := range orig.Gates {
		if err := emit(g); err != nil {
			return nil, err
		}
	}

	for _, lt := range orig.Latches {
		cur, err := mapLit(lt.Lit)
		if err != nil {
			return nil, err
		}
		next, err := mapLit(lt.Next)
		if err != nil {
			return nil, err
		}
		out.Latches = append(out.Latches, aiger.Latch{Lit: cur, Next: next})
	}
	for _, o := range orig.Outputs {
		mapped, err := mapLit(o)
		if err != nil {
			return nil, err
		}
		out.Outputs = append(out.Outputs, mapped)
	}

	out.MaxVar = int(v)
	out.Comments = append(out.Comments, orig.Comments...)
	return out, nil
}
