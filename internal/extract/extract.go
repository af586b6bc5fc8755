package extract

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Strategy is the extracted combinational implementation of the
// controllable inputs: fresh AND gates over the specification's input
// and latch literals, plus one output literal per controllable input.
type Strategy struct {
	// Gates are the new AND gates, topologically ordered, referencing
	// only the specification's inputs, latches, constants, and earlier
	// Strategy gates.
	Gates []aiger.AndGate
	// Outputs maps a controllable input's position in aig.Inputs to the
	// literal computing it.
	Outputs map[int]aiger.Lit
	// MaxVar is the extended literal space's highest variable index.
	MaxVar int
}

// Extract synthesizes the control functions from the winning region.
// win ranges over the model's state variables; each
// state variable is mapped to its next-state function in the AIG, so
// "the successor stays in W" becomes a combinational predicate
// F(s,i,c), and the controls are determinized one at a time:
//
//	G_n = F;  G_{j-1} = G_j[c_j←1] ∨ G_j[c_j←0]
//	f_j  = G_j[c_j←1], with c_1..c_{j-1} replaced by f_1..f_{j-1}
//
// Setting c_j exactly when doing so still permits a winning completion
// of the remaining controls is the textbook Herbrand-function
// construction for the (negated) synthesis QBF.
func Extract(aig *aiger.AIG, m *specmodel.Model, win *game.Region, log *logrus.Entry) (*Strategy, error) {
	b := newBuilder(aig)

	// Next-state function of each state variable, in AIG literal terms.
	// The dedicated error bit's next function is the error output.
	nextFn := make(map[variable.ID]aiger.Lit, len(m.State))
	for i, lt := range aig.Latches {
		nextFn[m.State[i]] = lt.Next
	}
	nextFn[m.ErrState] = aig.Outputs[0]

	// F = W evaluated at the successor.
	f := aiger.ConstTrue
	for _, cl := range win.CNF.Clauses {
		if cl == nil {
			continue
		}
		clauseLit := aiger.ConstFalse
		for _, l := range cl {
			fn, ok := nextFn[l.Var()]
			if !ok {
				return nil, fmt.Errorf("extract: winning region mentions non-state variable %s", l.Var())
			}
			if !l.IsPos() {
				fn = lnot(fn)
			}
			clauseLit = b.or(clauseLit, fn)
		}
		f = b.and(f, clauseLit)
	}
	if win.Complemented {
		f = lnot(f)
	}

	var ctrlPos []int
	var ctrlLits []aiger.Lit
	for i, in := range aig.Inputs {
		if aig.IsControllable(i) {
			ctrlPos = append(ctrlPos, i)
			ctrlLits = append(ctrlLits, in)
		}
	}
	n := len(ctrlLits)

	// g[j] = ∃ c_{j}..c_{n-1}. F (0-based: g[n] = F).
	g := make([]aiger.Lit, n+1)
	g[n] = f
	for j := n - 1; j >= 0; j-- {
		g[j] = b.or(
			b.cofactor(g[j+1], ctrlLits[j], true),
			b.cofactor(g[j+1], ctrlLits[j], false),
		)
	}

	outputs := make(map[int]aiger.Lit, n)
	fns := make([]aiger.Lit, n)
	for j := 0; j < n; j++ {
		fj := b.cofactor(g[j+1], ctrlLits[j], true)
		for k := 0; k < j; k++ {
			fj = b.substitute(fj, ctrlLits[k], fns[k])
		}
		fns[j] = fj
		outputs[ctrlPos[j]] = fj
	}

	// The control cones must be free of controllable inputs by
	// construction; anything else is a logic error.
	ctrlVars := make(map[uint32]bool, n)
	for _, cl := range ctrlLits {
		ctrlVars[cl.Index()] = true
	}
	for pos, fn := range outputs {
		if b.dependsOn(fn, ctrlVars) {
			return nil, fmt.Errorf("extract: control function for input %d still depends on a controllable input", pos)
		}
	}

	// Keep only the gates the control cones actually reach: the F and
	// elimination-chain scaffolding (which still mentions controllable
	// and original-gate literals) stays behind.
	needed := map[uint32]bool{}
	var mark func(aiger.Lit)
	mark = func(l aiger.Lit) {
		idx := l.Index()
		if idx == 0 || idx <= uint32(aig.MaxVar) || needed[idx] {
			return
		}
		gate, ok := b.def[idx]
		if !ok {
			return
		}
		needed[idx] = true
		mark(gate.LHS)
		mark(gate.RHS)
	}
	for _, fn := range outputs {
		mark(fn)
	}
	kept := make([]aiger.AndGate, 0, len(needed))
	for _, gate := range b.gates {
		if needed[gate.Out.Index()] {
			kept = append(kept, gate)
		}
	}

	log.WithFields(logrus.Fields{
		"controls": n,
		"gates":    len(kept),
	}).Debug("strategy extracted")

	return &Strategy{Gates: kept, Outputs: outputs, MaxVar: int(b.maxVar)}, nil
}
