// Package specmodel builds the five derived CNFs that make up the
// specification model (Trans, Init, Safe, NextSafe, NextUnsafe) from a
// parsed AIG, over a shared variable.Store.
//
// The model always carries a dedicated error state bit: the AIG's error
// output is folded into a present/next variable pair whose next-state
// copy is defined (in Trans) as the output function over (s,i,c). With
// that normalization, Safe and NextSafe are single unit clauses over
// state variables, and every frame, winning-region clause, and blocked
// cube in the engines ranges over state variables only.
package specmodel

import (
	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// Model is the specification's derived CNF family, plus the variable
// groupings every engine needs to build its own queries on top.
type Model struct {
	Store *variable.Store

	State          []variable.ID // present-state, parallel to StateNext
	StateNext      []variable.ID
	Uncontrollable []variable.ID
	Controllable   []variable.ID

	// ErrState / ErrStateNext are the designated error state bit and
	// its next-state copy; P(s) = ¬ErrState. They are the last entries
	// of State / StateNext.
	ErrState     variable.ID
	ErrStateNext variable.ID

	// Next is the present<->next renaming used throughout the engines
	// (see cnf.SwapPresentToNext).
	Next cnf.RenameMap

	Trans      *cnf.CNF
	Init       *cnf.CNF
	Safe       *cnf.CNF
	Unsafe     *cnf.CNF
	NextSafe   *cnf.CNF
	NextUnsafe *cnf.CNF
}

// InitialCube returns the full all-zero initial state as a cube over
// the present-state variables.
func (m *Model) InitialCube() cnf.Cube {
	cube := make(cnf.Cube, len(m.State))
	for i, s := range m.State {
		cube[i] = cnf.Of(s).Not()
	}
	return cube
}

// StateInput returns the present-state and uncontrollable-input
// variables, the "relevant" set for counterexample models.
func (m *Model) StateInput() []variable.ID {
	out := make([]variable.ID, 0, len(m.State)+len(m.Uncontrollable))
	out = append(out, m.State...)
	out = append(out, m.Uncontrollable...)
	return out
}

// AllQueryVars returns state, input, control, and next-state variables,
// the keep-set handed to incremental SAT sessions.
func (m *Model) AllQueryVars() []variable.ID {
	out := make([]variable.ID, 0, 2*len(m.State)+len(m.Uncontrollable)+len(m.Controllable))
	out = append(out, m.State...)
	out = append(out, m.Uncontrollable...)
	out = append(out, m.Controllable...)
	out = append(out, m.StateNext...)
	return out
}

// RestrictToState keeps only the literals of cube whose variable is a
// present-state variable, preserving order. Counterexample models from
// a QBF oracle cover every outermost existential, so restriction is
// mandatory before generalization.
func (m *Model) RestrictToState(cube cnf.Cube) cnf.Cube {
	return m.restrictToKind(cube, variable.StatePresent)
}

// RestrictToInput keeps only the uncontrollable-input literals of cube.
func (m *Model) RestrictToInput(cube cnf.Cube) cnf.Cube {
	return m.restrictToKind(cube, variable.Uncontrollable)
}

// RestrictToControl keeps only the controllable-input literals of cube.
func (m *Model) RestrictToControl(cube cnf.Cube) cnf.Cube {
	return m.restrictToKind(cube, variable.Controllable)
}

func (m *Model) restrictToKind(cube cnf.Cube, kind variable.Kind) cnf.Cube {
	out := make(cnf.Cube, 0, len(cube))
	for _, l := range cube {
		if m.Store.Info(l.Var()).Kind == kind {
			out = append(out, l)
		}
	}
	return out
}

// circuit maps an AIG literal index to the cnf.Lit that represents it
// under the current variable allocation, and accumulates the Tseitin
// clauses defining every AND gate along the way.
type circuit struct {
	store   *variable.Store
	byIdx   map[uint32]cnf.Lit
	clauses *cnf.CNF
}

func newCircuit(store *variable.Store) *circuit {
	return &circuit{store: store, byIdx: map[uint32]cnf.Lit{}, clauses: cnf.New()}
}

// resolve returns the signed cnf.Lit for an AIG literal. Gates are
// listed in topological order in a well-formed AIGER file, so a single
// forward pass populating byIdx as gates are visited suffices.
func (c *circuit) resolve(l aiger.Lit) cnf.Lit {
	idx := l.Index()
	if idx == 0 {
		// AIGER literal 0/1 is the constant false/true; represented by
		// a dedicated always-false temporary with a forcing unit clause.
		base, ok := c.byIdx[0]
		if !ok {
			v := c.store.Fresh(variable.Temporary)
			base = cnf.Of(v)
			c.clauses.Add(cnf.Clause{base.Not()})
			c.byIdx[0] = base
		}
		if l.Negated() {
			return base.Not()
		}
		return base
	}
	base, ok := c.byIdx[idx]
	if !ok {
		panic("specmodel: AIG literal index used before definition")
	}
	if l.Negated() {
		return base.Not()
	}
	return base
}

// bind registers idx (an input or latch-current index) as corresponding
// to v, without adding any defining clause.
func (c *circuit) bind(idx uint32, v variable.ID) {
	c.byIdx[idx] = cnf.Of(v)
}

// visitGate allocates a fresh temporary for gate.Out and adds the
// standard 3-clause Tseitin AND encoding: out <-> (lhs ∧ rhs).
func (c *circuit) visitGate(gate aiger.AndGate) {
	lhs := c.resolve(gate.LHS)
	rhs := c.resolve(gate.RHS)
	out := c.store.Fresh(variable.Temporary)
	outLit := cnf.Of(out)

	c.clauses.Add(cnf.Clause{outLit.Not(), lhs})
	c.clauses.Add(cnf.Clause{outLit.Not(), rhs})
	c.clauses.Add(cnf.Clause{outLit, lhs.Not(), rhs.Not()})

	c.byIdx[gate.Out.Index()] = outLit
}

// Build constructs a Model from a validated AIG (the caller must have
// already called aig.Validate()).
func Build(aig *aiger.AIG) *Model {
	store := variable.New()
	c := newCircuit(store)

	uncontrollable := make([]variable.ID, 0, len(aig.Inputs))
	controllable := make([]variable.ID, 0, len(aig.Inputs))
	for i, in := range aig.Inputs {
		kind := variable.Uncontrollable
		if aig.IsControllable(i) {
			kind = variable.Controllable
		}
		v := store.FreshNamed(kind, aig.InputName(i))
		c.bind(in.Index(), v)
		if kind == variable.Controllable {
			controllable = append(controllable, v)
		} else {
			uncontrollable = append(uncontrollable, v)
		}
	}

	state := make([]variable.ID, 0, len(aig.Latches)+1)
	for _, lt := range aig.Latches {
		v := store.Fresh(variable.StatePresent)
		c.bind(lt.Lit.Index(), v)
		state = append(state, v)
	}

	for _, g := range aig.Gates {
		c.visitGate(g)
	}

	stateNext := make([]variable.ID, 0, len(aig.Latches)+1)
	for _, lt := range aig.Latches {
		nextLit := c.resolve(lt.Next)
		v := store.Fresh(variable.StateNext)
		nv := cnf.Of(v)
		c.clauses.Add(cnf.Clause{nv.Not(), nextLit})
		c.clauses.Add(cnf.Clause{nv, nextLit.Not()})
		stateNext = append(stateNext, v)
	}

	// The error state bit: its next-state copy equals the AIG's error
	// output evaluated at the current step, so "the error output fired"
	// is recorded as reaching a state with the error bit set. Its
	// present-state copy is left unconstrained by Trans, like any latch.
	errLit := c.resolve(aig.Outputs[0])
	errState := store.FreshNamed(variable.StatePresent, "err")
	errNext := store.Fresh(variable.StateNext)
	en := cnf.Of(errNext)
	c.clauses.Add(cnf.Clause{en.Not(), errLit})
	c.clauses.Add(cnf.Clause{en, errLit.Not()})
	state = append(state, errState)
	stateNext = append(stateNext, errNext)

	trans := c.clauses.Clone()

	initCNF := cnf.New()
	for _, s := range state {
		initCNF.Add(cnf.Clause{cnf.Of(s).Not()})
	}

	safe := cnf.New()
	safe.Add(cnf.Clause{cnf.Of(errState).Not()})
	unsafe := cnf.New()
	unsafe.Add(cnf.Clause{cnf.Of(errState)})
	nextSafe := cnf.New()
	nextSafe.Add(cnf.Clause{cnf.Of(errNext).Not()})
	nextUnsafe := cnf.New()
	nextUnsafe.Add(cnf.Clause{cnf.Of(errNext)})

	return &Model{
		Store:          store,
		State:          state,
		StateNext:      stateNext,
		Uncontrollable: uncontrollable,
		Controllable:   controllable,
		ErrState:       errState,
		ErrStateNext:   errNext,
		Next:           cnf.PresentNextPairing(state, stateNext),
		Trans:          trans,
		Init:           initCNF,
		Safe:           safe,
		Unsafe:         unsafe,
		NextSafe:       nextSafe,
		NextUnsafe:     nextUnsafe,
	}
}
