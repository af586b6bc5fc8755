package learn

import (
	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// prevContext is the mirrored previous-time copy of the transition
// system used by the inductive-reachability optimizations. The renaming map
// from every current-step variable to its previous-time twin is built
// once; the previous-time copy of T and every previous-time copy of a
// winning-region clause go through the same map.
type prevContext struct {
	m *specmodel.Model

	// ren maps present-state, input, control, and Trans-temporary ids
	// to fresh PreviousTime ids, and next-state ids to their paired
	// present-state ids, so that Trans.Rename(ren) reads
	// T(s⁻,i⁻,c⁻,s).
	ren cnf.RenameMap

	// initLit is the current_state_is_initial activation literal: when
	// true, the previous-time copy of T and W is disabled and the
	// current state is constrained to the all-zero initial valuation.
	initLit cnf.Lit

	// static holds everything that never changes between queries: the
	// guarded previous-time T, the guarded initial-state clauses, and
	// the state-difference constraint requiring the predecessor to
	// differ from the current state.
	static *cnf.CNF

	// outer lists the variables a reachability-strengthened query must
	// quantify existentially in its outermost block alongside the
	// present state: the previous-time copies, the activation literal,
	// and the per-bit difference markers.
	outer []variable.ID
}

// newPrevContext allocates the mirrored copy. It must run before the
// engine's temporary snapshot is pushed, so the mirror survives
// periodic maintenance resets.
func newPrevContext(m *specmodel.Model) *prevContext {
	store := m.Store
	p := &prevContext{m: m, ren: cnf.RenameMap{}}

	mirror := func(ids []variable.ID) {
		for _, id := range ids {
			prev := store.Fresh(variable.PreviousTime)
			p.ren[id] = prev
			p.outer = append(p.outer, prev)
		}
	}
	mirror(m.State)
	mirror(m.Uncontrollable)
	mirror(m.Controllable)

	seen := map[variable.ID]bool{}
	for _, cl := range m.Trans.Clauses {
		for _, l := range cl {
			v := l.Var()
			if seen[v] {
				continue
			}
			seen[v] = true
			if store.Info(v).Kind == variable.Temporary {
				prev := store.Fresh(variable.PreviousTime)
				p.ren[v] = prev
				p.outer = append(p.outer, prev)
			}
		}
	}
	// The previous step's successor is the current state.
	for i, next := range m.StateNext {
		p.ren[next] = m.State[i]
	}

	initVar := store.Fresh(variable.Temporary)
	p.initLit = cnf.Of(initVar)
	p.outer = append(p.outer, initVar)

	p.static = cnf.New()

	// initLit -> s is the all-zero state.
	for _, s := range m.State {
		p.static.Add(cnf.Clause{p.initLit.Not(), cnf.Of(s).Not()})
	}

	// ¬initLit -> T(s⁻,i⁻,c⁻,s).
	prevTrans := m.Trans.Rename(p.ren)
	for _, cl := range prevTrans.Clauses {
		guarded := make(cnf.Clause, len(cl)+1)
		copy(guarded, cl)
		guarded[len(cl)] = p.initLit
		p.static.Add(guarded)
	}

	// ¬initLit -> the predecessor differs from the current state in at
	// least one bit: diff_j -> (s_j ≠ s⁻_j), and one of the diff bits
	// must be set unless the state is initial.
	anyDiff := cnf.Clause{p.initLit}
	for _, s := range m.State {
		d := store.Fresh(variable.Temporary)
		dl := cnf.Of(d)
		sl := cnf.Of(s)
		pl := cnf.Of(p.ren[s])
		p.static.Add(cnf.Clause{dl.Not(), sl, pl})
		p.static.Add(cnf.Clause{dl.Not(), sl.Not(), pl.Not()})
		anyDiff = append(anyDiff, dl)
		p.outer = append(p.outer, d)
	}
	p.static.Add(anyDiff)

	return p
}

// Constraint returns the full reachability side condition for the
// current winning region: I(s) ∨ (W(s⁻) ∧ T(s⁻,i⁻,c⁻,s) ∧ s⁻ ≠ s),
// as a guarded CNF ready to be conjoined to a check or generalization
// matrix.
func (p *prevContext) Constraint(w *cnf.CNF) *cnf.CNF {
	out := p.static.Clone()
	wPrev := w.Rename(p.ren)
	for _, cl := range wPrev.Clauses {
		if cl == nil {
			continue
		}
		guarded := make(cnf.Clause, len(cl)+1)
		copy(guarded, cl)
		guarded[len(cl)] = p.initLit
		out.Add(guarded)
	}
	return out
}

// PrevClause returns the previous-time copy of a newly learned
// winning-region clause, guarded by the activation literal, for
// engines that maintain the previous-time W incrementally.
func (p *prevContext) PrevClause(cl cnf.Clause) cnf.Clause {
	out := make(cnf.Clause, 0, len(cl)+1)
	carrier := cnf.New()
	carrier.Add(cl)
	renamed := carrier.Rename(p.ren).Clauses[0]
	out = append(out, renamed...)
	out = append(out, p.initLit)
	return out
}
