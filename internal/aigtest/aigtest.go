// Package aigtest holds the shared fixtures for the engine and
// extraction tests: the literal end-to-end scenario circuits, a tiny
// AIG simulator for exhaustive reachability checks on synthesized
// results, and a winning-region verifier backed by the expansion QBF
// solver.
package aigtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/qbf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
)

// The end-to-end scenario circuits. Each constant is an
// ASCII AIGER source.
const (
	// ScenarioUnusedControl: one latch s, error = s, s' = 0, one
	// controllable input present but unused. Realizable.
	ScenarioUnusedControl = `aag 2 1 1 1 0
2
4 0
4
i0 controllable_c
`

	// ScenarioMaskedInput: s' = i ∧ ¬c, error = s. Realizable; c = 1
	// masks the uncontrollable input.
	ScenarioMaskedInput = `aag 4 2 1 1 1
2
4
6 8
6
8 2 5
i0 i
i1 controllable_c
`

	// ScenarioUnsafeInitial: the error output is the constant 1.
	// Unrealizable.
	ScenarioUnsafeInitial = `aag 1 1 0 1 0
2
1
i0 controllable_c
`

	// ScenarioTwoLatchRace: a' = i, b' = c, error = a ∧ ¬b.
	// Realizable with one-step lookahead (c = i).
	ScenarioTwoLatchRace = `aag 5 2 2 1 1
2
4
6 2
8 4
10
10 6 9
i0 i
i1 controllable_c
`

	// ScenarioUselessControl: s' = i, error = s, c has no influence.
	// Unrealizable.
	ScenarioUselessControl = `aag 3 2 1 1 0
2
4
6 2
6
i0 i
i1 controllable_c
`

	// ScenarioChain: error = x2, x2' = x1, x1' = i ∧ ¬c. Realizable;
	// the frame engine needs more than one frontier extension before
	// adjacent frames coincide.
	ScenarioChain = `aag 5 2 2 1 1
2
4
6 10
8 6
8
10 2 5
i0 i
i1 controllable_c
`
)

// Parse reads an ASCII AIGER source and validates it.
func Parse(t *testing.T, src string) *aiger.AIG {
	t.Helper()
	aig, err := aiger.Read(strings.NewReader(src))
	require.NoError(t, err)
	require.NoError(t, aig.Validate())
	return aig
}

// Model parses src and builds its specification model.
func Model(t *testing.T, src string) (*aiger.AIG, *specmodel.Model) {
	t.Helper()
	aig := Parse(t, src)
	return aig, specmodel.Build(aig)
}

// Eval computes all signal values of an AIG for one step. state holds
// one bool per latch (in latch order), inputs one per input. It
// returns the output values and the next-step latch values.
func Eval(aig *aiger.AIG, state, inputs []bool) (outputs, next []bool) {
	values := map[uint32]bool{0: false}
	for i, in := range aig.Inputs {
		values[in.Index()] = inputs[i]
	}
	for i, lt := range aig.Latches {
		values[lt.Lit.Index()] = state[i]
	}
	for _, g := range aig.Gates {
		values[g.Out.Index()] = lit(values, g.LHS) && lit(values, g.RHS)
	}
	for _, o := range aig.Outputs {
		outputs = append(outputs, lit(values, o))
	}
	for _, lt := range aig.Latches {
		next = append(next, lit(values, lt.Next))
	}
	return outputs, next
}

func lit(values map[uint32]bool, l aiger.Lit) bool {
	v := values[l.Index()]
	if l.Negated() {
		return !v
	}
	return v
}

// AssertErrorUnreachable exhaustively explores the state space of an
// input-closed AIG (all controllables already replaced) and fails if
// any reachable state under any input sequence raises the output.
func AssertErrorUnreachable(t *testing.T, aig *aiger.AIG) {
	t.Helper()
	nLatches := len(aig.Latches)
	nInputs := len(aig.Inputs)
	require.LessOrEqual(t, nLatches, 16, "state space too large for exhaustive check")

	encode := func(bits []bool) int {
		v := 0
		for i, b := range bits {
			if b {
				v |= 1 << i
			}
		}
		return v
	}
	decode := func(v, n int) []bool {
		bits := make([]bool, n)
		for i := range bits {
			bits[i] = v&(1<<i) != 0
		}
		return bits
	}

	seen := map[int]bool{0: true}
	frontier := []int{0}
	for len(frontier) > 0 {
		s := frontier[0]
		frontier = frontier[1:]
		state := decode(s, nLatches)
		for in := 0; in < 1<<nInputs; in++ {
			outputs, next := Eval(aig, state, decode(in, nInputs))
			require.False(t, outputs[0],
				"error output raised in state %v under input %v", state, decode(in, nInputs))
			ns := encode(next)
			if !seen[ns] {
				seen[ns] = true
				frontier = append(frontier, ns)
			}
		}
	}
}

// NewExpansionQBF builds the in-process QBF oracle over the model's
// store, reclaiming temporaries per query.
func NewExpansionQBF(m *specmodel.Model) qbf.Solver {
	return qbf.NewExpansion(m.Store, qbf.ExpansionOptions{
		Reclaim: true,
		NewSAT:  func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) },
	})
}

// AssertWinningRegion checks the realizable-side invariants on a
// reported region: the initial state is inside, the region entails
// Safe, and the region is closed under some control response for every
// input.
func AssertWinningRegion(t *testing.T, m *specmodel.Model, region *game.Region) {
	t.Helper()

	require.True(t, region.Holds(m.InitialCube()), "initial state must be in the winning region")

	store := m.Store
	store.Push()
	defer func() {
		store.ResetToLastPush()
		store.Pop()
	}()

	// Region and its complement as CNFs over the shared space.
	var w, notWNext *cnf.CNF
	if !region.Complemented {
		w = region.CNF
		notWNext = region.CNF.Rename(m.Next).Negate(store)
	} else {
		w = region.CNF.Negate(store)
		notWNext = region.CNF.Rename(m.Next)
	}

	// W ⊆ P: W ∧ error-bit must be unsatisfiable.
	solver := sat.NewGini(store, sat.Options{})
	entails := w.Clone()
	entails.AddAll(m.Unsafe)
	require.False(t, solver.Solve(entails), "region must entail the safe states")

	// Closure: ∃s,i. ∀c. ∃s′,t. W ∧ T ∧ ¬W′ must be unsatisfiable.
	matrix := cnf.New()
	matrix.AddAll(w)
	matrix.AddAll(m.Trans)
	matrix.AddAll(notWNext)
	prefix := qbf.Prefix{
		{Quantifier: qbf.Exists, Vars: m.StateInput()},
		{Quantifier: qbf.ForAll, Vars: m.Controllable},
	}
	oracle := qbf.NewExpansion(store, qbf.ExpansionOptions{
		NewSAT: func() sat.Solver { return sat.NewGini(store, sat.Options{}) },
	})
	require.False(t, oracle.IsSat(prefix, matrix),
		"region must be closed under the protagonist's best response")
}
