package synth_test

import (
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/aigtest"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/ic3"
	"github.com/lonsing-synth/rsynth/internal/engine/learn"
	"github.com/lonsing-synth/rsynth/internal/extract"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

// randomAIG draws a bounded random specification: up to 3 latches, 2
// uncontrollable and 2 controllable inputs, and a handful of AND gates
// over the signals defined so far.
func randomAIG(rng *rand.Rand) *aiger.AIG {
	nUnc := 1 + rng.Intn(2)
	nCtrl := 1 + rng.Intn(2)
	nLatch := 1 + rng.Intn(3)
	nGates := rng.Intn(6)

	aig := &aiger.AIG{InputSym: map[int]string{}}
	v := 0
	for i := 0; i < nUnc+nCtrl; i++ {
		v++
		aig.Inputs = append(aig.Inputs, aiger.Lit(2*v))
		if i < nUnc {
			aig.InputSym[i] = fmt.Sprintf("i%d", i)
		} else {
			aig.InputSym[i] = fmt.Sprintf("controllable_c%d", i-nUnc)
		}
	}
	for i := 0; i < nLatch; i++ {
		v++
		aig.Latches = append(aig.Latches, aiger.Latch{Lit: aiger.Lit(2 * v)})
	}

	// Any already-defined signal, possibly negated; index 0 is the
	// constant.
	pick := func() aiger.Lit {
		l := aiger.Lit(2 * rng.Intn(v+1))
		if rng.Intn(2) == 1 {
			l = l.Not()
		}
		return l
	}
	for i := 0; i < nGates; i++ {
		lhs, rhs := pick(), pick()
		v++
		aig.Gates = append(aig.Gates, aiger.AndGate{Out: aiger.Lit(2 * v), LHS: lhs, RHS: rhs})
	}
	for i := range aig.Latches {
		aig.Latches[i].Next = pick()
	}
	aig.Outputs = []aiger.Lit{pick()}
	aig.MaxVar = v
	return aig
}

// TestBackEndsAgreeOnRandomSpecs cross-checks the learning engines and
// the frame engine on bounded random specifications, and validates the
// embedded strategy of realizable instances by exhaustive reachability.
func TestBackEndsAgreeOnRandomSpecs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 25; round++ {
		aig := randomAIG(rng)
		t.Run(fmt.Sprintf("round_%02d", round), func(t *testing.T) {
			solve := func(name string) engine.Verdict {
				m := specmodel.Build(aig)
				newSAT := func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
				counters := stats.New(fmt.Sprintf("xc_%s_%d", name, round))
				log := quietLogger()

				var eng engine.Engine
				switch name {
				case "learn_sat":
					eng = learn.NewSAT(m, newSAT, learn.Config{}, counters, log.WithField("t", name))
				case "learn_qbf":
					eng = learn.NewQBF(m, aigtest.NewExpansionQBF(m), learn.Config{}, counters, log.WithField("t", name))
				case "ic3":
					eng = ic3.New(m, newSAT, counters, log.WithField("t", name), ic3.Hooks{})
				}
				res, err := eng.Solve(context.Background())
				require.NoError(t, err)
				return res.Verdict
			}

			satVerdict := solve("learn_sat")
			require.Equal(t, satVerdict, solve("learn_qbf"), "QBF learner disagrees")
			require.Equal(t, satVerdict, solve("ic3"), "frame engine disagrees")

			if satVerdict != engine.Realizable {
				return
			}

			// Independent check of the synthesized circuit.
			m := specmodel.Build(aig)
			newSAT := func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
			eng := learn.NewSAT(m, newSAT, learn.Config{}, stats.New(fmt.Sprintf("xc_emb_%d", round)), quietLogger().WithField("t", "embed"))
			res, err := eng.Solve(context.Background())
			require.NoError(t, err)
			require.Equal(t, engine.Realizable, res.Verdict)

			strat, err := extract.Extract(aig, m, res.Win, quietLogger().WithField("t", "embed"))
			require.NoError(t, err)
			embedded, err := extract.Embed(aig, strat)
			require.NoError(t, err)
			aigtest.AssertErrorUnreachable(t, embedded)
		})
	}
}
