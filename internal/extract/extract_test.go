package extract_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/aigtest"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/ic3"
	"github.com/lonsing-synth/rsynth/internal/engine/learn"
	"github.com/lonsing-synth/rsynth/internal/extract"
	"github.com/lonsing-synth/rsynth/internal/game"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
	"github.com/lonsing-synth/rsynth/internal/xtool"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func solveLearning(t *testing.T, m *specmodel.Model) *game.Region {
	t.Helper()
	newSAT := func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
	eng := learn.NewSAT(m, newSAT, learn.Config{}, stats.New("test_extract"), testLogger())
	res, err := eng.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.Realizable, res.Verdict)
	return res.Win
}

func embedFor(t *testing.T, src string, win *game.Region, aig *aiger.AIG, m *specmodel.Model) *aiger.AIG {
	t.Helper()
	strat, err := extract.Extract(aig, m, win, testLogger())
	require.NoError(t, err)
	embedded, err := extract.Embed(aig, strat)
	require.NoError(t, err)
	return embedded
}

func TestExtractAndEmbedScenarios(t *testing.T) {
	for _, tt := range []struct {
		name string
		src  string
	}{
		{"unused control", aigtest.ScenarioUnusedControl},
		{"masked input", aigtest.ScenarioMaskedInput},
		{"two latch race", aigtest.ScenarioTwoLatchRace},
		{"chain", aigtest.ScenarioChain},
	} {
		t.Run(tt.name, func(t *testing.T) {
			aig, m := aigtest.Model(t, tt.src)
			win := solveLearning(t, m)

			embedded := embedFor(t, tt.src, win, aig, m)

			// The controllable inputs are gone; the uncontrollable
			// interface is preserved.
			controllable := 0
			for i := range aig.Inputs {
				if aig.IsControllable(i) {
					controllable++
				}
			}
			assert.Len(t, embedded.Inputs, len(aig.Inputs)-controllable)
			assert.Len(t, embedded.Latches, len(aig.Latches))
			require.Len(t, embedded.Outputs, 1)

			// The embedded strategy keeps the error output unreachable.
			aigtest.AssertErrorUnreachable(t, embedded)
		})
	}
}

func TestExtractFromComplementedRegion(t *testing.T) {
	// The frame engine reports W as the complement of the fixpoint
	// frame; extraction must handle that form too.
	aig, m := aigtest.Model(t, aigtest.ScenarioTwoLatchRace)
	newSAT := func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
	eng := ic3.New(m, newSAT, stats.New("test_extract_ic3"), testLogger(), ic3.Hooks{})
	res, err := eng.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, engine.Realizable, res.Verdict)
	require.True(t, res.Win.Complemented)

	embedded := embedFor(t, aigtest.ScenarioTwoLatchRace, res.Win, aig, m)
	aigtest.AssertErrorUnreachable(t, embedded)
}

func TestEmbeddedAIGRoundTrips(t *testing.T) {
	aig, m := aigtest.Model(t, aigtest.ScenarioMaskedInput)
	win := solveLearning(t, m)
	embedded := embedFor(t, aigtest.ScenarioMaskedInput, win, aig, m)

	var ascii bytes.Buffer
	require.NoError(t, aiger.WriteASCII(&ascii, embedded))
	back, err := aiger.Read(&ascii)
	require.NoError(t, err)
	assert.Equal(t, embedded.NumGates(), back.NumGates())

	var bin bytes.Buffer
	require.NoError(t, aiger.WriteBinary(&bin, embedded))
	backBin, err := aiger.Read(&bin)
	require.NoError(t, err)
	assert.Equal(t, embedded.NumLatches(), backBin.NumLatches())
	aigtest.AssertErrorUnreachable(t, backBin)
}

func TestOptimizeWithoutBinaryIsIdentity(t *testing.T) {
	aig := aigtest.Parse(t, aigtest.ScenarioMaskedInput)
	out, err := extract.Optimize(aig, "", xtool.Dir{}, testLogger())
	require.NoError(t, err)
	assert.Same(t, aig, out)
}
