package ic3_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/aigtest"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/ic3"
	"github.com/lonsing-synth/rsynth/internal/engine/learn"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func newSATFactory(m *specmodel.Model) func() sat.Solver {
	return func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
}

func TestFrameEngineScenarios(t *testing.T) {
	for _, tt := range []struct {
		name       string
		src        string
		realizable bool
	}{
		{"unused control", aigtest.ScenarioUnusedControl, true},
		{"masked input", aigtest.ScenarioMaskedInput, true},
		{"unsafe initial", aigtest.ScenarioUnsafeInitial, false},
		{"two latch race", aigtest.ScenarioTwoLatchRace, true},
		{"useless control", aigtest.ScenarioUselessControl, false},
		{"chain", aigtest.ScenarioChain, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, m := aigtest.Model(t, tt.src)
			eng := ic3.New(m, newSATFactory(m), stats.New("test_ic3"), testLogger(), ic3.Hooks{})

			res, err := eng.Solve(context.Background())
			require.NoError(t, err)
			if !tt.realizable {
				assert.Equal(t, engine.Unrealizable, res.Verdict)
				return
			}
			require.Equal(t, engine.Realizable, res.Verdict)
			require.NotNil(t, res.Win)
			assert.True(t, res.Win.Complemented,
				"the frame engine reports W as the complement of the fixpoint frame")
			aigtest.AssertWinningRegion(t, m, res.Win)
		})
	}
}

func TestFrameEngineStopHook(t *testing.T) {
	_, m := aigtest.Model(t, aigtest.ScenarioChain)
	eng := ic3.New(m, newSATFactory(m), stats.New("test_ic3_stop"), testLogger(), ic3.Hooks{
		Stop: func() bool { return true },
	})
	_, err := eng.Solve(context.Background())
	assert.Error(t, err)
}

func TestFrameEngineAgreesWithLearning(t *testing.T) {
	// The frame engine and the learning engine must agree on the
	// verdict for the chain circuit, which needs several frontier
	// extensions before the frames close.
	_, m := aigtest.Model(t, aigtest.ScenarioChain)
	eng := ic3.New(m, newSATFactory(m), stats.New("test_ic3_agree"), testLogger(), ic3.Hooks{})
	res, err := eng.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, engine.Realizable, res.Verdict)

	_, lm := aigtest.Model(t, aigtest.ScenarioChain)
	ref := learn.NewSAT(lm, newSATFactory(lm), learn.Config{}, stats.New("test_ic3_agree_learn"), testLogger())
	refRes, err := ref.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, refRes.Verdict, res.Verdict)
}
