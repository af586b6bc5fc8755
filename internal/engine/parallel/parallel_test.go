package parallel_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lonsing-synth/rsynth/internal/aigtest"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/parallel"
	"github.com/lonsing-synth/rsynth/internal/qbf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
)

func testLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(logger)
}

func coordinatorFor(m *specmodel.Model, threads int, name string) *parallel.Coordinator {
	newSAT := func() sat.Solver { return sat.NewGini(m.Store, sat.Options{}) }
	cfg := parallel.Config{
		Threads: threads,
		NewSAT:  newSAT,
		NewQBF: func(mu *sync.Mutex) qbf.Solver {
			return qbf.NewExpansion(m.Store, qbf.ExpansionOptions{Mu: mu, NewSAT: newSAT})
		},
	}
	return parallel.New(m, cfg, stats.New(name), testLogger())
}

func TestCoordinatorScenarios(t *testing.T) {
	for _, threads := range []int{1, 2, 4} {
		for _, tt := range []struct {
			name       string
			src        string
			realizable bool
		}{
			{"masked_input", aigtest.ScenarioMaskedInput, true},
			{"unsafe_initial", aigtest.ScenarioUnsafeInitial, false},
			{"two_latch_race", aigtest.ScenarioTwoLatchRace, true},
			{"useless_control", aigtest.ScenarioUselessControl, false},
			{"chain", aigtest.ScenarioChain, true},
		} {
			tt := tt
			name := fmt.Sprintf("%s_threads_%d", tt.name, threads)
			t.Run(name, func(t *testing.T) {
				_, m := aigtest.Model(t, tt.src)
				c := coordinatorFor(m, threads, "test_par_"+name)

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				res, err := c.Solve(ctx)
				require.NoError(t, err)
				if !tt.realizable {
					assert.Equal(t, engine.Unrealizable, res.Verdict)
					return
				}
				require.Equal(t, engine.Realizable, res.Verdict)
				require.NotNil(t, res.Win)
				assert.True(t, res.Win.Holds(m.InitialCube()))
			})
		}
	}
}

func TestCoordinatorFullWorkerMix(t *testing.T) {
	// Six threads bring every worker kind into play: explorers, an IFM
	// explorer, a QBF clause minimizer, and a counterexample
	// generalizer.
	_, m := aigtest.Model(t, aigtest.ScenarioChain)
	c := coordinatorFor(m, 6, "test_par_mix")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	res, err := c.Solve(ctx)
	require.NoError(t, err)
	assert.Equal(t, engine.Realizable, res.Verdict)
}
