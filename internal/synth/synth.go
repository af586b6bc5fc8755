// Package synth is the top-level orchestration: read and validate the
// specification AIG, build the model, run the selected winning-region
// engine, and — when realizable and requested — extract, embed,
// optionally optimize, and write the strategy AIG.
package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/config"
	"github.com/lonsing-synth/rsynth/internal/engine"
	"github.com/lonsing-synth/rsynth/internal/engine/ic3"
	"github.com/lonsing-synth/rsynth/internal/engine/learn"
	"github.com/lonsing-synth/rsynth/internal/engine/parallel"
	"github.com/lonsing-synth/rsynth/internal/extract"
	"github.com/lonsing-synth/rsynth/internal/qbf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/specmodel"
	"github.com/lonsing-synth/rsynth/internal/stats"
	"github.com/lonsing-synth/rsynth/internal/variable"
	"github.com/lonsing-synth/rsynth/internal/xtool"
)

// Run executes one synthesis end to end and returns the process exit
// code.
func Run(ctx context.Context, opts config.Options, logger *logrus.Logger) (int, error) {
	if err := opts.Validate(); err != nil {
		return config.ExitInternalError, err
	}
	log := logrus.NewEntry(logger)

	f, err := os.Open(opts.AIGIn)
	if err != nil {
		return config.ExitInternalError, fmt.Errorf("synth: open input: %w", err)
	}
	aig, err := aiger.Read(f)
	f.Close()
	if err != nil {
		return config.ExitInternalError, err
	}
	if err := aig.Validate(); err != nil {
		return config.ExitInternalError, err
	}

	m := specmodel.Build(aig)
	if opts.Trace {
		traceVars(m, log)
	}
	counters := stats.New(strings.ReplaceAll(string(opts.BackEnd), "-", "_"))

	scratch := xtool.Dir{Root: opts.TmpDir, Prefix: fmt.Sprintf("rsynth-%d", os.Getpid())}
	if needsScratch(opts) {
		if scratch, err = xtool.CreateScratch(scratch); err != nil {
			return config.ExitInternalError, err
		}
		defer xtool.Cleanup(scratch)
	}

	newSAT := func() sat.Solver {
		return sat.NewGini(m.Store, sat.Options{MinimizeCores: opts.MinimizeCores})
	}

	eng, err := buildEngine(opts, m, newSAT, scratch, counters, log)
	if err != nil {
		return config.ExitInternalError, err
	}

	res, err := eng.Solve(ctx)
	if err != nil {
		return config.ExitInternalError, err
	}
	if opts.Stats {
		fmt.Fprint(os.Stderr, stats.Report(string(opts.BackEnd), counters))
	}

	if res.Verdict == engine.Unrealizable {
		log.Info("specification is unrealizable")
		return config.ExitUnrealizable, nil
	}
	log.WithField("clauses", res.Win.CNF.Len()).Info("specification is realizable")

	if opts.RealizabilityOnly {
		return config.ExitRealizable, nil
	}

	strat, err := extract.Extract(aig, m, res.Win, log)
	if err != nil {
		return config.ExitInternalError, err
	}
	embedded, err := extract.Embed(aig, strat)
	if err != nil {
		return config.ExitInternalError, err
	}
	embedded, err = extract.Optimize(embedded, optimizerBinary(opts), scratch, log)
	if err != nil {
		return config.ExitInternalError, err
	}
	if err := writeOut(opts.AIGOut, embedded); err != nil {
		return config.ExitInternalError, err
	}
	return config.ExitRealizable, nil
}

// traceVars logs the variable layout of the freshly built model, with
// the symbol-table names carried through from the AIG.
func traceVars(m *specmodel.Model, log *logrus.Entry) {
	dump := func(label string, ids []variable.ID) {
		for _, id := range ids {
			log.WithField("var", m.Store.Info(id).String()).Debugf("%s variable", label)
		}
	}
	dump("state", m.State)
	dump("uncontrollable", m.Uncontrollable)
	dump("controllable", m.Controllable)
}

func needsScratch(opts config.Options) bool {
	if opts.QBF != config.QBFExpansion {
		return true
	}
	return !opts.RealizabilityOnly && optimizerBinary(opts) != ""
}

// optimizerBinary locates the external AIG rewriting pass under the
// external-tools root; absence just skips the pass.
func optimizerBinary(opts config.Options) string {
	if opts.ExternalToolsDir == "" {
		return ""
	}
	path := filepath.Join(opts.ExternalToolsDir, "aigopt")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// newQBF builds the configured QBF oracle. mu is the registry lock for
// shared-store callers; reclaim releases per-query temporaries and must
// be false when the store is shared across goroutines.
func newQBF(opts config.Options, m *specmodel.Model, newSAT func() sat.Solver, scratch xtool.Dir, mu *sync.Mutex, reclaim bool, log *logrus.Entry) qbf.Solver {
	switch opts.QBF {
	case config.QBFExpansion:
		return qbf.NewExpansion(m.Store, qbf.ExpansionOptions{
			Budget:  opts.ExpansionBudget,
			Reclaim: reclaim,
			Mu:      mu,
			NewSAT:  newSAT,
		})
	default:
		binary := filepath.Join(opts.ExternalToolsDir, string(opts.QBF))
		var args []string
		if opts.QBF == config.QBFDepQBF {
			args = []string{"--qdo"}
		}
		return qbf.NewExternal(binary, args, scratch, m.Store, log)
	}
}

func buildEngine(opts config.Options, m *specmodel.Model, newSAT func() sat.Solver, scratch xtool.Dir, counters *stats.Counters, log *logrus.Entry) (engine.Engine, error) {
	cfg := learn.Config{Mode: opts.Mode, MaintenanceInterval: opts.MaintenanceInterval}

	switch opts.BackEnd {
	case config.LearningSAT:
		return learn.NewSAT(m, newSAT, cfg, counters, log), nil
	case config.LearningQBF:
		oracle := newQBF(opts, m, newSAT, scratch, nil, opts.QBF == config.QBFExpansion, log)
		return learn.NewQBF(m, oracle, cfg, counters, log), nil
	case config.QBFReduction:
		// The reduction back end always routes the quantified queries
		// through the expansion pipeline, regardless of the configured
		// QBF binary.
		oracle := qbf.NewExpansion(m.Store, qbf.ExpansionOptions{
			Budget:  opts.ExpansionBudget,
			Reclaim: true,
			NewSAT:  newSAT,
		})
		return learn.NewQBF(m, oracle, cfg, counters, log), nil
	case config.IC3Style:
		return ic3.New(m, newSAT, counters, log, ic3.Hooks{}), nil
	case config.Parallel:
		pcfg := parallel.Config{
			Threads: opts.Threads,
			NewSAT:  newSAT,
			NewQBF: func(mu *sync.Mutex) qbf.Solver {
				return newQBF(opts, m, newSAT, scratch, mu, false, log)
			},
		}
		return parallel.New(m, pcfg, counters, log), nil
	default:
		return nil, config.ErrInvalidOptions{Reason: fmt.Sprintf("unknown back_end %q", opts.BackEnd)}
	}
}

func writeOut(path string, aig *aiger.AIG) error {
	if path == "" || path == "stdout" {
		return aiger.WriteASCII(os.Stdout, aig)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("synth: create output: %w", err)
	}
	defer f.Close()
	if strings.HasSuffix(path, ".aag") {
		return aiger.WriteASCII(f, aig)
	}
	return aiger.WriteBinary(f, aig)
}
