// Package config enumerates the options the core engines consume, as
// a plain struct populated by cobra/pflag bindings at the cmd/rsynth
// boundary.
package config

import "fmt"

// BackEnd selects the winning-region engine.
type BackEnd string

const (
	LearningQBF   BackEnd = "learning_qbf"
	LearningSAT   BackEnd = "learning_sat"
	IC3Style      BackEnd = "ic3_style"
	Parallel      BackEnd = "parallel"
	QBFReduction  BackEnd = "qbf_reduction"
)

// Mode is the per-engine algorithmic variant bitset.
type Mode uint32

const (
	// ModeHittingSet enables Reiter-style enumeration of every minimal
	// generalization instead of stopping at the first one.
	ModeHittingSet Mode = 1 << iota
	// ModeRG enables the inductive-reachability generalization
	// optimization.
	ModeRG
	// ModeRC enables the inductive-reachability counterexample-search
	// optimization. Mutually exclusive
	// with strategy extraction; see Options.Validate.
	ModeRC
	// ModeTwoSolver names the two-competing-SAT-solvers
	// counterexample search. No engine reads this flag: learning_sat
	// always uses the two-solver search and learning_qbf always asks a
	// single direct QBF query.
	ModeTwoSolver
)

func (m Mode) Has(flag Mode) bool { return m&flag != 0 }

// SATSolver / QBFSolver name a concrete backend implementation.
type SATSolver string

const (
	SATGini SATSolver = "gini"
)

type QBFSolver string

const (
	// QBFExpansion is the in-process backend: the universal block is
	// eliminated by internal/expand and the result goes to the SAT
	// backend. No external binary required.
	QBFExpansion QBFSolver = "expansion"
	QBFDepQBF    QBFSolver = "depqbf"
	QBFRAReQS    QBFSolver = "rareqs"
	QBFCAQE      QBFSolver = "caqe"
)

// Options is the full set of configuration the core consumes,
// including the algorithmic tunables a flag can reasonably override at
// runtime.
type Options struct {
	BackEnd  BackEnd
	Mode     Mode
	SAT      SATSolver
	QBF      QBFSolver

	RealizabilityOnly bool

	TmpDir            string
	ExternalToolsDir  string

	AIGIn  string
	AIGOut string

	// Threads selects the parallel coordinator's worker-thread count.
	// Ignored unless BackEnd == Parallel.
	Threads int

	// MinimizeCores mirrors the SAT/QBF interface's "minimize_cores"
	// solver option.
	MinimizeCores bool

	// MaintenanceInterval is N in "every N blocked cubes, run
	// AddSimplified over the full W ..."; default 100.
	MaintenanceInterval int

	// ExpansionBudget bounds internal/expand's clause-size budget;
	// 0 means unbounded.
	ExpansionBudget int

	// Stats, when set, prints internal/stats.Report at exit.
	Stats bool
	// Trace, when set, logs the variable layout with the symbol-table
	// names carried through from the AIG.
	Trace bool
}

// Default returns an Options populated with portable defaults.
func Default() Options {
	return Options{
		BackEnd:             LearningSAT,
		Mode:                ModeTwoSolver,
		SAT:                 SATGini,
		QBF:                 QBFExpansion,
		TmpDir:              "/tmp/rsynth",
		MaintenanceInterval: 100,
		ExpansionBudget:     1 << 20,
	}
}

// ErrInvalidOptions reports a combination of options the core refuses
// to run with.
type ErrInvalidOptions struct{ Reason string }

func (e ErrInvalidOptions) Error() string { return "config: " + e.Reason }

// Validate rejects option combinations the engines refuse to run
// with. RC restricts counterexample search to reachable states, which
// leaves the extractor without a sound winning region to determinize,
// so RC runs are realizability-only.
func (o Options) Validate() error {
	if o.Mode.Has(ModeRC) && !o.RealizabilityOnly {
		return ErrInvalidOptions{Reason: "mode RC requires realizability_only=true"}
	}
	if o.Mode.Has(ModeRG) && o.BackEnd != LearningQBF && o.BackEnd != QBFReduction {
		return ErrInvalidOptions{Reason: "mode RG requires a QBF-oracle back_end"}
	}
	switch o.BackEnd {
	case LearningQBF, LearningSAT, IC3Style, Parallel, QBFReduction:
	default:
		return ErrInvalidOptions{Reason: fmt.Sprintf("unknown back_end %q", o.BackEnd)}
	}
	if o.BackEnd == Parallel && o.Threads <= 0 {
		return ErrInvalidOptions{Reason: "parallel back_end requires threads > 0"}
	}
	return nil
}

// Exit codes.
const (
	ExitRealizable   = 10
	ExitUnrealizable = 20
	ExitInternalError = 1
)
