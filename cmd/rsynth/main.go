// rsynth decides realizability of an AIGER safety specification with
// controllable inputs and, when realizable, writes the specification
// back with the controllable inputs replaced by a synthesized
// combinational strategy.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lonsing-synth/rsynth/internal/config"
	"github.com/lonsing-synth/rsynth/internal/synth"
)

var (
	version = "1.0.0"

	opts    = config.Default()
	backEnd string
	satName string
	qbfName string
	verbose bool
	modeHit bool
	modeRG  bool
	modeRC  bool
	modeTwo bool
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		logrus.WithError(err).Error("rsynth failed")
		os.Exit(config.ExitInternalError)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rsynth",
		Short: "Synthesize a safety-game strategy for an AIGER specification",
		Long: "rsynth reads an AIGER specification whose inputs prefixed " +
			"\"controllable_\" are under the protagonist's control, decides whether " +
			"the error output can be kept low forever, and embeds a winning " +
			"strategy back into the circuit.\n\nExit codes: 10 realizable, 20 " +
			"unrealizable, anything else an error.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logrus.StandardLogger()
			if verbose {
				logger.SetLevel(logrus.DebugLevel)
			}

			opts.BackEnd = config.BackEnd(backEnd)
			opts.SAT = config.SATSolver(satName)
			opts.QBF = config.QBFSolver(qbfName)
			opts.Mode = 0
			if modeHit {
				opts.Mode |= config.ModeHittingSet
			}
			if modeRG {
				opts.Mode |= config.ModeRG
			}
			if modeRC {
				opts.Mode |= config.ModeRC
			}
			if modeTwo {
				opts.Mode |= config.ModeTwoSolver
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			code, err := synth.Run(ctx, opts, logger)
			if err != nil {
				logger.WithError(err).Error("synthesis failed")
				os.Exit(config.ExitInternalError)
			}
			os.Exit(code)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.AIGIn, "in", "i", "", "input AIGER file (binary or ASCII)")
	flags.StringVarP(&opts.AIGOut, "out", "o", "stdout", "output AIGER file, or \"stdout\"")
	flags.StringVarP(&backEnd, "back-end", "b", string(opts.BackEnd),
		"engine: learning_sat, learning_qbf, ic3_style, parallel, qbf_reduction")
	flags.StringVar(&satName, "sat-solver", string(opts.SAT), "SAT backend")
	flags.StringVar(&qbfName, "qbf-solver", string(opts.QBF),
		"QBF backend: expansion (in-process), depqbf, rareqs, caqe")
	flags.BoolVar(&modeHit, "hitting-set", false, "enumerate all minimal counterexample generalizations")
	flags.BoolVar(&modeRG, "rg", false, "inductive reachability in generalization")
	flags.BoolVar(&modeRC, "rc", false, "inductive reachability in counterexample search (realizability only)")
	flags.BoolVar(&modeTwo, "two-solver", true, "two-solver counterexample search for the SAT engine")
	flags.BoolVarP(&opts.RealizabilityOnly, "realizability-only", "r", false,
		"skip strategy extraction and AIG embedding")
	flags.IntVarP(&opts.Threads, "threads", "t", 0, "worker threads for the parallel back end")
	flags.BoolVar(&opts.MinimizeCores, "minimize-cores", false, "minimize unsat cores in the SAT backend")
	flags.IntVar(&opts.MaintenanceInterval, "maintenance-interval", opts.MaintenanceInterval,
		"blocked cubes between winning-region maintenance passes")
	flags.IntVar(&opts.ExpansionBudget, "expansion-budget", opts.ExpansionBudget,
		"clause budget for universal expansion")
	flags.StringVar(&opts.TmpDir, "tmp-dir", opts.TmpDir, "scratch directory for external tools")
	flags.StringVar(&opts.ExternalToolsDir, "external-tools-dir", "", "root directory of helper binaries")
	flags.BoolVar(&opts.Stats, "stats", false, "print engine statistics on exit")
	flags.BoolVar(&opts.Trace, "trace", false, "log variable names during oracle calls")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	cobra.CheckErr(cmd.MarkFlagRequired("in"))

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the rsynth version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rsynth %s\n", version)
		},
	})

	return cmd
}
