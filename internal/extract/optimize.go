package extract

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/aiger"
	"github.com/lonsing-synth/rsynth/internal/xtool"
)

// Optimize hands the embedded AIG to an external rewriting pass through
// a temp-file interface: the tool reads an ASCII AIGER
// file and writes a functionally equivalent, smaller one. An empty
// binary path skips optimization; a failing tool is fatal, never
// silently ignored.
func Optimize(aig *aiger.AIG, binary string, scratch xtool.Dir, log *logrus.Entry) (*aiger.AIG, error) {
	if binary == "" {
		return aig, nil
	}

	inPath := scratch.File("opt-in.aag")
	outPath := scratch.File("opt-out.aag")

	in, err := os.Create(inPath)
	if err != nil {
		return nil, fmt.Errorf("extract: create optimizer input: %w", err)
	}
	if err := aiger.WriteASCII(in, aig); err != nil {
		in.Close()
		return nil, fmt.Errorf("extract: write optimizer input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("extract: close optimizer input: %w", err)
	}
	defer os.Remove(inPath)
	defer os.Remove(outPath)

	if err := xtool.Run(xtool.Invocation{
		Binary: binary,
		Args:   []string{inPath, outPath},
		Log:    log,
	}, 0); err != nil {
		return nil, err
	}

	out, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("extract: open optimizer output: %w", err)
	}
	defer out.Close()
	optimized, err := aiger.Read(out)
	if err != nil {
		return nil, fmt.Errorf("extract: parse optimizer output: %w", err)
	}

	// The rewriting pass must preserve the interface; anything else
	// means it changed the function and cannot be trusted.
	if optimized.NumInputs() != aig.NumInputs() ||
		optimized.NumLatches() != aig.NumLatches() ||
		optimized.NumOutputs() != aig.NumOutputs() {
		return nil, fmt.Errorf("extract: optimizer changed the AIG interface (%d/%d/%d -> %d/%d/%d)",
			aig.NumInputs(), aig.NumLatches(), aig.NumOutputs(),
			optimized.NumInputs(), optimized.NumLatches(), optimized.NumOutputs())
	}

	log.WithFields(logrus.Fields{
		"gates_before": aig.NumGates(),
		"gates_after":  optimized.NumGates(),
	}).Debug("external optimization pass finished")
	return optimized, nil
}
