package qbf

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/sat"
	"github.com/lonsing-synth/rsynth/internal/variable"
	"github.com/lonsing-synth/rsynth/internal/xtool"
)

// externalSolver is the out-of-process QBF backend: every query is
// written as a fresh QDIMACS file, handed to an external binary
// (DepQBF and RAReQS both accept this invocation shape), and the
// result parsed back off its stdout. It holds no solver-side state
// between queries, so its incremental methods all report
// ErrIncrementalUnsupported from BeginInc. Any binary failure or
// "unknown" verdict is fatal; see mustAnswer.
type externalSolver struct {
	binary string
	args   []string
	dir    xtool.Dir
	log    *logrus.Entry
	store  *variable.Store
	seq    int
}

// NewExternal returns a Solver that shells out to binary (plus any
// fixed args, e.g. "--qdo" for model output) for every query. scratch
// must already exist; see xtool.CreateScratch.
func NewExternal(binary string, args []string, scratch xtool.Dir, store *variable.Store, log *logrus.Entry) Solver {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &externalSolver{binary: binary, args: args, dir: scratch, store: store, log: log}
}

func (s *externalSolver) nextFile(suffix string) string {
	s.seq++
	return s.dir.File(fmt.Sprintf("%d-%s", s.seq, suffix))
}

func (s *externalSolver) query(prefix Prefix, matrix *cnf.CNF) (QDIMACSResult, error) {
	maxVar := 0
	for _, block := range prefix {
		if m := maxVarOf(block.Vars); m > maxVar {
			maxVar = m
		}
	}
	for _, cl := range matrix.Clauses {
		for _, m := range cl {
			if v := int(cnf.Lit(m).Var()); v > maxVar {
				maxVar = v
			}
		}
	}

	inPath := s.nextFile("in.qdimacs")
	f, err := os.Create(inPath)
	if err != nil {
		return QDIMACSResult{}, fmt.Errorf("qbf: create input file: %w", err)
	}
	if err := WriteQDIMACS(f, prefix, matrix, maxVar); err != nil {
		f.Close()
		return QDIMACSResult{}, fmt.Errorf("qbf: write input file: %w", err)
	}
	if err := f.Close(); err != nil {
		return QDIMACSResult{}, fmt.Errorf("qbf: close input file: %w", err)
	}
	defer os.Remove(inPath)

	var stdout bytes.Buffer
	cmd := append(append([]string{}, s.args...), inPath)
	if err := xtool.RunCapture(xtool.Invocation{Binary: s.binary, Args: cmd, Log: s.log}, &stdout); err != nil {
		var fe *xtool.FatalExit
		// DepQBF-family tools use exit code 10/20 for sat/unsat rather
		// than 0, same convention as the top-level AIGER exit contract;
		// RunCapture itself accepts 0, 10 and 20, so a FatalExit here
		// is a genuine tool failure.
		if asFatalExit(err, &fe) {
			return QDIMACSResult{}, fe
		}
		return QDIMACSResult{}, err
	}

	return ReadQDIMACSResult(&stdout)
}

func asFatalExit(err error, target **xtool.FatalExit) bool {
	fe, ok := err.(*xtool.FatalExit)
	if !ok {
		return false
	}
	*target = fe
	return true
}

// mustAnswer converts a failed or inconclusive query into a fatal
// error: a missing or crashed binary and an "unknown" verdict must
// never be mistaken for a negative answer, since the engines read a
// false return as "no counterexample" or "cube is losing" and would
// report a wrong verdict or corrupt the winning region.
func (s *externalSolver) mustAnswer(res QDIMACSResult, err error) QDIMACSResult {
	if err != nil {
		s.log.WithError(err).Error("qbf: external query failed")
		panic(fmt.Sprintf("qbf: external solver %s failed: %v", s.binary, err))
	}
	if !res.Known {
		s.log.Error("qbf: external solver returned an unknown verdict")
		panic(fmt.Sprintf("qbf: external solver %s returned an unknown verdict", s.binary))
	}
	return res
}

func (s *externalSolver) IsSat(prefix Prefix, matrix *cnf.CNF) bool {
	res := s.mustAnswer(s.query(prefix, matrix))
	return res.Sat
}

func (s *externalSolver) IsSatModel(prefix Prefix, matrix *cnf.CNF) (cnf.Cube, bool) {
	res := s.mustAnswer(s.query(prefix, matrix))
	if !res.Sat {
		return nil, false
	}
	return restrictModel(res.Model, prefix.Outermost()), true
}

// restrictModel keeps only the literals of model whose variable is in
// vars, in the order of vars, since external solvers commonly dump an
// assignment to every variable in the matrix.
func restrictModel(model cnf.Cube, vars []variable.ID) cnf.Cube {
	if len(vars) == 0 {
		return nil
	}
	byVar := make(map[variable.ID]cnf.Lit, len(model))
	for _, m := range model {
		byVar[m.Var()] = m
	}
	out := make(cnf.Cube, 0, len(vars))
	for _, v := range vars {
		if m, ok := byVar[v]; ok {
			out = append(out, m)
		}
	}
	return out
}

// BeginInc always fails: a file-per-query external solver has nothing
// to hold an incremental session in. Engines that want incremental QBF
// solving must fall back to repeated one-shot IsSat/IsSatModel calls.
func (s *externalSolver) BeginInc(prefix Prefix) error {
	return ErrIncrementalUnsupported{Backend: s.binary}
}

func (s *externalSolver) IncAddCNF(c *cnf.CNF)      { panic("qbf: incremental mode unsupported") }
func (s *externalSolver) IncAddClause(c cnf.Clause) { panic("qbf: incremental mode unsupported") }
func (s *externalSolver) IncSATAssumptions(cnf.Cube) bool {
	panic("qbf: incremental mode unsupported")
}
func (s *externalSolver) IncSATModelOrCore(cnf.Cube) sat.ModelOrCore {
	panic("qbf: incremental mode unsupported")
}
func (s *externalSolver) IncPush() { panic("qbf: incremental mode unsupported") }
func (s *externalSolver) IncPop()  { panic("qbf: incremental mode unsupported") }
