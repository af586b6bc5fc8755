package qbf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lonsing-synth/rsynth/internal/cnf"
	"github.com/lonsing-synth/rsynth/internal/variable"
)

// WriteQDIMACS serializes prefix+matrix in the QDIMACS format most
// out-of-process QBF solvers (DepQBF, RAReQS, CAQE) accept. Matrix
// variables missing from the prefix are bound in an extra innermost
// existential block: QDIMACS treats free variables as outermost, which
// would invert the intended semantics.
func WriteQDIMACS(w io.Writer, prefix Prefix, matrix *cnf.CNF, maxVar int) error {
	bw := bufio.NewWriter(w)

	nClauses := 0
	for _, cl := range matrix.Clauses {
		if cl != nil {
			nClauses++
		}
	}
	if _, err := fmt.Fprintf(bw, "p cnf %d %d\n", maxVar, nClauses); err != nil {
		return err
	}

	bound := make(map[variable.ID]bool)
	for _, block := range prefix {
		for _, v := range block.Vars {
			bound[v] = true
		}
	}
	var free []variable.ID
	seen := make(map[variable.ID]bool)
	for _, cl := range matrix.Clauses {
		for _, m := range cl {
			v := m.Var()
			if !bound[v] && !seen[v] {
				seen[v] = true
				free = append(free, v)
			}
		}
	}
	full := prefix
	if len(free) > 0 {
		full = append(append(Prefix{}, prefix...), Block{Quantifier: Exists, Vars: free})
	}

	for _, block := range full {
		if len(block.Vars) == 0 {
			continue
		}
		tag := "e"
		if block.Quantifier == ForAll {
			tag = "a"
		}
		if _, err := bw.WriteString(tag); err != nil {
			return err
		}
		for _, v := range block.Vars {
			if _, err := fmt.Fprintf(bw, " %d", v); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString(" 0\n"); err != nil {
			return err
		}
	}

	for _, cl := range matrix.Clauses {
		if cl == nil {
			continue
		}
		for _, m := range cl {
			if _, err := fmt.Fprintf(bw, "%d ", int32(m)); err != nil {
				return err
			}
		}
		if _, err := bw.WriteString("0\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// QDIMACSResult is a parsed response from an external QBF solver run
// with model-output enabled (e.g. DepQBF's --qdo).
type QDIMACSResult struct {
	Sat   bool
	Known bool
	Model cnf.Cube
}

// ReadQDIMACSResult parses the line-oriented "s cnf <1|-1|0> ..." /
// "V <lit> 0" output convention shared by DepQBF-family solvers.
func ReadQDIMACSResult(r io.Reader) (QDIMACSResult, error) {
	var res QDIMACSResult
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "s cnf 1"):
			res.Sat = true
			res.Known = true
		case strings.HasPrefix(line, "s cnf -1"):
			res.Sat = false
			res.Known = true
		case strings.HasPrefix(line, "s cnf 0"):
			res.Known = false
		case strings.HasPrefix(line, "V "):
			fields := strings.Fields(line)
			for _, f := range fields[1:] {
				n, err := strconv.Atoi(f)
				if err != nil || n == 0 {
					continue
				}
				res.Model = append(res.Model, cnf.Lit(n))
			}
		}
	}
	if err := sc.Err(); err != nil {
		return QDIMACSResult{}, err
	}
	return res, nil
}

func maxVarOf(ids []variable.ID) int {
	max := 0
	for _, id := range ids {
		if int(id) > max {
			max = int(id)
		}
	}
	return max
}
