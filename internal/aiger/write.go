package aiger

import (
	"bufio"
	"fmt"
	"io"
)

// WriteASCII renders aig in the "aag" text format.
func WriteASCII(w io.Writer, aig *AIG) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "aag %d %d %d %d %d\n",
		aig.MaxVar, len(aig.Inputs), len(aig.Latches), len(aig.Outputs), len(aig.Gates)); err != nil {
		return err
	}
	for _, in := range aig.Inputs {
		if _, err := fmt.Fprintf(bw, "%d\n", in); err != nil {
			return err
		}
	}
	for _, lt := range aig.Latches {
		if _, err := fmt.Fprintf(bw, "%d %d\n", lt.Lit, lt.Next); err != nil {
			return err
		}
	}
	for _, out := range aig.Outputs {
		if _, err := fmt.Fprintf(bw, "%d\n", out); err != nil {
			return err
		}
	}
	for _, g := range aig.Gates {
		if _, err := fmt.Fprintf(bw, "%d %d %d\n", g.Out, g.LHS, g.RHS); err != nil {
			return err
		}
	}
	for i, in := range aig.Inputs {
		_ = in
		if name, ok := aig.InputSym[i]; ok {
			if _, err := fmt.Fprintf(bw, "i%d %s\n", i, name); err != nil {
				return err
			}
		}
	}
	for _, c := range aig.Comments {
		if _, err := fmt.Fprintf(bw, "c\n%s\n", c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteBinary renders aig in the "aig" binary format: inputs and
// latch current-literals are implicit by position, latch next-state
// literals and outputs are decimal text, and AND gates use the
// delta-encoded variable-length byte format (mirrors readBinary).
func WriteBinary(w io.Writer, aig *AIG) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintf(bw, "aig %d %d %d %d %d\n",
		aig.MaxVar, len(aig.Inputs), len(aig.Latches), len(aig.Outputs), len(aig.Gates)); err != nil {
		return err
	}
	for _, lt := range aig.Latches {
		if _, err := fmt.Fprintf(bw, "%d\n", lt.Next); err != nil {
			return err
		}
	}
	for _, out := range aig.Outputs {
		if _, err := fmt.Fprintf(bw, "%d\n", out); err != nil {
			return err
		}
	}

	firstGateVar := 1 + len(aig.Inputs) + len(aig.Latches)
	for k, g := range aig.Gates {
		lhsLit := 2 * (firstGateVar + k)
		d0 := uint64(lhsLit) - uint64(g.LHS)
		d1 := uint64(g.LHS) - uint64(g.RHS)
		if err := writeDelta(bw, d0); err != nil {
			return err
		}
		if err := writeDelta(bw, d1); err != nil {
			return err
		}
	}

	for i := range aig.Inputs {
		if name, ok := aig.InputSym[i]; ok {
			if _, err := fmt.Fprintf(bw, "i%d %s\n", i, name); err != nil {
				return err
			}
		}
	}
	for _, c := range aig.Comments {
		if _, err := fmt.Fprintf(bw, "c\n%s\n", c); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeDelta(bw *bufio.Writer, v uint64) error {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		if err := bw.WriteByte(b); err != nil {
			return err
		}
		if v == 0 {
			return nil
		}
	}
}
