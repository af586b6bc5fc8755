// Package aiger reads and writes the AIGER And-Inverter-Graph format.
// No Go AIGER library exists in the surrounding ecosystem, so this is a small hand-rolled reader/writer in the style
// of a narrow, single-purpose adapter living next to a SAT library —
// see go-air/gini's own "dimacs" package for the shape this follows.
package aiger

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Lit is an AIGER literal: an even/odd encoded signed reference to a
// gate, input, or latch, where lit^1 is its negation and 0/1 are the
// constants false/true.
type Lit uint32

func (l Lit) Negated() bool  { return l&1 == 1 }
func (l Lit) Not() Lit       { return l ^ 1 }
func (l Lit) Index() uint32  { return uint32(l) >> 1 }
func (l Lit) Strip() Lit     { return Lit(l &^ 1) }

const (
	ConstFalse Lit = 0
	ConstTrue  Lit = 1
)

// Latch is one state bit: Lit is its current-state reference, Next is
// the literal computing its successor value. AIGER latches always
// reset to 0; any other declared reset value is rejected.
type Latch struct {
	Lit  Lit
	Next Lit
}

// AndGate is a single two-input AND gate: Out = LHS ∧ RHS.
type AndGate struct {
	Out Lit
	LHS Lit
	RHS Lit
}

// Symbol is an optional name attached to an input, latch, or output by
// index, carried through from the symbol table.
type Symbol struct {
	Index int
	Name  string
}

// AIG is a fully parsed AIGER graph: header counts plus the literal
// vectors for each section, symbol tables, and trailing comments.
type AIG struct {
	MaxVar   int
	Inputs   []Lit
	Latches  []Latch
	Outputs  []Lit
	Gates    []AndGate
	InputSym map[int]string
	Comments []string
}

// NumInputs, NumLatches, NumGates, NumOutputs mirror the AIGER header
// fields by name, for callers that want header-shaped accessors.
func (a *AIG) NumInputs() int  { return len(a.Inputs) }
func (a *AIG) NumLatches() int { return len(a.Latches) }
func (a *AIG) NumOutputs() int { return len(a.Outputs) }
func (a *AIG) NumGates() int   { return len(a.Gates) }

// InputName returns the symbol-table name of input i, or "" if absent.
func (a *AIG) InputName(i int) string {
	if a.InputSym == nil {
		return ""
	}
	return a.InputSym[i]
}

// controllablePrefix is the case-insensitive input-name marker that
// distinguishes controllable from uncontrollable inputs.
const controllablePrefix = "controllable_"

// IsControllable reports whether input i's symbol-table name marks it
// controllable.
func (a *AIG) IsControllable(i int) bool {
	name := a.InputName(i)
	return len(name) >= len(controllablePrefix) &&
		strings.EqualFold(name[:len(controllablePrefix)], controllablePrefix)
}

// ErrMalformed is an input error: the AIG failed a
// structural or header validity check.
type ErrMalformed struct {
	Reason string
}

func (e ErrMalformed) Error() string { return "aiger: malformed input: " + e.Reason }

// Validate enforces the structural requirements placed on
// an input AIG: exactly one output (the error signal), and latches
// that all reset to 0 (AIGER encodes this implicitly — a non-aiger1.9
// reset-value extension would appear as a third latch field; the
// readers accept it only when it is 0 and reject any other value at
// parse time, so it is not checked here).
func (a *AIG) Validate() error {
	if len(a.Outputs) != 1 {
		return ErrMalformed{Reason: fmt.Sprintf("expected exactly one output, got %d", len(a.Outputs))}
	}
	controllable := 0
	for i := range a.Inputs {
		if a.IsControllable(i) {
			controllable++
		}
	}
	if controllable == 0 {
		return ErrMalformed{Reason: "no controllable inputs (expected an input name prefixed \"controllable_\")"}
	}
	return nil
}

// parseHeader reads the "aag M I L O A" line (ASCII) or "aig ..." for
// the binary format's identical header shape.
func parseHeader(line string) (tag string, m, i, l, o, a int, err error) {
	fields := strings.Fields(line)
	if len(fields) < 6 {
		return "", 0, 0, 0, 0, 0, ErrMalformed{Reason: "short header line: " + line}
	}
	tag = fields[0]
	nums := make([]int, 5)
	for idx, f := range fields[1:6] {
		n, perr := strconv.Atoi(f)
		if perr != nil {
			return "", 0, 0, 0, 0, 0, ErrMalformed{Reason: "non-numeric header field: " + f}
		}
		nums[idx] = n
	}
	return tag, nums[0], nums[1], nums[2], nums[3], nums[4], nil
}

// Read parses either binary or ASCII AIGER from r, detected by the
// header tag ("aig" = binary, "aag" = ASCII).
func Read(r io.Reader) (*AIG, error) {
	br := bufio.NewReader(r)
	headerLine, err := br.ReadString('\n')
	if err != nil && headerLine == "" {
		return nil, fmt.Errorf("aiger: read header: %w", err)
	}
	tag, m, i, l, o, aCount, err := parseHeader(strings.TrimRight(headerLine, "\n"))
	if err != nil {
		return nil, err
	}

	switch tag {
	case "aig":
		return readBinary(br, m, i, l, o, aCount)
	case "aag":
		return readASCII(br, m, i, l, o, aCount)
	default:
		return nil, ErrMalformed{Reason: "unknown header tag " + tag}
	}
}
