package aiger

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// readASCII parses the "aag" body: one decimal literal per line for
// inputs, "cur next" pairs for latches, one literal per output, then
// "lhs rhs0 rhs1" triples for AND gates, followed by an optional
// symbol table and comment section.
func readASCII(br *bufio.Reader, m, i, l, o, aCount int) (*AIG, error) {
	aig := &AIG{MaxVar: m, InputSym: map[int]string{}}

	for k := 0; k < i; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading input %d", k)
		}
		v, err := parseLit(line)
		if err != nil {
			return nil, err
		}
		aig.Inputs = append(aig.Inputs, v)
	}

	for k := 0; k < l; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading latch %d", k)
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, ErrMalformed{Reason: "latch line missing next-state literal: " + line}
		}
		cur, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, ErrMalformed{Reason: "non-numeric latch literal: " + fields[0]}
		}
		next, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, ErrMalformed{Reason: "non-numeric latch next-literal: " + fields[1]}
		}
		if len(fields) >= 3 && fields[2] != "0" {
			return nil, ErrMalformed{Reason: "latch reset value other than 0 is not supported"}
		}
		aig.Latches = append(aig.Latches, Latch{Lit: Lit(cur), Next: Lit(next)})
	}

	for k := 0; k < o; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading output %d", k)
		}
		v, err := parseLit(line)
		if err != nil {
			return nil, err
		}
		aig.Outputs = append(aig.Outputs, v)
	}

	for k := 0; k < aCount; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading gate %d", k)
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, ErrMalformed{Reason: "gate line missing fields: " + line}
		}
		nums := make([]int, 3)
		for idx, f := range fields[:3] {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, ErrMalformed{Reason: "non-numeric gate literal: " + f}
			}
			nums[idx] = n
		}
		aig.Gates = append(aig.Gates, AndGate{Out: Lit(nums[0]), LHS: Lit(nums[1]), RHS: Lit(nums[2])})
	}

	readSymbolsAndComments(br, aig, i, l, o)
	return aig, nil
}

func parseLit(line string) (Lit, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, ErrMalformed{Reason: "empty literal line"}
	}
	v, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, ErrMalformed{Reason: "non-numeric literal: " + fields[0]}
	}
	return Lit(v), nil
}

// readSymbolsAndComments consumes the trailing "iN name" / "oN name" /
// "lN name" symbol-table lines and the "c" comment section. It is
// lenient about EOF since both sections are optional.
func readSymbolsAndComments(br *bufio.Reader, aig *AIG, i, l, o int) {
	for {
		line, err := br.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line == "" {
			if err != nil {
				return
			}
			continue
		}
		if line == "c" {
			for {
				cl, cerr := br.ReadString('\n')
				if cl != "" {
					aig.Comments = append(aig.Comments, strings.TrimRight(cl, "\n"))
				}
				if cerr != nil {
					return
				}
			}
		}
		if len(line) < 2 || (line[0] != 'i' && line[0] != 'o' && line[0] != 'l') {
			if err != nil {
				return
			}
			continue
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			if err != nil {
				return
			}
			continue
		}
		idx, perr := strconv.Atoi(line[1:sp])
		if perr != nil {
			if err != nil {
				return
			}
			continue
		}
		name := line[sp+1:]
		if line[0] == 'i' {
			aig.InputSym[idx] = name
		}
		if err != nil {
			return
		}
	}
}

// readBinary parses the "aig" body: inputs have no literal encoding
// (they are simply the next 2*k even literals by convention), latch
// next-state literals are decimal text (one per line, AIGER's binary
// format keeps latches and outputs as plain text), and AND gates use
// the delta-encoded variable-length byte format.
func readBinary(br *bufio.Reader, m, i, l, o, aCount int) (*AIG, error) {
	aig := &AIG{MaxVar: m, InputSym: map[int]string{}}

	// Inputs: the binary format assigns input k the literal 2*(k+1);
	// nothing is written to the body for them.
	for k := 0; k < i; k++ {
		aig.Inputs = append(aig.Inputs, Lit(2*(k+1)))
	}

	firstLatchVar := i + 1
	for k := 0; k < l; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading latch %d", k)
		}
		fields := strings.Fields(line)
		if len(fields) < 1 {
			return nil, ErrMalformed{Reason: "empty latch line"}
		}
		next, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, ErrMalformed{Reason: "non-numeric latch next-literal: " + fields[0]}
		}
		if len(fields) >= 2 && fields[1] != "0" {
			return nil, ErrMalformed{Reason: "latch reset value other than 0 is not supported"}
		}
		cur := 2 * (firstLatchVar + k)
		aig.Latches = append(aig.Latches, Latch{Lit: Lit(cur), Next: Lit(next)})
	}

	for k := 0; k < o; k++ {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("aiger: unexpected EOF reading output %d", k)
		}
		v, err := parseLit(line)
		if err != nil {
			return nil, err
		}
		aig.Outputs = append(aig.Outputs, v)
	}

	firstGateVar := firstLatchVar + l
	for k := 0; k < aCount; k++ {
		d0, err := readDelta(br)
		if err != nil {
			return nil, fmt.Errorf("aiger: reading gate %d delta0: %w", k, err)
		}
		d1, err := readDelta(br)
		if err != nil {
			return nil, fmt.Errorf("aiger: reading gate %d delta1: %w", k, err)
		}
		lhsLit := 2 * (firstGateVar + k)
		rhs0 := lhsLit - int(d0)
		rhs1 := rhs0 - int(d1)
		aig.Gates = append(aig.Gates, AndGate{Out: Lit(lhsLit), LHS: Lit(rhs0), RHS: Lit(rhs1)})
	}

	readSymbolsAndComments(br, aig, i, l, o)
	return aig, nil
}

// readDelta decodes one AIGER variable-length unsigned integer: 7 bits
// per byte, little-endian, continuation in the high bit.
func readDelta(br *bufio.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
}
