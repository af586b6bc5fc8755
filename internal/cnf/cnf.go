package cnf

import "sort"

// CNF is an ordered list of clauses, interpreted conjunctively. CNF
// exclusively owns its clause slice; callers that want to keep an
// independent copy should Clone.
type CNF struct {
	Clauses []Clause

	// byLen buckets clause indices by length, purely to bound the cost
	// of subsumption checks in AddSimplified: a clause of length n can
	// only be subsumed by (or subsume) clauses of length <= n (>= n).
	byLen map[int][]int
}

// New returns an empty CNF.
func New() *CNF {
	return &CNF{byLen: make(map[int][]int)}
}

// Clone returns a deep copy of c.
func (c *CNF) Clone() *CNF {
	out := New()
	for _, cl := range c.Clauses {
		dup := make(Clause, len(cl))
		copy(dup, cl)
		out.Add(dup)
	}
	return out
}

// Add appends clause to the CNF without any simplification.
func (c *CNF) Add(clause Clause) {
	idx := len(c.Clauses)
	c.Clauses = append(c.Clauses, clause)
	c.byLen[len(clause)] = append(c.byLen[len(clause)], idx)
}

// AddAll appends every clause of other to c, without simplification.
func (c *CNF) AddAll(other *CNF) {
	for _, cl := range other.Clauses {
		c.Add(cl)
	}
}

func subset(a, b Clause) bool {
	if len(a) > len(b) {
		return false
	}
	for _, m := range a {
		if !containsLit(b, m) {
			return false
		}
	}
	return true
}

func containsLit(c Clause, m Lit) bool {
	for _, x := range c {
		if x == m {
			return true
		}
	}
	return false
}

// AddSimplified adds clause while preserving clause-set equivalence:
// any stored clause subsumed by clause is removed, and clause itself is dropped if some stored clause already
// subsumes it. This is the sole insertion path used during fixpoint
// iteration (learning, IC3 blocking) so that the winning-region CNF
// never grows by redundant clauses.
func (c *CNF) AddSimplified(clause Clause) {
	n := len(clause)

	// A stored clause of length <= n might subsume the new clause.
	for length := 0; length <= n; length++ {
		for _, idx := range c.byLen[length] {
			if c.Clauses[idx] == nil {
				continue
			}
			if subset(c.Clauses[idx], clause) {
				return // clause is redundant
			}
		}
	}

	// The new clause might subsume stored clauses of length >= n.
	for length, idxs := range c.byLen {
		if length < n {
			continue
		}
		for _, idx := range idxs {
			if c.Clauses[idx] == nil {
				continue
			}
			if subset(clause, c.Clauses[idx]) {
				c.Clauses[idx] = nil
			}
		}
	}

	c.Add(clause)
	c.compact()
}

// compact drops nil tombstones left by AddSimplified once they accumulate,
// to keep iteration and memory bounded.
func (c *CNF) compact() {
	const slack = 256
	if len(c.Clauses) < slack {
		return
	}
	live := 0
	for _, cl := range c.Clauses {
		if cl != nil {
			live++
		}
	}
	if len(c.Clauses)-live < slack/2 {
		return
	}
	out := make([]Clause, 0, live)
	for _, cl := range c.Clauses {
		if cl != nil {
			out = append(out, cl)
		}
	}
	c.Clauses = out
	c.byLen = make(map[int][]int, len(c.byLen))
	for i, cl := range c.Clauses {
		c.byLen[len(cl)] = append(c.byLen[len(cl)], i)
	}
}

// AddCubeAsClauses adds one unit clause per literal of cube.
func (c *CNF) AddCubeAsClauses(cube Cube) {
	for _, m := range cube {
		c.Add(Clause{m})
	}
}

// AddNegCube adds a single clause that is the negation of cube.
func (c *CNF) AddNegCube(cube Cube) {
	c.Add(cube.Negate())
}

// ContainsSatAssignment reports whether cube syntactically satisfies
// every stored clause, i.e. every clause has at least one literal also
// present (with the same sign) in cube. This is a purely syntactic
// check — it does not invoke a solver.
func (c *CNF) ContainsSatAssignment(cube Cube) bool {
	set := make(map[Lit]bool, len(cube))
	for _, m := range cube {
		set[m] = true
	}
	for _, cl := range c.Clauses {
		if cl == nil {
			continue
		}
		satisfied := false
		for _, m := range cl {
			if set[m] {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// RemoveDuplicates drops exact duplicate clauses, keeping the first
// occurrence, and compacts away AddSimplified tombstones.
func (c *CNF) RemoveDuplicates() {
	type key struct {
		s string
	}
	seen := make(map[string]bool, len(c.Clauses))
	out := make([]Clause, 0, len(c.Clauses))
	for _, cl := range c.Clauses {
		if cl == nil {
			continue
		}
		sorted := make(Clause, len(cl))
		copy(sorted, cl)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
		k := fmtClause(sorted)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, cl)
	}
	c.Clauses = out
	c.byLen = make(map[int][]int, len(c.byLen))
	for i, cl := range c.Clauses {
		c.byLen[len(cl)] = append(c.byLen[len(cl)], i)
	}
}

func fmtClause(cl Clause) string {
	b := make([]byte, 0, len(cl)*4)
	for _, m := range cl {
		b = append(b, []byte(m.String())...)
		b = append(b, ',')
	}
	return string(b)
}

// Len returns the number of (non-tombstoned) clauses.
func (c *CNF) Len() int {
	n := 0
	for _, cl := range c.Clauses {
		if cl != nil {
			n++
		}
	}
	return n
}
