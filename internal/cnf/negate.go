package cnf

import "github.com/lonsing-synth/rsynth/internal/variable"

// Negate returns a CNF that is logically equivalent to ¬c, introducing
// one fresh Temporary variable per clause of c via Tseitin encoding.
// store.ResetToLastPush (after a matching Push) is
// the intended way to reclaim these temporaries once the caller is done
// with the negated CNF — repeated negation during fixpoint iteration
// would otherwise leak ids forever.
//
// Negate(Negate(c)) is logically (not necessarily syntactically)
// equivalent to c: each round introduces a fresh
// layer of Tseitin variables, so the syntactic clause sets differ, but
// every satisfying assignment of one extends to a satisfying assignment
// of the other by construction.
func (c *CNF) Negate(store *variable.Store) *CNF {
	out := New()

	live := make([]Clause, 0, len(c.Clauses))
	for _, cl := range c.Clauses {
		if cl != nil {
			live = append(live, cl)
		}
	}

	if len(live) == 0 {
		// ¬(empty conjunction) = ¬TRUE = FALSE: the empty clause.
		out.Add(Clause{})
		return out
	}

	disjuncts := make(Clause, 0, len(live))
	for _, cl := range live {
		t := Of(store.Fresh(variable.Temporary))
		disjuncts = append(disjuncts, t)

		// t -> ¬l, for every literal l of cl.
		for _, l := range cl {
			out.Add(Clause{t.Not(), l.Not()})
		}
		// (¬l1 ∧ ... ∧ ¬lk) -> t, i.e. cl ∪ {t}.
		withT := make(Clause, len(cl)+1)
		copy(withT, cl)
		withT[len(cl)] = t
		out.Add(withT)
	}
	out.Add(disjuncts)

	return out
}
