package cnf

import "github.com/lonsing-synth/rsynth/internal/variable"

// RenameMap maps a source variable.ID to the ID it should become.
// Variables with no entry are left unchanged.
type RenameMap map[variable.ID]variable.ID

func (m RenameMap) apply(l Lit) Lit {
	to, ok := m[l.Var()]
	if !ok {
		return l
	}
	if l.IsPos() {
		return Of(to)
	}
	return Of(to).Not()
}

// Rename returns a new CNF with the given variable renaming applied
// pointwise to every literal of every clause.
func (c *CNF) Rename(m RenameMap) *CNF {
	out := New()
	for _, cl := range c.Clauses {
		if cl == nil {
			continue
		}
		renamed := make(Clause, len(cl))
		for i, lit := range cl {
			renamed[i] = m.apply(lit)
		}
		out.Add(renamed)
	}
	return out
}

// SwapPresentToNext renames every present-state literal to its paired
// next-state literal and vice versa, using the present<->next pairing
// recorded by next. SwapPresentToNext composed with itself is the
// identity, since next is symmetric.
func (c *CNF) SwapPresentToNext(next RenameMap) *CNF {
	return c.Rename(next)
}

// PresentNextPairing builds the symmetric present<->next RenameMap from
// parallel slices of present-state and next-state IDs, in corresponding
// order.
func PresentNextPairing(present, next []variable.ID) RenameMap {
	m := make(RenameMap, 2*len(present))
	for i := range present {
		m[present[i]] = next[i]
		m[next[i]] = present[i]
	}
	return m
}
