package variable

import "fmt"

// snapshot captures enough of a Store's state to roll back every
// Variable allocated after it was taken.
type snapshot struct {
	nextID     ID
	sizePerKind [int(PreviousTime) + 1]int
}

// Store is the process-wide variable registry. A
// Store owns all Variable metadata for its lifetime; CNFs and solvers
// only ever hold IDs and reference a Store to resolve them.
//
// Store is not safe for concurrent use by multiple goroutines unless the
// caller serializes access (internal/engine/parallel serializes
// fresh-variable allocation and restarts behind its registry lock).
type Store struct {
	vars      []Variable // index 0 unused, IDs are 1-based
	byKind    [int(PreviousTime) + 1][]ID
	snapshots []snapshot
}

// New returns an empty Store.
func New() *Store {
	return &Store{vars: make([]Variable, 1)}
}

// Fresh allocates and returns a new Variable of the given Kind. Fresh is
// monotone: it never reuses an ID that is still reachable from the
// Store's perspective, except for IDs released by ResetToLastPush.
func (s *Store) Fresh(kind Kind) ID {
	id := ID(len(s.vars))
	s.vars = append(s.vars, Variable{ID: id, Kind: kind})
	s.byKind[kind] = append(s.byKind[kind], id)
	return id
}

// FreshNamed is like Fresh but also records a symbol name.
func (s *Store) FreshNamed(kind Kind, name string) ID {
	id := s.Fresh(kind)
	s.vars[id].Name = name
	return id
}

// FreshWithAIGLit is like Fresh but also records the corresponding AIGER
// literal.
func (s *Store) FreshWithAIGLit(kind Kind, aigLit uint32) ID {
	id := s.Fresh(kind)
	s.vars[id].AIGLit = aigLit
	return id
}

// Info returns the metadata for id. It panics if id is not a valid,
// currently-live variable, since that indicates a programming error.
func (s *Store) Info(id ID) Variable {
	if int(id) <= 0 || int(id) >= len(s.vars) {
		panic(fmt.Sprintf("variable: id %d out of range", id))
	}
	return s.vars[id]
}

// Reclassify changes the Kind of id and moves id from the old Kind's
// index to the new one. The Store does not limit how often a variable
// is reclassified.
func (s *Store) Reclassify(id ID, kind Kind) {
	v := s.Info(id)
	old := v.Kind
	s.removeFromKindIndex(old, id)
	s.vars[id].Kind = kind
	s.byKind[kind] = append(s.byKind[kind], id)
}

func (s *Store) removeFromKindIndex(kind Kind, id ID) {
	ids := s.byKind[kind]
	for i, candidate := range ids {
		if candidate == id {
			s.byKind[kind] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// VarsOf returns the IDs of every currently-live variable of the given
// Kind, in allocation order.
func (s *Store) VarsOf(kind Kind) []ID {
	out := make([]ID, len(s.byKind[kind]))
	copy(out, s.byKind[kind])
	return out
}

// Len returns one past the highest currently-allocated ID; useful for
// sizing marker slices indexed by ID.
func (s *Store) Len() int {
	return len(s.vars)
}

// Push records a snapshot of the Store's current state. A later
// ResetToLastPush rolls back every variable allocated since; Pop only
// discards the snapshot.
func (s *Store) Push() {
	snap := snapshot{nextID: ID(len(s.vars))}
	for k := range s.byKind {
		snap.sizePerKind[k] = len(s.byKind[k])
	}
	s.snapshots = append(s.snapshots, snap)
}

// Pop discards the top snapshot without rolling back any state; it is
// used when a phase completed without needing to release its temporaries
// but the caller still wants to balance its Push.
func (s *Store) Pop() {
	if len(s.snapshots) == 0 {
		panic("variable: Pop without matching Push")
	}
	s.snapshots = s.snapshots[:len(s.snapshots)-1]
}

// ResetToLastPush discards every variable allocated since the top
// snapshot was taken, without popping the snapshot itself, so that
// subsequent Fresh calls reuse the released ID range. Any CNF still
// referencing a released ID becomes invalid — callers must
// have already discarded or rewritten such CNFs.
func (s *Store) ResetToLastPush() {
	if len(s.snapshots) == 0 {
		panic("variable: ResetToLastPush without a Push")
	}
	snap := s.snapshots[len(s.snapshots)-1]
	s.vars = s.vars[:snap.nextID]
	for k := range s.byKind {
		s.byKind[k] = s.byKind[k][:snap.sizePerKind[k]]
	}
}
