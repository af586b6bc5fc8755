// Package engine defines the uniform entry point every winning-region
// backend implements, regardless of the chosen algorithm.
package engine

import (
	"context"

	"github.com/lonsing-synth/rsynth/internal/game"
)

// Verdict is the three-valued outcome of a safety-game solve.
type Verdict int

const (
	// Unknown is never returned by Solve; it exists only as the zero
	// value and as the parallel coordinator's pre-decision result-flag
	// state.
	Unknown Verdict = iota
	Realizable
	Unrealizable
)

func (v Verdict) String() string {
	switch v {
	case Realizable:
		return "realizable"
	case Unrealizable:
		return "unrealizable"
	default:
		return "unknown"
	}
}

// Result is what every Engine returns: the verdict plus, when
// realizable, the winning region that witnesses it (contains the
// initial state, entails Safe, and is closed under the protagonist's
// best response), ready for internal/extract to consume.
type Result struct {
	Verdict Verdict
	// Win is populated iff Verdict == Realizable. It satisfies the
	// winning-region invariants: Init ⇒ Win, Win ⇒ Safe, and Win is
	// closed under the protagonist's best response.
	Win *game.Region
}

// Engine is the uniform interface every winning-region backend
// implements: the learning engine (SAT or QBF oracle), the IC3-style
// frame engine, and the parallel coordinator.
type Engine interface {
	Solve(ctx context.Context) (Result, error)
}
