// Package variable implements the process-wide propositional variable
// registry described by the winning-region engines: every literal that
// appears anywhere in a CNF traces back to exactly one Variable here.
package variable

import "fmt"

// Kind classifies a Variable. The set is closed; callers must not invent
// new kinds.
type Kind uint8

const (
	// StatePresent identifies a present-time state bit (s).
	StatePresent Kind = iota
	// StateNext identifies a next-time state bit (s').
	StateNext
	// Uncontrollable identifies an uncontrollable input bit (i).
	Uncontrollable
	// Controllable identifies a controllable input bit (c).
	Controllable
	// Temporary identifies a Tseitin or other internal helper variable.
	Temporary
	// TemplateParam identifies a template-parameter variable. No package
	// in this module allocates one; internal/expand allocates its
	// renamed copies as Temporary.
	TemplateParam
	// PreviousTime identifies a mirrored previous-time copy of some
	// other variable, used for inductive-reachability queries.
	PreviousTime
)

func (k Kind) String() string {
	switch k {
	case StatePresent:
		return "state"
	case StateNext:
		return "state'"
	case Uncontrollable:
		return "uncontrollable"
	case Controllable:
		return "controllable"
	case Temporary:
		return "temporary"
	case TemplateParam:
		return "template-param"
	case PreviousTime:
		return "previous-time"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}
