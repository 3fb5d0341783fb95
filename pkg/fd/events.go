package fd

import "strings"

// EventMask is a set of domain event types. Propagators declare, per scope
// position, which events should re-invoke them.
type EventMask uint8

const (
	// EventRemove fires when any value is removed from a domain.
	EventRemove EventMask = 1 << iota
	// EventBound fires when the lower or upper bound of a domain moves.
	EventBound
	// EventInstantiate fires when a domain becomes a singleton.
	EventInstantiate

	// EventAll matches every event type.
	EventAll = EventRemove | EventBound | EventInstantiate
)

// Has reports whether m shares at least one event type with other.
func (m EventMask) Has(other EventMask) bool { return m&other != 0 }

func (m EventMask) String() string {
	if m == 0 {
		return "none"
	}
	var parts []string
	if m&EventRemove != 0 {
		parts = append(parts, "remove")
	}
	if m&EventBound != 0 {
		parts = append(parts, "bound")
	}
	if m&EventInstantiate != 0 {
		parts = append(parts, "instantiate")
	}
	return strings.Join(parts, "|")
}

// eventBetween classifies the change from old to updated. Both domains are
// assumed non-empty and updated is assumed to be a subset of old.
func eventBetween(old, updated Domain) EventMask {
	if updated.Count() == old.Count() {
		return 0
	}
	ev := EventRemove
	if updated.Min() != old.Min() || updated.Max() != old.Max() {
		ev |= EventBound
	}
	if updated.IsSingleton() {
		ev |= EventInstantiate
	}
	return ev
}

// Priority is the arity/cost hint a propagator gives the scheduler. Cheaper
// classes run first.
type Priority int

const (
	PriorityUnary Priority = iota
	PriorityBinary
	PriorityTernary
	PriorityLinear
	PriorityQuadratic

	numPriorities = int(PriorityQuadratic) + 1
)

// Entailment is the three-valued answer to "is this constraint satisfied by
// every remaining combination of values?".
type Entailment int

const (
	Undetermined Entailment = iota
	Satisfied
	Violated
)

func (e Entailment) String() string {
	switch e {
	case Satisfied:
		return "satisfied"
	case Violated:
		return "violated"
	default:
		return "undetermined"
	}
}
