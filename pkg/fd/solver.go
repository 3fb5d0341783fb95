package fd

// This file implements the solver's trailed state and the propagation
// scheduler.
//
// # Architecture Overview
//
// The solver separates immutable problem definition from mutable solving state:
//
//	Model (immutable during solving):
//	  - Variables with initial domains
//	  - Cells with initial values
//	  - Constraints that reference variables
//
//	SolverState (copy-on-write):
//	  - Sparse chain of domain and cell modifications
//	  - O(1) cost to create a new state node
//	  - Backtracking discards nodes, which restores every domain and
//	    every cell to the value it had at the ancestor
//
// The chain is the trail: a write recorded below a search node is visible
// only to that node's descendants.
//
// # How Constraint Propagation Works
//
//  1. A decision or propagator narrows a domain with SetDomain
//  2. SetDomain classifies the change (remove, bound, instantiate) and
//     records an event for the variable
//  3. The scheduler queues every propagator whose declared conditions on
//     that variable match the event, except the one that caused it
//  4. Queued propagators run, cheapest priority class first, until the
//     queue is empty (fixed point) or one of them fails

import (
	"fmt"
	"time"
)

// Solver performs backtracking search over a Model.
//
// Thread safety: Solver instances are NOT thread-safe. For concurrent search
// build one Solver per goroutine; models, domains and read-only propagator
// data may be shared.
type Solver struct {
	// model is the CSP being solved (read-only during search)
	model *Model

	// config holds solver configuration and heuristics
	config *SolverConfig

	// props are the model constraints in scheduling form, by index
	props []Propagator

	// subs lists, per variable, the propagators listening to it
	subs [][]subscription

	// weights counts failures per propagator (dom/wdeg)
	weights []int

	queue   propagationQueue
	pending []varEvent

	// monitor tracks solving statistics (optional)
	monitor *SolverMonitor

	// observer receives search events (optional)
	observer SearchObserver

	logger *Logger

	// baseState caches the last root-level propagated state. When present,
	// GetDomain(nil, varID) reads domains from it.
	baseState *SolverState
}

// SolverState represents the state of the solver at a point in search.
// Each node records exactly one modification relative to its parent: either
// a variable's domain or a cell's value.
type SolverState struct {
	// parent points to the previous state (nil for root)
	parent *SolverState

	// modifiedVarID is the ID of the variable whose domain changed, or -1
	modifiedVarID int

	// modifiedDomain is the new domain for the modified variable
	modifiedDomain Domain

	// modifiedCellID is the ID of the cell whose value changed, or -1
	modifiedCellID int

	// cellValue is the new value of the modified cell
	cellValue int

	// depth is the length of the chain up to this node
	depth int
}

// Depth returns the number of modifications between the root and this state.
func (st *SolverState) Depth() int {
	if st == nil {
		return 0
	}
	return st.depth
}

type subscription struct {
	prop int
	mask EventMask
}

type varEvent struct {
	varID int
	mask  EventMask
}

// NewSolver creates a solver for the given model.
// The model should be fully constructed before creating the solver.
func NewSolver(model *Model) *Solver {
	return NewSolverWithConfig(model, nil)
}

// NewSolverWithConfig creates a solver with custom configuration that overrides model config.
func NewSolverWithConfig(model *Model, config *SolverConfig) *Solver {
	if config == nil {
		config = model.Config()
	}
	s := &Solver{
		model:    model,
		config:   config,
		observer: NoopObserver{},
		logger:   NoopLogger(),
	}
	s.index()
	return s
}

// index builds the propagator table and the per-variable subscriptions.
func (s *Solver) index() {
	s.props = s.props[:0]
	s.subs = make([][]subscription, s.model.VariableCount())
	for _, c := range s.model.Constraints() {
		pc, ok := c.(PropagationConstraint)
		if !ok {
			continue
		}
		p, ok := pc.(Propagator)
		if !ok {
			p = coarsePropagator{pc}
		}
		idx := len(s.props)
		s.props = append(s.props, p)
		for pos, v := range p.Variables() {
			if v == nil || v.ID() < 0 || v.ID() >= len(s.subs) {
				continue
			}
			s.subs[v.ID()] = append(s.subs[v.ID()], subscription{prop: idx, mask: p.PropagationConditions(pos)})
		}
	}
	s.weights = make([]int, len(s.props))
	for i := range s.weights {
		s.weights[i] = 1
	}
	s.queue = newPropagationQueue(len(s.props))
}

// Model returns the model being solved.
func (s *Solver) Model() *Model { return s.model }

// SetMonitor enables statistics collection during solving.
func (s *Solver) SetMonitor(monitor *SolverMonitor) {
	s.monitor = monitor
}

// SetObserver installs an observer notified of search events.
func (s *Solver) SetObserver(observer SearchObserver) {
	if observer == nil {
		observer = NoopObserver{}
	}
	s.observer = observer
}

// SetLogger installs the logger used for search progress.
func (s *Solver) SetLogger(logger *Logger) {
	if logger == nil {
		logger = NoopLogger()
	}
	s.logger = logger
}

// GetDomain returns the current domain of a variable in the given state.
// Walks the state chain to find the most recent domain for the variable.
// This is O(depth) in the worst case, but typically short due to locality.
func (s *Solver) GetDomain(state *SolverState, varID int) Domain {
	for current := state; current != nil; current = current.parent {
		if current.modifiedVarID == varID && current.modifiedDomain != nil {
			return current.modifiedDomain
		}
	}

	if state == nil && s.baseState != nil {
		for current := s.baseState; current != nil; current = current.parent {
			if current.modifiedVarID == varID && current.modifiedDomain != nil {
				return current.modifiedDomain
			}
		}
	}

	if v := s.model.GetVariable(varID); v != nil {
		return v.Domain()
	}
	return nil
}

// SetDomain returns a state in which varID has the given domain.
//
// If the domain equals the current one the original state is returned. An
// empty domain fails with an error wrapping ErrDomainExhausted. Otherwise a
// new node is chained onto state and a domain event is recorded for the
// scheduler.
func (s *Solver) SetDomain(state *SolverState, varID int, domain Domain) (*SolverState, error) {
	current := s.GetDomain(state, varID)
	if current == nil {
		return nil, fmt.Errorf("%w: unknown variable %d", ErrInvalidConfiguration, varID)
	}
	if domain.Count() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDomainExhausted, s.model.GetVariable(varID).Name())
	}
	if current.Equal(domain) {
		return state, nil
	}

	ev := eventBetween(current, domain)
	if ev == 0 {
		ev = EventAll
	}
	s.pending = append(s.pending, varEvent{varID: varID, mask: ev})

	return &SolverState{
		parent:         state,
		modifiedVarID:  varID,
		modifiedDomain: domain,
		modifiedCellID: -1,
		depth:          state.Depth() + 1,
	}, nil
}

// RemoveValue removes value from the domain of v.
func (s *Solver) RemoveValue(state *SolverState, v *FDVariable, value int) (*SolverState, error) {
	return s.SetDomain(state, v.ID(), s.GetDomain(state, v.ID()).Remove(value))
}

// UpdateUpperBound removes every value of v above ub.
func (s *Solver) UpdateUpperBound(state *SolverState, v *FDVariable, ub int) (*SolverState, error) {
	return s.SetDomain(state, v.ID(), s.GetDomain(state, v.ID()).RemoveAbove(ub))
}

// UpdateLowerBound removes every value of v below lb.
func (s *Solver) UpdateLowerBound(state *SolverState, v *FDVariable, lb int) (*SolverState, error) {
	return s.SetDomain(state, v.ID(), s.GetDomain(state, v.ID()).RemoveBelow(lb))
}

// Instantiate reduces the domain of v to {value}.
func (s *Solver) Instantiate(state *SolverState, v *FDVariable, value int) (*SolverState, error) {
	d := s.GetDomain(state, v.ID())
	if !d.Has(value) {
		return nil, fmt.Errorf("%w: %s cannot take %d", ErrDomainExhausted, v.Name(), value)
	}
	return s.SetDomain(state, v.ID(), d.Filter(func(x int) bool { return x == value }))
}

// CellValue returns the value of c in the given state.
func (s *Solver) CellValue(state *SolverState, c *Cell) int {
	for current := state; current != nil; current = current.parent {
		if current.modifiedCellID == c.id {
			return current.cellValue
		}
	}
	return c.initial
}

// SetCell returns a state in which c holds value. The write is trailed:
// ancestors of the returned state still observe the previous value.
func (s *Solver) SetCell(state *SolverState, c *Cell, value int) *SolverState {
	if s.CellValue(state, c) == value {
		return state
	}
	return &SolverState{
		parent:         state,
		modifiedVarID:  -1,
		modifiedCellID: c.id,
		cellValue:      value,
		depth:          state.Depth() + 1,
	}
}

// IsBound reports whether v has a singleton domain in state.
func (s *Solver) IsBound(state *SolverState, v *FDVariable) bool {
	return s.GetDomain(state, v.ID()).IsSingleton()
}

// Propagate runs every propagator of the model to a fixed point starting
// from state. It is the root-level entry point; search uses the incremental
// form internally.
func (s *Solver) Propagate(state *SolverState) (*SolverState, error) {
	return s.propagate(state, true)
}

// propagate drains the scheduling queue. When all is true every propagator
// is queued first; otherwise only those woken by pending events run.
func (s *Solver) propagate(state *SolverState, all bool) (*SolverState, error) {
	if all {
		s.scheduleAll()
	}
	s.flushEvents(-1)

	var start time.Time
	if s.monitor != nil {
		start = time.Now()
		defer func() { s.monitor.RecordPropagation(time.Since(start)) }()
	}

	current := state
	calls := 0
	for {
		idx, ok := s.queue.pop()
		if !ok {
			return current, nil
		}
		calls++
		if s.config.MaxPropagations > 0 && calls > s.config.MaxPropagations {
			s.resetQueue()
			return nil, fmt.Errorf("propagation failed to reach fixed-point after %d propagator calls", s.config.MaxPropagations)
		}

		p := s.props[idx]
		next, err := p.Propagate(s, current)
		if err != nil {
			s.resetQueue()
			if IsContradiction(err) {
				s.weights[idx]++
				s.observer.RecordFailure(p.Type())
				if s.monitor != nil {
					s.monitor.RecordFailure(p.Type())
				}
			}
			return nil, err
		}
		current = next
		s.flushEvents(idx)
	}
}

// flushEvents turns pending domain events into queued propagators.
func (s *Solver) flushEvents(cause int) {
	for _, ev := range s.pending {
		for _, sub := range s.subs[ev.varID] {
			if sub.prop != cause && sub.mask.Has(ev.mask) {
				s.queue.push(sub.prop, s.props[sub.prop].Priority())
			}
		}
	}
	s.pending = s.pending[:0]
}

func (s *Solver) scheduleAll() {
	for i, p := range s.props {
		s.queue.push(i, p.Priority())
	}
}

func (s *Solver) resetQueue() {
	s.queue.clear()
	s.pending = s.pending[:0]
}

// entailed reports whether no propagator considers state violated.
func (s *Solver) entailed(state *SolverState) bool {
	for _, p := range s.props {
		if p.IsEntailed(s, state) == Violated {
			return false
		}
	}
	return true
}

// VariableWeight returns the failure-weighted degree of v in state: the sum
// of failure counts of the propagators involving v and at least one other
// unbound variable, plus one.
func (s *Solver) VariableWeight(state *SolverState, v *FDVariable) int {
	w := 1
	for _, sub := range s.subs[v.ID()] {
		for _, other := range s.props[sub.prop].Variables() {
			if other.ID() != v.ID() && !s.IsBound(state, other) {
				w += s.weights[sub.prop]
				break
			}
		}
	}
	return w
}

// isComplete returns true if all variables are bound (singleton domains).
func (s *Solver) isComplete(state *SolverState) bool {
	for i := 0; i < s.model.VariableCount(); i++ {
		if !s.GetDomain(state, i).IsSingleton() {
			return false
		}
	}
	return true
}

// extractSolution extracts the variable assignments from a complete state.
func (s *Solver) extractSolution(state *SolverState) []int {
	solution := make([]int, s.model.VariableCount())
	for i := range solution {
		domain := s.GetDomain(state, i)
		if domain.IsSingleton() {
			solution[i] = domain.SingletonValue()
		} else {
			solution[i] = domain.Min()
		}
	}
	return solution
}

// propagationQueue is a set of propagator indices bucketed by priority.
type propagationQueue struct {
	buckets [numPriorities][]int
	queued  []bool
	size    int
}

func newPropagationQueue(n int) propagationQueue {
	return propagationQueue{queued: make([]bool, n)}
}

func (q *propagationQueue) push(idx int, p Priority) {
	if q.queued[idx] {
		return
	}
	if p < 0 {
		p = 0
	}
	if int(p) >= numPriorities {
		p = Priority(numPriorities - 1)
	}
	q.queued[idx] = true
	q.buckets[p] = append(q.buckets[p], idx)
	q.size++
}

func (q *propagationQueue) pop() (int, bool) {
	if q.size == 0 {
		return -1, false
	}
	for p := range q.buckets {
		if len(q.buckets[p]) == 0 {
			continue
		}
		idx := q.buckets[p][0]
		q.buckets[p] = q.buckets[p][1:]
		q.queued[idx] = false
		q.size--
		return idx, true
	}
	return -1, false
}

func (q *propagationQueue) clear() {
	for p := range q.buckets {
		q.buckets[p] = q.buckets[p][:0]
	}
	for i := range q.queued {
		q.queued[i] = false
	}
	q.size = 0
}
