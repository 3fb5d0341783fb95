package fd

// monitor.go: search observers and statistics for the FD solver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// SearchObserver receives search events as they happen.
// Implement this interface to export search activity to a monitoring system
// such as Prometheus. Implementations shared between solvers running in
// different goroutines must be safe for concurrent use.
type SearchObserver interface {
	// RecordNode is called for every node the search opens.
	RecordNode(depth int)

	// RecordBacktrack is called when the search abandons a node.
	RecordBacktrack()

	// RecordFailure is called when the named constraint type detects a
	// contradiction.
	RecordFailure(constraint string)

	// RecordSolution is called for every accepted leaf.
	RecordSolution()

	// RecordRestart is called when the search restarts from the root.
	RecordRestart()
}

// NoopObserver is a no-op implementation of SearchObserver.
type NoopObserver struct{}

func (NoopObserver) RecordNode(int)       {}
func (NoopObserver) RecordBacktrack()     {}
func (NoopObserver) RecordFailure(string) {}
func (NoopObserver) RecordSolution()      {}
func (NoopObserver) RecordRestart()       {}

// BasicObserver counts search events in memory.
type BasicObserver struct {
	Nodes      atomic.Int64
	Backtracks atomic.Int64
	Failures   atomic.Int64
	Solutions  atomic.Int64
	Restarts   atomic.Int64
}

// RecordNode implements SearchObserver.
func (b *BasicObserver) RecordNode(int) { b.Nodes.Add(1) }

// RecordBacktrack implements SearchObserver.
func (b *BasicObserver) RecordBacktrack() { b.Backtracks.Add(1) }

// RecordFailure implements SearchObserver.
func (b *BasicObserver) RecordFailure(string) { b.Failures.Add(1) }

// RecordSolution implements SearchObserver.
func (b *BasicObserver) RecordSolution() { b.Solutions.Add(1) }

// RecordRestart implements SearchObserver.
func (b *BasicObserver) RecordRestart() { b.Restarts.Add(1) }

// MultiObserver fans events out to several observers.
type MultiObserver []SearchObserver

func (m MultiObserver) RecordNode(depth int) {
	for _, o := range m {
		o.RecordNode(depth)
	}
}

func (m MultiObserver) RecordBacktrack() {
	for _, o := range m {
		o.RecordBacktrack()
	}
}

func (m MultiObserver) RecordFailure(constraint string) {
	for _, o := range m {
		o.RecordFailure(constraint)
	}
}

func (m MultiObserver) RecordSolution() {
	for _, o := range m {
		o.RecordSolution()
	}
}

func (m MultiObserver) RecordRestart() {
	for _, o := range m {
		o.RecordRestart()
	}
}

// SolverStats holds statistics about one solving run.
type SolverStats struct {
	// Search statistics
	NodesExplored  int           // Number of search nodes explored
	Backtracks     int           // Number of backtracks performed
	SolutionsFound int           // Number of solutions found
	Restarts       int           // Number of restarts
	SearchTime     time.Duration // Time spent in search
	MaxDepth       int           // Maximum search depth reached

	// Propagation statistics
	PropagationCount int           // Number of fixpoint computations
	PropagationTime  time.Duration // Time spent in propagation
	Failures         int           // Contradictions raised by propagators

	// FailuresByConstraint breaks Failures down by constraint type.
	FailuresByConstraint map[string]int
}

// SolverMonitor provides monitoring capabilities for the FD solver
type SolverMonitor struct {
	mu        sync.Mutex
	stats     *SolverStats
	startTime time.Time
}

// NewSolverMonitor creates a new solver monitor
func NewSolverMonitor() *SolverMonitor {
	return &SolverMonitor{
		stats:     &SolverStats{FailuresByConstraint: make(map[string]int)},
		startTime: time.Now(),
	}
}

// GetStats returns a copy of the current statistics
func (m *SolverMonitor) GetStats() *SolverStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := *m.stats
	stats.FailuresByConstraint = make(map[string]int, len(m.stats.FailuresByConstraint))
	for k, v := range m.stats.FailuresByConstraint {
		stats.FailuresByConstraint[k] = v
	}
	if stats.SearchTime == 0 {
		stats.SearchTime = time.Since(m.startTime)
	}
	return &stats
}

// RecordPropagation records one fixpoint computation and its duration.
func (m *SolverMonitor) RecordPropagation(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.PropagationCount++
	m.stats.PropagationTime += d
}

// RecordFailure records a contradiction raised by the named constraint type.
func (m *SolverMonitor) RecordFailure(constraint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Failures++
	m.stats.FailuresByConstraint[constraint]++
}

// RecordBacktrack records a backtrack operation
func (m *SolverMonitor) RecordBacktrack() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Backtracks++
}

// RecordNode records exploring a search node at the given depth.
func (m *SolverMonitor) RecordNode(depth int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.NodesExplored++
	if depth > m.stats.MaxDepth {
		m.stats.MaxDepth = depth
	}
}

// RecordSolution records finding a solution
func (m *SolverMonitor) RecordSolution() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SolutionsFound++
}

// RecordRestart records a restart from the root.
func (m *SolverMonitor) RecordRestart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.Restarts++
}

// FinishSearch marks the end of the search process
func (m *SolverMonitor) FinishSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.SearchTime = time.Since(m.startTime)
}

// String returns a formatted string representation of the statistics
func (s *SolverStats) String() string {
	return fmt.Sprintf(
		"Solver Statistics:\n"+
			"  Search: %d nodes, %d backtracks, %d solutions, %d restarts, %v time, max depth %d\n"+
			"  Propagation: %d fixpoints, %v time, %d failures",
		s.NodesExplored, s.Backtracks, s.SolutionsFound, s.Restarts, s.SearchTime, s.MaxDepth,
		s.PropagationCount, s.PropagationTime, s.Failures,
	)
}
