package health

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

// ErrUnknownCheck is returned by Monitor.Check for names never registered
var ErrUnknownCheck = errors.New("unknown health check")

// Check reports the current health of one part of the process
type Check func() Status

// Monitor aggregates registered checks and pushed statuses. It is safe for
// concurrent use.
type Monitor struct {
	mu       sync.RWMutex
	checks   map[string]Check
	statuses map[string]Status
}

// NewMonitor creates an empty monitor
func NewMonitor() *Monitor {
	return &Monitor{
		checks:   make(map[string]Check),
		statuses: make(map[string]Status),
	}
}

// Register adds or replaces a check evaluated on every report
func (m *Monitor) Register(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
	delete(m.statuses, name)
}

// Update records a static status for name, replacing any check of that name
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	delete(m.checks, name)
	m.statuses[name] = status
}

// Remove forgets name
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.checks, name)
	delete(m.statuses, name)
}

// Names returns the registered names in sorted order
func (m *Monitor) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.checks)+len(m.statuses))
	for name := range m.checks {
		names = append(names, name)
	}
	for name := range m.statuses {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Check evaluates a single part by name
func (m *Monitor) Check(name string) (Status, error) {
	m.mu.RLock()
	check, isCheck := m.checks[name]
	status, isStatus := m.statuses[name]
	m.mu.RUnlock()

	switch {
	case isCheck:
		return m.evaluate(name, check), nil
	case isStatus:
		return status.sanitized(), nil
	}
	return Status{}, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
}

// Report evaluates every check outside the lock and aggregates the results
// in name order.
func (m *Monitor) Report(system string) Status {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, c := range m.checks {
		checks[name] = c
	}
	subs := make([]Status, 0, len(m.checks)+len(m.statuses))
	for _, s := range m.statuses {
		subs = append(subs, s.sanitized())
	}
	m.mu.RUnlock()

	for name, c := range checks {
		subs = append(subs, m.evaluate(name, c))
	}
	slices.SortFunc(subs, func(a, b Status) int {
		return cmp.Compare(a.Component, b.Component)
	})
	return Aggregate(system, subs)
}

// evaluate runs check, turning a panic into an unhealthy status
func (m *Monitor) evaluate(name string, check Check) (status Status) {
	defer func() {
		if r := recover(); r != nil {
			status = NewUnhealthy(name, fmt.Sprintf("health check panicked: %v", r))
		}
		status.Component = name
		status = status.sanitized()
	}()
	return check()
}
