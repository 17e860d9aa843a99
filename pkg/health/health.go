// Package health exposes liveness and readiness probes for a running
// collision simulation. Checks read values published by the simulation
// goroutine and never touch the world directly.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-collide/pkg/collision"
)

// Check is one named health probe
type Check interface {
	Name() string
	Check(ctx context.Context) error
}

// Status is the aggregated result of every check
type Status struct {
	Status string                     `json:"status"`
	Checks map[string]ComponentStatus `json:"checks"`
}

// ComponentStatus is the result of one check
type ComponentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker runs registered checks
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
}

// NewChecker creates an empty checker
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
	}
}

// AddCheck registers check, replacing any check with the same name
func (c *Checker) AddCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name()] = check
}

// RemoveCheck removes a check by name
func (c *Checker) RemoveCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered check names in sorted order
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check. The overall status is "healthy" only when
// all checks pass.
func (c *Checker) CheckHealth(ctx context.Context) Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := Status{
		Status: "healthy",
		Checks: make(map[string]ComponentStatus, len(c.checks)),
	}
	for name, check := range c.checks {
		if err := check.Check(ctx); err != nil {
			status.Status = "unhealthy"
			status.Checks[name] = ComponentStatus{Status: "unhealthy", Message: err.Error()}
			continue
		}
		status.Checks[name] = ComponentStatus{Status: "healthy"}
	}
	return status
}

// LivenessHandler answers 200 while the process is up
func (c *Checker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadinessHandler runs every check and answers 200 when all pass, 503
// otherwise
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := c.CheckHealth(ctx)

	w.Header().Set("Content-Type", "application/json")
	if status.Status == "healthy" {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// Monitor holds the latest values published by the simulation goroutine
type Monitor struct {
	mu       sync.RWMutex
	stats    collision.Stats
	lastTick time.Time
	ticks    uint64
}

// NewMonitor creates a monitor with no ticks recorded
func NewMonitor() *Monitor {
	return &Monitor{}
}

// RecordTick stores the world's counters after a tick
func (m *Monitor) RecordTick(stats collision.Stats, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = stats
	m.lastTick = at
	m.ticks++
}

// Stats returns the last recorded counters
func (m *Monitor) Stats() collision.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// LastTick returns when the last tick was recorded and how many there were
func (m *Monitor) LastTick() (time.Time, uint64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastTick, m.ticks
}

// TickHealthCheck fails when the simulation has not ticked recently
type TickHealthCheck struct {
	monitor *Monitor
	maxAge  time.Duration
	now     func() time.Time
}

// NewTickHealthCheck creates a check failing once no tick was recorded for maxAge
func NewTickHealthCheck(monitor *Monitor, maxAge time.Duration) *TickHealthCheck {
	return &TickHealthCheck{monitor: monitor, maxAge: maxAge, now: time.Now}
}

// Name returns "simulation"
func (t *TickHealthCheck) Name() string {
	return "simulation"
}

// Check verifies the simulation is ticking
func (t *TickHealthCheck) Check(ctx context.Context) error {
	last, ticks := t.monitor.LastTick()
	if ticks == 0 {
		return fmt.Errorf("simulation has not ticked yet")
	}
	if age := t.now().Sub(last); age > t.maxAge {
		return fmt.Errorf("last tick %v ago exceeds %v", age.Round(time.Millisecond), t.maxAge)
	}
	return nil
}

// PairFailureHealthCheck fails when too many pair checks panic
type PairFailureHealthCheck struct {
	monitor  *Monitor
	maxRatio float64
}

// NewPairFailureHealthCheck creates a check failing once failures exceed
// maxRatio of the pairs attempted
func NewPairFailureHealthCheck(monitor *Monitor, maxRatio float64) *PairFailureHealthCheck {
	return &PairFailureHealthCheck{monitor: monitor, maxRatio: maxRatio}
}

// Name returns "pair_failures"
func (p *PairFailureHealthCheck) Name() string {
	return "pair_failures"
}

// Check compares pair failures with the pairs attempted
func (p *PairFailureHealthCheck) Check(ctx context.Context) error {
	s := p.monitor.Stats()
	attempted := s.PairsTested + s.PairFailures
	if attempted == 0 {
		return nil
	}
	if ratio := float64(s.PairFailures) / float64(attempted); ratio > p.maxRatio {
		return fmt.Errorf("pair failure ratio %.3f exceeds %.3f (%d of %d)", ratio, p.maxRatio, s.PairFailures, attempted)
	}
	return nil
}

// BreakerHealthCheck fails while a pair filter's breaker is open
type BreakerHealthCheck struct {
	state func() gobreaker.State
}

// NewBreakerHealthCheck creates a check over a breaker state source such as
// collision.GuardedFilter.State
func NewBreakerHealthCheck(state func() gobreaker.State) *BreakerHealthCheck {
	return &BreakerHealthCheck{state: state}
}

// Name returns "pair_filter"
func (b *BreakerHealthCheck) Name() string {
	return "pair_filter"
}

// Check fails while the breaker is open
func (b *BreakerHealthCheck) Check(ctx context.Context) error {
	if state := b.state(); state == gobreaker.StateOpen {
		return fmt.Errorf("pair filter breaker is %s", state)
	}
	return nil
}

// MemoryHealthCheck fails when heap usage exceeds a limit
type MemoryHealthCheck struct {
	maxMemoryMB    int64
	getMemoryUsage func() int64
}

// NewMemoryHealthCheck creates a health check for memory usage
func NewMemoryHealthCheck(maxMemoryMB int64, getMemoryUsage func() int64) *MemoryHealthCheck {
	return &MemoryHealthCheck{
		maxMemoryMB:    maxMemoryMB,
		getMemoryUsage: getMemoryUsage,
	}
}

// Name returns "memory"
func (m *MemoryHealthCheck) Name() string {
	return "memory"
}

// Check verifies that memory usage is within the limit
func (m *MemoryHealthCheck) Check(ctx context.Context) error {
	currentMB := m.getMemoryUsage()
	if currentMB > m.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, m.maxMemoryMB)
	}
	return nil
}
