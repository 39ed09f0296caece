package health

import (
	"context"
	"sync"
	"time"
)

// Aggregator composes multiple Checkers into one overall verdict.
type Aggregator struct {
	checkers []Checker
	mu       sync.RWMutex
}

func NewAggregator(checkers ...Checker) *Aggregator {
	return &Aggregator{
		checkers: checkers,
	}
}

func (a *Aggregator) AddChecker(checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checkers = append(a.checkers, checker)
}

// CheckAll runs every registered checker concurrently.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]CheckResult {
	a.mu.RLock()
	defer a.mu.RUnlock()

	results := make(map[string]CheckResult)
	resultsMu := sync.Mutex{}
	wg := sync.WaitGroup{}

	for _, checker := range a.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			result := c.Check(ctx)

			resultsMu.Lock()
			results[c.Name()] = result
			resultsMu.Unlock()
		}(checker)
	}

	wg.Wait()
	return results
}

// OverallStatus folds every checker's result into one Status: any Unhealthy
// wins, then any Degraded, else Healthy.
func (a *Aggregator) OverallStatus(ctx context.Context) Status {
	results := a.CheckAll(ctx)

	unhealthyCount := 0
	degradedCount := 0

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			unhealthyCount++
		case StatusDegraded:
			degradedCount++
		}
	}

	if unhealthyCount > 0 {
		return StatusUnhealthy
	}
	if degradedCount > 0 {
		return StatusDegraded
	}
	return StatusHealthy
}

// Ready reports whether the gateway can serve traffic. A gateway with every
// agent disconnected is Degraded, not Unhealthy — it can still accept new
// agent registrations, so it stays ready.
func (a *Aggregator) Ready(ctx context.Context) bool {
	return a.OverallStatus(ctx) != StatusUnhealthy
}

// Alive always returns true: if the process were dead it wouldn't answer.
func (a *Aggregator) Alive() bool {
	return true
}

// HealthReport is the JSON shape served at /health.
type HealthReport struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}
