// Package health aggregates the availability of the store and model providers.
package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional provider is failing.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentDatabase  = "database"
	ComponentEmbedding = "embedding"
)

// DefaultTimeout bounds each individual check.
const DefaultTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	db        Pinger
	providers map[string]ProviderChecker
	timeout   time.Duration
}

// New creates a Service. embedding can be nil.
func New(db Pinger, embedding ProviderChecker) *Service {
	s := &Service{db: db, providers: make(map[string]ProviderChecker), timeout: DefaultTimeout}
	if embedding != nil {
		s.providers[ComponentEmbedding] = embedding
	}
	return s
}

// WithProvider registers an additional provider check under name.
func (s *Service) WithProvider(name string, p ProviderChecker) *Service {
	if p != nil {
		s.providers[name] = p
	}
	return s
}

// WithTimeout overrides the per-check timeout. Non-positive values are ignored.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// Check runs every registered check. A failing database makes the service
// unhealthy, a failing provider only degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.providers)+1)

	checks[ComponentDatabase] = s.run(ctx, s.db.Ping)
	for name, p := range s.providers {
		checks[name] = s.run(ctx, p.HealthCheck)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}
	if checks[ComponentDatabase] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, fn func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
