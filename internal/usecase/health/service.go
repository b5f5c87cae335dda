package health

import (
	"context"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every check failed.
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

// Report aggregates health check results.
type Report struct {
	Status   Status                 `json:"status"`
	Checks   map[string]CheckResult `json:"checks"`
	Sessions int                    `json:"sessions"`
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding EmbeddingChecker
	sessions  SessionCounter
	logger    *zap.Logger
}

// New creates a Service. embedding and sessions can be nil.
func New(store StorePinger, embedding EmbeddingChecker, sessions SessionCounter, logger *zap.Logger) *Service {
	return &Service{store: store, embedding: embedding, sessions: sessions, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	checks["store"] = s.probe("store", func() error { return s.store.Ping(ctx) })
	if s.embedding != nil {
		checks["embedding"] = s.probe("embedding", func() error { return s.embedding.HealthCheck(ctx) })
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	r := Report{Status: status, Checks: checks}
	if s.sessions != nil {
		r.Sessions = s.sessions.Len()
	}
	return r
}

func (s *Service) probe(name string, fn func() error) CheckResult {
	if err := fn(); err != nil {
		s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
		return CheckError
	}
	return CheckOK
}
