// Package health aggregates component checks and corpus statistics for the
// health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results and corpus statistics.
type Report struct {
	Status       Status
	Checks       map[string]CheckResult
	ChunkCount   int
	DenseVectors int
	SparseDocs   int
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	embedding EmbeddingChecker
	indexes   IndexStats
	chunks    ChunkCounter
}

// New creates a Service. embedding can be nil.
func New(db DBPinger, embedding EmbeddingChecker, indexes IndexStats, chunks ChunkCounter) *Service {
	return &Service{db: db, embedding: embedding, indexes: indexes, chunks: chunks}
}

// Check runs health checks against all components. A failing check degrades
// the report but never errors: the endpoint always answers.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	report := Report{Status: status, Checks: checks}
	if s.indexes != nil {
		report.DenseVectors = s.indexes.DenseLen()
		report.SparseDocs = s.indexes.SparseLen()
	}
	if s.chunks != nil {
		if n, err := s.chunks.Count(ctx); err == nil {
			report.ChunkCount = n
		}
	}
	return report
}
