package health

import "context"

// StorePinger checks that the search store answers.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

// SessionCounter reports live tracker sessions.
type SessionCounter interface {
	Len() int
}
