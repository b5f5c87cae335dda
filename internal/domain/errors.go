package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRun signals an unparsable run file line.
	ErrMalformedRun = errors.New("malformed run")
	// ErrMalformedTopics signals an unparsable topics document.
	ErrMalformedTopics = errors.New("malformed topics")
	// ErrMalformedTranscript signals an unparsable transcript file.
	ErrMalformedTranscript = errors.New("malformed transcript")
	// ErrPassagesNotFound signals a document with no entry in the passage index.
	ErrPassagesNotFound = errors.New("passages not found")
	// ErrInvalidRange signals out-of-range history indices.
	ErrInvalidRange = errors.New("invalid range")
	// ErrTrackerBusy signals a concurrent ingest on the same tracker.
	ErrTrackerBusy = errors.New("tracker busy")
	// ErrSessionNotFound signals an unknown tracker session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrScoringFailed signals a cross-encoder scoring failure.
	ErrScoringFailed = errors.New("scoring failed")
)

// LineError pins a parse failure to a 1-based line number.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// NewLineError wraps err with its line number.
func NewLineError(line int, err error) error {
	return &LineError{Line: line, Err: err}
}
