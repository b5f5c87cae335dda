package tracker

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

// Registry holds live tracker sessions by id. It is safe for concurrent use.
type Registry struct {
	searcher Searcher
	defaults Options
	logger   *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Tracker
}

// NewRegistry creates an empty registry whose trackers search with searcher.
func NewRegistry(searcher Searcher, defaults Options, logger *zap.Logger) *Registry {
	return &Registry{
		searcher: searcher,
		defaults: defaults.withDefaults(),
		logger:   logger,
		sessions: make(map[string]*Tracker),
	}
}

// Create starts a new session. Zero fields in opts take the registry defaults.
func (r *Registry) Create(opts Options) (string, *Tracker) {
	if opts.Lookback <= 0 {
		opts.Lookback = r.defaults.Lookback
	}
	if opts.KNN <= 0 {
		opts.KNN = r.defaults.KNN
	}
	if opts.SearchK <= 0 {
		opts.SearchK = r.defaults.SearchK
	}
	if opts.Weighting == "" {
		opts.Weighting = r.defaults.Weighting
	}

	id := uuid.NewString()
	t := New(r.searcher, opts, r.logger.With(zap.String("session", id)))

	r.mu.Lock()
	r.sessions[id] = t
	n := len(r.sessions)
	r.mu.Unlock()

	metrics.TrackerSessions.Set(float64(n))
	return id, t
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Tracker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	return t, nil
}

// Delete drops the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrSessionNotFound)
	}
	metrics.TrackerSessions.Set(float64(n))
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
