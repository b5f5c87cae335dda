// Package tracker follows how a ranked list drifts over a stream of transcript windows.
package tracker

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/history"
	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/metrics"
)

// State of a tracker.
type State string

// Tracker states.
const (
	StateIdle      State = "idle"
	StateIngesting State = "ingesting"
)

// Tracker keeps the transcript windows and one history entry per window.
// Ingests are exclusive: a second concurrent Ingest fails with
// domain.ErrTrackerBusy. Reads are safe at any time.
type Tracker struct {
	searcher Searcher
	opts     Options
	logger   *zap.Logger

	ingest sync.Mutex

	mu      sync.RWMutex
	state   State
	windows []string
	labels  []string
	history []history.Entry
}

// New creates an idle tracker with an empty history.
func New(searcher Searcher, opts Options, logger *zap.Logger) *Tracker {
	return &Tracker{
		searcher: searcher,
		opts:     opts.withDefaults(),
		logger:   logger,
		state:    StateIdle,
	}
}

// Options returns the effective options.
func (t *Tracker) Options() Options { return t.opts }

// Ingested describes the entry recorded for one window.
type Ingested struct {
	Index     int
	Timestamp string
	Entry     history.Entry
}

// Ingest appends a transcript window, searches the lookback and records the
// resulting history entry. An empty timestamp is replaced by the window index.
// A failed search leaves the tracker unchanged.
func (t *Tracker) Ingest(ctx context.Context, text, timestamp string) (history.Entry, error) {
	res, err := t.IngestWindow(ctx, text, timestamp)
	if err != nil {
		return history.Entry{}, err
	}
	return res.Entry, nil
}

// IngestWindow is Ingest that also reports the window index and label.
func (t *Tracker) IngestWindow(ctx context.Context, text, timestamp string) (Ingested, error) {
	if !t.ingest.TryLock() {
		metrics.TrackerIngestsTotal.WithLabelValues("busy").Inc()
		return Ingested{}, domain.ErrTrackerBusy
	}
	defer t.ingest.Unlock()

	t.setState(StateIngesting)
	defer t.setState(StateIdle)

	t.mu.RLock()
	idx := len(t.windows)
	windows := append(slices.Clone(t.windows), text)
	var prev *history.Entry
	if n := len(t.history); n > 0 {
		last := t.history[n-1]
		prev = &last
	}
	t.mu.RUnlock()

	ranking, err := t.search(ctx, windows)
	if err != nil {
		metrics.TrackerIngestsTotal.WithLabelValues("error").Inc()
		return Ingested{}, fmt.Errorf("window %d: %w", idx, err)
	}

	entry := history.Build(prev, ranking)
	if timestamp == "" {
		timestamp = strconv.Itoa(idx)
	}

	t.mu.Lock()
	t.windows = windows
	t.labels = append(t.labels, timestamp)
	t.history = append(t.history, entry)
	t.mu.Unlock()

	metrics.TrackerIngestsTotal.WithLabelValues("ok").Inc()
	t.logger.Debug("Window ingested",
		zap.Int("window", idx),
		zap.String("timestamp", timestamp),
		zap.Int("docs", entry.Len()),
		zap.Float64("dcg", entry.DCG()),
	)
	return Ingested{Index: idx, Timestamp: timestamp, Entry: entry}, nil
}

// search scores documents over the most recent Lookback windows and keeps the top KNN.
func (t *Tracker) search(ctx context.Context, windows []string) (run.Ranking, error) {
	if len(windows) > t.opts.Lookback {
		windows = windows[len(windows)-t.opts.Lookback:]
	}
	weights := t.opts.weights(len(windows))

	acc := run.NewAccumulator(t.opts.SearchK)
	for i, w := range windows {
		hits, err := t.searcher.Search(ctx, w, t.opts.SearchK)
		if err != nil {
			return run.Ranking{}, fmt.Errorf("search: %w", err)
		}
		for _, h := range hits {
			acc.Add(h.DocID, h.Score*weights[i])
		}
	}
	return acc.Ranking().Top(t.opts.KNN), nil
}

func (t *Tracker) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// State reports whether an ingest is in flight.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Len returns the number of history entries.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.history)
}

// Entry returns the history entry at idx.
func (t *Tracker) Entry(idx int) (history.Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if idx < 0 || idx >= len(t.history) {
		return history.Entry{}, fmt.Errorf("entry %d of %d: %w", idx, len(t.history), domain.ErrInvalidRange)
	}
	return t.history[idx], nil
}

// Labels returns the timestamp label of every ingested window.
func (t *Tracker) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.labels)
}

// TopFrequent returns the topN documents present in the most entries of
// [start, end). Ties keep the order documents were first encountered.
// A non-positive topN returns every document.
func (t *Tracker) TopFrequent(start, end, topN int) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if start < 0 || end < start || end > len(t.history) {
		return nil, fmt.Errorf("range [%d, %d) of %d: %w", start, end, len(t.history), domain.ErrInvalidRange)
	}

	var order []string
	counts := make(map[string]int)
	for _, e := range t.history[start:end] {
		for _, d := range e.Docs() {
			if _, ok := counts[d.DocID]; !ok {
				order = append(order, d.DocID)
			}
			counts[d.DocID]++
		}
	}

	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}
	return order, nil
}

// TopDocs returns the documents ranked above position topN at entry idx, in rank order.
func (t *Tracker) TopDocs(idx, topN int) ([]string, error) {
	e, err := t.Entry(idx)
	if err != nil {
		return nil, err
	}
	return e.Above(topN), nil
}

// DocPositions is the position trace of one document.
type DocPositions struct {
	DocID     string `json:"doc_id"`
	Positions []int  `json:"positions"`
}

// PositionSeries holds position traces over a range of entries with the
// matching window labels.
type PositionSeries struct {
	Labels []string       `json:"labels"`
	Docs   []DocPositions `json:"docs"`
}

// Positions traces docs over the inclusive entry range [start, end]. A document
// missing from an entry is reported at position KNN.
func (t *Tracker) Positions(start, end int, docs []string) (PositionSeries, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if start < 0 || end < start || end >= len(t.history) {
		return PositionSeries{}, fmt.Errorf("range [%d, %d] of %d: %w", start, end, len(t.history), domain.ErrInvalidRange)
	}

	series := PositionSeries{
		Labels: slices.Clone(t.labels[start : end+1]),
		Docs:   make([]DocPositions, len(docs)),
	}
	for i, doc := range docs {
		pos := make([]int, 0, end-start+1)
		for _, e := range t.history[start : end+1] {
			if d, ok := e.Doc(doc); ok {
				pos = append(pos, d.Position)
			} else {
				pos = append(pos, t.opts.KNN)
			}
		}
		series.Docs[i] = DocPositions{DocID: doc, Positions: pos}
	}
	return series, nil
}

// KeywordHits pairs a keyword group with the documents it retrieves.
type KeywordHits struct {
	Keywords string   `json:"keywords"`
	DocIDs   []string `json:"doc_ids"`
}

// DefaultKeywordTopN is the number of documents returned per keyword group.
const DefaultKeywordTopN = 5

// FindByKeyword runs one search per keyword group and returns the topN document ids of each.
func (t *Tracker) FindByKeyword(ctx context.Context, keywords []string, topN int) ([]KeywordHits, error) {
	if topN <= 0 {
		topN = DefaultKeywordTopN
	}
	out := make([]KeywordHits, 0, len(keywords))
	for _, kw := range keywords {
		hits, err := t.searcher.Search(ctx, kw, topN)
		if err != nil {
			return nil, fmt.Errorf("keywords %q: %w", kw, err)
		}
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.DocID
		}
		out = append(out, KeywordHits{Keywords: kw, DocIDs: ids})
	}
	return out, nil
}
