package tracker

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
	"github.com/kailas-cloud/argrank/internal/domain/run"
)

func newTracker(s Searcher, opts Options) *Tracker {
	return New(s, opts, zap.NewNop())
}

func mustIngest(t *testing.T, tr *Tracker, text, ts string) {
	t.Helper()
	if _, err := tr.Ingest(context.Background(), text, ts); err != nil {
		t.Fatalf("Ingest(%q): %v", text, err)
	}
}

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestIngest_FirstEntry(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{"w0": hits("A", 3.0, "B", 2.0)}}
	tr := newTracker(s, Options{})

	e, err := tr.Ingest(context.Background(), "w0", "00:01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.DCG() != 0 {
		t.Errorf("expected DCG 0, got %v", e.DCG())
	}
	a, ok := e.Doc("A")
	if !ok {
		t.Fatal("expected A in entry")
	}
	if a.Position != 0 || a.Count != 0 || a.PositionChange != 0 || a.ScoreChange != 3 {
		t.Errorf("unexpected stats for new doc: %+v", a)
	}
	if !slices.Equal(s.ks, []int{DefaultSearchK}) {
		t.Errorf("expected search k %d, got %v", DefaultSearchK, s.ks)
	}
	if tr.Len() != 1 || tr.State() != StateIdle {
		t.Errorf("expected 1 idle entry, got %d %s", tr.Len(), tr.State())
	}
}

func TestIngest_RetainedTopDocumentGainsOneOverLn2(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{"w0": hits("A", 3.0, "B", 2.0)}}
	tr := newTracker(s, Options{KNN: 1})

	mustIngest(t, tr, "w0", "")
	e, err := tr.Ingest(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !almostEqual(e.DCG(), 1/math.Ln2) {
		t.Errorf("expected DCG %v, got %v", 1/math.Ln2, e.DCG())
	}
	if e.Len() != 1 {
		t.Fatalf("expected entry truncated to 1 doc, got %d", e.Len())
	}
	a, _ := e.Doc("A")
	if a.Count != 1 || a.PositionChange != 0 || a.ScoreChange != 0 {
		t.Errorf("unexpected stats for retained doc: %+v", a)
	}
}

func TestIngest_PositionAndScoreChange(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{
		"w0": hits("A", 3.0, "B", 2.0),
		"w1": hits("B", 5.0),
	}}
	tr := newTracker(s, Options{Lookback: 1})

	mustIngest(t, tr, "w0", "")
	e, err := tr.Ingest(context.Background(), "w1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	b, _ := e.Doc("B")
	if b.Position != 0 || b.PositionChange != 1 || b.ScoreChange != 3 || b.Count != 1 {
		t.Errorf("unexpected stats for B: %+v", b)
	}
	if _, ok := e.Doc("A"); ok {
		t.Error("A left the lookback and should not be ranked")
	}
}

func TestIngest_LookbackWindow(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{
		"w0": hits("A", 1.0),
		"w1": hits("B", 1.0),
		"w2": hits("C", 5.0),
	}}
	tr := newTracker(s, Options{Lookback: 2})

	mustIngest(t, tr, "w0", "")
	mustIngest(t, tr, "w1", "")
	e, err := tr.Ingest(context.Background(), "w2", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"w0", "w0", "w1", "w1", "w2"}
	if !slices.Equal(s.queries, want) {
		t.Errorf("expected queries %v, got %v", want, s.queries)
	}
	if got := e.Above(10); !slices.Equal(got, []string{"C", "B"}) {
		t.Errorf("expected [C B], got %v", got)
	}
}

func TestIngest_DiscountWeighting(t *testing.T) {
	s := &fakeSearcher{hits: map[string][]run.Entry{
		"w0": hits("A", 6.0),
		"w1": hits("A", 6.0),
	}}
	tr := newTracker(s, Options{Lookback: 3, Weighting: WeightDiscount})

	e, _ := tr.Ingest(context.Background(), "w0", "")
	if a, _ := e.Doc("A"); !almostEqual(a.Score, 2) {
		t.Errorf("expected 6*1/3 = 2, got %v", a.Score)
	}

	e, _ = tr.Ingest(context.Background(), "w1", "")
	if a, _ := e.Doc("A"); !almostEqual(a.Score, 5) {
		t.Errorf("expected 6/3 + 6/2 = 5, got %v", a.Score)
	}
}

func TestIngest_ConcurrentIngestIsRejected(t *testing.T) {
	s := &fakeSearcher{
		hits:    map[string][]run.Entry{"w0": hits("A", 1.0)},
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	tr := newTracker(s, Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = tr.Ingest(context.Background(), "w0", "")
	}()
	<-s.started

	if tr.State() != StateIngesting {
		t.Errorf("expected state %s, got %s", StateIngesting, tr.State())
	}
	if _, err := tr.Ingest(context.Background(), "w1", ""); !errors.Is(err, domain.ErrTrackerBusy) {
		t.Errorf("expected ErrTrackerBusy, got %v", err)
	}

	close(s.block)
	wg.Wait()

	if firstErr != nil {
		t.Fatalf("first ingest failed: %v", firstErr)
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", tr.Len())
	}
}

func TestIngest_FailedSearchLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("boom")
	s := &fakeSearcher{err: boom}
	tr := newTracker(s, Options{})

	if _, err := tr.Ingest(context.Background(), "w0", "00:00"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if tr.Len() != 0 || len(tr.Labels()) != 0 {
		t.Fatalf("expected empty tracker, got %d entries %v", tr.Len(), tr.Labels())
	}

	s.err = nil
	s.queries = nil
	mustIngest(t, tr, "w1", "")

	if !slices.Equal(s.queries, []string{"w1"}) {
		t.Errorf("failed window must not be searched again, got %v", s.queries)
	}
	if !slices.Equal(tr.Labels(), []string{"0"}) {
		t.Errorf("expected labels [0], got %v", tr.Labels())
	}
}

// newHistory ingests three independent windows:
// w0 -> A B, w1 -> B C, w2 -> C D.
func newHistory(t *testing.T) (*Tracker, *fakeSearcher) {
	t.Helper()
	s := &fakeSearcher{hits: map[string][]run.Entry{
		"w0":        hits("A", 2.0, "B", 1.0),
		"w1":        hits("B", 2.0, "C", 1.0),
		"w2":        hits("C", 2.0, "D", 1.0),
		"god bible": hits("X", 3.0, "Y", 2.0, "Z", 1.0),
		"heavens":   hits("S", 1.0),
	}}
	tr := newTracker(s, Options{Lookback: 1})
	mustIngest(t, tr, "w0", "00:01")
	mustIngest(t, tr, "w1", "00:02")
	mustIngest(t, tr, "w2", "00:03")
	return tr, s
}

func TestTopFrequent(t *testing.T) {
	tr, _ := newHistory(t)

	tests := []struct {
		name       string
		start, end int
		n          int
		want       []string
	}{
		{"whole history, ties in encounter order", 0, 3, 3, []string{"B", "C", "A"}},
		{"all docs", 0, 3, 0, []string{"B", "C", "A", "D"}},
		{"suffix", 1, 3, 10, []string{"C", "B", "D"}},
		{"empty range", 2, 2, 5, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.TopFrequent(tt.start, tt.end, tt.n)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTopFrequent_InvalidRange(t *testing.T) {
	tr, _ := newHistory(t)

	for _, r := range [][2]int{{-1, 1}, {2, 1}, {0, 4}} {
		if _, err := tr.TopFrequent(r[0], r[1], 5); !errors.Is(err, domain.ErrInvalidRange) {
			t.Errorf("range %v: expected ErrInvalidRange, got %v", r, err)
		}
	}
}

func TestTopDocs(t *testing.T) {
	tr, _ := newHistory(t)

	got, err := tr.TopDocs(0, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(got, []string{"A"}) {
		t.Errorf("expected [A], got %v", got)
	}

	if _, err := tr.TopDocs(3, 1); !errors.Is(err, domain.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestPositions(t *testing.T) {
	tr, _ := newHistory(t)

	got, err := tr.Positions(0, 2, []string{"A", "D"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(got.Labels, []string{"00:01", "00:02", "00:03"}) {
		t.Errorf("unexpected labels: %v", got.Labels)
	}
	if len(got.Docs) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(got.Docs))
	}
	if !slices.Equal(got.Docs[0].Positions, []int{0, DefaultKNN, DefaultKNN}) {
		t.Errorf("A: unexpected positions %v", got.Docs[0].Positions)
	}
	if !slices.Equal(got.Docs[1].Positions, []int{DefaultKNN, DefaultKNN, 1}) {
		t.Errorf("D: unexpected positions %v", got.Docs[1].Positions)
	}

	if _, err := tr.Positions(1, 3, []string{"A"}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestFindByKeyword(t *testing.T) {
	tr, s := newHistory(t)
	s.ks = nil

	got, err := tr.FindByKeyword(context.Background(), []string{"god bible", "heavens"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Keywords != "god bible" || !slices.Equal(got[0].DocIDs, []string{"X", "Y"}) {
		t.Errorf("unexpected first group: %+v", got[0])
	}
	if !slices.Equal(got[1].DocIDs, []string{"S"}) {
		t.Errorf("unexpected second group: %+v", got[1])
	}
	if !slices.Equal(s.ks, []int{2, 2}) {
		t.Errorf("expected one search per group with k=2, got %v", s.ks)
	}
}

func TestFindByKeyword_DefaultTopN(t *testing.T) {
	tr, s := newHistory(t)
	s.ks = nil

	if _, err := tr.FindByKeyword(context.Background(), []string{"heavens"}, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(s.ks, []int{DefaultKeywordTopN}) {
		t.Errorf("expected k=%d, got %v", DefaultKeywordTopN, s.ks)
	}
}

func TestParseWeighting(t *testing.T) {
	tests := []struct {
		in      string
		want    Weighting
		wantErr bool
	}{
		{"", WeightUniform, false},
		{"uniform", WeightUniform, false},
		{"discount", WeightDiscount, false},
		{"linear", "", true},
	}
	for _, tt := range tests {
		got, err := ParseWeighting(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWeighting(%q): unexpected error state %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseWeighting(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}
