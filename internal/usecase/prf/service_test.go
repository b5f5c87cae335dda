package prf

import (
	"context"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/kailas-cloud/argrank/internal/domain/passage"
	"github.com/kailas-cloud/argrank/internal/domain/run"
	"github.com/kailas-cloud/argrank/internal/domain/topic"
)

func assertEntries(t *testing.T, got run.Ranking, want []run.Entry) {
	t.Helper()
	if got.Len() != len(want) {
		t.Fatalf("expected %d entries, got %d (%v)", len(want), got.Len(), got.Entries())
	}
	for i, w := range want {
		g := got.At(i)
		if g.DocID != w.DocID || math.Abs(g.Score-w.Score) > 1e-9 {
			t.Errorf("rank %d: expected %v, got %v", i+1, w, g)
		}
	}
}

func TestRerank_AccumulatesNeighborSimilarity(t *testing.T) {
	svc, enc, idx := newTestService(t, Options{RelDocs: 3, K: 2})
	// X has no passages and is skipped; C sits below the feedback set.
	seed := seedRun(
		run.Entry{DocID: "A", Score: 10},
		run.Entry{DocID: "B", Score: 9},
		run.Entry{DocID: "X", Score: 8},
		run.Entry{DocID: "C", Score: 1},
	)

	out, err := svc.Rerank(context.Background(), seed, testTopics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(enc.calls) != 1 {
		t.Fatalf("expected one batch encode call, got %d", len(enc.calls))
	}
	if !slices.Equal(enc.calls[0], []string{"a zero", "a one", "b zero"}) {
		t.Errorf("unexpected feedback passages: %v", enc.calls[0])
	}
	if !slices.Equal(idx.ks, []int{2}) {
		t.Errorf("expected one knn call with k=2, got %v", idx.ks)
	}

	got, _ := out.Ranking("1")
	// C: 0.9+0.8, A: 1.0, B: 0.5, D: 0.5 (B encountered before D)
	assertEntries(t, got, []run.Entry{
		{DocID: "C", Score: 1.7},
		{DocID: "A", Score: 1.0},
		{DocID: "B", Score: 0.5},
		{DocID: "D", Score: 0.5},
	})
}

func TestRerank_CutoffBoundsFeedback(t *testing.T) {
	svc, enc, _ := newTestService(t, Options{RelDocs: 5, K: 2, Cutoff: 1})
	seed := seedRun(run.Entry{DocID: "A", Score: 10}, run.Entry{DocID: "B", Score: 9})

	out, err := svc.Rerank(context.Background(), seed, testTopics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !slices.Equal(enc.calls[0], []string{"a zero", "a one"}) {
		t.Errorf("expected only A passages, got %v", enc.calls[0])
	}
	got, _ := out.Ranking("1")
	assertEntries(t, got, []run.Entry{{DocID: "C", Score: 1.7}, {DocID: "B", Score: 0.5}})
}

func TestOptions_FeedbackSize(t *testing.T) {
	tests := []struct {
		opts Options
		want int
	}{
		{Options{}, DefaultRelDocs},
		{Options{RelDocs: 3}, 3},
		{Options{RelDocs: 5, Cutoff: 2}, 2},
		{Options{RelDocs: 2, Cutoff: 10}, 2},
		{Options{RelDocs: 4, Cutoff: -1}, 4},
	}
	for _, tc := range tests {
		if got := tc.opts.FeedbackSize(); got != tc.want {
			t.Errorf("%+v: expected %d, got %d", tc.opts, tc.want, got)
		}
	}
}

func TestRerank_TopicsOutsideSetCarriedOver(t *testing.T) {
	svc, enc, _ := newTestService(t, Options{K: 2})
	seed := run.NewBuilder().
		Set("1", run.NewRanking(run.Entry{DocID: "A", Score: 3})).
		Set("99", run.NewRanking(run.Entry{DocID: "Z", Score: 7}, run.Entry{DocID: "Y", Score: 6})).
		Build()

	out, err := svc.Rerank(context.Background(), seed, testTopics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enc.calls) != 1 {
		t.Errorf("expected only topic 1 to be encoded, got %d calls", len(enc.calls))
	}
	if !slices.Equal(out.Topics(), []string{"1", "99"}) {
		t.Errorf("expected seed topic order, got %v", out.Topics())
	}
	got, _ := out.Ranking("99")
	assertEntries(t, got, []run.Entry{{DocID: "Z", Score: 7}, {DocID: "Y", Score: 6}})
}

func TestRerank_NoPassagesYieldsEmptyRanking(t *testing.T) {
	svc, enc, _ := newTestService(t, Options{})
	seed := seedRun(run.Entry{DocID: "X", Score: 1}, run.Entry{DocID: "Y", Score: 0.5})

	out, err := svc.Rerank(context.Background(), seed, testTopics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(enc.calls) != 0 {
		t.Errorf("encoder should not be called, got %d calls", len(enc.calls))
	}
	got, ok := out.Ranking("1")
	if !ok || got.Len() != 0 {
		t.Errorf("expected empty ranking for topic 1, got %v (present=%v)", got.Entries(), ok)
	}
}

func TestRerank_EncoderErrorPropagates(t *testing.T) {
	svc, enc, _ := newTestService(t, Options{})
	encErr := errors.New("provider down")
	enc.err = encErr

	_, err := svc.Rerank(context.Background(), seedRun(run.Entry{DocID: "A", Score: 1}), testTopics())
	if !errors.Is(err, encErr) {
		t.Fatalf("expected encoder error, got %v", err)
	}
}

func TestRerank_IndexErrorPropagates(t *testing.T) {
	svc, _, idx := newTestService(t, Options{})
	knnErr := errors.New("index unavailable")
	idx.knnFn = func(context.Context, [][]float32, int) ([][]passage.Neighbor, error) {
		return nil, knnErr
	}

	_, err := svc.Rerank(context.Background(), seedRun(run.Entry{DocID: "A", Score: 1}), testTopics())
	if !errors.Is(err, knnErr) {
		t.Fatalf("expected knn error, got %v", err)
	}
}

func TestRerank_UnknownNeighborRowsIgnored(t *testing.T) {
	svc, _, idx := newTestService(t, Options{K: 2})
	idx.table[3] = []passage.Neighbor{{Idx: 42, Distance: 0}, {Idx: 3, Distance: 0.25}}

	out, err := svc.Rerank(context.Background(), seedRun(run.Entry{DocID: "C", Score: 1}), testTopics())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := out.Ranking("1")
	assertEntries(t, got, []run.Entry{{DocID: "C", Score: 0.75}})
}

func TestRerank_Deterministic(t *testing.T) {
	svc, _, _ := newTestService(t, Options{RelDocs: 2, K: 2})
	topics := topic.NewSet(topic.Topic{ID: "1", Title: "t"})

	// Same feedback set, different order of documents below RelDocs.
	a := seedRun(
		run.Entry{DocID: "A", Score: 5}, run.Entry{DocID: "B", Score: 4},
		run.Entry{DocID: "C", Score: 3}, run.Entry{DocID: "D", Score: 2},
	)
	b := seedRun(
		run.Entry{DocID: "A", Score: 5}, run.Entry{DocID: "B", Score: 4},
		run.Entry{DocID: "D", Score: 3}, run.Entry{DocID: "C", Score: 2},
	)

	outA, err := svc.Rerank(context.Background(), a, topics)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	outA2, _ := svc.Rerank(context.Background(), a, topics)
	outB, _ := svc.Rerank(context.Background(), b, topics)

	ra, _ := outA.Ranking("1")
	ra2, _ := outA2.Ranking("1")
	rb, _ := outB.Ranking("1")
	if !slices.Equal(ra.Entries(), ra2.Entries()) {
		t.Errorf("repeated rerank differs: %v vs %v", ra.Entries(), ra2.Entries())
	}
	if !slices.Equal(ra.Entries(), rb.Entries()) {
		t.Errorf("order below RelDocs changed output: %v vs %v", ra.Entries(), rb.Entries())
	}
}
