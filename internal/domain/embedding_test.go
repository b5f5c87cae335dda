package domain

import (
	"context"
	"errors"
	"testing"
)

type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	tokens  int
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{
		Embedding:    s.vectors[text],
		PromptTokens: s.tokens,
		TotalTokens:  s.tokens,
	}, nil
}

func TestBatchFallback_PreservesOrder(t *testing.T) {
	inner := &stubEmbedder{
		vectors: map[string][]float32{
			"a": {1, 0},
			"b": {0, 1},
		},
		tokens: 3,
	}

	res, err := BatchFallback(context.Background(), inner, []string{"b", "a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 Embed calls, got %d", inner.calls)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.Embeddings[0][1] != 1 || res.Embeddings[1][0] != 1 || res.Embeddings[2][1] != 1 {
		t.Errorf("unexpected order: %v", res.Embeddings)
	}
	if res.TotalTokens != 9 || res.PromptTokens != 9 {
		t.Errorf("expected 9 tokens, got prompt=%d total=%d", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_Error(t *testing.T) {
	innerErr := errors.New("provider down")
	inner := &stubEmbedder{err: innerErr}

	_, err := BatchFallback(context.Background(), inner, []string{"x"})
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestBatchFallback_Empty(t *testing.T) {
	inner := &stubEmbedder{}

	res, err := BatchFallback(context.Background(), inner, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Errorf("expected no embeddings, got %d", len(res.Embeddings))
	}
	if inner.calls != 0 {
		t.Errorf("expected no calls, got %d", inner.calls)
	}
}

func TestLineError(t *testing.T) {
	err := NewLineError(7, ErrMalformedRun)
	if !errors.Is(err, ErrMalformedRun) {
		t.Errorf("expected ErrMalformedRun in chain, got %v", err)
	}
	var le *LineError
	if !errors.As(err, &le) || le.Line != 7 {
		t.Errorf("expected LineError at line 7, got %v", err)
	}
	if err.Error() != "line 7: malformed run" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}
