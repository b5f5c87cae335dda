package crossencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain"
)

const defaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of a failed response is kept for the error message.
const maxErrorBody = 4 << 10

// Config holds the scoring endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client scores (query, passage) pairs against a /rerank endpoint
// (Cohere/Jina/TEI request shape).
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
	logger  *zap.Logger
}

// NewClient creates a cross-encoder scoring client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		logger:  cfg.Logger,
	}
}

type rerankRequest struct {
	Model     string   `json:"model,omitempty"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

// Score returns the relevance score of passage for query.
// Failures wrap domain.ErrScoringFailed.
func (c *Client) Score(ctx context.Context, query, passage string) (float64, error) {
	body, err := json.Marshal(rerankRequest{Model: c.model, Query: query, Documents: []string{passage}})
	if err != nil {
		return 0, fmt.Errorf("encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rerank request failed: %v: %w", err, domain.ErrScoringFailed)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("rerank API error %d: %s: %w",
			resp.StatusCode, extractDetail(detail), domain.ErrScoringFailed)
	}

	var parsed rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode rerank response: %v: %w", err, domain.ErrScoringFailed)
	}
	if len(parsed.Results) == 0 {
		return 0, fmt.Errorf("empty rerank response: %w", domain.ErrScoringFailed)
	}

	c.logger.Debug("Passage scored",
		zap.Duration("duration", time.Since(start)),
		zap.Float64("score", parsed.Results[0].RelevanceScore),
	)

	return parsed.Results[0].RelevanceScore, nil
}

// extractDetail pulls a message from common JSON error shapes, falling back to the raw body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		for _, s := range []string{parsed.Detail, parsed.Message, parsed.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}
