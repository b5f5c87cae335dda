package chi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/argrank/internal/domain/history"
	logpkg "github.com/kailas-cloud/argrank/internal/logger"
	healthuc "github.com/kailas-cloud/argrank/internal/usecase/health"
	"github.com/kailas-cloud/argrank/internal/usecase/tracker"
)

const defaultTopN = 20

// Sessions manages live tracker sessions.
type Sessions interface {
	Create(opts tracker.Options) (string, *tracker.Tracker)
	Get(id string) (*tracker.Tracker, error)
	Delete(id string) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server serves the live tracker session API.
type Server struct {
	sessions Sessions
	health   HealthChecker
	logger   *zap.Logger
}

// NewServer creates an HTTP API server.
func NewServer(sessions Sessions, health HealthChecker, logger *zap.Logger) *Server {
	return &Server{sessions: sessions, health: health, logger: logger}
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Route("/{session}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/windows", s.IngestWindow)
			r.Get("/frequent", s.TopFrequent)
			r.Get("/entries/{idx}", s.GetEntry)
			r.Get("/entries/{idx}/top", s.TopDocs)
			r.Post("/positions", s.Positions)
			r.Post("/keywords", s.FindByKeyword)
		})
	})
}

// --- Request / response bodies ---

// CreateSessionRequest overrides tracker defaults; zero fields keep them.
type CreateSessionRequest struct {
	Lookback  int    `json:"lookback"`
	KNN       int    `json:"knn"`
	SearchK   int    `json:"search_k"`
	Weighting string `json:"weighting"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID        string        `json:"id"`
	State     tracker.State `json:"state"`
	Windows   int           `json:"windows"`
	Lookback  int           `json:"lookback"`
	KNN       int           `json:"knn"`
	SearchK   int           `json:"search_k"`
	Weighting string        `json:"weighting"`
}

// IngestRequest is one transcript window.
type IngestRequest struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// EntryResponse is one history entry.
type EntryResponse struct {
	Index     int               `json:"index"`
	Timestamp string            `json:"timestamp"`
	DCG       float64           `json:"dcg"`
	Docs      []history.DocStat `json:"docs"`
}

// DocsResponse lists document ids.
type DocsResponse struct {
	Docs []string `json:"docs"`
}

// PositionsRequest selects an inclusive entry range and the documents to trace.
type PositionsRequest struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Docs  []string `json:"docs"`
}

// KeywordsRequest lists independent keyword groups.
type KeywordsRequest struct {
	Keywords []string `json:"keywords"`
	N        int      `json:"n"`
}

// KeywordsResponse pairs each keyword group with its documents.
type KeywordsResponse struct {
	Results []tracker.KeywordHits `json:"results"`
}

// --- Handlers ---

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
			return
		}
	}

	if req.Lookback < 0 || req.KNN < 0 || req.SearchK < 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "lookback, knn and search_k must not be negative")
		return
	}
	weighting := tracker.Weighting("")
	if req.Weighting != "" {
		wt, err := tracker.ParseWeighting(req.Weighting)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		weighting = wt
	}

	id, t := s.sessions.Create(tracker.Options{
		Lookback:  req.Lookback,
		KNN:       req.KNN,
		SearchK:   req.SearchK,
		Weighting: weighting,
	})
	logpkg.FromContext(r.Context()).Info("Session created", zap.String("session", id))

	writeJSON(w, http.StatusCreated, sessionToResponse(id, t))
}

// GetSession handles GET /sessions/{session}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	id, t, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sessionToResponse(id, t))
}

// DeleteSession handles DELETE /sessions/{session}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session")
	if err := s.sessions.Delete(id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Info("Session deleted", zap.String("session", id))
	w.WriteHeader(http.StatusNoContent)
}

// IngestWindow handles POST /sessions/{session}/windows.
func (s *Server) IngestWindow(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "text is required")
		return
	}

	res, err := t.IngestWindow(r.Context(), req.Text, req.Timestamp)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entryToResponse(res.Index, res.Timestamp, res.Entry))
}

// TopFrequent handles GET /sessions/{session}/frequent?start&end&n.
// end defaults to the history length.
func (s *Server) TopFrequent(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	start, err := intParam(q.Get("start"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "start: "+err.Error())
		return
	}
	end, err := intParam(q.Get("end"), t.Len())
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "end: "+err.Error())
		return
	}
	n, err := intParam(q.Get("n"), defaultTopN)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "n: "+err.Error())
		return
	}

	docs, err := t.TopFrequent(start, end, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocsResponse{Docs: nonNil(docs)})
}

// GetEntry handles GET /sessions/{session}/entries/{idx}.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, ok := entryIndex(w, r)
	if !ok {
		return
	}

	e, err := t.Entry(idx)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entryToResponse(idx, t.Labels()[idx], e))
}

// TopDocs handles GET /sessions/{session}/entries/{idx}/top?n.
func (s *Server) TopDocs(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}
	idx, ok := entryIndex(w, r)
	if !ok {
		return
	}
	n, err := intParam(r.URL.Query().Get("n"), defaultTopN)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "n: "+err.Error())
		return
	}

	docs, err := t.TopDocs(idx, n)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocsResponse{Docs: nonNil(docs)})
}

// Positions handles POST /sessions/{session}/positions.
func (s *Server) Positions(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}

	var req PositionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	series, err := t.Positions(req.Start, req.End, req.Docs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// FindByKeyword handles POST /sessions/{session}/keywords.
func (s *Server) FindByKeyword(w http.ResponseWriter, r *http.Request) {
	_, t, ok := s.session(w, r)
	if !ok {
		return
	}

	var req KeywordsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Keywords) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "keywords are required")
		return
	}

	results, err := t.FindByKeyword(r.Context(), req.Keywords, req.N)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, KeywordsResponse{Results: results})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// --- Helpers ---

func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *tracker.Tracker, bool) {
	id := chi.URLParam(r, "session")
	t, err := s.sessions.Get(id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return "", nil, false
	}
	return id, t, true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	for _, h := range errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func entryIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "entry index must be an integer")
		return 0, false
	}
	return idx, true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", raw)
	}
	return v, nil
}

func nonNil(docs []string) []string {
	if docs == nil {
		return []string{}
	}
	return docs
}

func sessionToResponse(id string, t *tracker.Tracker) SessionResponse {
	opts := t.Options()
	return SessionResponse{
		ID:        id,
		State:     t.State(),
		Windows:   t.Len(),
		Lookback:  opts.Lookback,
		KNN:       opts.KNN,
		SearchK:   opts.SearchK,
		Weighting: string(opts.Weighting),
	}
}

func entryToResponse(idx int, label string, e history.Entry) EntryResponse {
	return EntryResponse{
		Index:     idx,
		Timestamp: label,
		DCG:       e.DCG(),
		Docs:      e.Docs(),
	}
}
