package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	logpkg "github.com/kailas-cloud/manualrag/internal/logger"
	"github.com/kailas-cloud/manualrag/internal/rank"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	"github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

const (
	embeddingTokensHeader = "X-Embedding-Tokens"
	maxIngestBodyBytes    = 32 << 20
	maxQueryBodyBytes     = 1 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server holds the HTTP handlers of the API.
type Server struct {
	answers       Answerer
	retriever     Retriever
	ingester      Ingester
	chunks        ChunkCounter
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	answers Answerer,
	retriever Retriever,
	ingester Ingester,
	chunks ChunkCounter,
	healthSvc HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		answers:   answers,
		retriever: retriever,
		ingester:  ingester,
		chunks:    chunks,
		health:    healthSvc,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidTenant, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusConflict, CodeIndexNotReady),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrGenerationProviderError, http.StatusBadGateway, CodeProviderError),
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeBody(w, r, maxQueryBodyBytes, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "question is required")
		return
	}
	manualID := req.ManualID
	if manualID == "" {
		manualID = req.LegacyManualID
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	res, err := s.answers.Answer(ctx, answer.Question{
		Tenant:   TenantFromContext(r.Context()),
		Text:     req.Question,
		ManualID: manualID,
		TopK:     req.TopK,
	})
	if err != nil {
		s.handleChatError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, ChatResponse{
		Answer:  res.Answer,
		Sources: sourcesFromCandidates(res.Sources),
	})
}

// Retrieve handles POST /api/retrieve.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	var req RetrieveRequest
	if !decodeBody(w, r, maxQueryBodyBytes, &req) {
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "top_k must not be negative")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	items, err := s.retriever.Retrieve(ctx, retrieve.Query{
		Tenant:      TenantFromContext(r.Context()),
		Question:    req.Question,
		TopK:        req.TopK,
		ManualID:    req.ManualID,
		MinScore:    req.MinScore,
		MaxPerTitle: maxPerTitle(req.MaxPerTitle),
		PageFrom:    req.PageFrom,
		PageTo:      req.PageTo,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, CandidateListResponse{Items: items, Total: len(items)})
}

// Rank handles POST /api/rank. It runs the ranker over caller-supplied matches.
func (s *Server) Rank(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if !decodeBody(w, r, maxIngestBodyBytes, &req) {
		return
	}

	opts := rank.Options{MinScore: req.MinScore, MaxPerTitle: rank.DefaultMaxPerTitle}
	if req.MaxPerTitle != nil {
		opts.MaxPerTitle = *req.MaxPerTitle
	}
	items, st := rank.RankWithStats(req.Matches, opts)

	writeJSON(w, http.StatusOK, RankResponse{
		Items: items,
		Stats: RankStats{
			Raw:        st.Raw,
			AfterScore: st.AfterScore,
			AfterDedup: st.AfterDedup,
			AfterCap:   st.AfterCap,
		},
	})
}

// Ingest handles POST /api/ingest.
func (s *Server) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if !decodeBody(w, r, maxIngestBodyBytes, &req) {
		return
	}
	if len(req.Pages) == 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "pages are required")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	rep, err := s.ingester.Ingest(ctx, ingest.Request{
		Tenant: TenantFromContext(r.Context()),
		Manual: domain.Manual{ID: req.ManualID, Title: req.Title},
		Pages:  req.Pages,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, IngestResponse{Report: rep, DurationMs: rep.Duration.Milliseconds()})
}

// Stats handles GET /api/stats.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	tenant := TenantFromContext(r.Context())
	if err := domain.ValidateTenant(tenant); err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	n, err := s.chunks.Count(r.Context(), tenant)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{Tenant: tenant, Chunks: n})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == health.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		OK:     report.Status != health.Unhealthy,
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func maxPerTitle(p *int) int {
	if p == nil {
		return 0
	}
	if *p <= 0 {
		return -1
	}
	return *p
}

func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body")
		return false
	}
	return true
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used {
		w.Header().Set(embeddingTokensHeader, strconv.Itoa(usage.TotalTokens))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidTenant,
		domain.ErrInvalidRequest,
		domain.ErrNotFound,
		domain.ErrIndexNotReady,
		domain.ErrEmbeddingProviderError,
		domain.ErrGenerationProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return CodeInternalError
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, CodeInternalError)
}

// handleChatError keeps the chat contract: validation problems are 400,
// everything else is reported as internal_error.
func (s *Server) handleChatError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrInvalidTenant) {
		s.handleDomainError(w, r, err)
		return
	}
	logpkg.FromContext(r.Context()).Error("chat failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, CodeInternalError)
}
