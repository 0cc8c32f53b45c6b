package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	"github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	"github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

// --- Mocks ---

type mockAnswerer struct {
	result answer.Result
	err    error
	tokens int
	last   answer.Question
}

func (m *mockAnswerer) Answer(ctx context.Context, q answer.Question) (answer.Result, error) {
	m.last = q
	if m.tokens > 0 {
		domain.UsageFromContext(ctx).AddTokens(m.tokens)
	}
	return m.result, m.err
}

type mockRetriever struct {
	items []domain.Candidate
	err   error
	last  retrieve.Query
}

func (m *mockRetriever) Retrieve(ctx context.Context, q retrieve.Query) ([]domain.Candidate, error) {
	m.last = q
	domain.UsageFromContext(ctx).AddTokens(7)
	return m.items, m.err
}

type mockIngester struct {
	report ingest.Report
	err    error
	last   ingest.Request
}

func (m *mockIngester) Ingest(_ context.Context, req ingest.Request) (ingest.Report, error) {
	m.last = req
	return m.report, m.err
}

type mockCounter struct {
	n   int
	err error
}

func (m *mockCounter) Count(_ context.Context, _ string) (int, error) { return m.n, m.err }

type mockHealth struct {
	report health.Report
}

func (m *mockHealth) Check(_ context.Context) health.Report { return m.report }

// --- Helpers ---

type testDeps struct {
	answers   *mockAnswerer
	retriever *mockRetriever
	ingester  *mockIngester
	counter   *mockCounter
	health    *mockHealth
}

func newTestDeps() *testDeps {
	return &testDeps{
		answers:   &mockAnswerer{},
		retriever: &mockRetriever{},
		ingester:  &mockIngester{},
		counter:   &mockCounter{},
		health: &mockHealth{report: health.Report{
			Status: health.Healthy,
			Checks: map[string]health.CheckResult{"database": health.CheckOK},
		}},
	}
}

func (d *testDeps) router(opts RouterOptions) http.Handler {
	s := NewServer(d.answers, d.retriever, d.ingester, d.counter, d.health, zap.NewNop())
	if opts.DefaultTenant == "" {
		opts.DefaultTenant = "default"
	}
	return NewRouter(s, opts)
}

func do(t *testing.T, h http.Handler, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func f(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
