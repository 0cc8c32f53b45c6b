package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/usecase/answer"
	"github.com/kailas-cloud/manualrag/internal/usecase/health"
	"github.com/kailas-cloud/manualrag/internal/usecase/ingest"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return v
}

func TestRoot(t *testing.T) {
	h := newTestDeps().router(RouterOptions{})
	rr := do(t, h, http.MethodGet, "/", "")

	if rr.Code != http.StatusOK || rr.Body.String() != "OK" {
		t.Errorf("got %d %q", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestChat_Success(t *testing.T) {
	d := newTestDeps()
	d.answers.tokens = 12
	d.answers.result = answer.Result{
		Answer: "Bleed the valve (Pump X — page 4)",
		Sources: []domain.Candidate{
			{Score: f(0.91), Title: "Pump X", Page: domain.KnownPage(4), Text: "t", DocumentID: strPtr("m-1")},
			{Title: "Pump X", Page: domain.UnknownPage(), Text: "u"},
		},
	}
	h := d.router(RouterOptions{})

	rr := do(t, h, http.MethodPost, "/api/chat", `{"question":"How?","manualId":"m-1"}`, TenantHeader, "acme")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if d.answers.last.Tenant != "acme" || d.answers.last.ManualID != "m-1" || d.answers.last.Text != "How?" {
		t.Errorf("question not forwarded: %+v", d.answers.last)
	}
	if got := rr.Header().Get("X-Embedding-Tokens"); got != "12" {
		t.Errorf("expected X-Embedding-Tokens 12, got %q", got)
	}

	var raw map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["answer"] != "Bleed the valve (Pump X — page 4)" {
		t.Errorf("unexpected answer %v", raw["answer"])
	}
	sources := raw["sources"].([]any)
	first := sources[0].(map[string]any)
	if first["manual_id"] != "m-1" || first["title"] != "Pump X" || first["page"] != float64(4) || first["score"] != 0.91 {
		t.Errorf("unexpected first source %v", first)
	}
	second := sources[1].(map[string]any)
	if second["manual_id"] != nil || second["page"] != "unknown" || second["score"] != nil {
		t.Errorf("unexpected second source %v", second)
	}
	if _, ok := first["text"]; ok {
		t.Error("sources must not carry chunk text")
	}
}

func TestChat_DefaultTenantAndManualID(t *testing.T) {
	d := newTestDeps()
	h := d.router(RouterOptions{DefaultTenant: "dev-tenant"})

	rr := do(t, h, http.MethodPost, "/api/chat", `{"question":"q","manual_id":"new","manualId":"old"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if d.answers.last.Tenant != "dev-tenant" {
		t.Errorf("expected default tenant, got %q", d.answers.last.Tenant)
	}
	if d.answers.last.ManualID != "new" {
		t.Errorf("manual_id must win over manualId, got %q", d.answers.last.ManualID)
	}
}

func TestChat_MissingQuestion(t *testing.T) {
	h := newTestDeps().router(RouterOptions{})

	for _, body := range []string{`{}`, `{"question":"   "}`} {
		rr := do(t, h, http.MethodPost, "/api/chat", body)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d", body, rr.Code)
		}
		resp := decode[ErrorResponse](t, rr.Body.Bytes())
		if resp.Error != "question is required" {
			t.Errorf("%s: got %q", body, resp.Error)
		}
	}
}

func TestChat_Failure(t *testing.T) {
	d := newTestDeps()
	d.answers.err = errors.New("redis: connection refused to 10.0.0.1")
	h := d.router(RouterOptions{})

	rr := do(t, h, http.MethodPost, "/api/chat", `{"question":"q"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[ErrorResponse](t, rr.Body.Bytes())
	if resp.Error != "internal_error" {
		t.Errorf("got %q", resp.Error)
	}
	if strings.Contains(rr.Body.String(), "10.0.0.1") {
		t.Error("internal details leaked")
	}
}

func TestChat_InvalidBody(t *testing.T) {
	h := newTestDeps().router(RouterOptions{})

	rr := do(t, h, http.MethodPost, "/api/chat", `{"question":`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr.Body.Bytes()); resp.Code != CodeBadRequest {
		t.Errorf("got %q", resp.Code)
	}
}

func TestRetrieve(t *testing.T) {
	d := newTestDeps()
	d.retriever.items = []domain.Candidate{{Score: f(0.5), Title: "A", Page: domain.KnownPage(1), Text: "x"}}
	h := d.router(RouterOptions{})

	rr := do(t, h, http.MethodPost, "/api/retrieve",
		`{"question":"q","top_k":5,"min_score":0.3,"max_per_title":2,"page_from":3,"page_to":9,"manual_id":"m"}`,
		TenantHeader, "acme")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	q := d.retriever.last
	if q.Tenant != "acme" || q.TopK != 5 || q.MinScore != 0.3 || q.MaxPerTitle != 2 ||
		q.PageFrom != 3 || q.PageTo != 9 || q.ManualID != "m" {
		t.Errorf("query not forwarded: %+v", q)
	}
	resp := decode[CandidateListResponse](t, rr.Body.Bytes())
	if resp.Total != 1 || resp.Items[0].Title != "A" {
		t.Errorf("unexpected response %+v", resp)
	}
	if rr.Header().Get("X-Embedding-Tokens") != "7" {
		t.Errorf("expected embedding header, got %q", rr.Header().Get("X-Embedding-Tokens"))
	}
}

func TestRetrieve_MaxPerTitle(t *testing.T) {
	tests := []struct {
		body string
		want int
	}{
		{`{"question":"q"}`, 0},
		{`{"question":"q","max_per_title":0}`, -1},
		{`{"question":"q","max_per_title":4}`, 4},
	}
	for _, tt := range tests {
		d := newTestDeps()
		rr := do(t, d.router(RouterOptions{}), http.MethodPost, "/api/retrieve", tt.body)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: got %d", tt.body, rr.Code)
		}
		if d.retriever.last.MaxPerTitle != tt.want {
			t.Errorf("%s: got %d, want %d", tt.body, d.retriever.last.MaxPerTitle, tt.want)
		}
	}
}

func TestRetrieve_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{domain.ErrInvalidTenant, http.StatusBadRequest, CodeValidationFailed},
		{domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed},
		{domain.ErrIndexNotReady, http.StatusConflict, CodeIndexNotReady},
		{domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError},
		{errors.New("boom"), http.StatusInternalServerError, CodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			d := newTestDeps()
			d.retriever.err = tt.err
			rr := do(t, d.router(RouterOptions{}), http.MethodPost, "/api/retrieve", `{"question":"q"}`)
			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if resp := decode[ErrorResponse](t, rr.Body.Bytes()); resp.Code != tt.code {
				t.Errorf("got code %q, want %q", resp.Code, tt.code)
			}
		})
	}
}

func TestRank(t *testing.T) {
	h := newTestDeps().router(RouterOptions{})

	body := `{"matches":[
		{"score":0.2,"metadata":{"title":"A","page":1,"chunk_text":"low"}},
		{"score":0.9,"metadata":{"title":"A","page":2,"chunk_text":"high"}},
		{"score":0.8,"metadata":{"title":"A","page":2,"chunk_text":"high"}},
		{"metadata":{"title":"B","page_number":"7","text":"  spaced   out "}}
	],"max_per_title":5}`
	rr := do(t, h, http.MethodPost, "/api/rank", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decode[RankResponse](t, rr.Body.Bytes())
	if resp.Stats != (RankStats{Raw: 4, AfterScore: 4, AfterDedup: 3, AfterCap: 3}) {
		t.Errorf("unexpected stats %+v", resp.Stats)
	}
	if len(resp.Items) != 3 || resp.Items[0].Text != "high" || resp.Items[2].Text != "spaced out" {
		t.Errorf("unexpected items %+v", resp.Items)
	}
	if n, ok := resp.Items[2].Page.Number(); !ok || n != 7 {
		t.Errorf("expected page 7, got %v", resp.Items[2].Page)
	}
}

func TestIngest(t *testing.T) {
	d := newTestDeps()
	d.ingester.report = ingest.Report{ManualID: "m-1", Chunks: 3, Duration: 1500 * time.Millisecond}
	h := d.router(RouterOptions{})

	rr := do(t, h, http.MethodPost, "/api/ingest",
		`{"manual_id":"m-1","title":"Pump","pages":[{"page":1,"text":"hello"}]}`, TenantHeader, "acme")
	if rr.Code != http.StatusCreated {
		t.Fatalf("got %d: %s", rr.Code, rr.Body.String())
	}
	if d.ingester.last.Tenant != "acme" || d.ingester.last.Manual.Title != "Pump" || len(d.ingester.last.Pages) != 1 {
		t.Errorf("request not forwarded: %+v", d.ingester.last)
	}
	resp := decode[IngestResponse](t, rr.Body.Bytes())
	if resp.Chunks != 3 || resp.DurationMs != 1500 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestIngest_NoPages(t *testing.T) {
	d := newTestDeps()
	rr := do(t, d.router(RouterOptions{}), http.MethodPost, "/api/ingest", `{"title":"x"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestStats(t *testing.T) {
	d := newTestDeps()
	d.counter.n = 42
	h := d.router(RouterOptions{})

	rr := do(t, h, http.MethodGet, "/api/stats", "", TenantHeader, "acme")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	resp := decode[StatsResponse](t, rr.Body.Bytes())
	if resp.Tenant != "acme" || resp.Chunks != 42 {
		t.Errorf("unexpected %+v", resp)
	}

	rr = do(t, h, http.MethodGet, "/api/stats", "", TenantHeader, "bad tenant!")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("invalid tenant: got %d", rr.Code)
	}

	d.counter.err = domain.ErrIndexNotReady
	rr = do(t, h, http.MethodGet, "/api/stats", "", TenantHeader, "acme")
	if rr.Code != http.StatusConflict {
		t.Errorf("missing index: got %d", rr.Code)
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status health.Status
		want   int
		ok     bool
	}{
		{health.Healthy, http.StatusOK, true},
		{health.Degraded, http.StatusOK, true},
		{health.Unhealthy, http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			d := newTestDeps()
			d.health.report = health.Report{Status: tt.status, Checks: map[string]health.CheckResult{}}
			rr := do(t, d.router(RouterOptions{APIKeys: []string{"k"}}), http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("got %d, want %d", rr.Code, tt.want)
			}
			if resp := decode[HealthResponse](t, rr.Body.Bytes()); resp.OK != tt.ok {
				t.Errorf("ok: got %v, want %v", resp.OK, tt.ok)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestDeps().router(RouterOptions{APIKeys: []string{"k"}})

	do(t, h, http.MethodGet, "/", "")
	rr := do(t, h, http.MethodGet, "/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "manualrag_http_requests_total") {
		t.Error("expected http metrics in exposition")
	}
}

func TestRouter_AuthRequiredForAPI(t *testing.T) {
	h := newTestDeps().router(RouterOptions{APIKeys: []string{"k"}})

	rr := do(t, h, http.MethodPost, "/api/chat", `{"question":"q"}`)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("got %d", rr.Code)
	}
	rr = do(t, h, http.MethodPost, "/api/chat", `{"question":"q"}`, "Authorization", "Bearer k")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d", rr.Code)
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newTestDeps().router(RouterOptions{
		APIKeys:        []string{"k"},
		AllowedOrigins: []string{"https://manuals.example.com"},
	})

	rr := do(t, h, http.MethodOptions, "/api/chat", "",
		"Origin", "https://manuals.example.com",
		"Access-Control-Request-Method", http.MethodPost,
	)
	if rr.Code >= 300 {
		t.Fatalf("preflight got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://manuals.example.com" {
		t.Errorf("allow origin: got %q", got)
	}
}

func TestRouter_NotFound(t *testing.T) {
	h := newTestDeps().router(RouterOptions{})

	rr := do(t, h, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr.Body.Bytes()); resp.Code != CodeNotFound {
		t.Errorf("got %q", resp.Code)
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rr := do(t, h, http.MethodGet, "/", "")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("got %d", rr.Code)
	}
	if resp := decode[ErrorResponse](t, rr.Body.Bytes()); resp.Error != "internal_error" {
		t.Errorf("got %q", resp.Error)
	}
}
