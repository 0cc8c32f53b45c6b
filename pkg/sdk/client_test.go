package manualrag

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	answeruc "github.com/kailas-cloud/manualrag/internal/usecase/answer"
	ingestuc "github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background(), WithOpenAI("sk-test", ""))
	if err == nil {
		t.Fatal("expected error when no address provided")
	}
}

func TestNew_NoProvider(t *testing.T) {
	_, err := New(context.Background(), WithValkey("localhost:6379", ""))
	if !errors.Is(err, errNoProvider) {
		t.Fatalf("err = %v, want errNoProvider", err)
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := &clientConfig{driver: "memcached", addrs: []string{"localhost:1234"}}
	if _, err := createStore(cfg); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestClientOptions(t *testing.T) {
	cfg := &clientConfig{}
	logger := zap.NewNop()
	for _, o := range []Option{
		WithRedis("redis:6379", "secret"),
		WithOpenAI("sk-test", "http://llm.local/v1"),
		WithEmbeddingModel("nomic-embed-text", 768),
		WithChatModel("llama3"),
		WithHNSW(8, 100),
		WithTopK(5),
		WithLanguage("German", "Nicht im Handbuch."),
		WithTenant("acme"),
		WithLogger(logger),
	} {
		o.apply(cfg)
	}

	if cfg.driver != "redis" || cfg.addrs[0] != "redis:6379" || cfg.password != "secret" {
		t.Errorf("connection = %s %v %q", cfg.driver, cfg.addrs, cfg.password)
	}
	if cfg.apiKey != "sk-test" || cfg.baseURL != "http://llm.local/v1" {
		t.Errorf("openai = %q %q", cfg.apiKey, cfg.baseURL)
	}
	if cfg.embeddingModel != "nomic-embed-text" || cfg.dimensions != 768 || cfg.chatModel != "llama3" {
		t.Errorf("models = %q %d %q", cfg.embeddingModel, cfg.dimensions, cfg.chatModel)
	}
	if cfg.hnswM != 8 || cfg.hnswEFConstruct != 100 || cfg.topK != 5 {
		t.Errorf("index = %d %d %d", cfg.hnswM, cfg.hnswEFConstruct, cfg.topK)
	}
	if cfg.language != "German" || cfg.fallback != "Nicht im Handbuch." || cfg.tenant != "acme" {
		t.Errorf("answer = %q %q %q", cfg.language, cfg.fallback, cfg.tenant)
	}
	if cfg.logger != logger {
		t.Error("logger not set")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &clientConfig{}
	applyDefaults(cfg)

	if cfg.tenant != "default" {
		t.Errorf("tenant = %q", cfg.tenant)
	}
	if cfg.dimensions != 1536 {
		t.Errorf("dimensions = %d", cfg.dimensions)
	}
	if cfg.hnswM != 16 || cfg.hnswEFConstruct != 200 {
		t.Errorf("hnsw = %d/%d", cfg.hnswM, cfg.hnswEFConstruct)
	}
	if cfg.logger == nil {
		t.Error("logger is nil")
	}
}

func newTestClient() (*Client, *mockChunks) {
	chunks := &mockChunks{}
	return &Client{
		store:  &mockStore{},
		tenant: "default",
		chunks: chunks,
		newID:  func() string { return "generated-id" },
	}, chunks
}

func TestClient_Ingest(t *testing.T) {
	c, _ := newTestClient()
	var got ingestuc.Request
	c.ingestSvc = &mockIngestUC{fn: func(_ context.Context, req ingestuc.Request) (ingestuc.Report, error) {
		got = req
		return ingestuc.Report{ManualID: req.Manual.ID, Chunks: 4}, nil
	}}

	rep, err := c.Ingest(context.Background(), IngestRequest{
		Title: "Pump X200",
		Pages: []PageText{{Page: 1, Text: "prime the pump"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tenant != "default" || got.Manual.ID != "generated-id" || got.Manual.Title != "Pump X200" {
		t.Errorf("request = %+v", got)
	}
	if rep.Chunks != 4 || rep.ManualID != "generated-id" {
		t.Errorf("report = %+v", rep)
	}
}

func TestClient_Ingest_Error(t *testing.T) {
	c, _ := newTestClient()
	c.ingestSvc = &mockIngestUC{fn: func(context.Context, ingestuc.Request) (ingestuc.Report, error) {
		return ingestuc.Report{}, domain.ErrInvalidRequest
	}}

	_, err := c.Ingest(context.Background(), IngestRequest{Tenant: "acme", ManualID: "m"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("err = %v, want ErrInvalidRequest", err)
	}
}

func TestClient_Retrieve(t *testing.T) {
	c, _ := newTestClient()
	var got retrieveuc.Query
	c.retrieve = &mockRetrieveUC{fn: func(_ context.Context, q retrieveuc.Query) ([]domain.Candidate, error) {
		got = q
		return []domain.Candidate{{Title: "Pump X200", Page: domain.KnownPage(3)}}, nil
	}}

	cands, err := c.Retrieve(context.Background(), "how to prime", AskOptions{Tenant: "acme", ManualID: "m-1", TopK: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tenant != "acme" || got.Question != "how to prime" || got.ManualID != "m-1" || got.TopK != 3 {
		t.Errorf("query = %+v", got)
	}
	if len(cands) != 1 || cands[0].Page.String() != "3" {
		t.Errorf("candidates = %+v", cands)
	}
}

func TestClient_Ask(t *testing.T) {
	c, _ := newTestClient()
	var got answeruc.Question
	c.answers = &mockAnswerUC{fn: func(_ context.Context, q answeruc.Question) (answeruc.Result, error) {
		got = q
		return answeruc.Result{Answer: "Open the vent (Pump X200 — page 3)."}, nil
	}}

	res, err := c.Ask(context.Background(), "how to prime")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Tenant != "default" || got.Text != "how to prime" {
		t.Errorf("question = %+v", got)
	}
	if res.Answer == "" {
		t.Error("empty answer")
	}
}

func TestClient_Ask_ProviderError(t *testing.T) {
	c, _ := newTestClient()
	c.answers = &mockAnswerUC{fn: func(context.Context, answeruc.Question) (answeruc.Result, error) {
		return answeruc.Result{}, domain.ErrGenerationProviderError
	}}

	_, err := c.AskWith(context.Background(), "q", AskOptions{Tenant: "acme"})
	if !errors.Is(err, ErrGenerationProviderError) {
		t.Fatalf("err = %v, want ErrGenerationProviderError", err)
	}
}

func TestClient_IndexAdmin(t *testing.T) {
	c, chunks := newTestClient()
	chunks.count = 9
	ctx := context.Background()

	n, err := c.Count(ctx, "")
	if err != nil || n != 9 || chunks.tenant != "default" {
		t.Errorf("Count = %d, %v (tenant %q)", n, err, chunks.tenant)
	}

	deleted, err := c.DeleteManual(ctx, "acme", "m-1", "")
	if err != nil || deleted != 2 {
		t.Errorf("DeleteManual = %d, %v", deleted, err)
	}
	if chunks.sel != (chunk.Selector{ManualID: "m-1"}) || chunks.tenant != "acme" {
		t.Errorf("selector = %+v tenant %q", chunks.sel, chunks.tenant)
	}

	if err := c.DropIndex(ctx, "", true); err != nil || !chunks.purge {
		t.Errorf("DropIndex err = %v purge = %v", err, chunks.purge)
	}
}

func TestClient_PingAndClose(t *testing.T) {
	store := &mockStore{pingErr: errors.New("down")}
	c := &Client{store: store}

	if err := c.Ping(context.Background()); err == nil {
		t.Error("expected ping error")
	}
	c.Close()
	if !store.closed {
		t.Error("store not closed")
	}
}
