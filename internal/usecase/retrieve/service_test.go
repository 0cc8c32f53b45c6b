package retrieve

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/metrics"
	"github.com/kailas-cloud/manualrag/internal/repository/search"
)

// --- Mocks ---

type mockSearcher struct {
	matches []domain.RawMatch
	err     error
	calls   int
	last    search.Query
}

func (m *mockSearcher) SearchKNN(_ context.Context, q search.Query) ([]domain.RawMatch, error) {
	m.calls++
	m.last = q
	return m.matches, m.err
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 4}, nil
}

// --- Helpers ---

func f(v float64) *float64 { return &v }

func match(score float64, title string, page int, text string) domain.RawMatch {
	return domain.RawMatch{
		Score: f(score),
		Metadata: map[string]any{
			domain.MetaTitle:     title,
			domain.MetaPage:      page,
			domain.MetaChunkText: text,
			domain.MetaManualID:  "m-1",
		},
	}
}

// --- Tests ---

func TestRetrieve_Success(t *testing.T) {
	s := &mockSearcher{matches: []domain.RawMatch{
		match(0.5, "Pump", 2, "second"),
		match(0.9, "Pump", 1, "first"),
	}}
	emb := &mockEmbedder{}
	svc := New(s, emb, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "how?", ManualID: "m-1", PageFrom: 1, PageTo: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Text != "first" || got[1].Text != "second" {
		t.Errorf("expected score order, got %q, %q", got[0].Text, got[1].Text)
	}
	if s.last.TopK != DefaultTopK {
		t.Errorf("expected default top_k %d, got %d", DefaultTopK, s.last.TopK)
	}
	if s.last.ManualID != "m-1" || s.last.PageFrom != 1 || s.last.PageTo != 4 || s.last.Tenant != "acme" {
		t.Errorf("filters not forwarded: %+v", s.last)
	}
	if len(s.last.Vector) != 2 {
		t.Errorf("expected question vector forwarded, got %v", s.last.Vector)
	}
}

func TestRetrieve_BlankQuestion(t *testing.T) {
	s := &mockSearcher{}
	emb := &mockEmbedder{}
	svc := New(s, emb, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "  \n "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil result, got %v", got)
	}
	if emb.calls != 0 || s.calls != 0 {
		t.Error("blank question must not embed or search")
	}
}

func TestRetrieve_MinScoreAndCap(t *testing.T) {
	s := &mockSearcher{matches: []domain.RawMatch{
		match(0.9, "A", 1, "a1"),
		match(0.8, "A", 2, "a2"),
		match(0.7, "A", 3, "a3"),
		match(0.2, "B", 1, "b1"),
	}}
	svc := New(s, &mockEmbedder{}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), Query{
		Tenant: "acme", Question: "q", MinScore: 0.5, MaxPerTitle: 2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].Text != "a1" || got[1].Text != "a2" {
		t.Errorf("unexpected candidates: %+v", got)
	}
}

func TestRetrieve_DefaultCapAndDisabledCap(t *testing.T) {
	matches := []domain.RawMatch{
		match(0.9, "A", 1, "a1"),
		match(0.8, "A", 2, "a2"),
		match(0.7, "A", 3, "a3"),
		match(0.6, "A", 4, "a4"),
	}
	svc := New(&mockSearcher{matches: matches}, &mockEmbedder{}, zap.NewNop())

	got, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected default cap of 3, got %d", len(got))
	}

	got, err = svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q", MaxPerTitle: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("expected cap disabled, got %d", len(got))
	}
}

func TestRetrieve_TopK(t *testing.T) {
	s := &mockSearcher{}
	svc := New(s, &mockEmbedder{}, zap.NewNop()).WithTopK(5, 20)

	if _, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.last.TopK != 5 {
		t.Errorf("expected configured default 5, got %d", s.last.TopK)
	}

	_, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q", TopK: 21})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRetrieve_InvalidTenant(t *testing.T) {
	emb := &mockEmbedder{}
	svc := New(&mockSearcher{}, emb, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), Query{Tenant: "", Question: "q"})
	if !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("invalid tenant must not embed")
	}
}

func TestRetrieve_EmbedError(t *testing.T) {
	s := &mockSearcher{}
	svc := New(s, &mockEmbedder{err: domain.ErrEmbeddingProviderError}, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q"})
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if s.calls != 0 {
		t.Error("search must not run without a vector")
	}
}

func TestRetrieve_SearchError(t *testing.T) {
	svc := New(&mockSearcher{err: domain.ErrIndexNotReady}, &mockEmbedder{}, zap.NewNop())

	_, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q"})
	if !errors.Is(err, domain.ErrIndexNotReady) {
		t.Fatalf("expected ErrIndexNotReady, got %v", err)
	}
}

func TestRetrieve_RecordsStageMetrics(t *testing.T) {
	raw := metrics.RankCandidatesTotal.WithLabelValues("raw")
	dedup := metrics.RankCandidatesTotal.WithLabelValues("dedup")
	beforeRaw := testutil.ToFloat64(raw)
	beforeDedup := testutil.ToFloat64(dedup)

	s := &mockSearcher{matches: []domain.RawMatch{
		match(0.9, "A", 1, "same"),
		match(0.8, "A", 1, "same"),
	}}
	svc := New(s, &mockEmbedder{}, zap.NewNop())

	if _, err := svc.Retrieve(context.Background(), Query{Tenant: "acme", Question: "q"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(raw) - beforeRaw; got != 2 {
		t.Errorf("expected 2 raw candidates recorded, got %v", got)
	}
	if got := testutil.ToFloat64(dedup) - beforeDedup; got != 1 {
		t.Errorf("expected 1 candidate after dedup, got %v", got)
	}
}
