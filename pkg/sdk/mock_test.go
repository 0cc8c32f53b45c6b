package manualrag

import (
	"context"

	"github.com/kailas-cloud/manualrag/internal/domain"
	"github.com/kailas-cloud/manualrag/internal/repository/chunk"
	answeruc "github.com/kailas-cloud/manualrag/internal/usecase/answer"
	ingestuc "github.com/kailas-cloud/manualrag/internal/usecase/ingest"
	retrieveuc "github.com/kailas-cloud/manualrag/internal/usecase/retrieve"
)

type mockIngestUC struct {
	fn func(ctx context.Context, req ingestuc.Request) (ingestuc.Report, error)
}

func (m *mockIngestUC) Ingest(ctx context.Context, req ingestuc.Request) (ingestuc.Report, error) {
	return m.fn(ctx, req)
}

type mockRetrieveUC struct {
	fn func(ctx context.Context, q retrieveuc.Query) ([]domain.Candidate, error)
}

func (m *mockRetrieveUC) Retrieve(ctx context.Context, q retrieveuc.Query) ([]domain.Candidate, error) {
	return m.fn(ctx, q)
}

type mockAnswerUC struct {
	fn func(ctx context.Context, q answeruc.Question) (answeruc.Result, error)
}

func (m *mockAnswerUC) Answer(ctx context.Context, q answeruc.Question) (answeruc.Result, error) {
	return m.fn(ctx, q)
}

type mockChunks struct {
	tenant string
	purge  bool
	sel    chunk.Selector
	count  int
	err    error
}

func (m *mockChunks) EnsureIndex(_ context.Context, tenant string) (bool, error) {
	m.tenant = tenant
	return true, m.err
}

func (m *mockChunks) DropIndex(_ context.Context, tenant string, purge bool) error {
	m.tenant, m.purge = tenant, purge
	return m.err
}

func (m *mockChunks) Count(_ context.Context, tenant string) (int, error) {
	m.tenant = tenant
	return m.count, m.err
}

func (m *mockChunks) Purge(_ context.Context, tenant string, sel chunk.Selector) (int, error) {
	m.tenant, m.sel = tenant, sel
	return 2, m.err
}

type mockStore struct {
	pingErr error
	closed  bool
}

func (m *mockStore) Ping(context.Context) error { return m.pingErr }
func (m *mockStore) Close()                     { m.closed = true }
