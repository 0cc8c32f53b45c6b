// Package chunk stores embedded manual chunks as HASH documents under a per-tenant index.
package chunk

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/manualrag/internal/db"
	"github.com/kailas-cloud/manualrag/internal/domain"
)

// VectorField is the hash field holding the packed embedding.
const VectorField = "vector"

const purgeBatchSize = 256

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string, fields ...string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchCount(ctx context.Context, index, keyPrefix string) (int, error)
}

// HNSWConfig tunes the vector index graph.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Config configures the chunk index schema. An empty Algorithm means HNSW.
type Config struct {
	Dimensions int
	Algorithm  db.VectorAlgorithm
	HNSW       HNSWConfig
}

// Record is one embedded chunk ready for storage.
type Record struct {
	Manual domain.Manual
	Page   int
	Text   string
	Vector []float32
}

// Selector picks chunks to purge. Set fields must all match.
type Selector struct {
	ManualID string
	Title    string
}

// IsEmpty reports whether the selector matches nothing specific.
func (s Selector) IsEmpty() bool { return s.ManualID == "" && s.Title == "" }

// Repo manages chunk hashes and the tenant index.
type Repo struct {
	store store
	cfg   Config
	newID func() string
}

// New creates a chunk repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg, newID: uuid.NewString}
}

// EnsureIndex creates the tenant index unless it already exists. Returns true if created.
func (r *Repo) EnsureIndex(ctx context.Context, tenant string) (bool, error) {
	if err := domain.ValidateTenant(tenant); err != nil {
		return false, err
	}

	exists, err := r.store.IndexExists(ctx, domain.IndexName(tenant))
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", tenant, err)
	}
	if exists {
		return false, nil
	}

	def, err := r.indexDefinition(tenant)
	if err != nil {
		return false, err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return false, nil
		}
		return false, fmt.Errorf("create index %s: %w", tenant, err)
	}
	return true, nil
}

// DropIndex removes the tenant index. With purge every chunk hash goes too.
func (r *Repo) DropIndex(ctx context.Context, tenant string, purge bool) error {
	if err := domain.ValidateTenant(tenant); err != nil {
		return err
	}

	if err := r.store.DropIndex(ctx, domain.IndexName(tenant), purge); err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return fmt.Errorf("drop index %s: %w", tenant, domain.ErrNotFound)
		}
		return fmt.Errorf("drop index %s: %w", tenant, err)
	}
	if !purge {
		return nil
	}

	// Stores without FT.DROPINDEX DD leave the hashes behind.
	keys, err := r.store.Scan(ctx, domain.ChunkPrefix(tenant)+"*")
	if err != nil {
		return fmt.Errorf("scan chunks %s: %w", tenant, err)
	}
	if _, err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks %s: %w", tenant, err)
	}
	return nil
}

// Upsert stores records in one pipelined round-trip and returns their keys.
func (r *Repo) Upsert(ctx context.Context, tenant string, records []Record) ([]string, error) {
	if err := domain.ValidateTenant(tenant); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	items := make([]db.HashSetItem, len(records))
	keys := make([]string, len(records))
	for i, rec := range records {
		if r.cfg.Dimensions > 0 && len(rec.Vector) != r.cfg.Dimensions {
			return nil, fmt.Errorf("%w: record %d has %d dimensions, index expects %d",
				domain.ErrInvalidRequest, i, len(rec.Vector), r.cfg.Dimensions)
		}
		keys[i] = r.chunkKey(tenant, rec)
		items[i] = db.HashSetItem{Key: keys[i], Fields: recordFields(tenant, rec)}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, fmt.Errorf("store %d chunks: %w", len(items), err)
	}
	return keys, nil
}

// Count returns the number of chunks indexed for the tenant.
func (r *Repo) Count(ctx context.Context, tenant string) (int, error) {
	if err := domain.ValidateTenant(tenant); err != nil {
		return 0, err
	}

	n, err := r.store.SearchCount(ctx, domain.IndexName(tenant), domain.ChunkPrefix(tenant))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, domain.ErrIndexNotReady
		}
		return 0, fmt.Errorf("count chunks %s: %w", tenant, err)
	}
	return n, nil
}

// Purge deletes every chunk of the tenant matching sel and returns how many went.
func (r *Repo) Purge(ctx context.Context, tenant string, sel Selector) (int, error) {
	if err := domain.ValidateTenant(tenant); err != nil {
		return 0, err
	}
	if sel.IsEmpty() {
		return 0, fmt.Errorf("%w: purge needs a manual id or a title", domain.ErrInvalidRequest)
	}

	pattern := domain.ChunkPrefix(tenant) + "*"
	if sel.ManualID != "" {
		pattern = domain.ChunkPrefix(tenant) + globEscaper.Replace(sel.ManualID) + ":*"
	}

	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return 0, fmt.Errorf("scan chunks %s: %w", tenant, err)
	}

	deleted := 0
	for start := 0; start < len(keys); start += purgeBatchSize {
		batch := keys[start:min(start+purgeBatchSize, len(keys))]

		metas, err := r.store.HGetAllMulti(ctx, batch, domain.MetaManualID, domain.MetaTitle)
		if err != nil {
			return deleted, fmt.Errorf("read chunk metadata: %w", err)
		}

		matched := make([]string, 0, len(batch))
		for i, meta := range metas {
			if sel.matches(meta) {
				matched = append(matched, batch[i])
			}
		}
		if len(matched) == 0 {
			continue
		}

		n, err := r.store.DelMulti(ctx, matched)
		deleted += n
		if err != nil {
			return deleted, fmt.Errorf("delete chunks: %w", err)
		}
	}
	return deleted, nil
}

func (s Selector) matches(meta map[string]string) bool {
	if s.ManualID != "" && meta[domain.MetaManualID] != s.ManualID {
		return false
	}
	if s.Title != "" && meta[domain.MetaTitle] != s.Title {
		return false
	}
	return true
}

func (r *Repo) indexDefinition(tenant string) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(domain.IndexName(tenant)).
		Prefix(domain.ChunkPrefix(tenant)).
		CaseSensitiveTag(domain.MetaTenantID).
		CaseSensitiveTag(domain.MetaManualID).
		CaseSensitiveTag(domain.MetaTitle).
		Numeric(domain.MetaPage).
		Vector(VectorField, r.algorithm(), r.cfg.Dimensions, db.DistanceCosine, r.cfg.HNSW.M, r.cfg.HNSW.EFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", tenant, err)
	}
	return def, nil
}

func (r *Repo) algorithm() db.VectorAlgorithm {
	if r.cfg.Algorithm == "" {
		return db.VectorHNSW
	}
	return r.cfg.Algorithm
}

func (r *Repo) chunkKey(tenant string, rec Record) string {
	return domain.ChunkPrefix(tenant) + rec.Manual.ID + ":" + strconv.Itoa(rec.Page) + ":" + r.newID()
}

func recordFields(tenant string, rec Record) map[string]string {
	return map[string]string{
		domain.MetaTenantID:  tenant,
		domain.MetaManualID:  rec.Manual.ID,
		domain.MetaTitle:     rec.Manual.Title,
		domain.MetaPage:      strconv.Itoa(rec.Page),
		domain.MetaChunkText: rec.Text,
		VectorField:          db.EncodeVector(rec.Vector),
	}
}

var globEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)
