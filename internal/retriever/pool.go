package retriever

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/fyrsmithlabs/guidectl/internal/embeddings"
	"github.com/fyrsmithlabs/guidectl/internal/model"
)

const collectionName = "guidectl_shards"

// Pool is the Retriever's shard pool: an in-memory snapshot of every
// non-constitution rule plus a chromem-go collection used for
// persistent, embedded cosine-similarity search. Readers obtain the
// snapshot via CurrentShards, which returns a stable slice for the
// duration of a single retrieval (copy-on-write: Index installs a new
// slice rather than mutating the one readers hold).
type Pool struct {
	mu         sync.RWMutex
	shards     map[string]model.RuleShard // ruleID -> shard, current snapshot
	order      []string                   // stable iteration order
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embeddings.Embedder
}

// NewPool opens (or creates) a persistent chromem-go database rooted at
// dir and wires embedder as the collection's embedding function, so
// queries embed text the same way the shard pool was indexed.
func NewPool(dir string, embedder embeddings.Embedder) (*Pool, error) {
	if embedder == nil {
		embedder = embeddings.NewHashEmbedder(embeddings.DefaultDimension)
	}
	if dir == "" {
		dir = defaultPoolDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("retriever: creating pool dir: %w", err)
	}

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("retriever: opening chromem db: %w", err)
	}

	p := &Pool{
		shards:   map[string]model.RuleShard{},
		embedder: embedder,
		db:       db,
	}

	coll, err := db.GetOrCreateCollection(collectionName, nil, p.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("retriever: creating collection: %w", err)
	}
	p.collection = coll

	return p, nil
}

func defaultPoolDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".guidectl", "shards")
	}
	return filepath.Join(home, ".config", "guidectl", "shards")
}

func (p *Pool) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return p.embedder.Embed(ctx, text)
	}
}

// Index replaces the pool's snapshot with bundle's shards, computing an
// embedding for any shard that lacks one and upserting every shard into
// the chromem collection. Index is the only mutator of the shard pool;
// concurrent readers never observe a partially-indexed bundle because
// the new snapshot is built off to the side and installed atomically.
func (p *Pool) Index(ctx context.Context, bundle model.PolicyBundle) error {
	next := make(map[string]model.RuleShard, len(bundle.Shards))
	order := make([]string, 0, len(bundle.Shards))
	docs := make([]chromem.Document, 0, len(bundle.Shards))

	for _, shard := range bundle.Shards {
		s := shard
		if len(s.Embedding) == 0 {
			vec, err := p.embedder.Embed(ctx, s.CompactText)
			if err != nil {
				return fmt.Errorf("retriever: embedding shard %s: %w", s.Rule.ID, err)
			}
			s.Embedding = vec
		}
		next[s.Rule.ID] = s
		order = append(order, s.Rule.ID)
		docs = append(docs, chromem.Document{
			ID:        s.Rule.ID,
			Content:   s.CompactText,
			Embedding: s.Embedding,
		})
	}

	if len(docs) > 0 {
		if err := p.collection.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("retriever: indexing shards: %w", err)
		}
	}

	p.mu.Lock()
	p.shards = next
	p.order = order
	p.mu.Unlock()

	return nil
}

// CurrentShards returns a stable snapshot of every shard in the pool.
func (p *Pool) CurrentShards() []model.RuleShard {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]model.RuleShard, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.shards[id])
	}
	return out
}

// Similarities returns cosine(queryEmbedding, shard.embedding) for every
// shard currently in the pool, keyed by rule id, computed via the
// chromem collection's similarity search over the full pool so that the
// real embedded-vector-database code path is exercised even though the
// Retriever's own scoring formula (spec §4.2) is applied afterward in
// pure Go.
func (p *Pool) Similarities(ctx context.Context, queryText string) (map[string]float64, error) {
	p.mu.RLock()
	count := len(p.order)
	p.mu.RUnlock()
	if count == 0 {
		return map[string]float64{}, nil
	}

	results, err := p.collection.Query(ctx, queryText, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("retriever: querying shard pool: %w", err)
	}

	out := make(map[string]float64, len(results))
	for _, r := range results {
		out[r.ID] = float64(r.Similarity)
	}
	return out, nil
}

// Promote updates a shard's rule in place (used by the Optimizer to
// promote/demote rules between the constitution and the shard pool).
// Promote mutates the pool's snapshot under the write lock so readers
// never observe a half-applied promotion.
func (p *Pool) Promote(ruleID string, mutate func(r *model.GuidanceRule)) (model.GuidanceRule, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	shard, ok := p.shards[ruleID]
	if !ok {
		return model.GuidanceRule{}, false
	}
	mutate(&shard.Rule)
	p.shards[ruleID] = shard
	return shard.Rule, true
}
