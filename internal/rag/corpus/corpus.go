// Package corpus keeps the chunk store and the vector index in step.
//
// Writers take the exclusive section for a whole source replacement, so a
// search either sees every chunk of a source or none of the new ones.
package corpus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/vectorDB"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// Reader is the read-only view handed to the retrievers.
type Reader interface {
	Search(ctx context.Context, vector []float32, k int) ([]commonModels.Hit, error)
	Page(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error)
}

type Corpus struct {
	mu     sync.RWMutex
	store  chunkStore.Store
	index  vectorDB.Index
	logger *logger_i.Logger
}

var _ Reader = (*Corpus)(nil)

func New(store chunkStore.Store, index vectorDB.Index) *Corpus {
	return &Corpus{
		store:  store,
		index:  index,
		logger: logger_i.NewLogger("Corpus"),
	}
}

// Load rebuilds the in-memory index from the chunk store.
func (c *Corpus) Load(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_load", time.Since(start)) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	dim, model, err := c.store.Dimension(ctx)
	if err != nil {
		return err
	}
	if dim != 0 && c.index.Dimension() != 0 && dim != c.index.Dimension() {
		return fmt.Errorf("%w: stored vectors have dimension %d (%s), index expects %d; re-index required",
			commonModels.ErrIndexCorruption, dim, model, c.index.Dimension())
	}

	loaded := 0
	err = c.store.LoadAll(ctx, func(sc chunkStore.StoredChunk) error {
		if dim != 0 && len(sc.Vector) != dim {
			return commonModels.NewCorruptionError(sc.Chunk.SourcePath, "chunk %s has %d dimensions, want %d",
				sc.Chunk.ChunkID, len(sc.Vector), dim)
		}
		loaded++
		return c.index.Add(sc.Chunk.ChunkID, sc.Chunk.SourcePath, sc.Vector)
	})
	if err != nil {
		return err
	}
	metrics.SetIndexSize(c.index.Len())
	c.logger.Info("Index loaded from chunk store", "chunks", loaded, "dimension", dim, "model", model)
	return nil
}

// ReplaceSource commits a fully built chunk and vector set for one source. On error nothing changes.
func (c *Corpus) ReplaceSource(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	entries := make([]vectorDB.Entry, len(chunks))
	for i, ch := range chunks {
		if dim := c.index.Dimension(); dim != 0 && len(vectors[i]) != dim {
			return fmt.Errorf("chunk %s: vector dimension %d != index dimension %d", ch.ChunkID, len(vectors[i]), dim)
		}
		entries[i] = vectorDB.Entry{ChunkID: ch.ChunkID, SourcePath: source, Vector: vectors[i]}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.store.ReplaceSource(ctx, source, chunks, vectors, model); err != nil {
		return fmt.Errorf("committing %s to chunk store: %w", source, err)
	}
	if err := c.index.ReplaceSource(source, entries); err != nil {
		// the store already holds the new set, so the old vectors no longer match it
		c.index.RemoveBySource(source)
		return commonModels.NewCorruptionError(source, "index swap failed after store commit: %v", err)
	}
	metrics.AddIndexedChunks(len(chunks))
	metrics.SetIndexSize(c.index.Len())
	c.logger.Debug("Source replaced", "source", source, "chunks", len(chunks))
	return nil
}

func (c *Corpus) RemoveSource(ctx context.Context, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.DeleteSource(ctx, source); err != nil {
		return err
	}
	removed := c.index.RemoveBySource(source)
	metrics.SetIndexSize(c.index.Len())
	c.logger.Info("Source removed", "source", source, "vectors", removed)
	return nil
}

// Verify checks that the index and the store agree on the chunk membership of source.
// On disagreement the source is dropped from the index and must be re-indexed.
func (c *Corpus) Verify(ctx context.Context, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	storeIDs, err := c.store.ChunkIDsForSource(ctx, source)
	if err != nil {
		return err
	}
	indexIDs := c.index.IDsForSource(source)
	if len(storeIDs) == 0 && len(indexIDs) == 0 {
		return fmt.Errorf("source %s: %w", source, commonModels.ErrNotFound)
	}

	inStore := make(map[string]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		inStore[id] = struct{}{}
	}
	missing := 0
	for _, id := range indexIDs {
		if _, ok := inStore[id]; !ok {
			missing++
		}
	}
	if missing > 0 || len(indexIDs) != len(storeIDs) {
		c.index.RemoveBySource(source)
		metrics.SetIndexSize(c.index.Len())
		return commonModels.NewCorruptionError(source, "store has %d chunks, index has %d (%d unknown to the store)",
			len(storeIDs), len(indexIDs), missing)
	}
	return nil
}

// Search runs a similarity search and joins each match with its chunk metadata.
// A match whose chunk is missing from the store drops that source from the index.
func (c *Corpus) Search(ctx context.Context, vector []float32, k int) ([]commonModels.Hit, error) {
	hits, corrupt, err := c.search(ctx, vector, k)
	if corrupt != "" {
		c.mu.Lock()
		c.index.RemoveBySource(corrupt)
		metrics.SetIndexSize(c.index.Len())
		c.mu.Unlock()
	}
	return hits, err
}

func (c *Corpus) search(ctx context.Context, vector []float32, k int) ([]commonModels.Hit, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := time.Now()
	matches, err := c.index.Search(vector, k)
	metrics.CaptureExecutionMetrics("vector_search", time.Since(start))
	if err != nil {
		return nil, "", err
	}
	if len(matches) == 0 {
		return []commonModels.Hit{}, "", nil
	}

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ChunkID
	}
	chunks, err := c.store.GetMany(ctx, ids)
	if err != nil {
		return nil, "", err
	}

	hits := make([]commonModels.Hit, 0, len(matches))
	for _, m := range matches {
		ch, ok := chunks[m.ChunkID]
		if !ok {
			c.logger.FromContext(ctx).Error("Index hit without a stored chunk", "chunkId", m.ChunkID, "source", m.SourcePath)
			return nil, m.SourcePath, commonModels.NewCorruptionError(m.SourcePath, "chunk %s is indexed but not stored", m.ChunkID)
		}
		hits = append(hits, commonModels.Hit{Chunk: ch, Score: m.Score, Seq: m.Seq})
	}
	return hits, "", nil
}

func (c *Corpus) Page(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("page_lookup", time.Since(start)) }()
	return c.store.GetBySourcePage(ctx, source, page)
}

func (c *Corpus) Sources(ctx context.Context) ([]chunkStore.SourceInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.ListSources(ctx)
}

func (c *Corpus) Record(ctx context.Context, source string) (commonModels.SourceRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store.SourceRecord(ctx, source)
}

func (c *Corpus) Dimension() int {
	return c.index.Dimension()
}

func (c *Corpus) Size() int {
	return c.index.Len()
}
