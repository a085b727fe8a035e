package localDB

import (
	"fmt"
	"sort"
	"sync"

	"github.com/akolanti/GroundedRAG/internal/rag/vectorDB"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type record struct {
	chunkID string
	source  string
	vector  []float32
	seq     uint64
}

// Index is a brute-force cosine index held in memory. Reads share the lock, writes are exclusive.
type Index struct {
	mu        sync.RWMutex
	dimension int
	records   []record
	byID      map[string]int
	nextSeq   uint64
	logger    *logger_i.Logger
}

var _ vectorDB.Index = (*Index)(nil)

// NewIndex creates an index with a fixed dimension. A dimension of 0 is fixed by the first vector added.
func NewIndex(dimension int) *Index {
	return &Index{
		dimension: dimension,
		byID:      make(map[string]int),
		logger:    logger_i.NewLogger("LocalVectorIndex"),
	}
}

func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dimension
}

func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

func (ix *Index) Add(chunkID string, source string, vector []float32) error {
	normalized, _ := vectorDB.Normalize(vector)

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.checkDimension(len(vector)); err != nil {
		return err
	}
	if _, exists := ix.byID[chunkID]; exists {
		return fmt.Errorf("chunk %s already has an embedding", chunkID)
	}
	ix.appendRecord(chunkID, source, normalized)
	return nil
}

// ReplaceSource removes every vector of source and inserts entries in one write section.
func (ix *Index) ReplaceSource(source string, entries []vectorDB.Entry) error {
	staged := make([]record, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.SourcePath != source {
			return fmt.Errorf("entry %s belongs to %s, not %s", e.ChunkID, e.SourcePath, source)
		}
		if _, dup := seen[e.ChunkID]; dup {
			return fmt.Errorf("duplicate chunk %s", e.ChunkID)
		}
		seen[e.ChunkID] = struct{}{}
		normalized, _ := vectorDB.Normalize(e.Vector)
		staged = append(staged, record{chunkID: e.ChunkID, source: source, vector: normalized})
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for _, r := range staged {
		if err := ix.checkDimension(len(r.vector)); err != nil {
			return err
		}
		if pos, exists := ix.byID[r.chunkID]; exists && ix.records[pos].source != source {
			return fmt.Errorf("chunk %s is owned by %s", r.chunkID, ix.records[pos].source)
		}
	}

	removed := ix.removeLocked(source)
	for _, r := range staged {
		ix.appendRecord(r.chunkID, r.source, r.vector)
	}
	ix.logger.Debug("Replaced source", "source", source, "removed", removed, "added", len(staged))
	return nil
}

func (ix *Index) RemoveBySource(source string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.removeLocked(source)
}

func (ix *Index) IDsForSource(source string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	ids := make([]string, 0)
	for _, r := range ix.records {
		if r.source == source {
			ids = append(ids, r.chunkID)
		}
	}
	return ids
}

// Search scores every vector against the normalized query. Ties keep insertion order.
func (ix *Index) Search(query []float32, k int) ([]vectorDB.Match, error) {
	if k <= 0 {
		return []vectorDB.Match{}, nil
	}
	q, ok := vectorDB.Normalize(query)
	if !ok {
		return []vectorDB.Match{}, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if ix.dimension != 0 && len(q) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d != index dimension %d", len(q), ix.dimension)
	}

	matches := make([]vectorDB.Match, len(ix.records))
	for i, r := range ix.records {
		matches[i] = vectorDB.Match{
			ChunkID:    r.chunkID,
			SourcePath: r.source,
			Score:      vectorDB.Dot(q, r.vector),
			Seq:        r.seq,
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Seq < matches[j].Seq
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (ix *Index) checkDimension(n int) error {
	if ix.dimension == 0 {
		ix.dimension = n
		return nil
	}
	if n != ix.dimension {
		return fmt.Errorf("vector dimension %d != index dimension %d", n, ix.dimension)
	}
	return nil
}

func (ix *Index) appendRecord(chunkID, source string, vector []float32) {
	ix.byID[chunkID] = len(ix.records)
	ix.records = append(ix.records, record{chunkID: chunkID, source: source, vector: vector, seq: ix.nextSeq})
	ix.nextSeq++
}

func (ix *Index) removeLocked(source string) int {
	kept := ix.records[:0]
	removed := 0
	for _, r := range ix.records {
		if r.source == source {
			delete(ix.byID, r.chunkID)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	for i := len(kept); i < len(ix.records); i++ {
		ix.records[i] = record{}
	}
	ix.records = kept
	if removed > 0 {
		for i, r := range ix.records {
			ix.byID[r.chunkID] = i
		}
	}
	return removed
}
