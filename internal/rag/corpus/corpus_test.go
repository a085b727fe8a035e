package corpus

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/vectorDB/localDB"
)

func newTestCorpus(t *testing.T, dir string) (*Corpus, *chunkStore.SQLiteStore, *localDB.Index) {
	t.Helper()
	store, err := chunkStore.NewSQLiteStore(filepath.Join(dir, "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	index := localDB.NewIndex(2)
	c := New(store, index)
	require.NoError(t, c.Load(context.Background()))
	return c, store, index
}

func testChunk(source string, ordinal int, text string) commonModels.Chunk {
	page := commonModels.PageOf(1)
	return commonModels.Chunk{
		ChunkID:    commonModels.NewChunkID(source, page, ordinal, text),
		SourcePath: source,
		Page:       page,
		Ordinal:    ordinal,
		Text:       text,
		WindowSize: 100,
	}
}

func TestCorpus_ReplaceSearchAndPage(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCorpus(t, t.TempDir())

	chunks := []commonModels.Chunk{testChunk("a.pdf", 0, "east"), testChunk("a.pdf", 1, "north")}
	require.NoError(t, c.ReplaceSource(ctx, "a.pdf", chunks, [][]float32{{1, 0}, {0, 1}}, "m"))

	hits, err := c.Search(ctx, []float32{0, 3}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "north", hits[0].Chunk.Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)

	page, err := c.Page(ctx, "a.pdf", commonModels.PageOf(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"east", "north"}, []string{page[0].Text, page[1].Text})
}

func TestCorpus_LoadRebuildsIndex(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, store, _ := newTestCorpus(t, dir)
	chunks := []commonModels.Chunk{testChunk("a.pdf", 0, "east")}
	require.NoError(t, c.ReplaceSource(ctx, "a.pdf", chunks, [][]float32{{1, 0}}, "m"))
	require.NoError(t, store.Close())

	reopened, _, index := newTestCorpus(t, dir)
	assert.Equal(t, 1, index.Len())
	hits, err := reopened.Search(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, chunks[0].ChunkID, hits[0].Chunk.ChunkID)
}

func TestCorpus_RejectsWrongDimensionBeforeCommit(t *testing.T) {
	ctx := context.Background()
	c, store, _ := newTestCorpus(t, t.TempDir())
	old := []commonModels.Chunk{testChunk("a.pdf", 0, "old")}
	require.NoError(t, c.ReplaceSource(ctx, "a.pdf", old, [][]float32{{1, 0}}, "m"))

	err := c.ReplaceSource(ctx, "a.pdf", []commonModels.Chunk{testChunk("a.pdf", 0, "new")}, [][]float32{{1, 0, 0}}, "m")
	require.Error(t, err)

	ids, err := store.ChunkIDsForSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{old[0].ChunkID}, ids)
}

func TestCorpus_VerifyDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	c, store, index := newTestCorpus(t, t.TempDir())
	chunks := []commonModels.Chunk{testChunk("a.pdf", 0, "east"), testChunk("a.pdf", 1, "west")}
	require.NoError(t, c.ReplaceSource(ctx, "a.pdf", chunks, [][]float32{{1, 0}, {-1, 0}}, "m"))
	require.NoError(t, c.Verify(ctx, "a.pdf"))

	// the store loses a chunk behind the corpus' back
	require.NoError(t, store.ReplaceSource(ctx, "a.pdf", chunks[:1], [][]float32{{1, 0}}, "m"))

	_, err := c.Search(ctx, []float32{-1, 0}, 2)
	assert.True(t, errors.Is(err, commonModels.ErrIndexCorruption))
	assert.Empty(t, index.IDsForSource("a.pdf"), "search drops the source it found corrupt")

	err = c.Verify(ctx, "a.pdf")
	var ce *commonModels.CorruptionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "a.pdf", ce.SourcePath)
	assert.Empty(t, index.IDsForSource("a.pdf"))

	err = c.Verify(ctx, "never.pdf")
	assert.True(t, errors.Is(err, commonModels.ErrNotFound))
}

func TestCorpus_RemoveSource(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestCorpus(t, t.TempDir())
	require.NoError(t, c.ReplaceSource(ctx, "a.pdf", []commonModels.Chunk{testChunk("a.pdf", 0, "x")}, [][]float32{{1, 0}}, "m"))
	require.NoError(t, c.RemoveSource(ctx, "a.pdf"))

	assert.Equal(t, 0, c.Size())
	_, err := c.Record(ctx, "a.pdf")
	assert.True(t, errors.Is(err, commonModels.ErrNotFound))
}
