package chunkStore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func chunk(source string, page *int, ordinal int, text string) commonModels.Chunk {
	return commonModels.Chunk{
		ChunkID:    commonModels.NewChunkID(source, page, ordinal, text),
		SourcePath: source,
		Page:       page,
		Ordinal:    ordinal,
		Text:       text,
		WindowSize: 1400,
	}
}

func vecs(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1, 0.5}
	}
	return out
}

func TestSQLiteStore_ReplaceAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	p1 := commonModels.PageOf(1)
	chunks := []commonModels.Chunk{
		chunk("a.pdf", p1, 0, "first"),
		chunk("a.pdf", p1, 1, "second"),
		chunk("a.pdf", commonModels.PageOf(2), 0, "third"),
	}
	chunks[1].IsTable = true
	chunks[1].WindowSize = 2800
	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", chunks, vecs(3), "test-model"))

	got, err := s.Get(ctx, chunks[1].ChunkID)
	require.NoError(t, err)
	assert.Equal(t, chunks[1], got)

	page, err := s.GetBySourcePage(ctx, "a.pdf", p1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "first", page[0].Text)
	assert.Equal(t, "second", page[1].Text)

	dim, model, err := s.Dimension(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	assert.Equal(t, "test-model", model)
}

func TestSQLiteStore_NotFoundAndEmptyPage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, commonModels.ErrNotFound))

	page, err := s.GetBySourcePage(ctx, "never.pdf", commonModels.PageOf(9))
	require.NoError(t, err)
	assert.NotNil(t, page)
	assert.Empty(t, page)

	_, err = s.SourceRecord(ctx, "never.pdf")
	assert.True(t, errors.Is(err, commonModels.ErrNotFound))
}

func TestSQLiteStore_NullPage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := chunk("notes.txt", nil, 0, "no pages here")
	require.NoError(t, s.ReplaceSource(ctx, "notes.txt", []commonModels.Chunk{c}, vecs(1), "m"))

	page, err := s.GetBySourcePage(ctx, "notes.txt", nil)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Nil(t, page[0].Page)

	page, err = s.GetBySourcePage(ctx, "notes.txt", commonModels.PageOf(1))
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSQLiteStore_ReplaceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chunks := []commonModels.Chunk{chunk("a.pdf", nil, 0, "x"), chunk("a.pdf", nil, 1, "y")}
	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", chunks, vecs(2), "m"))
	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", chunks, vecs(2), "m"))

	ids, err := s.ChunkIDsForSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{chunks[0].ChunkID, chunks[1].ChunkID}, ids)

	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, 2, sources[0].ChunkCount)
}

func TestSQLiteStore_PutGroupsBySource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Put(ctx, []commonModels.Chunk{chunk("a.pdf", nil, 0, "old a")}, vecs(1), "m"))
	require.NoError(t, s.Put(ctx, []commonModels.Chunk{
		chunk("a.pdf", nil, 0, "new a"),
		chunk("b.pdf", nil, 0, "b"),
	}, vecs(2), "m"))

	ids, err := s.ChunkIDsForSource(ctx, "a.pdf")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	got, err := s.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "new a", got.Text)
}

func TestSQLiteStore_FailedReplaceKeepsOldSet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	old := []commonModels.Chunk{chunk("a.pdf", nil, 0, "keep me")}
	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", old, vecs(1), "m"))

	bad := []commonModels.Chunk{chunk("a.pdf", nil, 0, "one"), chunk("a.pdf", nil, 1, "two")}
	badVecs := [][]float32{{1, 2, 3}, {1, 2}}
	require.Error(t, s.ReplaceSource(ctx, "a.pdf", bad, badVecs, "m"))

	ids, err := s.ChunkIDsForSource(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{old[0].ChunkID}, ids)
}

func TestSQLiteStore_RejectsOtherDimension(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", []commonModels.Chunk{chunk("a.pdf", nil, 0, "a")}, vecs(1), "m"))
	err := s.ReplaceSource(ctx, "b.pdf", []commonModels.Chunk{chunk("b.pdf", nil, 0, "b")}, [][]float32{{1, 2}}, "m")
	assert.Error(t, err)
}

func TestSQLiteStore_SourceRecordAndLoadAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chunks := []commonModels.Chunk{chunk("a.pdf", commonModels.PageOf(1), 0, "alpha"), chunk("a.pdf", commonModels.PageOf(1), 1, "beta")}
	require.NoError(t, s.ReplaceSource(ctx, "a.pdf", chunks, vecs(2), "m"))

	record, err := s.SourceRecord(ctx, "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", record.SourcePath)
	assert.Equal(t, 3, record.Dimension)
	assert.Equal(t, []string{chunks[0].ChunkID, chunks[1].ChunkID}, record.ChunkIDs())

	var loaded []StoredChunk
	require.NoError(t, s.LoadAll(ctx, func(sc StoredChunk) error {
		loaded = append(loaded, sc)
		return nil
	}))
	require.Len(t, loaded, 2)
	assert.Equal(t, []float32{1, 1, 0.5}, loaded[1].Vector)

	require.NoError(t, s.DeleteSource(ctx, "a.pdf"))
	sources, err := s.ListSources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
