package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/corpus"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/GroundedRAG/internal/rag/ingest"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/vectorDB/localDB"
)

// --- fakes ---

type fakeEmbedder struct {
	mu        sync.Mutex
	queries   []string
	embedFunc func(text string) ([]float32, error)
}

func (f *fakeEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queries = append(f.queries, text)
	f.mu.Unlock()
	return f.embedFunc(text)
}
func (f *fakeEmbedder) BatchEmbedding(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("not used")
}
func (f *fakeEmbedder) Dimension() int    { return 2 }
func (f *fakeEmbedder) ModelName() string { return "fake" }

type fakeReader struct {
	searchFunc func(vec []float32, k int) []commonModels.Hit
	pageFunc   func(source string, page *int) []commonModels.Chunk
}

func (f *fakeReader) Search(_ context.Context, vec []float32, k int) ([]commonModels.Hit, error) {
	hits := f.searchFunc(vec, k)
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]commonModels.Hit, len(hits))
	copy(out, hits)
	return out, nil
}

func (f *fakeReader) Page(_ context.Context, source string, page *int) ([]commonModels.Chunk, error) {
	return f.pageFunc(source, page), nil
}

func hit(id string, score float64, seq uint64) commonModels.Hit {
	return commonModels.Hit{
		Chunk: commonModels.Chunk{ChunkID: id, SourcePath: "doc.pdf", Page: commonModels.PageOf(1), Text: "text " + id},
		Score: score,
		Seq:   seq,
	}
}

// questions embed to {1,0}, anything expanded to {0,1}
func splitEmbedder(question string) *fakeEmbedder {
	return &fakeEmbedder{embedFunc: func(text string) ([]float32, error) {
		if text == question {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	}}
}

func splitReader(precision, recall []commonModels.Hit) *fakeReader {
	return &fakeReader{searchFunc: func(vec []float32, k int) []commonModels.Hit {
		if vec[0] == 1 {
			return precision
		}
		return recall
	}}
}

func settings() config.RetrievalSettings {
	return config.Default().Retrieval
}

// --- tests ---

func TestMerge_DedupKeepsHigherScoreAndPrecisionOrigin(t *testing.T) {
	precision := []commonModels.Hit{hit("a", 0.9, 1), hit("b", 0.5, 2)}
	recall := []commonModels.Hit{hit("b", 0.8, 2), hit("c", 0.7, 3)}
	for i := range precision {
		precision[i].PassOrigin = commonModels.PassPrecision
	}
	for i := range recall {
		recall[i].PassOrigin = commonModels.PassRecall
	}

	merged := merge(precision, recall)
	require.Len(t, merged, 3)
	assert.Equal(t, "a", merged[0].Chunk.ChunkID)
	assert.Equal(t, "b", merged[1].Chunk.ChunkID)
	assert.Equal(t, 0.8, merged[1].Score)
	assert.Equal(t, commonModels.PassPrecision, merged[1].PassOrigin)
	assert.Equal(t, commonModels.PassRecall, merged[2].PassOrigin)
}

func TestMerge_TieBreaks(t *testing.T) {
	p := hit("p", 0.5, 9)
	p.PassOrigin = commonModels.PassPrecision
	r1 := hit("r1", 0.5, 2)
	r1.PassOrigin = commonModels.PassRecall
	r0 := hit("r0", 0.5, 1)
	r0.PassOrigin = commonModels.PassRecall

	merged := merge([]commonModels.Hit{p}, []commonModels.Hit{r1, r0})
	ids := []string{merged[0].Chunk.ChunkID, merged[1].Chunk.ChunkID, merged[2].Chunk.ChunkID}
	assert.Equal(t, []string{"p", "r0", "r1"}, ids)
}

func TestSearch_TruncatesToReturnEvidenceAndKeepsOrder(t *testing.T) {
	var precision, recall []commonModels.Hit
	for i := 0; i < 6; i++ {
		precision = append(precision, hit(fmt.Sprintf("p%d", i), 0.9-float64(i)*0.1, uint64(i)))
		recall = append(recall, hit(fmt.Sprintf("r%d", i), 0.85-float64(i)*0.1, uint64(10+i)))
	}
	s := settings()
	s.ReturnEvidence = 3
	tp := NewTwoPass(splitReader(precision, recall), splitEmbedder("q"), s)

	res, err := tp.Search(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	require.NoError(t, res.Err())
	require.Len(t, res.Hits, 3)
	for i := 1; i < len(res.Hits); i++ {
		assert.GreaterOrEqual(t, res.Hits[i-1].Score, res.Hits[i].Score)
	}

	res, err = tp.Search(context.Background(), "q", 2, nil)
	require.NoError(t, err)
	assert.Len(t, res.Hits, 2)
}

func TestSearch_NoHits(t *testing.T) {
	tp := NewTwoPass(splitReader(nil, nil), splitEmbedder("q"), settings())
	res, err := tp.Search(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	assert.Equal(t, commonModels.StatusNoHits, res.Status)
	assert.ErrorIs(t, res.Err(), commonModels.ErrNoHits)
	assert.Empty(t, res.Hits)
}

func TestSearch_ZeroQuestionVectorStillRunsRecall(t *testing.T) {
	emb := &fakeEmbedder{embedFunc: func(text string) ([]float32, error) {
		if text == "q" {
			return []float32{0, 0}, nil
		}
		return []float32{0, 1}, nil
	}}
	reader := &fakeReader{searchFunc: func(vec []float32, k int) []commonModels.Hit {
		if vec[0] == 0 && vec[1] == 0 {
			return nil
		}
		return []commonModels.Hit{hit("r", 0.4, 1)}
	}}
	res, err := NewTwoPass(reader, emb, settings()).Search(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, commonModels.PassRecall, res.Hits[0].PassOrigin)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	emb := &fakeEmbedder{embedFunc: func(string) ([]float32, error) { return nil, errors.New("quota") }}
	_, err := NewTwoPass(splitReader(nil, nil), emb, settings()).Search(context.Background(), "q", 5, nil)
	assert.ErrorIs(t, err, commonModels.ErrEmbeddingProvider)
}

func TestSearch_RejectsEmptyQuestion(t *testing.T) {
	_, err := NewTwoPass(splitReader(nil, nil), splitEmbedder(""), settings()).Search(context.Background(), "  ", 5, nil)
	assert.ErrorIs(t, err, commonModels.ErrInvalidArgument)
}

func TestSearch_StaticExpansion(t *testing.T) {
	emb := splitEmbedder("What was the response rate in % for n=120?")
	tp := NewTwoPass(splitReader(nil, nil), emb, settings())
	hint := &memory.Snapshot{
		TopicSummary:      "survival outcomes",
		ReferencedSources: []string{"data/trial.pdf p.3"},
	}

	res, err := tp.Search(context.Background(), "What was the response rate in % for n=120?", 5, hint)
	require.NoError(t, err)
	for _, want := range []string{"table", "supplementary", "percent", "cohort", "median", "confidence interval", "trial", "survival"} {
		assert.Contains(t, res.ExpandedQuery, want)
	}
	assert.Len(t, emb.queries, 2)
}

func TestSearch_EvidenceExpansionUsesPrecisionHits(t *testing.T) {
	precision := []commonModels.Hit{hit("a", 0.9, 1)}
	precision[0].Chunk.Text = "Hazard ratio hazard ratio remission remission remission"
	s := settings()
	s.ExpansionMode = ExpansionEvidence
	tp := NewTwoPass(splitReader(precision, nil), splitEmbedder("q"), s)

	res, err := tp.Search(context.Background(), "q", 5, nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ExpandedQuery, "q remission hazard ratio"), res.ExpandedQuery)
}

func TestPageRetriever(t *testing.T) {
	reader := &fakeReader{pageFunc: func(source string, page *int) []commonModels.Chunk {
		if source == "doc.pdf" && page != nil && *page == 1 {
			return []commonModels.Chunk{{ChunkID: "a", Ordinal: 0}, {ChunkID: "b", Ordinal: 1}}
		}
		return []commonModels.Chunk{}
	}}
	pr := NewPageRetriever(reader)
	ctx := context.Background()

	chunks, err := pr.GetPage(ctx, "doc.pdf", commonModels.PageOf(1))
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	missing, err := pr.GetPage(ctx, "doc.pdf", commonModels.PageOf(99))
	require.NoError(t, err)
	assert.Empty(t, missing)

	_, err = pr.GetPage(ctx, "", nil)
	assert.ErrorIs(t, err, commonModels.ErrInvalidArgument)
	for _, n := range []int{0, -3} {
		none, err := pr.GetPage(ctx, "doc.pdf", commonModels.PageOf(n))
		require.NoError(t, err, "page %d", n)
		assert.Empty(t, none, "page %d", n)
	}
}

func TestFormatEvidence(t *testing.T) {
	chunks := []commonModels.Chunk{
		{SourcePath: "a.pdf", Page: commonModels.PageOf(2), Ordinal: 1, Text: strings.Repeat("x", 50)},
		{SourcePath: "notes.txt", Ordinal: 0, Text: "short"},
	}
	out := FormatEvidence(chunks, 1000, 10)
	assert.Equal(t, "[a.pdf p.2 c.1]\nxxxxxxxxxx\n\n[notes.txt c.0]\nshort", out)

	assert.Equal(t, "[a.pdf p.2 c.1]\nxxxxxxxxxx", FormatEvidence(chunks, 30, 10))
	assert.Equal(t, NoHitsText, FormatEvidence(nil, 100, 10))
	assert.Equal(t, []string{"a.pdf p.2", "notes.txt"}, Citations(append(chunks, chunks[0])))

	other := commonModels.Chunk{SourcePath: "a.pdf", Page: commonModels.PageOf(7)}
	assert.Equal(t, []string{"a.pdf", "notes.txt"}, SourcePaths(append(chunks, other)))
}

// end to end over the real store, index and offline embedder

const trialPage1 = "The trial enrolled adults with advanced disease across three sites. " +
	"Participants were randomised to treatment or control and followed for two years."

const trialPage2 = "Results are summarised below.\n\n" +
	"Arm\tN\tResponse rate\tMedian survival\n" +
	"Treatment\t120\t45%\t14.2 months\n" +
	"Control\t118\t30%\t9.8 months\n"

func TestEndToEnd_TableAndPage(t *testing.T) {
	ctx := context.Background()
	store, err := chunkStore.NewSQLiteStore(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	emb, err := hashEmbedding.New(256, "hash")
	require.NoError(t, err)
	c := corpus.New(store, localDB.NewIndex(emb.Dimension()))
	require.NoError(t, c.Load(ctx))

	ix := ingest.NewIndexer(c, emb, cfg)
	_, err = ix.IndexSource(ctx, "trial.pdf", trialPage1+"\f"+trialPage2, false)
	require.NoError(t, err)

	tp := NewTwoPass(c, emb, cfg.Retrieval)
	res, err := tp.Search(ctx, "Treatment response rate 45% median survival months", 4, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Hits)
	assert.True(t, res.Hits[0].Chunk.IsTable, "table chunk should rank first: %+v", res.Hits[0].Chunk)
	assert.Equal(t, 2, *res.Hits[0].Chunk.Page)

	page, err := NewPageRetriever(c).GetPage(ctx, "trial.pdf", commonModels.PageOf(2))
	require.NoError(t, err)
	assert.Equal(t, trialPage2, commonModels.ReconstructPage(page))

	missing, err := NewPageRetriever(c).GetPage(ctx, "trial.pdf", commonModels.PageOf(7))
	require.NoError(t, err)
	assert.Empty(t, missing)
}
