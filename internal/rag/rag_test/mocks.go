package rag_test

import (
	"context"
	"sync"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
)

// MockSearcher implements rag.Searcher
type MockSearcher struct {
	OnSearch func(ctx context.Context, question string, k int, hint *memory.Snapshot) (retrieval.Result, error)
}

func (m *MockSearcher) Search(ctx context.Context, q string, k int, hint *memory.Snapshot) (retrieval.Result, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, q, k, hint)
	}
	return retrieval.Result{
		Status: commonModels.StatusOK,
		Hits: []commonModels.Hit{{
			Chunk: commonModels.Chunk{ChunkID: "c1", SourcePath: "paper.pdf", Page: commonModels.PageOf(3), Text: "default context"},
			Score: 0.9,
		}},
	}, nil
}

// MockPages implements rag.PageGetter
type MockPages struct {
	OnGetPage func(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error)
}

func (m *MockPages) GetPage(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error) {
	if m.OnGetPage != nil {
		return m.OnGetPage(ctx, source, page)
	}
	return []commonModels.Chunk{}, nil
}

type memoryUpdate struct {
	SessionID string
	Question  string
	Answer    string
	Sources   []string
}

// MockMemory implements rag.SessionMemory and records every update
type MockMemory struct {
	OnHint   func(ctx context.Context, id string) (memory.Snapshot, error)
	OnUpdate func(ctx context.Context, id string, q string, a string, sources []string) error

	mu      sync.Mutex
	Updates []memoryUpdate
}

func (m *MockMemory) Hint(ctx context.Context, id string) (memory.Snapshot, error) {
	if m.OnHint != nil {
		return m.OnHint(ctx, id)
	}
	return memory.Snapshot{SessionID: id}, nil
}

func (m *MockMemory) Update(ctx context.Context, id string, q string, a string, sources []string) (memory.Snapshot, error) {
	m.mu.Lock()
	m.Updates = append(m.Updates, memoryUpdate{SessionID: id, Question: q, Answer: a, Sources: sources})
	m.mu.Unlock()
	if m.OnUpdate != nil {
		if err := m.OnUpdate(ctx, id, q, a, sources); err != nil {
			return memory.Snapshot{}, err
		}
	}
	return memory.Snapshot{SessionID: id}, nil
}

// MockCatalog implements rag.Catalog
type MockCatalog struct {
	OnRecord func(ctx context.Context, source string) (commonModels.SourceRecord, error)
	OnVerify func(ctx context.Context, source string) error
	Removed  []string
}

func (m *MockCatalog) Sources(ctx context.Context) ([]chunkStore.SourceInfo, error) {
	return []chunkStore.SourceInfo{}, nil
}

func (m *MockCatalog) Record(ctx context.Context, source string) (commonModels.SourceRecord, error) {
	if m.OnRecord != nil {
		return m.OnRecord(ctx, source)
	}
	return commonModels.SourceRecord{SourcePath: source}, nil
}

func (m *MockCatalog) Verify(ctx context.Context, source string) error {
	if m.OnVerify != nil {
		return m.OnVerify(ctx, source)
	}
	return nil
}

func (m *MockCatalog) RemoveSource(ctx context.Context, source string) error {
	m.Removed = append(m.Removed, source)
	return nil
}

// MockEmbedder implements embedding.Embedder for the indexer
type MockEmbedder struct {
	OnBatchEmbedding func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (m *MockEmbedder) Dimension() int    { return 2 }
func (m *MockEmbedder) ModelName() string { return "mock" }

// MockWriter implements ingest.SourceWriter
type MockWriter struct {
	OnReplace func(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32) error
}

func (m *MockWriter) ReplaceSource(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error {
	if m.OnReplace != nil {
		return m.OnReplace(ctx, source, chunks, vectors)
	}
	return nil
}

func (m *MockWriter) RemoveSource(ctx context.Context, source string) error {
	return nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, req llm.GenerateRequest) (string, error)
	Calls      int
}

func (m *MockLLM) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	m.Calls++
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, req)
	}
	return "mocked llm response", nil
}
