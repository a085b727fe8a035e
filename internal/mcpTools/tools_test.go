package mcpTools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	rag.Service
	requests []rag.RetrieveRequest
	result   retrieval.Result
	err      error
}

func (f *fakeService) Retrieve(_ context.Context, req rag.RetrieveRequest) (retrieval.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func connect(t *testing.T, svc rag.Service) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	_, err := NewServer(svc).Connect(ctx, serverTransport)
	require.NoError(t, err)

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func decode[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var out T
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestTools_Listed(t *testing.T) {
	session := connect(t, &fakeService{})

	var names []string
	for tool, err := range session.Tools(context.Background(), nil) {
		require.NoError(t, err)
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{jobModel.ModeSearch2Pass, jobModel.ToolGetPage}, names)
}

func TestSearchTool(t *testing.T) {
	chunk := commonModels.Chunk{ChunkID: "c1", SourcePath: "trial.pdf", Page: commonModels.PageOf(2), Ordinal: 0, Text: "median survival 14.2 months"}
	svc := &fakeService{result: retrieval.Result{
		Status: commonModels.StatusOK,
		Hits:   []commonModels.Hit{{Chunk: chunk, Score: 0.9, PassOrigin: commonModels.PassPrecision}},
	}}
	session := connect(t, svc)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      jobModel.ModeSearch2Pass,
		Arguments: map[string]any{"question": "median survival", "k": 4, "session_id": "s1"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode[SearchOutput](t, res)
	assert.Equal(t, "OK", out.Status)
	require.Len(t, out.Hits, 1)
	assert.Equal(t, "c1", out.Hits[0].ChunkID)
	assert.Equal(t, "precision", out.Hits[0].PassOrigin)
	assert.Equal(t, []string{"trial.pdf p.2"}, out.Citations)
	assert.Contains(t, out.Evidence, "median survival 14.2 months")

	require.Len(t, svc.requests, 1)
	assert.Equal(t, rag.RetrieveRequest{Mode: jobModel.ModeSearch2Pass, Question: "median survival", K: 4, SessionID: "s1"}, svc.requests[0])
}

func TestSearchTool_NoHitsIsNotAnError(t *testing.T) {
	session := connect(t, &fakeService{result: retrieval.Result{Status: commonModels.StatusNoHits}})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      jobModel.ModeSearch2Pass,
		Arguments: map[string]any{"question": "nothing matches"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)

	out := decode[SearchOutput](t, res)
	assert.Equal(t, "NO_HITS", out.Status)
	assert.Empty(t, out.Hits)
}

func TestSearchTool_ProviderFailureIsToolError(t *testing.T) {
	svc := &fakeService{err: fmt.Errorf("embed: %w", commonModels.ErrEmbeddingProvider)}
	session := connect(t, svc)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      jobModel.ModeSearch2Pass,
		Arguments: map[string]any{"question": "anything"},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetPageTool(t *testing.T) {
	page := commonModels.PageOf(3)
	svc := &fakeService{result: retrieval.Result{
		Status: commonModels.StatusOK,
		Hits: []commonModels.Hit{
			{Chunk: commonModels.Chunk{ChunkID: "a", SourcePath: "trial.pdf", Page: page, Ordinal: 0, Text: "first part"}},
			{Chunk: commonModels.Chunk{ChunkID: "b", SourcePath: "trial.pdf", Page: page, Ordinal: 1, Text: " second part"}},
		},
	}}
	session := connect(t, svc)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      jobModel.ToolGetPage,
		Arguments: map[string]any{"source_path": "trial.pdf", "page": 3},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode[GetPageOutput](t, res)
	assert.Equal(t, "OK", out.Status)
	require.Len(t, out.Chunks, 2)
	assert.Equal(t, "a", out.Chunks[0].ChunkID)
	assert.Equal(t, commonModels.ReconstructPage(svc.result.Chunks()), out.Text)

	require.Len(t, svc.requests, 1)
	assert.Equal(t, jobModel.ToolGetPage, svc.requests[0].Mode)
	require.NotNil(t, svc.requests[0].Page)
	assert.Equal(t, 3, *svc.requests[0].Page)
}

func TestGetPageTool_MissingPage(t *testing.T) {
	session := connect(t, &fakeService{result: retrieval.Result{Status: commonModels.StatusNoHits, Hits: []commonModels.Hit{}}})

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      jobModel.ToolGetPage,
		Arguments: map[string]any{"source_path": "trial.pdf", "page": 99},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)

	out := decode[GetPageOutput](t, res)
	assert.Equal(t, "NO_HITS", out.Status)
	assert.Empty(t, out.Chunks)
	assert.Empty(t, out.Text)
}
