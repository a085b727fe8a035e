package adapter

import (
	"github.com/akolanti/GroundedRAG/internal/api"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
)

func ToRetrieveRequest(req api.RetrievalRequest) rag.RetrieveRequest {
	return rag.RetrieveRequest{
		Mode:       req.Mode,
		Question:   req.Question,
		SourcePath: req.SourcePath,
		Page:       req.Page,
		K:          req.K,
		SessionID:  req.SessionID,
	}
}

// ToRetrievalResponse never returns a nil hit list, so NO_HITS serialises as "hits": [].
func ToRetrievalResponse(res retrieval.Result) api.RetrievalResponse {
	hits := make([]api.RetrievalHit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, api.RetrievalHit{
			ChunkID:    h.Chunk.ChunkID,
			SourcePath: h.Chunk.SourcePath,
			Page:       h.Chunk.Page,
			Text:       h.Chunk.Text,
			Score:      h.Score,
		})
	}
	return api.RetrievalResponse{Hits: hits, Status: string(res.Status)}
}

func ToSourceResponses(sources []chunkStore.SourceInfo) []api.SourceResponse {
	out := make([]api.SourceResponse, 0, len(sources))
	for _, s := range sources {
		out = append(out, api.SourceResponse{
			SourcePath:     s.SourcePath,
			ChunkCount:     s.ChunkCount,
			IndexedAt:      s.IndexedAt,
			EmbeddingModel: s.EmbeddingModel,
		})
	}
	return out
}
