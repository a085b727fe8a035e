package mcpTools

import (
	"context"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Evidence is formatted for a model context window with these budgets.
const (
	evidenceTotalChars    = 9000
	evidenceCharsPerChunk = 1000
)

type SearchInput struct {
	Question  string `json:"question" jsonschema:"the question to retrieve evidence for"`
	K         int    `json:"k,omitempty" jsonschema:"number of chunks per pass (default from settings)"`
	SessionID string `json:"session_id,omitempty" jsonschema:"session whose recent topics help expand the recall query"`
}

type GetPageInput struct {
	SourcePath string `json:"source_path" jsonschema:"the indexed source path"`
	Page       *int   `json:"page,omitempty" jsonschema:"1-based page number; omit for unpaginated sources"`
}

type HitOutput struct {
	ChunkID    string  `json:"chunk_id"`
	SourcePath string  `json:"source_path"`
	Page       *int    `json:"page,omitempty"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	PassOrigin string  `json:"pass_origin,omitempty"`
}

type SearchOutput struct {
	Status    string      `json:"status"`
	Hits      []HitOutput `json:"hits"`
	Evidence  string      `json:"evidence"`
	Citations []string    `json:"citations"`
}

type GetPageOutput struct {
	Status     string      `json:"status"`
	SourcePath string      `json:"source_path"`
	Page       *int        `json:"page,omitempty"`
	Chunks     []HitOutput `json:"chunks"`
	Text       string      `json:"text"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        jobModel.ModeSearch2Pass,
		Description: "Two-pass semantic search over the indexed documents: a precision pass on the question and a recall pass on an expanded query, merged and truncated. Status NO_HITS means nothing was found; try rag_get_page.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        jobModel.ToolGetPage,
		Description: "Return every chunk of one page of an indexed source in reading order, plus the reconstructed page text.",
	}, s.handleGetPage)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	res, err := s.service.Retrieve(ctx, rag.RetrieveRequest{
		Mode:      jobModel.ModeSearch2Pass,
		Question:  input.Question,
		K:         input.K,
		SessionID: input.SessionID,
	})
	if err != nil {
		s.log.FromContext(ctx).Warn("rag_search_2pass failed", "error", err)
		return nil, SearchOutput{}, err
	}

	chunks := res.Chunks()
	return nil, SearchOutput{
		Status:    string(res.Status),
		Hits:      toHitOutputs(res.Hits),
		Evidence:  retrieval.FormatEvidence(chunks, evidenceTotalChars, evidenceCharsPerChunk),
		Citations: nonNil(retrieval.Citations(chunks)),
	}, nil
}

func (s *Server) handleGetPage(ctx context.Context, _ *mcp.CallToolRequest, input GetPageInput) (*mcp.CallToolResult, GetPageOutput, error) {
	res, err := s.service.Retrieve(ctx, rag.RetrieveRequest{
		Mode:       jobModel.ToolGetPage,
		SourcePath: input.SourcePath,
		Page:       input.Page,
	})
	if err != nil {
		s.log.FromContext(ctx).Warn("rag_get_page failed", "error", err, "source", input.SourcePath)
		return nil, GetPageOutput{}, err
	}

	return nil, GetPageOutput{
		Status:     string(res.Status),
		SourcePath: input.SourcePath,
		Page:       input.Page,
		Chunks:     toHitOutputs(res.Hits),
		Text:       commonModels.ReconstructPage(res.Chunks()),
	}, nil
}

func toHitOutputs(hits []commonModels.Hit) []HitOutput {
	out := make([]HitOutput, 0, len(hits))
	for _, h := range hits {
		out = append(out, HitOutput{
			ChunkID:    h.Chunk.ChunkID,
			SourcePath: h.Chunk.SourcePath,
			Page:       h.Chunk.Page,
			Text:       h.Chunk.Text,
			Score:      h.Score,
			PassOrigin: string(h.PassOrigin),
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
