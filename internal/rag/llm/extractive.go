package llm

import (
	"context"
	"strings"

	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
)

const extractiveSnippet = 280

// Extractive answers without a model by quoting the opening of each excerpt under its header.
// It is used when no LLM key is configured.
type Extractive struct{}

var _ Provider = Extractive{}

func (Extractive) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.NoHits || len(req.Excerpts) == 0 {
		return NoHitsAnswer, nil
	}

	lines := []string{"Most relevant excerpts:"}
	for _, c := range req.Excerpts {
		text := strings.Join(strings.Fields(c.Text), " ")
		if text == "" {
			continue
		}
		if r := []rune(text); len(r) > extractiveSnippet {
			text = string(r[:extractiveSnippet]) + "…"
		}
		lines = append(lines, retrieval.Header(c)+" "+text)
	}
	return strings.Join(lines, "\n"), nil
}
