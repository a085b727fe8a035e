package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
)

const (
	NoHitsAnswer = "I couldn't find anything about this in the indexed documents. " +
		"If you know where it should be, ask for the page directly (mode get_page with a source_path and page)."
	PageNotFoundAnswer = "That page is not in the index. Check the source_path and page number, " +
		"or list the indexed sources first."

	SummaryInstruction = "You keep a running topic summary of a research conversation. " +
		"Write at most three sentences naming the documents, entities and quantities discussed. " +
		"Do not answer the questions."

	defaultMaxTotalChars    = 9000
	defaultMaxCharsPerChunk = 1000

	followupsMin = 2
	followupsMax = 4
	sourcesMin   = 3
	sourcesMax   = 5
)

// GenerateRequest is everything the reasoning layer may see. Excerpts come from retrieval only.
type GenerateRequest struct {
	Question         string
	Excerpts         []commonModels.Chunk
	Hint             memory.Snapshot
	NoHits           bool
	MaxTotalChars    int
	MaxCharsPerChunk int
}

type Provider interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Evidence renders the request's excerpts within its budgets.
func (r GenerateRequest) Evidence() string {
	total, perChunk := r.MaxTotalChars, r.MaxCharsPerChunk
	if total <= 0 {
		total = defaultMaxTotalChars
	}
	if perChunk <= 0 {
		perChunk = defaultMaxCharsPerChunk
	}
	return retrieval.FormatEvidence(r.Excerpts, total, perChunk)
}

// BuildPrompt is the user turn sent to a model: the answer rules, optional session context,
// the evidence, the question and the required closing sections.
func BuildPrompt(req GenerateRequest) string {
	var sb strings.Builder
	sb.WriteString("Rules:\n")
	sb.WriteString("- Answer in depth and explain, anchoring every claim to the EVIDENCE.\n")
	sb.WriteString("- Never invent facts, numbers or claims that are not in the EVIDENCE.\n")
	sb.WriteString("- If the answer is not there, say: Not found in the indexed documents.\n")
	sb.WriteString("- Give denominators with percentages, for example 54/120 (45%).\n")
	sb.WriteString("- Rebuild tables, lists and numeric blocks as a table or structured list and interpret them.\n\n")
	if block := req.Hint.ContextBlock(); block != "" {
		sb.WriteString("SESSION CONTEXT (for resolving follow-ups only, not evidence):\n")
		sb.WriteString(block)
		sb.WriteString("\n\n")
	}
	sb.WriteString("EVIDENCE:\n")
	sb.WriteString(req.Evidence())
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "QUESTION: %s\n\n", strings.TrimSpace(req.Question))
	sb.WriteString("After your answer, include:\n")
	fmt.Fprintf(&sb, "What to look up next: %d-%d follow-up questions as bullets.\n", followupsMin, followupsMax)
	fmt.Fprintf(&sb, "Sources used: the top %d-%d sources you relied on most, each as its excerpt header "+
		"(for example [file.pdf p.3 c.1]) with a short label such as Results, Methods, Table-Figure, Background or Discussion. "+
		"Do not paste long quotes.", sourcesMin, sourcesMax)
	return sb.String()
}

// BuildSummaryPrompt is the user turn for a topic summary. turns are oldest first.
func BuildSummaryPrompt(turns []memory.Turn, previous string) string {
	var sb strings.Builder
	if previous != "" {
		fmt.Fprintf(&sb, "Previous summary: %s\n\n", previous)
	}
	sb.WriteString("Recent turns:\n")
	for _, t := range turns {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", t.Question, t.AnswerSummary)
	}
	return sb.String()
}
