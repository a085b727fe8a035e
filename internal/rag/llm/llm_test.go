package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
)

func excerpts() []commonModels.Chunk {
	return []commonModels.Chunk{
		{SourcePath: "trial.pdf", Page: commonModels.PageOf(2), Ordinal: 1, Text: "Treatment\t120\t45%"},
		{SourcePath: "notes.txt", Ordinal: 0, Text: "Follow-up was   two years."},
	}
}

func TestBuildPrompt(t *testing.T) {
	req := GenerateRequest{
		Question: "What was the response rate?",
		Excerpts: excerpts(),
		Hint:     memory.Snapshot{TopicSummary: "trial outcomes", ReferencedSources: []string{"trial.pdf p.2"}},
	}
	prompt := BuildPrompt(req)

	assert.Contains(t, prompt, "[trial.pdf p.2 c.1]\nTreatment\t120\t45%")
	assert.Contains(t, prompt, "[notes.txt c.0]")
	assert.Contains(t, prompt, "Conversation summary:\ntrial outcomes")
	assert.True(t, strings.Index(prompt, "EVIDENCE:") < strings.Index(prompt, "QUESTION: What was the response rate?"))
}

func TestBuildPrompt_NoSessionContext(t *testing.T) {
	prompt := BuildPrompt(GenerateRequest{Question: "q", Excerpts: excerpts()})
	assert.NotContains(t, prompt, "SESSION CONTEXT")
	assert.True(t, strings.HasPrefix(prompt, "Rules:\n"))
	assert.Contains(t, prompt, "\n\nEVIDENCE:\n")
}

func TestBuildPrompt_OutputSections(t *testing.T) {
	prompt := BuildPrompt(GenerateRequest{Question: "q", Excerpts: excerpts()})

	assert.Contains(t, prompt, "Give denominators with percentages")
	assert.Contains(t, prompt, "Not found in the indexed documents.")
	question := strings.Index(prompt, "QUESTION: q")
	followups := strings.Index(prompt, "What to look up next: 2-4 follow-up questions")
	sources := strings.Index(prompt, "Sources used: the top 3-5 sources")
	assert.True(t, question < followups && followups < sources, "closing sections follow the question")
}

func TestBuildSummaryPrompt(t *testing.T) {
	prompt := BuildSummaryPrompt([]memory.Turn{{Question: "dose?", AnswerSummary: "10 mg"}}, "dosing")
	assert.Equal(t, "Previous summary: dosing\n\nRecent turns:\nUser: dose?\nAssistant: 10 mg\n", prompt)
}

func TestEvidenceBudgets(t *testing.T) {
	req := GenerateRequest{Excerpts: excerpts(), MaxTotalChars: 1000, MaxCharsPerChunk: 9}
	assert.Equal(t, "[trial.pdf p.2 c.1]\nTreatment\n\n[notes.txt c.0]\nFollow-up", req.Evidence())
}

func TestExtractive(t *testing.T) {
	ctx := context.Background()

	answer, err := Extractive{}.Generate(ctx, GenerateRequest{Question: "q", Excerpts: excerpts()})
	require.NoError(t, err)
	assert.Equal(t, "Most relevant excerpts:\n[trial.pdf p.2 c.1] Treatment 120 45%\n[notes.txt c.0] Follow-up was two years.", answer)

	answer, err = Extractive{}.Generate(ctx, GenerateRequest{Question: "q", NoHits: true})
	require.NoError(t, err)
	assert.Equal(t, NoHitsAnswer, answer)
}

func TestExtractive_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extractive{}.Generate(ctx, GenerateRequest{Excerpts: excerpts()})
	assert.ErrorIs(t, err, context.Canceled)
}
