package memory

import (
	"context"
	"fmt"
	"strings"
)

// quoteWindow is the shortest run of excerpt text that counts as a quotation.
const quoteWindow = 40

// Summarizer produces the rolling topic summary. turns are oldest first.
type Summarizer interface {
	Summarize(ctx context.Context, turns []Turn, previous string) (string, error)
}

// HeuristicSummarizer joins the last four questions. It never calls out.
type HeuristicSummarizer struct{}

func (HeuristicSummarizer) Summarize(_ context.Context, turns []Turn, previous string) (string, error) {
	if len(turns) == 0 {
		return previous, nil
	}
	tail := turns[max(0, len(turns)-4):]
	qs := make([]string, 0, len(tail))
	for _, t := range tail {
		q := strings.TrimSpace(strings.ReplaceAll(t.Question, "\n", " "))
		if q != "" {
			qs = append(qs, q)
		}
	}
	return truncateRunes(strings.Join(qs, " | "), MaxTopicSummary), nil
}

// SummarizeAnswer reduces an answer to a single-line synopsis of at most MaxAnswerSummary runes.
func SummarizeAnswer(answer string) string {
	flat := strings.Join(strings.Fields(answer), " ")
	r := []rune(flat)
	if len(r) <= MaxAnswerSummary {
		return flat
	}
	return strings.TrimSpace(string(r[:MaxAnswerSummary-1])) + "…"
}

// SummarizeTurn is SummarizeAnswer for a turn answered from excerpts. A synopsis that repeats
// any excerpt verbatim is replaced by CitationSummary, so evidence text never reaches memory.
func SummarizeTurn(answer string, excerpts []string, sources []string) string {
	summary := SummarizeAnswer(answer)
	if quotesExcerpt(summary, excerpts) {
		return CitationSummary(len(excerpts), sources)
	}
	return summary
}

// CitationSummary names how many excerpts an answer drew on and where they came from.
func CitationSummary(excerpts int, sources []string) string {
	line := fmt.Sprintf("Answered from %d excerpts", excerpts)
	if len(sources) > 0 {
		line += ": " + strings.Join(sources, ", ")
	}
	return SummarizeAnswer(line)
}

func quotesExcerpt(summary string, excerpts []string) bool {
	s := []rune(strings.ToLower(summary))
	for _, e := range excerpts {
		flat := strings.ToLower(strings.Join(strings.Fields(e), " "))
		n := len([]rune(flat))
		if n == 0 {
			continue
		}
		w := min(quoteWindow, n)
		for i := 0; i+w <= len(s); i++ {
			if strings.Contains(flat, string(s[i:i+w])) {
				return true
			}
		}
	}
	return false
}
