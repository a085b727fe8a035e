package retrieval

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
)

const (
	ExpansionStatic   = "static"
	ExpansionEvidence = "evidence"

	evidenceHits = 5
)

var sampleSizeCue = regexp.MustCompile(`\bn\s*=\s*\d`)

var (
	percentTerms = []string{"percent", "percentage"}
	sampleTerms  = []string{"sample", "cohort"}
	numericTerms = []string{"mean", "median", "range", "sd", "p-value", "confidence interval"}
)

// termSet collects expansion terms once each, in insertion order.
type termSet struct {
	seen  map[string]struct{}
	terms []string
}

func newTermSet() *termSet {
	return &termSet{seen: make(map[string]struct{})}
}

func (s *termSet) add(terms ...string) {
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := s.seen[key]; ok {
			continue
		}
		s.seen[key] = struct{}{}
		s.terms = append(s.terms, t)
	}
}

// numericCues returns the extra terms implied by numbers in text.
func numericCues(text string) []string {
	var cues []string
	if strings.Contains(text, "%") {
		cues = append(cues, percentTerms...)
	}
	if sampleSizeCue.MatchString(strings.ToLower(text)) {
		cues = append(cues, sampleTerms...)
	}
	if strings.IndexFunc(text, unicode.IsDigit) >= 0 {
		cues = append(cues, numericTerms...)
	}
	return cues
}

// hintTerms are the memory-derived terms: recent source names first, then topic keywords.
func hintTerms(hint *memory.Snapshot) []string {
	if hint == nil {
		return nil
	}
	return append(hint.HintSources(), hint.TopicKeywords()...)
}

// expandQuery builds the recall query. evidence, when not nil, contributes its frequent terms.
func (tp *TwoPass) expandQuery(question string, hint *memory.Snapshot, evidence []commonModels.Hit) string {
	set := newTermSet()
	if len(evidence) > 0 {
		texts := make([]string, 0, evidenceHits)
		for _, h := range evidence[:min(len(evidence), evidenceHits)] {
			texts = append(texts, h.Chunk.Text)
		}
		set.add(commonModels.FrequentTerms(texts, tp.maxEvidenceTerms)...)
	}
	set.add(tp.terms...)
	set.add(numericCues(question)...)
	set.add(hintTerms(hint)...)

	if len(set.terms) == 0 {
		return question
	}
	return question + " " + strings.Join(set.terms, " ")
}
