// Package memory keeps a small, non-authoritative record of a conversation:
// the last few turns, a topic summary and the sources that were cited.
// It never holds chunk text.
package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

const (
	MinTurns           = 2
	MaxTurns           = 4
	MaxAnswerSummary   = 240
	MaxTopicSummary    = 500
	MaxHintSources     = 2
	MaxHintKeywords    = 6
	contextBlockTurns  = 2
	contextBlockSource = 5
)

type Turn struct {
	Question      string    `json:"question"`
	AnswerSummary string    `json:"answer_summary"`
	At            time.Time `json:"at"`
}

// Snapshot is the read-only view of a session. ReferencedSources is most recent first.
type Snapshot struct {
	SessionID         string    `json:"session_id"`
	RecentTurns       []Turn    `json:"recent_turns"`
	TopicSummary      string    `json:"topic_summary"`
	ReferencedSources []string  `json:"referenced_sources"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Memory struct {
	mu         sync.RWMutex
	sessionID  string
	turns      *Ring[Turn]
	summary    string
	sources    *simplelru.LRU[string, struct{}]
	summarizer Summarizer
	updatedAt  time.Time
	logger     *logger_i.Logger
}

func clampTurns(n int) int {
	return min(max(n, MinTurns), MaxTurns)
}

func New(sessionID string, maxTurns int, maxSources int, summarizer Summarizer) *Memory {
	if maxSources < 1 {
		maxSources = 1
	}
	if summarizer == nil {
		summarizer = HeuristicSummarizer{}
	}
	sources, _ := simplelru.NewLRU[string, struct{}](maxSources, nil)
	return &Memory{
		sessionID:  sessionID,
		turns:      NewRing[Turn](clampTurns(maxTurns)),
		sources:    sources,
		summarizer: summarizer,
		logger:     logger_i.NewLogger("Memory"),
	}
}

// Restore rebuilds a Memory from a stored snapshot, applying the current caps.
func Restore(s Snapshot, maxTurns int, maxSources int, summarizer Summarizer) *Memory {
	m := New(s.SessionID, maxTurns, maxSources, summarizer)
	for _, t := range s.RecentTurns {
		m.turns.Push(t)
	}
	for i := len(s.ReferencedSources) - 1; i >= 0; i-- {
		m.sources.Add(s.ReferencedSources[i], struct{}{})
	}
	m.summary = s.TopicSummary
	m.updatedAt = s.UpdatedAt
	return m
}

// Update records one finished turn. usedSources are source paths.
func (m *Memory) Update(ctx context.Context, question string, answerSummary string, usedSources []string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return fmt.Errorf("empty question")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.turns.Push(Turn{
		Question:      question,
		AnswerSummary: SummarizeAnswer(answerSummary),
		At:            time.Now().UTC(),
	})
	for _, s := range usedSources {
		if s = strings.TrimSpace(s); s != "" {
			m.sources.Add(s, struct{}{})
		}
	}

	turns := m.turns.Items()
	summary, err := m.summarizer.Summarize(ctx, turns, m.summary)
	if err != nil {
		m.logger.FromContext(ctx).Warn("Summarizer failed, using heuristic", "session", m.sessionID, "error", err)
		summary, _ = HeuristicSummarizer{}.Summarize(ctx, turns, m.summary)
	}
	m.summary = truncateRunes(summary, MaxTopicSummary)
	m.updatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) ContextHint() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := m.sources.Keys()
	recent := make([]string, len(keys))
	for i, k := range keys {
		recent[len(keys)-1-i] = k
	}
	return Snapshot{
		SessionID:         m.sessionID,
		RecentTurns:       m.turns.Items(),
		TopicSummary:      m.summary,
		ReferencedSources: recent,
		UpdatedAt:         m.updatedAt,
	}
}

// HintSources returns the base names of the most recently referenced sources, page labels stripped.
func (s Snapshot) HintSources() []string {
	var out []string
	seen := map[string]bool{}
	for _, src := range s.ReferencedSources {
		if len(out) == MaxHintSources {
			break
		}
		path, _, _ := strings.Cut(src, " p.")
		base := filepath.Base(path)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		if base == "" || base == "." || seen[base] {
			continue
		}
		seen[base] = true
		out = append(out, base)
	}
	return out
}

// TopicKeywords returns up to MaxHintKeywords keywords of the topic summary.
func (s Snapshot) TopicKeywords() []string {
	if strings.TrimSpace(s.TopicSummary) == "" {
		return nil
	}
	return commonModels.FrequentTerms([]string{s.TopicSummary}, MaxHintKeywords)
}

func (s Snapshot) IsEmpty() bool {
	return len(s.RecentTurns) == 0 && s.TopicSummary == "" && len(s.ReferencedSources) == 0
}

// ContextBlock renders the snapshot for a prompt: summary, the last two turns and up to five sources.
func (s Snapshot) ContextBlock() string {
	var parts []string
	if strings.TrimSpace(s.TopicSummary) != "" {
		parts = append(parts, "Conversation summary:\n"+strings.TrimSpace(s.TopicSummary))
	}
	if len(s.RecentTurns) > 0 {
		tail := s.RecentTurns[max(0, len(s.RecentTurns)-contextBlockTurns):]
		lines := make([]string, 0, 2*len(tail))
		for _, t := range tail {
			lines = append(lines, "User: "+t.Question, "Assistant: "+t.AnswerSummary)
		}
		parts = append(parts, "Recent turns:\n"+strings.Join(lines, "\n"))
	}
	if len(s.ReferencedSources) > 0 {
		srcs := s.ReferencedSources[:min(len(s.ReferencedSources), contextBlockSource)]
		parts = append(parts, "Recently referenced sources:\n"+strings.Join(srcs, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
