package openaiLLM

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
)

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// fakeServer answers every chat completion with reply and records the last request.
func fakeServer(t *testing.T, status int, reply string, got *chatRequest, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
			return
		}
		assert.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   got.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": reply, "refusal": ""},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request() llm.GenerateRequest {
	return llm.GenerateRequest{
		Question: "What was median survival?",
		Excerpts: []commonModels.Chunk{{SourcePath: "trial.pdf", Page: commonModels.PageOf(4), Ordinal: 2, Text: "Median survival was 14.2 months."}},
	}
}

func TestGenerate_SendsEvidenceAndQuestion(t *testing.T) {
	var got chatRequest
	calls := 0
	srv := fakeServer(t, http.StatusOK, "  14.2 months [trial.pdf p.4 c.2]\n", &got, &calls)
	c, err := New("key", "", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)

	answer, err := c.Generate(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "14.2 months [trial.pdf p.4 c.2]", answer)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "[trial.pdf p.4 c.2]\nMedian survival was 14.2 months.")
	assert.Contains(t, got.Messages[1].Content, "What was median survival?")
}

func TestGenerate_NoHitsSkipsTheModel(t *testing.T) {
	var got chatRequest
	calls := 0
	srv := fakeServer(t, http.StatusOK, "unused", &got, &calls)
	c, err := New("key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	answer, err := c.Generate(context.Background(), llm.GenerateRequest{Question: "q", NoHits: true})
	require.NoError(t, err)
	assert.Equal(t, llm.NoHitsAnswer, answer)
	assert.Zero(t, calls)
}

func TestGenerate_ProviderErrorAndEmptyReply(t *testing.T) {
	var got chatRequest
	calls := 0
	srv := fakeServer(t, http.StatusUnauthorized, "", &got, &calls)
	c, err := New("key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), request())
	assert.Error(t, err)

	empty := fakeServer(t, http.StatusOK, "   ", &got, &calls)
	c, err = New("key", "gpt-4o-mini", option.WithBaseURL(empty.URL+"/"))
	require.NoError(t, err)
	_, err = c.Generate(context.Background(), request())
	assert.Error(t, err)
}

func TestSummarize_UsesSummaryInstruction(t *testing.T) {
	var got chatRequest
	calls := 0
	srv := fakeServer(t, http.StatusOK, "Survival outcomes in trial.pdf.", &got, &calls)
	c, err := New("key", "gpt-4o-mini", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	summary, err := c.Summarize(context.Background(), []memory.Turn{{Question: "median survival?", AnswerSummary: "14.2 months"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "Survival outcomes in trial.pdf.", summary)
	assert.Equal(t, llm.SummaryInstruction, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "User: median survival?")
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := New("", "gpt-4o-mini")
	assert.Error(t, err)
}
