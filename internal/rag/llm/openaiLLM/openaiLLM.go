package openaiLLM

import (
	"context"
	"errors"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/customHttpClient"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// Client answers through the chat completions API.
type Client struct {
	client openai.Client
	model  string
	prompt string
	logger *logger_i.Logger
}

var _ llm.Provider = (*Client)(nil)
var _ memory.Summarizer = (*Client)(nil)

func New(apiKey string, model string, opts ...option.RequestOption) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if model == "" {
		model = config.OpenAIModelName
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.GetClient()),
	}
	return &Client{
		client: openai.NewClient(append(base, opts...)...),
		model:  model,
		prompt: config.ModelContext,
		logger: logger_i.NewLogger("llm_openai"),
	}, nil
}

func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	if req.NoHits || len(req.Excerpts) == 0 {
		return llm.NoHitsAnswer, nil
	}
	answer, err := c.complete(ctx, c.prompt, llm.BuildPrompt(req))
	if err != nil {
		c.logger.FromContext(ctx).Error("OpenAI generation failed", "model", c.model, "error", err)
		return "", err
	}
	return answer, nil
}

// Summarize implements memory.Summarizer with the same model.
func (c *Client) Summarize(ctx context.Context, turns []memory.Turn, previous string) (string, error) {
	return c.complete(ctx, llm.SummaryInstruction, llm.BuildSummaryPrompt(turns, previous))
}

func (c *Client) complete(ctx context.Context, instruction string, prompt string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(float64(config.ModelTemperature)),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(instruction),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai returned an empty response")
	}
	return text, nil
}
