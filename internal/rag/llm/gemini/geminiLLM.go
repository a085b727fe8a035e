package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/customHttpClient"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type Client struct {
	client    *genai.Client
	modelName string
	prompt    string
}

var _ llm.Provider = (*Client)(nil)
var _ memory.Summarizer = (*Client)(nil)

var logger *logger_i.Logger
var geminiClient *Client
var once sync.Once

// GetGeminiClient returns nil when the client cannot be created.
func GetGeminiClient(ctx context.Context, modelName string, apikey string) *Client {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return &Client{client: geminiClient.client, modelName: geminiClient.modelName, prompt: geminiClient.prompt}
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	if apikey == "" {
		logger.Warn("No Gemini API key configured")
		return
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetClient(),
	})
	if err != nil {
		logger.Error("Error creating Gemini client:", "error", err)
		return
	}
	geminiClient = &Client{client: c, modelName: modelName, prompt: config.ModelContext}
	logger.Debug("Gemini client model", "model", modelName)
	logger.Info("Gemini client created")
	go closeClient(ctx)
}

func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	log := logger.FromContext(ctx)
	if req.NoHits || len(req.Excerpts) == 0 {
		return llm.NoHitsAnswer, nil
	}

	answer, err := c.complete(ctx, c.prompt, llm.BuildPrompt(req))
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", err
	}
	return answer, nil
}

// Summarize implements memory.Summarizer with the same model.
func (c *Client) Summarize(ctx context.Context, turns []memory.Turn, previous string) (string, error) {
	return c.complete(ctx, llm.SummaryInstruction, llm.BuildSummaryPrompt(turns, previous))
}

func (c *Client) complete(ctx context.Context, instruction string, prompt string) (string, error) {
	contentConfig := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: instruction}},
		},
		Temperature: genai.Ptr(config.ModelTemperature),
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, genai.Text(prompt), contentConfig)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty response")
	}
	return text, nil
}

func closeClient(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Gemini client")
}
