package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/akolanti/GroundedRAG/internal/customHttpClient"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

const maxInputsPerCall = 2048

type Embedder struct {
	client    openai.Client
	model     string
	dimension int
	logger    *logger_i.Logger
}

var _ embedding.Embedder = (*Embedder)(nil)

// New builds an embedder for the text-embedding-3 family. Retries are left to the indexer.
func New(apiKey string, model string, dimension int, opts ...option.RequestOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is empty")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(customHttpClient.GetClient()),
		option.WithMaxRetries(0),
	}
	return &Embedder{
		client:    openai.NewClient(append(base, opts...)...),
		model:     model,
		dimension: dimension,
		logger:    logger_i.NewLogger("openai_embedding"),
	}, nil
}

func (e *Embedder) Dimension() int    { return e.dimension }
func (e *Embedder) ModelName() string { return e.model }

func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxInputsPerCall {
		end := min(start+maxInputsPerCall, len(texts))
		vectors, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	log := e.logger.FromContext(ctx)
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: openai.Int(int64(e.dimension)),
	})
	if err != nil {
		log.Error("openai embeddings request failed", "error", err, "inputs", len(texts))
		return nil, classify(err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) || out[d.Index] != nil {
			return nil, fmt.Errorf("openai returned an unexpected embedding index %d", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

func classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && embedding.RetryableHTTPStatus(apiErr.StatusCode) {
		return embedding.Retryable(err)
	}
	if embedding.IsRetryable(err) {
		return embedding.Retryable(err)
	}
	return err
}
