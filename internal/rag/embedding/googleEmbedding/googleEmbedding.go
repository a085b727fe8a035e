package googleEmbedding

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"

	"github.com/akolanti/GroundedRAG/internal/customHttpClient"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

const maxRequestsPerCall = 100

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apikey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: customHttpClient.GetClient(),
	})
	if err != nil {
		logger.Error("Error creating Google Embedding client:", "error", err)
	}
	if c != nil {
		embeddingClient = &client{
			genAi:     c,
			model:     modelName,
			dimension: int32(dimension),
		}
		logger.Debug("Google Embedding model name: " + modelName)
		logger.Info("Google Embedding client created")
		go closeClient(ctx, embeddingClient)
	}
}

func closeClient(ctx context.Context, embeddingClient *client) {
	<-ctx.Done()
	logger.Info("Closing Google Embedding client")
}

// GetGoogleEmbeddingClient returns nil when the client cannot be created.
func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, dimension)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{genAi: embeddingClient.genAi, model: embeddingClient.model, dimension: embeddingClient.dimension}
}

func (c *client) Dimension() int    { return int(c.dimension) }
func (c *client) ModelName() string { return c.model }

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.FromContext(ctx)
	log.Debug("query embedding", "length", len(query))

	result, err := c.doCall(ctx, genai.Text(query), "RETRIEVAL_QUERY")
	if err != nil {
		log.Error("Error getting query embedding from Google", "error", err)
		return nil, classify(err)
	}
	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("google returned no embedding for the query")
	}
	return result.Embeddings[0].Values, nil
}

// BatchEmbedding embeds texts in request-sized slices and keeps the input order.
func (c *client) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	log := logger.FromContext(ctx)
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += maxRequestsPerCall {
		end := min(start+maxRequestsPerCall, len(texts))
		res, err := c.doCall(ctx, getContent(texts[start:end]), "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Error("Error getting Embeddings from Google", "error", err, "from", start, "to", end)
			return nil, classify(err)
		}
		batch, err := collectValues(res, end-start)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	log.Debug("batch embedded", "texts", len(texts))
	return vectors, nil
}

func (c *client) doCall(ctx context.Context, content []*genai.Content, taskType string) (*genai.EmbedContentResponse, error) {
	dimension := c.dimension
	return c.genAi.Models.EmbedContent(ctx, c.model, content, &genai.EmbedContentConfig{
		OutputDimensionality: &dimension,
		TaskType:             taskType,
	})
}
