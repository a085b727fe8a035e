package googleEmbedding

import (
	"errors"
	"fmt"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
)

func getContent(chunks []string) []*genai.Content {
	contentsToSend := make([]*genai.Content, 0, len(chunks))

	for _, chunk := range chunks {
		contentsToSend = append(contentsToSend, &genai.Content{
			Parts: []*genai.Part{{Text: chunk}},
		})
	}
	return contentsToSend
}

// classify marks rate limits and server side failures as retryable.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && embedding.RetryableHTTPStatus(apiErr.Code) {
		return embedding.Retryable(err)
	}
	if s, ok := status.FromError(err); ok {
		if s.Code() == codes.ResourceExhausted || s.Code() == codes.Unavailable {
			logger.Error("Rate limit hit! ", "error", err)
			return embedding.Retryable(err)
		}
	}
	return err
}

func collectValues(res *genai.EmbedContentResponse, want int) ([][]float32, error) {
	if res == nil || len(res.Embeddings) != want {
		got := 0
		if res != nil {
			got = len(res.Embeddings)
		}
		return nil, fmt.Errorf("google returned %d embeddings for %d inputs", got, want)
	}
	results := make([][]float32, 0, want)
	for i, r := range res.Embeddings {
		if r == nil || len(r.Values) == 0 {
			return nil, fmt.Errorf("embedding %d of the batch is empty", i)
		}
		results = append(results, r.Values)
	}
	return results, nil
}
