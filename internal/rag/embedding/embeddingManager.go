package embedding

import (
	"context"
	"errors"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/metrics"
)

// Embedder is the external embedding provider. Identical text must always yield the identical vector.
type Embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelName() string
}

// retryableError marks a provider failure worth another attempt (rate limits, unavailability, timeouts).
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether an embedding failure is transient.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var re *retryableError
	if errors.As(err, &re) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded:
			return true
		}
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// RetryableHTTPStatus is the status classification shared by the HTTP based providers.
func RetryableHTTPStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// CachedEmbedder memoizes query embeddings. Batch calls are never cached.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachedEmbedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	start := time.Now()
	v, err := c.inner.GetEmbedding(ctx, text)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, commonModels.EmbeddingFailure(err)
	}
	c.cache.Add(text, v)
	return v, nil
}

func (c *CachedEmbedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	v, err := c.inner.BatchEmbedding(ctx, texts)
	metrics.CaptureExecutionMetrics("embedding_batch", time.Since(start))
	if err != nil {
		return nil, commonModels.EmbeddingFailure(err)
	}
	return v, nil
}

func (c *CachedEmbedder) Dimension() int    { return c.inner.Dimension() }
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }
