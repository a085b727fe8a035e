package commonModels

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is an expected lookup miss, never fatal.
	ErrNotFound = errors.New("not found")
	// ErrNoHits means retrieval found nothing to ground an answer on. It is a signal, not a failure.
	ErrNoHits = errors.New("no hits")
	// ErrEmbeddingProvider wraps every failure of the external embedding call.
	ErrEmbeddingProvider = errors.New("embedding provider failure")
	// ErrIndexCorruption means the vector index and the chunk store disagree. The source must be re-indexed.
	ErrIndexCorruption = errors.New("index corruption")
	// ErrInvalidArgument is a caller mistake: empty question, missing source, bad page.
	ErrInvalidArgument = errors.New("invalid argument")
)

// CorruptionError names the source that needs a full re-index.
type CorruptionError struct {
	SourcePath string
	Reason     string
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("index corruption in %q: %s", e.SourcePath, e.Reason)
}

func (e *CorruptionError) Unwrap() error {
	return ErrIndexCorruption
}

func NewCorruptionError(source string, format string, args ...any) error {
	return &CorruptionError{SourcePath: source, Reason: fmt.Sprintf(format, args...)}
}

// EmbeddingFailure marks err as an embedding provider failure while keeping it inspectable.
func EmbeddingFailure(err error) error {
	if err == nil || errors.Is(err, ErrEmbeddingProvider) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrEmbeddingProvider, err)
}

// ErrorCode maps an error to the HTTP status reported to clients and whether a retry may help.
func ErrorCode(err error) (int, bool) {
	var corruption *CorruptionError
	switch {
	case err == nil, errors.Is(err, ErrNoHits):
		return http.StatusOK, false
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, false
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, false
	case errors.Is(err, ErrEmbeddingProvider):
		return http.StatusBadGateway, true
	case errors.As(err, &corruption), errors.Is(err, ErrIndexCorruption):
		return http.StatusInternalServerError, false
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, true
	default:
		return http.StatusInternalServerError, true
	}
}
