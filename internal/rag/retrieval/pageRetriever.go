package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/corpus"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type PageRetriever struct {
	reader corpus.Reader
	logger *logger_i.Logger
}

func NewPageRetriever(reader corpus.Reader) *PageRetriever {
	return &PageRetriever{reader: reader, logger: logger_i.NewLogger("PageRetriever")}
}

// GetPage returns the page's chunks in ordinal order. A page that was never indexed, zero and
// negative numbers included, is an empty slice, not an error.
// A nil page addresses a non-paginated source.
func (p *PageRetriever) GetPage(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error) {
	if strings.TrimSpace(source) == "" {
		return nil, fmt.Errorf("source_path is required: %w", commonModels.ErrInvalidArgument)
	}
	start := time.Now()

	chunks, err := p.reader.Page(ctx, source, page)
	if err != nil {
		p.logger.FromContext(ctx).Error("Page lookup failed", "source", source, "page", commonModels.PageLabel(page), "error", err)
		return nil, err
	}
	status := commonModels.StatusOK
	if len(chunks) == 0 {
		status = commonModels.StatusNoHits
	}
	metrics.CaptureExecutionMetrics("retrieval_page", time.Since(start))
	metrics.CaptureRetrieval("rag_get_page", string(status), len(chunks))
	return chunks, nil
}
