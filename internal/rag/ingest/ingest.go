package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

const maxRetryDelay = 10 * time.Second

// ErrNoContent is returned when a document yields no chunks. The stored source is untouched.
var ErrNoContent = fmt.Errorf("no extractable text: %w", commonModels.ErrInvalidArgument)

// SourceWriter commits one source's complete chunk and vector set.
type SourceWriter interface {
	ReplaceSource(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error
	RemoveSource(ctx context.Context, source string) error
}

type Indexer struct {
	writer     SourceWriter
	embedder   embedding.Embedder
	chunker    *Chunker
	batchSize  int
	maxRetries uint64
	baseDelay  time.Duration
	logger     *logger_i.Logger
}

func NewIndexer(writer SourceWriter, embedder embedding.Embedder, settings *config.Settings) *Indexer {
	baseDelay := time.Duration(settings.Embedding.RetryBaseDelayMs) * time.Millisecond
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	return &Indexer{
		writer:     writer,
		embedder:   embedder,
		chunker:    NewChunker(settings.Chunking),
		batchSize:  settings.Embedding.BatchSize,
		maxRetries: settings.Embedding.MaxRetries,
		baseDelay:  baseDelay,
		logger:     logger_i.NewLogger("Indexer"),
	}
}

// SplitPages turns form-feed separated text into pages numbered from 1.
// Text without a form feed is a single page with no number.
func SplitPages(rawText string) []commonModels.Page {
	if !strings.Contains(rawText, "\f") {
		return []commonModels.Page{{Text: rawText}}
	}
	parts := strings.Split(rawText, "\f")
	pages := make([]commonModels.Page, len(parts))
	for i, p := range parts {
		pages[i] = commonModels.Page{Number: commonModels.PageOf(i + 1), Text: p}
	}
	return pages
}

func (ix *Indexer) IndexSource(ctx context.Context, sourcePath string, rawText string, isTableHint bool) ([]commonModels.Chunk, error) {
	return ix.IndexPages(ctx, sourcePath, SplitPages(rawText), isTableHint)
}

// IndexPages rebuilds every chunk of sourcePath. The previous set is replaced only once
// every chunk has a vector, so a failure leaves the source as it was. A document without
// text is a failure too: RemoveSource is the only way to drop a source.
func (ix *Indexer) IndexPages(ctx context.Context, sourcePath string, pages []commonModels.Page, isTableHint bool) ([]commonModels.Chunk, error) {
	log := ix.logger.FromContext(ctx)
	start := time.Now()

	chunks := ix.PrepareChunks(sourcePath, pages, isTableHint)
	log.Debug("Prepared chunks", "source", sourcePath, "pages", len(pages), "chunks", len(chunks))
	if len(chunks) == 0 {
		log.Warn("No extractable text, keeping previous index state", "source", sourcePath)
		return nil, ErrNoContent
	}

	vectors, err := ix.embedAll(ctx, chunks)
	if err != nil {
		log.Error("Embedding failed, keeping previous index state", "source", sourcePath, "error", err)
		return nil, err
	}

	if err := ix.writer.ReplaceSource(ctx, sourcePath, chunks, vectors, ix.embedder.ModelName()); err != nil {
		log.Error("Commit failed", "source", sourcePath, "error", err)
		return nil, err
	}
	metrics.CaptureJobMetrics("index_source", time.Since(start))
	log.Info("Source indexed", "source", sourcePath, "chunks", len(chunks))
	return chunks, nil
}

func (ix *Indexer) RemoveSource(ctx context.Context, sourcePath string) error {
	return ix.writer.RemoveSource(ctx, sourcePath)
}

// PrepareChunks windows every page and assigns ordinals and stable ids.
func (ix *Indexer) PrepareChunks(sourcePath string, pages []commonModels.Page, isTableHint bool) []commonModels.Chunk {
	var allChunks []commonModels.Chunk
	for _, page := range pages {
		for i, p := range ix.chunker.Split(page.Text, isTableHint) {
			allChunks = append(allChunks, commonModels.Chunk{
				ChunkID:    commonModels.NewChunkID(sourcePath, page.Number, i, p.text),
				SourcePath: sourcePath,
				Page:       page.Number,
				Ordinal:    i,
				Text:       p.text,
				IsTable:    p.isTable,
				WindowSize: p.window,
				Overlap:    p.overlap,
			})
		}
	}
	return allChunks
}

func (ix *Indexer) embedAll(ctx context.Context, chunks []commonModels.Chunk) ([][]float32, error) {
	batchSize := ix.batchSize
	if batchSize <= 0 {
		batchSize = len(chunks)
	}
	vectors := make([][]float32, 0, len(chunks))

	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		texts := make([]string, 0, end-i)
		for _, c := range chunks[i:end] {
			texts = append(texts, c.Text)
		}

		batch, err := ix.embedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", i, end, commonModels.EmbeddingFailure(err))
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embedding batch %d-%d: got %d vectors for %d texts: %w",
				i, end, len(batch), len(texts), commonModels.ErrEmbeddingProvider)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (ix *Indexer) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := retry.WithMaxRetries(ix.maxRetries, retry.WithCappedDuration(maxRetryDelay, retry.NewExponential(ix.baseDelay)))
	attempt := 0
	return retry.DoValue(ctx, backoff, func(ctx context.Context) ([][]float32, error) {
		attempt++
		v, err := ix.embedder.BatchEmbedding(ctx, texts)
		if err != nil && embedding.IsRetryable(err) {
			metrics.IncrementEmbeddingRetries()
			ix.logger.FromContext(ctx).Warn("Retryable embedding failure", "attempt", attempt, "error", err)
			return nil, retry.RetryableError(err)
		}
		return v, err
	})
}
