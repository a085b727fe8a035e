// Package retrieval answers questions from the local index only.
//
// TwoPass runs a precision pass on the verbatim question and a recall pass on
// an expanded query, then merges the two. PageRetriever returns a page's
// chunks exactly as indexed.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/corpus"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type Result struct {
	Hits          []commonModels.Hit           `json:"hits"`
	Status        commonModels.RetrievalStatus `json:"status"`
	ExpandedQuery string                       `json:"-"`
}

// Err is ErrNoHits for an empty result and nil otherwise.
func (r Result) Err() error {
	if r.Status == commonModels.StatusNoHits {
		return commonModels.ErrNoHits
	}
	return nil
}

func (r Result) Chunks() []commonModels.Chunk {
	out := make([]commonModels.Chunk, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Chunk
	}
	return out
}

type TwoPass struct {
	reader           corpus.Reader
	embedder         embedding.Embedder
	topK             int
	returnEvidence   int
	mode             string
	terms            []string
	maxEvidenceTerms int
	logger           *logger_i.Logger
}

func NewTwoPass(reader corpus.Reader, embedder embedding.Embedder, settings config.RetrievalSettings) *TwoPass {
	mode := strings.ToLower(settings.ExpansionMode)
	if mode != ExpansionEvidence {
		mode = ExpansionStatic
	}
	return &TwoPass{
		reader:           reader,
		embedder:         embedder,
		topK:             settings.TopK,
		returnEvidence:   settings.ReturnEvidence,
		mode:             mode,
		terms:            settings.ExpansionTerms,
		maxEvidenceTerms: settings.MaxEvidenceTerms,
		logger:           logger_i.NewLogger("TwoPassRetriever"),
	}
}

// Search returns at most min(k, RETURN_EVIDENCE) hits. k <= 0 uses the configured top k.
func (tp *TwoPass) Search(ctx context.Context, question string, k int, hint *memory.Snapshot) (Result, error) {
	log := tp.logger.FromContext(ctx)
	if strings.TrimSpace(question) == "" {
		return Result{}, fmt.Errorf("question is empty: %w", commonModels.ErrInvalidArgument)
	}
	if k <= 0 {
		k = tp.topK
	}
	start := time.Now()

	var precision, recall []commonModels.Hit
	var expanded string
	var err error
	if tp.mode == ExpansionEvidence {
		precision, recall, expanded, err = tp.sequential(ctx, question, k, hint)
	} else {
		precision, recall, expanded, err = tp.parallel(ctx, question, k, hint)
	}
	if err != nil {
		log.Error("Retrieval failed", "error", err)
		return Result{}, err
	}

	hits := merge(precision, recall)
	if limit := min(k, tp.returnEvidence); len(hits) > limit {
		hits = hits[:limit]
	}

	res := Result{Hits: hits, Status: commonModels.StatusOK, ExpandedQuery: expanded}
	if len(hits) == 0 {
		res.Status = commonModels.StatusNoHits
	}
	metrics.CaptureExecutionMetrics("retrieval_2pass", time.Since(start))
	metrics.CaptureRetrieval("rag_search_2pass", string(res.Status), len(hits))
	log.Debug("Two-pass retrieval done", "precision", len(precision), "recall", len(recall), "returned", len(hits), "mode", tp.mode)
	return res, nil
}

func (tp *TwoPass) parallel(ctx context.Context, question string, k int, hint *memory.Snapshot) ([]commonModels.Hit, []commonModels.Hit, string, error) {
	expanded := tp.expandQuery(question, hint, nil)
	var precision, recall []commonModels.Hit

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		precision, err = tp.pass(gctx, question, k, commonModels.PassPrecision)
		return err
	})
	g.Go(func() error {
		var err error
		recall, err = tp.pass(gctx, expanded, k, commonModels.PassRecall)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, "", err
	}
	return precision, recall, expanded, nil
}

// sequential feeds the precision hits into the recall query.
func (tp *TwoPass) sequential(ctx context.Context, question string, k int, hint *memory.Snapshot) ([]commonModels.Hit, []commonModels.Hit, string, error) {
	precision, err := tp.pass(ctx, question, k, commonModels.PassPrecision)
	if err != nil {
		return nil, nil, "", err
	}
	expanded := tp.expandQuery(question, hint, precision)
	recall, err := tp.pass(ctx, expanded, k, commonModels.PassRecall)
	if err != nil {
		return nil, nil, "", err
	}
	return precision, recall, expanded, nil
}

func (tp *TwoPass) pass(ctx context.Context, query string, k int, origin commonModels.PassOrigin) ([]commonModels.Hit, error) {
	vec, err := tp.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", origin, commonModels.EmbeddingFailure(err))
	}
	hits, err := tp.reader.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("%s pass: %w", origin, err)
	}
	for i := range hits {
		hits[i].PassOrigin = origin
	}
	return hits, nil
}

// merge dedups by chunk id keeping the higher score. A chunk found by both passes is attributed to precision.
func merge(precision, recall []commonModels.Hit) []commonModels.Hit {
	byID := make(map[string]int, len(precision)+len(recall))
	merged := make([]commonModels.Hit, 0, len(precision)+len(recall))

	for _, list := range [][]commonModels.Hit{precision, recall} {
		for _, h := range list {
			i, ok := byID[h.Chunk.ChunkID]
			if !ok {
				byID[h.Chunk.ChunkID] = len(merged)
				merged = append(merged, h)
				continue
			}
			if h.Score > merged[i].Score {
				merged[i].Score = h.Score
			}
			if h.PassOrigin == commonModels.PassPrecision {
				merged[i].PassOrigin = commonModels.PassPrecision
			}
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PassOrigin != b.PassOrigin {
			return a.PassOrigin == commonModels.PassPrecision
		}
		return a.Seq < b.Seq
	})
	return merged
}
