package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/ingest"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract.
  - The worker, the handlers and the MCP tools only see this.

2. service (Private Struct):
  - Holds the state: retrievers, session memory, indexer, llm.
  - Lowercase so nobody outside reaches the corpus or the llm directly.

3. Dependencies:
  - Every collaborator is an interface, so tests swap in function-field mocks
    without touching the worker or the handlers.
*/

// Service is everything the outer surfaces can ask of the engine.
type Service interface {
	ProcessRequest(ctx context.Context, job jobModel.Job) jobModel.Job
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Retrieve(ctx context.Context, req RetrieveRequest) (retrieval.Result, error)
	Sources(ctx context.Context) ([]chunkStore.SourceInfo, error)
	SourceRecord(ctx context.Context, source string) (commonModels.SourceRecord, error)
	VerifySource(ctx context.Context, source string) error
	RemoveSource(ctx context.Context, source string) error
}

type Searcher interface {
	Search(ctx context.Context, question string, k int, hint *memory.Snapshot) (retrieval.Result, error)
}

type PageGetter interface {
	GetPage(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error)
}

type SessionMemory interface {
	Hint(ctx context.Context, sessionID string) (memory.Snapshot, error)
	Update(ctx context.Context, sessionID string, question string, answerSummary string, usedSources []string) (memory.Snapshot, error)
}

// Catalog is the maintenance view of the corpus.
type Catalog interface {
	Sources(ctx context.Context) ([]chunkStore.SourceInfo, error)
	Record(ctx context.Context, source string) (commonModels.SourceRecord, error)
	Verify(ctx context.Context, source string) error
	RemoveSource(ctx context.Context, source string) error
}

// RetrieveRequest is the synchronous retrieval call shared by POST /retrieve and the MCP tools.
type RetrieveRequest struct {
	Mode       string
	Question   string
	SourcePath string
	Page       *int
	K          int
	SessionID  string
}

type Dependencies struct {
	Searcher Searcher
	Pages    PageGetter
	Memory   SessionMemory
	Catalog  Catalog
	Indexer  *ingest.Indexer
	LLM      llm.Provider
	Settings config.RetrievalSettings
}

type service struct {
	searcher    Searcher
	pages       PageGetter
	memory      SessionMemory
	catalog     Catalog
	indexer     *ingest.Indexer
	llmProvider llm.Provider
	settings    config.RetrievalSettings
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(deps Dependencies) Service {
	return &service{
		searcher:    deps.Searcher,
		pages:       deps.Pages,
		memory:      deps.Memory,
		catalog:     deps.Catalog,
		indexer:     deps.Indexer,
		llmProvider: deps.LLM,
		settings:    deps.Settings,
		logger:      logger_i.NewLogger("RAG Service"),
	}
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job) jobModel.Job {
	inMethodLogger := s.logger.FromContext(ctx).With("JobId", jobt.Id)

	processContext, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	hint := s.executeMemoryHintStep(processContext, inMethodLogger, &jobt)

	var req llm.GenerateRequest
	var err error
	switch jobt.JobPayload.Mode {
	case "", jobModel.ModeSearch2Pass:
		req, err = s.executeRetrievalStep(processContext, inMethodLogger, &jobt, hint)
	case jobModel.ModeGetPage:
		req, err = s.executePageStep(processContext, inMethodLogger, &jobt)
	default:
		err = fmt.Errorf("unknown mode %q: %w", jobt.JobPayload.Mode, commonModels.ErrInvalidArgument)
	}
	if err != nil {
		return s.jobError(ctx, jobt, err, "RETRIEVAL_FAILURE")
	}
	req.Hint = hint

	var answer string
	switch {
	case !req.NoHits:
		answer, err = s.executeLLMStep(processContext, inMethodLogger, &jobt, req)
		if err != nil {
			return s.jobError(ctx, jobt, err, "LLM_GENERATION_FAILURE")
		}
	case jobt.JobPayload.Mode == jobModel.ModeGetPage:
		answer = llm.PageNotFoundAnswer
	default:
		answer = llm.NoHitsAnswer
	}

	s.executeMemoryUpdateStep(processContext, inMethodLogger, &jobt, req, answer)
	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	j := ingest.ProcessDocumentIngestion(ctx, job, s.indexer)
	if j.Status == jobModel.JobStatusError {
		s.logger.FromContext(ctx).Error("INGESTION_FAILURE", "job", j.Id, "code", j.Error.Code, "message", j.Error.Message)
	}
	return j
}

// Retrieve runs either tool without the reasoning layer. Page results carry no score.
func (s *service) Retrieve(ctx context.Context, req RetrieveRequest) (retrieval.Result, error) {
	switch req.Mode {
	case "", jobModel.ModeSearch2Pass:
		var hint *memory.Snapshot
		if req.SessionID != "" && s.memory != nil {
			if snap, err := s.memory.Hint(ctx, req.SessionID); err == nil {
				hint = &snap
			}
		}
		return s.searcher.Search(ctx, req.Question, req.K, hint)

	case jobModel.ModeGetPage, jobModel.ToolGetPage:
		chunks, err := s.pages.GetPage(ctx, req.SourcePath, req.Page)
		if err != nil {
			return retrieval.Result{}, err
		}
		res := retrieval.Result{Status: commonModels.StatusOK, Hits: make([]commonModels.Hit, len(chunks))}
		for i, c := range chunks {
			res.Hits[i] = commonModels.Hit{Chunk: c}
		}
		if len(chunks) == 0 {
			res.Status = commonModels.StatusNoHits
		}
		return res, nil

	default:
		return retrieval.Result{}, fmt.Errorf("unknown mode %q: %w", req.Mode, commonModels.ErrInvalidArgument)
	}
}

func (s *service) Sources(ctx context.Context) ([]chunkStore.SourceInfo, error) {
	return s.catalog.Sources(ctx)
}

func (s *service) SourceRecord(ctx context.Context, source string) (commonModels.SourceRecord, error) {
	if strings.TrimSpace(source) == "" {
		return commonModels.SourceRecord{}, fmt.Errorf("source_path is required: %w", commonModels.ErrInvalidArgument)
	}
	return s.catalog.Record(ctx, source)
}

func (s *service) VerifySource(ctx context.Context, source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("source_path is required: %w", commonModels.ErrInvalidArgument)
	}
	return s.catalog.Verify(ctx, source)
}

func (s *service) RemoveSource(ctx context.Context, source string) error {
	if strings.TrimSpace(source) == "" {
		return fmt.Errorf("source_path is required: %w", commonModels.ErrInvalidArgument)
	}
	return s.catalog.RemoveSource(ctx, source)
}
