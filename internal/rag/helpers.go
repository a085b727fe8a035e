package rag

import (
	"context"
	"strings"
	"time"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

const (
	queryTimeout      = 30 * time.Second
	pageCharsPerChunk = 1400
	defaultPageAsk    = "Summarise what this page says."
)

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	job.Status = jobModel.JobStatusComplete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(ctx context.Context, job jobModel.Job, err error, message string) jobModel.Job {
	s.logger.FromContext(ctx).Error(message, "error", err, "step", job.CurrentStep)

	code, retry := commonModels.ErrorCode(err)
	job.Error = jobModel.JobError{
		Code:    code,
		Message: err.Error(),
		Retry:   retry,
	}
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	return job
}

// executeMemoryHintStep never fails the job: without memory the question is answered on its own.
func (s *service) executeMemoryHintStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) memory.Snapshot {
	if job.ChatId == "" || s.memory == nil {
		return memory.Snapshot{}
	}
	*job = logOutput(*job, jobModel.MemoryCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("memory_hint", time.Since(start)) }()

	hint, err := s.memory.Hint(ctx, job.ChatId)
	if err != nil {
		log.Warn("Session memory unavailable", "session", job.ChatId, "error", err)
		return memory.Snapshot{SessionID: job.ChatId}
	}
	return hint
}

func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, hint memory.Snapshot) (llm.GenerateRequest, error) {
	*job = logOutput(*job, jobModel.RAGCall, log)

	res, err := s.searcher.Search(ctx, job.JobPayload.Question, 0, &hint)
	if err != nil {
		return llm.GenerateRequest{}, err
	}
	job.JobPayload.RetrievalStatus = string(res.Status)

	chunks := res.Chunks()
	job.JobPayload.Sources = retrieval.Citations(chunks)
	return llm.GenerateRequest{
		Question:         job.JobPayload.Question,
		Excerpts:         chunks,
		NoHits:           res.Status == commonModels.StatusNoHits,
		MaxTotalChars:    s.settings.MaxTotalChars,
		MaxCharsPerChunk: s.settings.MaxCharsPerChunk,
	}, nil
}

func (s *service) executePageStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job) (llm.GenerateRequest, error) {
	*job = logOutput(*job, jobModel.PageCall, log)

	chunks, err := s.pages.GetPage(ctx, job.JobPayload.SourcePath, job.JobPayload.Page)
	if err != nil {
		return llm.GenerateRequest{}, err
	}
	status := commonModels.StatusOK
	if len(chunks) == 0 {
		status = commonModels.StatusNoHits
	}
	job.JobPayload.RetrievalStatus = string(status)
	job.JobPayload.Sources = retrieval.Citations(chunks)

	question := job.JobPayload.Question
	if strings.TrimSpace(question) == "" {
		question = defaultPageAsk
	}
	return llm.GenerateRequest{
		Question:         question,
		Excerpts:         chunks,
		NoHits:           len(chunks) == 0,
		MaxTotalChars:    s.settings.MaxPageChars,
		MaxCharsPerChunk: pageCharsPerChunk,
	}, nil
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, req llm.GenerateRequest) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, req)
}

// executeMemoryUpdateStep stores the turn with source paths only. The answer synopsis is checked
// against the excerpts so no evidence text is remembered.
func (s *service) executeMemoryUpdateStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, req llm.GenerateRequest, answer string) {
	if job.ChatId == "" || s.memory == nil {
		return
	}
	*job = logOutput(*job, jobModel.MemoryCall, log)

	question := job.JobPayload.Question
	if strings.TrimSpace(question) == "" {
		question = "page " + commonModels.PageLabel(job.JobPayload.Page) + " of " + job.JobPayload.SourcePath
	}
	excerpts := make([]string, len(req.Excerpts))
	for i, c := range req.Excerpts {
		excerpts[i] = c.Text
	}
	summary := memory.SummarizeTurn(answer, excerpts, job.JobPayload.Sources)
	if _, err := s.memory.Update(ctx, job.ChatId, question, summary, retrieval.SourcePaths(req.Excerpts)); err != nil {
		log.Error("Failed to update session memory", "session", job.ChatId, "error", err)
	}
}
