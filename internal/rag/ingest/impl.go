package ingest

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

var (
	logger     *logger_i.Logger
	loggerOnce sync.Once
)

func extractLogger() *logger_i.Logger {
	loggerOnce.Do(func() {
		logger = logger_i.NewLogger("Document Ingestion")
	})
	return logger
}

// SourcePathFor is the stable key a document is indexed under.
func SourcePathFor(docName string, docPath string) string {
	if docName != "" {
		return docName
	}
	return filepath.Base(docPath)
}

// IndexFile extracts one document and indexes it. CSV files are always treated as tables.
func (ix *Indexer) IndexFile(ctx context.Context, sourcePath string, filePath string, isTableHint bool) ([]commonModels.Chunk, error) {
	docType := GetDocType(filePath)
	if docType == commonModels.ERR {
		return nil, errors.New("unsupported document type: " + filepath.Ext(filePath))
	}
	pages, err := ExtractPages(filePath, docType)
	if err != nil {
		return nil, err
	}
	return ix.IndexPages(ctx, sourcePath, pages, isTableHint || docType == commonModels.CSV)
}

// ProcessDocumentIngestion runs an ingest job to completion and records the outcome on the job.
func ProcessDocumentIngestion(ctx context.Context, job jobModel.Job, ix *Indexer) jobModel.Job {
	log := extractLogger().FromContext(ctx)

	docName := job.JobPayload.IngestFileName
	docPath := job.JobPayload.IngestURL
	sourcePath := job.JobPayload.SourcePath
	if sourcePath == "" {
		sourcePath = SourcePathFor(docName, docPath)
	}
	log.Debug("Processing document", "filename", docName, "path", docPath, "source", sourcePath)

	defer func() {
		if err := os.Remove(docPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Error("Error removing file", "error", err)
		}
	}()

	job.CurrentStep = jobModel.IngestProcessing
	docType := GetDocType(docPath)
	if docType == commonModels.ERR {
		log.Error("Unsupported document type", "path", docPath)
		return failJob(job, http.StatusBadRequest, "Unsupported document type", false)
	}
	pages, err := ExtractPages(docPath, docType)
	if err != nil {
		log.Error("Error extracting document", "error", err)
		return failJob(job, http.StatusUnprocessableEntity, "Error extracting document content", false)
	}

	job.CurrentStep = jobModel.IngestCommit
	chunks, err := ix.IndexPages(ctx, sourcePath, pages, job.JobPayload.IsTable || docType == commonModels.CSV)
	if errors.Is(err, ErrNoContent) {
		return failJob(job, http.StatusUnprocessableEntity, "No extractable text found", false)
	}
	if err != nil {
		log.Error("Error indexing document", "error", err)
		code, retry := commonModels.ErrorCode(err)
		message := "Error indexing document"
		if errors.Is(err, commonModels.ErrEmbeddingProvider) {
			message = "Embedding provider failed"
		} else if errors.Is(err, commonModels.ErrIndexCorruption) {
			message = err.Error()
		}
		return failJob(job, code, message, retry)
	}

	job.JobPayload.SourcePath = sourcePath
	job.JobPayload.ChunkCount = len(chunks)
	job.Status = jobModel.JobStatusComplete
	job.CurrentStep = jobModel.Complete
	return job
}

func failJob(job jobModel.Job, code int, message string, retry bool) jobModel.Job {
	job.Status = jobModel.JobStatusError
	job.CurrentStep = jobModel.Error
	job.Error = jobModel.JobError{Code: code, Message: message, Retry: retry}
	return job
}
