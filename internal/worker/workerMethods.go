package worker

import (
	"context"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
	jobmodel "github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobTimeout)
	defer cancel()
	log := logger.FromContext(ctx).With("jobId", job.Id, "type", job.JobType)
	log.Debug("Processing job")

	saveJobState(ctx, job, jobmodel.JobStatusRunning)

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestInit
		job = ingestDocument(job, ctx, log)
	} else {
		job.CurrentStep = jobmodel.UserQueryInit
		job = processQuery(job, ctx, log)
	}

	job.EndTime = time.Now()
	final := jobmodel.JobStatusComplete
	if job.Status == jobmodel.JobStatusError {
		final = jobmodel.JobStatusError
	}
	saveJobState(ctx, job, final)

	elapsed := time.Since(start)
	metrics.CaptureJobMetrics(string(final), elapsed)
	metrics.CaptureWorkerJob(string(job.JobType), string(final), elapsed)
	if final == jobmodel.JobStatusError {
		log.Warn("Job failed", "code", job.Error.Code, "elapsed", elapsed)
	} else {
		log.Info("Job finished", "elapsed", elapsed)
	}
}

// removeWorker releases a slot already taken off currentWorkerCount; remaining is the new count.
func removeWorker(reason string, remaining int64) {
	workerWaitGroup.Done()
	metrics.DecrementActiveWorkerCount()
	logger.Info("Removed worker", "reason", reason, "workerCount", remaining)
}

func ingestDocument(job jobmodel.Job, ctx context.Context, log *logger_i.Logger) jobmodel.Job {
	job = _ragService.IngestDocument(ctx, job)
	log.Debug("Ingestion finished", "job Id:", job.Id, "step", job.CurrentStep, "chunks", job.JobPayload.ChunkCount)
	return job
}

func processQuery(job jobmodel.Job, ctx context.Context, log *logger_i.Logger) jobmodel.Job {
	if job.ChatId != "" && !_jobService.SessionStore.SessionExists(ctx, job.ChatId) {
		log.Warn("Session expired before the job ran, starting fresh", "session", job.ChatId)
		if err := _jobService.SessionStore.InitSession(ctx, job.ChatId); err != nil {
			log.Error("Failed to init session", "err", err)
		}
	}
	return _ragService.ProcessRequest(ctx, job)
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) {
	job.Status = jobStatus
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		logger.Error("Failed to update job state", "err", err)
	}
}
