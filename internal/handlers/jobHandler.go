package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/GroundedRAG/internal/api"
	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/job"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	log := logJH.With(config.TRACE_ID_KEY, newJob.traceId, "job id", newJob.id)
	log.Info("To create new job")
	if newJob.isNewChat {
		log.Info("Create new chat")
		handlerInstance.initNewChat(newJob.chatId, newJob.traceId)
	}
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// ValidateChatRequest checks the request shape. Search needs a message, get_page needs a source.
func ValidateChatRequest(chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug(" Validating chat request ", "chatId :", chatReq.ChatID, "mode", chatReq.Mode)
	switch chatReq.Mode {
	case "", jobModel.ModeSearch2Pass:
		return chatReq.Message != ""
	case jobModel.ModeGetPage:
		return chatReq.SourcePath != "" && (chatReq.Page == nil || *chatReq.Page >= 1)
	default:
		return false
	}
}

// IsKnownChat reports whether the session still exists. Expired sessions keep their id and start empty.
func IsKnownChat(ctx context.Context, chatId string) bool {
	if handlerInstance == nil || handlerInstance.service.SessionStore == nil {
		return false
	}
	return handlerInstance.service.SessionStore.SessionExists(ctx, chatId)
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.IngestFileName = newJob.documentName
		_job.JobPayload.IngestURL = newJob.documentSource
		_job.JobPayload.IsTable = newJob.isTable

	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.JobPayload.Question = newJob.message
		_job.JobPayload.Mode = newJob.mode
		_job.JobPayload.SourcePath = newJob.sourcePath
		_job.JobPayload.Page = newJob.page
		_job.CurrentStep = jobModel.UserQueryInit
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Failed to save queued job", "err", err)
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//we will start a new worker every 10 requests - can also be configured
	// or
	//for performance - a new worker is added  for a document ingestion type job
	//ingestion involves batch embedding which might take time - external system call
	//worker will be removed if it has idle time - so it should be ok

	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", "requests", accurateCount)
		h.service.DispatcherChannel <- true
	}
}

func (h *JobHandler) initNewChat(chatId string, traceId string) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	err := h.service.SessionStore.InitSession(ctxC, chatId)
	if err != nil {
		logJH.Error("Error initiating new chat", "chatId", chatId, "err", err)
		return
	}
}
