package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	MemoryCall       InternalStatus = "Memory"
	RAGCall          InternalStatus = "RAG"
	PageCall         InternalStatus = "Page"
	LLMCall          InternalStatus = "LLM"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	RedisCall        InternalStatus = "Redis"

	IngestInit       InternalStatus = "IngestInit"
	IngestProcessing InternalStatus = "IngestProcessing"
	IngestCommit     InternalStatus = "IngestCommit"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
)

// chat modes
const (
	ModeSearch2Pass = "rag_search_2pass"
	ModeGetPage     = "get_page"
	ToolGetPage     = "rag_get_page"
)

type Job struct {
	Id          string         `json:"id"`
	ChatId      string         `json:"chat_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type JobPayload struct {
	Mode            string   `json:"mode,omitempty"`
	Question        string   `json:"question,omitempty"`
	SourcePath      string   `json:"source_path,omitempty"`
	Page            *int     `json:"page,omitempty"`
	Answer          string   `json:"answer,omitempty"`
	Sources         []string `json:"sources,omitempty"`
	RetrievalStatus string   `json:"retrieval_status,omitempty"`

	IngestFileName string `json:"ingest_file_name,omitempty"`
	IngestURL      string `json:"ingest_url,omitempty"`
	IsTable        bool   `json:"is_table,omitempty"`
	ChunkCount     int    `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}

// SessionStore issues and validates chat session ids.
type SessionStore interface {
	SessionExists(ctx context.Context, id string) bool
	InitSession(ctx context.Context, id string) error
}
