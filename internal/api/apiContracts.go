package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	ChatId    string            `json:"chat_id" example:"chat_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question        string   `json:"question,omitempty"`
	Answer          string   `json:"answer"`
	Sources         []string `json:"sources"`
	RetrievalStatus string   `json:"retrieval_status,omitempty" example:"OK"`
}

type IngestResponse struct {
	SourcePath string `json:"source_path" example:"trial.pdf"`
	ChunkCount int    `json:"chunk_count" example:"42"`
}

type Result struct {
	Status              string          `json:"status"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	Ingest              *IngestResponse `json:"ingest,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	ChatId    string `json:"chat_id,omitempty"`
	StatusURL string `json:"status_url"`
}

type RetrievalHit struct {
	ChunkID    string  `json:"chunk_id"`
	SourcePath string  `json:"source_path" example:"trial.pdf"`
	Page       *int    `json:"page" example:"3"`
	Text       string  `json:"text"`
	Score      float64 `json:"score" example:"0.82"`
}

type RetrievalResponse struct {
	Hits   []RetrievalHit `json:"hits"`
	Status string         `json:"status" example:"OK"`
}

type SourceResponse struct {
	SourcePath     string    `json:"source_path"`
	ChunkCount     int       `json:"chunk_count"`
	IndexedAt      time.Time `json:"indexed_at"`
	EmbeddingModel string    `json:"embedding_model"`
}

type ErrorResponse struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message"`
}

// requests---------------------

type ChatRequest struct {
	Message    string `json:"message" example:"What was the response rate in the treatment arm?"`
	ChatID     string `json:"chatID,omitempty"`
	Mode       string `json:"mode,omitempty" example:"rag_search_2pass" enums:"rag_search_2pass,get_page"`
	SourcePath string `json:"source_path,omitempty" example:"trial.pdf"`
	Page       *int   `json:"page,omitempty" example:"3"`
}

type RetrievalRequest struct {
	Mode       string `json:"mode,omitempty" example:"rag_search_2pass" enums:"rag_search_2pass,rag_get_page,get_page"`
	Question   string `json:"question_or_message,omitempty"`
	SourcePath string `json:"source_path,omitempty"`
	Page       *int   `json:"page,omitempty"`
	K          int    `json:"k,omitempty" example:"8"`
	SessionID  string `json:"session_id,omitempty"`
}

type JobStatusRequest struct {
	JobId string `json:"job_id" validate:"required"`
}

type IngestDocumentRequest struct {
	DocumentName string `json:"document_name" validate:"required"`
	IsTable      bool   `json:"is_table"`
}

type SourceRequest struct {
	SourcePath string `json:"source_path" validate:"required"`
}
