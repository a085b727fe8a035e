package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"github.com/akolanti/GroundedRAG/internal/adapter"
	"github.com/akolanti/GroundedRAG/internal/adapter/utils"
	"github.com/akolanti/GroundedRAG/internal/api"
	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func traceOf(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.With(config.TRACE_ID_KEY, traceOf(ctx)).Warn("context error", "err", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, config.UploadDirectory)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// newJobFromChat issues a session id when the request has none. An unknown id is kept and started fresh.
func newJobFromChat(request *http.Request, requestData api.ChatRequest) newJobData {
	chatID := requestData.ChatID
	isNewChat := false
	if chatID == "" {
		chatID = utils.GetNewUUID()
		logRH.Debug(" New Chat request : ", "chatID:", chatID)
		isNewChat = true
	} else if !IsKnownChat(request.Context(), chatID) {
		logRH.Debug(" Unknown or expired chat, starting fresh : ", "chatID:", chatID)
		isNewChat = true
	}
	mode := requestData.Mode
	if mode == "" {
		mode = jobModel.ModeSearch2Pass
	}

	return newJobData{
		chatId:     chatID,
		message:    requestData.Message,
		mode:       mode,
		sourcePath: requestData.SourcePath,
		page:       requestData.Page,
		isNewChat:  isNewChat,
		traceId:    traceOf(request.Context()),
	}
}

func processNewJobData(request *http.Request, w http.ResponseWriter, newJob newJobData) {
	newJob.id = utils.GetNewUUID()
	if newJob.traceId == "" {
		newJob.traceId = traceOf(request.Context())
	}
	CreateNewJob(newJob)
	res := adapter.ToInitJobResponse(newJob.id, newJob.chatId)
	writeJsonResponse(w, http.StatusAccepted, res)
}
