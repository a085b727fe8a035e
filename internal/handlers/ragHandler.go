package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/akolanti/GroundedRAG/internal/adapter"
	"github.com/akolanti/GroundedRAG/internal/api"
	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

var (
	ragService rag.Service
	logRAG     *logger_i.Logger
)

// InitRAGHandler wires the synchronous endpoints to the engine.
func InitRAGHandler(service rag.Service) {
	ragService = service
	logRAG = logger_i.NewLogger("RetrievalHandler")
	if logRH == nil {
		logRH = logger_i.NewLogger("RequestHandler")
	}
}

// RetrieveHandler godoc
// @Summary      Retrieve evidence
// @Description  Runs rag_search_2pass for a question, or rag_get_page for a source page, and returns the chunks. No answer is generated. An empty result is status NO_HITS, not an error.
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      api.RetrievalRequest   true  "Retrieval request"
// @Success      200      {object}  api.RetrievalResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      502      {object}  api.ErrorResponse  "Embedding provider failure"
// @Failure      500      {object}  api.ErrorResponse  "Index corruption"
// @Router       /retrieve [post]
func RetrieveHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.RetrievalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(r.Context(), w, errors.Join(commonModels.ErrInvalidArgument, err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), config.WriteTimeout)
	defer cancel()

	res, err := ragService.Retrieve(ctx, adapter.ToRetrieveRequest(req))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToRetrievalResponse(res))
}

// ListSourcesHandler godoc
// @Summary      List indexed sources
// @Tags         Sources
// @Produce      json
// @Success      200  {array}   api.SourceResponse
// @Router       /sources [get]
func ListSourcesHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	sources, err := ragService.Sources(r.Context())
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSourceResponses(sources))
}

// SourceRecordHandler godoc
// @Summary      Persisted record of a source
// @Description  Returns every chunk stored for the source together with the embedding model and dimension.
// @Tags         Sources
// @Produce      json
// @Param        source_path  query     string  true  "Source path"
// @Success      200  {object}  commonModels.SourceRecord
// @Failure      404  {object}  api.ErrorResponse
// @Router       /sources/record [get]
func SourceRecordHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	record, err := ragService.SourceRecord(r.Context(), r.URL.Query().Get("source_path"))
	if err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, record)
}

// VerifySourceHandler godoc
// @Summary      Check index and store agree for a source
// @Description  On disagreement the source is dropped from the index and must be re-indexed.
// @Tags         Sources
// @Accept       json
// @Produce      json
// @Param        request  body      api.SourceRequest  true  "Source"
// @Success      200      {object}  map[string]string
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse  "Index corruption"
// @Router       /sources/verify [post]
func VerifySourceHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.SourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIError(r.Context(), w, errors.Join(commonModels.ErrInvalidArgument, err))
		return
	}
	if err := ragService.VerifySource(r.Context(), req.SourcePath); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, map[string]string{"status": string(commonModels.StatusOK), "source_path": req.SourcePath})
}

// DeleteSourceHandler godoc
// @Summary      Remove a source from the index
// @Tags         Sources
// @Param        source_path  query  string  true  "Source path"
// @Success      204
// @Failure      400  {object}  api.ErrorResponse
// @Router       /sources [delete]
func DeleteSourceHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	if err := ragService.RemoveSource(r.Context(), r.URL.Query().Get("source_path")); err != nil {
		writeAPIError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeAPIError(ctx context.Context, w http.ResponseWriter, err error) {
	code, _ := commonModels.ErrorCode(err)
	if code >= http.StatusInternalServerError {
		logRAG.FromContext(ctx).Error("Request failed", "code", code, "error", err)
	} else {
		logRAG.FromContext(ctx).Warn("Request rejected", "code", code, "error", err)
	}
	writeJsonResponse(w, code, api.ErrorResponse{Code: code, Message: err.Error()})
}
