package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/GroundedRAG/internal/api"
	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
)

type stubService struct {
	rag.Service
	retrieveFunc func(req rag.RetrieveRequest) (retrieval.Result, error)
	sources      []chunkStore.SourceInfo
	verifyErr    error
	removed      []string
}

func (s *stubService) Retrieve(_ context.Context, req rag.RetrieveRequest) (retrieval.Result, error) {
	return s.retrieveFunc(req)
}

func (s *stubService) Sources(context.Context) ([]chunkStore.SourceInfo, error) {
	return s.sources, nil
}

func (s *stubService) SourceRecord(_ context.Context, source string) (commonModels.SourceRecord, error) {
	if source != "trial.pdf" {
		return commonModels.SourceRecord{}, fmt.Errorf("source %q: %w", source, commonModels.ErrNotFound)
	}
	return commonModels.SourceRecord{SourcePath: source}, nil
}

func (s *stubService) VerifySource(context.Context, string) error {
	return s.verifyErr
}

func (s *stubService) RemoveSource(_ context.Context, source string) error {
	if source == "" {
		return fmt.Errorf("source_path is required: %w", commonModels.ErrInvalidArgument)
	}
	s.removed = append(s.removed, source)
	return nil
}

func TestRetrieveHandler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     retrieval.Result
		err        error
		wantCode   int
		wantStatus string
		wantHits   int
	}{
		{
			name: "Hits",
			body: `{"question_or_message":"median survival","k":4}`,
			result: retrieval.Result{Status: commonModels.StatusOK, Hits: []commonModels.Hit{
				{Chunk: commonModels.Chunk{ChunkID: "c1", SourcePath: "trial.pdf", Page: commonModels.PageOf(2), Text: "14.2 months"}, Score: 0.8},
			}},
			wantCode:   http.StatusOK,
			wantStatus: "OK",
			wantHits:   1,
		},
		{
			name:       "No hits is not an error",
			body:       `{"question_or_message":"nothing"}`,
			result:     retrieval.Result{Status: commonModels.StatusNoHits},
			wantCode:   http.StatusOK,
			wantStatus: "NO_HITS",
			wantHits:   0,
		},
		{
			name:     "Embedding provider failure",
			body:     `{"question_or_message":"x"}`,
			err:      fmt.Errorf("embed: %w", commonModels.ErrEmbeddingProvider),
			wantCode: http.StatusBadGateway,
		},
		{
			name:     "Index corruption",
			body:     `{"question_or_message":"x"}`,
			err:      commonModels.NewCorruptionError("trial.pdf", "missing chunk"),
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "Malformed body",
			body:     `{`,
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			InitRAGHandler(&stubService{retrieveFunc: func(req rag.RetrieveRequest) (retrieval.Result, error) {
				return tt.result, tt.err
			}})

			rr := httptest.NewRecorder()
			RetrieveHandler(rr, httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(tt.body)))

			if rr.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rr.Code, rr.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				var e api.ErrorResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Code != tt.wantCode {
					t.Errorf("expected error body with code %d, got %s", tt.wantCode, rr.Body.String())
				}
				return
			}
			var resp api.RetrievalResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("bad body: %v", err)
			}
			if resp.Status != tt.wantStatus || len(resp.Hits) != tt.wantHits {
				t.Errorf("expected %s with %d hits, got %s with %d", tt.wantStatus, tt.wantHits, resp.Status, len(resp.Hits))
			}
			if resp.Hits == nil {
				t.Errorf("hits should serialise as an empty list")
			}
		})
	}
}

func TestRetrieveHandler_PassesRequestThrough(t *testing.T) {
	var got rag.RetrieveRequest
	InitRAGHandler(&stubService{retrieveFunc: func(req rag.RetrieveRequest) (retrieval.Result, error) {
		got = req
		return retrieval.Result{Status: commonModels.StatusNoHits}, nil
	}})

	body := `{"mode":"rag_get_page","source_path":"trial.pdf","page":3}`
	RetrieveHandler(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/retrieve", strings.NewReader(body)))

	if got.Mode != "rag_get_page" || got.SourcePath != "trial.pdf" || got.Page == nil || *got.Page != 3 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestSourceHandlers(t *testing.T) {
	svc := &stubService{sources: []chunkStore.SourceInfo{{SourcePath: "trial.pdf", ChunkCount: 3, IndexedAt: time.Now()}}}
	InitRAGHandler(svc)

	rr := httptest.NewRecorder()
	ListSourcesHandler(rr, httptest.NewRequest(http.MethodGet, "/sources", nil))
	var sources []api.SourceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &sources); err != nil || len(sources) != 1 || sources[0].ChunkCount != 3 {
		t.Errorf("unexpected sources body %s", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	SourceRecordHandler(rr, httptest.NewRequest(http.MethodGet, "/sources/record?source_path=other.pdf", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	SourceRecordHandler(rr, httptest.NewRequest(http.MethodGet, "/sources/record?source_path=trial.pdf", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}

	svc.verifyErr = commonModels.NewCorruptionError("trial.pdf", "index has 2 chunks, store has 3")
	rr = httptest.NewRecorder()
	VerifySourceHandler(rr, httptest.NewRequest(http.MethodPost, "/sources/verify", strings.NewReader(`{"source_path":"trial.pdf"}`)))
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 for corruption, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	DeleteSourceHandler(rr, httptest.NewRequest(http.MethodDelete, "/sources?source_path=trial.pdf", nil))
	if rr.Code != http.StatusNoContent || len(svc.removed) != 1 {
		t.Errorf("expected 204 and one removal, got %d %v", rr.Code, svc.removed)
	}

	rr = httptest.NewRecorder()
	DeleteSourceHandler(rr, httptest.NewRequest(http.MethodDelete, "/sources", nil))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without source_path, got %d", rr.Code)
	}
}
