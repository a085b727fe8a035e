package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/handlers"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var (
	settings config.ServerSettings
	mu       sync.RWMutex
)

// Init sets the access key and rate limiting used by every wrapped handler.
func Init(s config.ServerSettings) {
	mu.Lock()
	defer mu.Unlock()
	settings = s
}

var GetHandler = Wrap(handlers.GetHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)

var RetrieveHandler = Wrap(handlers.RetrieveHandler)
var ListSourcesHandler = Wrap(handlers.ListSourcesHandler)
var SourceRecordHandler = Wrap(handlers.SourceRecordHandler)
var VerifySourceHandler = Wrap(handlers.VerifySourceHandler)
var DeleteSourceHandler = Wrap(handlers.DeleteSourceHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if !handleBadRequest(re) {
			metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc()
			return
		}
		next(rec, re.req)

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// WrapHandler guards a plain http.Handler, such as the MCP endpoint, with the same checks.
func WrapHandler(next http.Handler) http.Handler {
	return Wrap(next.ServeHTTP)
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	mu.RLock()
	defer mu.RUnlock()

	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", pathOf(re.req))
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	return rateLimiter(re)
}

func pathOf(r *http.Request) string {
	if r == nil || r.URL == nil {
		return ""
	}
	return r.URL.Path
}

func writeRejection(w http.ResponseWriter, code int, message string) {
	handlers.WriteErrorResponse(w, code, "", message)
}
