package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "http_requests_total",
	Help: "Total number of requests labelled by path and status",
}, []string{"path", "status"})

var countJobsInQueue = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "count_jobs_in_queue",
	Help: "Number of jobs in queue",
})

var dispatcherSignalCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "dispatcher_signal_count",
	Help: "How often the dispatcher has signaled to start worker",
})

var activeWorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "active_worker_count",
	Help: "Number of active workers",
})

var workerJobs = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "worker_job_duration_seconds",
	Help:    "Jobs run by the worker pool labelled by job type and final status",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30, 120},
}, []string{"type", "status"})

var retrievalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "rag_retrieval_total",
	Help: "Retrievals labelled by mode and outcome (OK, NO_HITS, error)",
}, []string{"mode", "status"})

var retrievalHits = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "rag_retrieval_hits",
	Help:    "Number of evidence chunks returned per retrieval",
	Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 16, 32},
})

var indexedChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rag_indexed_chunks_total",
	Help: "Chunks written by the indexer",
})

var indexSize = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "rag_index_size",
	Help: "Vectors currently held by the local index",
})

var embeddingRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "rag_embedding_retries_total",
	Help: "Embedding batches retried during indexing",
})

type HttpStatusRecorder struct {
	http.ResponseWriter
	Status int
}

func (r *HttpStatusRecorder) WriteHeader(code int) {
	r.Status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses (MCP) working through the recorder.
func (r *HttpStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func IncrementJobsInQueue() {
	countJobsInQueue.Inc()
}

func DecrementJobsInQueue() {
	countJobsInQueue.Dec()
}

func StartDispatcherSignalCount() {
	dispatcherSignalCount.Inc()
}

func IncrementActiveWorkerCount() {
	activeWorkerCount.Inc()
}
func DecrementActiveWorkerCount() {
	activeWorkerCount.Dec()
}

func CaptureWorkerJob(jobType string, status string, timeElapsed time.Duration) {
	workerJobs.WithLabelValues(jobType, status).Observe(timeElapsed.Seconds())
}

func CaptureRetrieval(mode string, status string, hits int) {
	retrievalTotal.WithLabelValues(mode, status).Inc()
	retrievalHits.Observe(float64(hits))
}

func AddIndexedChunks(n int) {
	indexedChunksTotal.Add(float64(n))
}

func SetIndexSize(n int) {
	indexSize.Set(float64(n))
}

func IncrementEmbeddingRetries() {
	embeddingRetries.Inc()
}

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "process_request_duration_seconds",
	Help:    "Total time spent processing a job.",
	Buckets: []float64{.1, .5, 1, 2, 5, 10, 30},
}, []string{"status"})

var dependencyLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "dependency_latency_seconds",
	Help:    "Latency of embedding, index, store and llm calls.",
	Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5, 10},
}, []string{"service"})

func CaptureExecutionMetrics(label string, timeElapsed time.Duration) {
	dependencyLatency.WithLabelValues(label).Observe(timeElapsed.Seconds())
}

func CaptureJobMetrics(label string, timeElapsed time.Duration) {
	requestDuration.WithLabelValues(label).Observe(timeElapsed.Seconds())
}
