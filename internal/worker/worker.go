package worker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/job"
	"github.com/akolanti/GroundedRAG/internal/metrics"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// The pool grows by one worker per dispatcher signal up to MaxWorkerCount and
// shrinks back to minWorkerCount as workers sit idle. Ingest and chat jobs share it.
var (
	_jobService        *job.Service
	_ragService        rag.Service
	stopWorkerChannel  chan bool
	workerWaitGroup    *sync.WaitGroup
	dispatcherChannel  chan bool
	currentWorkerCount int64
	minWorkerCount     = config.MinWorkerCount
	idleTimeout        = config.IdleWorkerTimeout
	logger             *logger_i.Logger
)

func InitServices(jobService *job.Service, ragService rag.Service) {
	_jobService = jobService
	_ragService = ragService
	dispatcherChannel = jobService.DispatcherChannel
}

func InitWorkerPool(stopWorkerChan chan bool, waitGroup *sync.WaitGroup) {
	stopWorkerChannel = stopWorkerChan
	workerWaitGroup = waitGroup
	logger = logger_i.NewLogger("WorkerPool")
	logger.Info("Initializing worker pool", "min", atomic.LoadInt64(&minWorkerCount), "max", config.MaxWorkerCount)
	go dispatcher()
}

func dispatcher() {
	createWorker()
	logger.Info("Dispatcher started")
	for range dispatcherChannel {
		if n := atomic.LoadInt64(&currentWorkerCount); n < config.MaxWorkerCount {
			logger.Debug("Growing pool", "workerCount", n)
			createWorker()
		}
	}
}

func createWorker() {
	workerWaitGroup.Add(1)
	n := atomic.AddInt64(&currentWorkerCount, 1)
	metrics.IncrementActiveWorkerCount()
	go worker()
	logger.Info("Created new worker", "workerCount", n)
}

func worker() {
	for {
		select {
		case currentJob := <-_jobService.JobChannel:
			executeJob(currentJob)
			metrics.DecrementJobsInQueue()

		case <-stopWorkerChannel:
			removeWorker("stop signal", atomic.AddInt64(&currentWorkerCount, -1))
			return

		case <-time.After(idleTimeout):
			if n, ok := retireIdle(); ok {
				removeWorker("idle timeout", n)
				return
			}
		}
	}
}

// retireIdle gives up one worker slot unless the pool is already at its floor.
func retireIdle() (int64, bool) {
	for {
		n := atomic.LoadInt64(&currentWorkerCount)
		if n <= atomic.LoadInt64(&minWorkerCount) {
			return n, false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, n, n-1) {
			return n - 1, true
		}
	}
}
