// @title           GroundedRAG API
// @version         1.0
// @description     Local retrieval over indexed documents: two-pass search, verbatim page lookup and session-aware chat jobs.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.email   ank.github@gmail.com

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/GroundedRAG/internal/app"
	"github.com/akolanti/GroundedRAG/internal/config"
	jobmodel "github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/handlers"
	"github.com/akolanti/GroundedRAG/internal/job"
	"github.com/akolanti/GroundedRAG/internal/middleware"
	"github.com/akolanti/GroundedRAG/internal/server"
	"github.com/akolanti/GroundedRAG/internal/worker"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

var (
	listenAddr        string
	settingsPath      string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&settingsPath, "settings", config.SettingsFileName, "path to settings.yaml")
	flag.StringVar(&listenAddr, "listen-addr", "", "server listen address (overrides settings)")
	flag.Parse()

	settings, err := app.LoadSettings(settingsPath)
	if err != nil {
		logger.Error("Could not load settings", "path", settingsPath, "error", err)
		os.Exit(1)
	}
	if listenAddr == "" {
		listenAddr = settings.Server.ListenAddr
	}

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	engine, err := app.Bootstrap(serviceContext, settings, app.Options{})
	if err != nil {
		logger.Error("Engine failed to start. Shutting down.", "error", err)
		return
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Error("Error closing chunk store", "error", err)
		}
	}()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          engine.JobStore,
		SessionStore:      engine.Memory,
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	handlers.InitJobHandler(service)
	handlers.InitRAGHandler(engine.RAG)
	middleware.Init(settings.Server)

	//init worker pool
	worker.InitServices(service, engine.RAG)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, settings.Server.MCPEndpoint, engine.MCP.Handler())

	<-stopExecution
	logger.Info("Server stopped")
}
