package config

import (
	"log/slog"
	"time"
)

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internals in-memory store
	TRACE_ID_KEY                    = "traceId"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5
	ACCESS_KEY_HEADER               = "X-ACCESS-KEY"

	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	JobTimeout                      = 120 * time.Second

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 30 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//uploads
	MaxUploadSize     = 32 << 20 //32mb
	UploadDirectory   = "temporary_data"
	SettingsFileName  = "settings.yaml"
	DefaultDataDir    = "data"
	ChunkDatabaseName = "chunks.db"

	//llm
	GeminiModelName          = "gemini-2.5-flash-lite-preview-09-2025"
	OpenAIModelName          = "gpt-4o-mini"
	ModelTemperature float32 = 0.2
	ModelContext             = "You are a research assistant over a local corpus of indexed documents. " +
		"Answer only from the EVIDENCE you are given, never invent facts or numbers, and keep exact values and denominators. " +
		"If the evidence does not contain the answer say: Not found in the indexed documents."

	//embeddings
	GoogleEmbeddingModel = "gemini-embedding-001"
	OpenAIEmbeddingModel = "text-embedding-3-small"
	HashEmbeddingModel   = "local-hash-v1"

	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisJobStore     = 0
	RedisSessionStore = 1

	//redis timeouts
	RedisJobStoreTTL  = 24 * time.Hour
	SessionTTL        = 6 * time.Hour
	RedisSessionKey   = "session:"
	MaxLiveSessions   = 10_000
	SessionLockStripe = 64
)
