// Package app assembles the engine from settings. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/akolanti/GroundedRAG/internal/config"
	"github.com/akolanti/GroundedRAG/internal/data/redisStore"
	"github.com/akolanti/GroundedRAG/internal/data/store"
	"github.com/akolanti/GroundedRAG/internal/domain/jobModel"
	"github.com/akolanti/GroundedRAG/internal/mcpTools"
	"github.com/akolanti/GroundedRAG/internal/rag"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore"
	"github.com/akolanti/GroundedRAG/internal/rag/corpus"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding/hashEmbedding"
	"github.com/akolanti/GroundedRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/GroundedRAG/internal/rag/ingest"
	"github.com/akolanti/GroundedRAG/internal/rag/llm"
	"github.com/akolanti/GroundedRAG/internal/rag/llm/gemini"
	"github.com/akolanti/GroundedRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/GroundedRAG/internal/rag/memory"
	"github.com/akolanti/GroundedRAG/internal/rag/retrieval"
	"github.com/akolanti/GroundedRAG/internal/rag/vectorDB/localDB"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// Options switch off the parts a caller does not need.
type Options struct {
	// NoRedis keeps jobs and sessions in process memory without trying redis.
	NoRedis bool
}

// Engine is the corpus and everything that writes to it. The indexer CLI needs nothing more.
type Engine struct {
	Settings *config.Settings
	Store    *chunkStore.SQLiteStore
	Corpus   *corpus.Corpus
	Embedder embedding.Embedder
	Indexer  *ingest.Indexer
}

// App is the full server graph.
type App struct {
	*Engine
	Memory   *memory.Manager
	JobStore jobModel.JobStore
	RAG      rag.Service
	MCP      *mcpTools.Server
}

// LoadSettings reads .env and then the settings file.
func LoadSettings(path string) (*config.Settings, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, fmt.Errorf("reading .env: %w", err)
	}
	return config.Load(path)
}

// OpenEngine opens the chunk store and rebuilds the vector index from it.
func OpenEngine(ctx context.Context, settings *config.Settings) (*Engine, error) {
	log := logger_i.NewLogger("Bootstrap").FromContext(ctx)

	if err := os.MkdirAll(settings.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	embedder, err := NewEmbedder(ctx, settings)
	if err != nil {
		return nil, err
	}

	st, err := chunkStore.NewSQLiteStore(settings.ChunkDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening chunk store: %w", err)
	}

	c := corpus.New(st, localDB.NewIndex(embedder.Dimension()))
	if err := c.Load(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("loading index: %w", err)
	}
	log.Debug("Engine ready", "embedding_model", embedder.ModelName(), "dimension", embedder.Dimension())

	return &Engine{
		Settings: settings,
		Store:    st,
		Corpus:   c,
		Embedder: embedder,
		Indexer:  ingest.NewIndexer(c, embedder, settings),
	}, nil
}

// NewEmbedder builds the configured provider behind a query cache.
func NewEmbedder(ctx context.Context, settings *config.Settings) (embedding.Embedder, error) {
	e := settings.Embedding
	var inner embedding.Embedder

	switch e.Provider {
	case "google":
		if e.GoogleAPIKey == "" {
			return nil, errors.New("embedding provider google needs GEMINI_API_KEY or GOOGLE_API_KEY")
		}
		inner = googleEmbedding.GetGoogleEmbeddingClient(ctx, e.Model, e.GoogleAPIKey, e.Dimension)
		if inner == nil {
			return nil, errors.New("google embedding client could not be created")
		}
	case "openai":
		oe, err := openaiEmbedding.New(e.OpenAIAPIKey, e.Model, e.Dimension)
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		inner = oe
	case "hash":
		he, err := hashEmbedding.New(e.Dimension, e.Model)
		if err != nil {
			return nil, fmt.Errorf("hash embedder: %w", err)
		}
		inner = he
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", e.Provider)
	}

	cached, err := embedding.NewCachedEmbedder(inner, settings.Retrieval.QueryCacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

// Bootstrap builds the whole server graph.
func Bootstrap(ctx context.Context, settings *config.Settings, opts Options) (*App, error) {
	log := logger_i.NewLogger("Bootstrap").FromContext(ctx)

	engine, err := OpenEngine(ctx, settings)
	if err != nil {
		return nil, err
	}

	sessionTTL := time.Duration(settings.Memory.SessionTTLMinutes) * time.Minute
	redisOpts := redisStore.Options{Addr: settings.Storage.RedisAddr, Password: settings.Storage.RedisPassword}

	var sessions memory.Store
	var jobs jobModel.JobStore
	if !opts.NoRedis {
		if s := store.GetRedisSessionStore(ctx, redisOpts, sessionTTL); s != nil {
			sessions = s
		}
		if j := store.GetRedisJobStore(ctx, redisOpts); j != nil {
			jobs = j
		}
	}
	if sessions == nil || jobs == nil {
		if !opts.NoRedis && !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			_ = engine.Close()
			return nil, fmt.Errorf("redis is offline at %s", settings.Storage.RedisAddr)
		}
		if !opts.NoRedis {
			log.Warn("Redis stores are offline, using in-memory stores")
		}
		sessions = store.InitInMemorySessionStore(config.MaxLiveSessions, sessionTTL)
		jobs = store.InitInMemoryJobStore()
	}

	provider, summarizer, err := newReasoning(ctx, settings)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}
	if _, ok := provider.(llm.Extractive); ok {
		log.Warn("No LLM configured, answers are extractive")
	}
	manager := memory.NewManager(sessions, settings.Memory, summarizer)

	service := rag.NewService(rag.Dependencies{
		Searcher: retrieval.NewTwoPass(engine.Corpus, engine.Embedder, settings.Retrieval),
		Pages:    retrieval.NewPageRetriever(engine.Corpus),
		Memory:   manager,
		Catalog:  engine.Corpus,
		Indexer:  engine.Indexer,
		LLM:      provider,
		Settings: settings.Retrieval,
	})

	return &App{
		Engine:   engine,
		Memory:   manager,
		JobStore: jobs,
		RAG:      service,
		MCP:      mcpTools.NewServer(service),
	}, nil
}

// newReasoning picks the answer provider for settings.LLM and the topic summarizer for
// settings.Memory. A gemini client that cannot be created falls back to extractive answers.
func newReasoning(ctx context.Context, settings *config.Settings) (llm.Provider, memory.Summarizer, error) {
	var provider llm.Provider = llm.Extractive{}
	var modelSummarizer memory.Summarizer

	switch settings.LLM.Provider {
	case "gemini":
		if c := gemini.GetGeminiClient(ctx, settings.LLM.Model, settings.LLM.APIKey); c != nil {
			provider, modelSummarizer = c, c
		}
	case "openai":
		c, err := openaiLLM.New(settings.LLM.APIKey, settings.LLM.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("openai llm: %w", err)
		}
		provider, modelSummarizer = c, c
	case "none", "extractive":
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", settings.LLM.Provider)
	}

	var summarizer memory.Summarizer = memory.HeuristicSummarizer{}
	if settings.Memory.Summarizer == settings.LLM.Provider && modelSummarizer != nil {
		summarizer = modelSummarizer
	}
	return provider, summarizer, nil
}

func (e *Engine) Close() error {
	if e == nil || e.Store == nil {
		return nil
	}
	return e.Store.Close()
}
