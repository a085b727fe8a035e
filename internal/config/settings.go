package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RetrievalSettings tunes the two-pass retriever.
type RetrievalSettings struct {
	TopK             int      `yaml:"top_k"`
	ReturnEvidence   int      `yaml:"return_evidence"`
	ExpansionMode    string   `yaml:"expansion_mode"`
	ExpansionTerms   []string `yaml:"expansion_terms"`
	MaxEvidenceTerms int      `yaml:"max_evidence_terms"`
	QueryCacheSize   int      `yaml:"query_cache_size"`
	MaxTotalChars    int      `yaml:"max_total_chars"`
	MaxCharsPerChunk int      `yaml:"max_chars_per_chunk"`
	MaxPageChars     int      `yaml:"max_page_chars"`
}

// ChunkingSettings are measured in runes. A negative Overlap means unset; zero is a valid overlap.
type ChunkingSettings struct {
	Window      int `yaml:"window"`
	TableWindow int `yaml:"table_window"`
	Overlap     int `yaml:"overlap"`
}

type EmbeddingSettings struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimension        int    `yaml:"dimension"`
	BatchSize        int    `yaml:"batch_size"`
	MaxRetries       uint64 `yaml:"max_retries"`
	RetryBaseDelayMs int    `yaml:"retry_base_delay_ms"`
	GoogleAPIKey     string `yaml:"-"`
	OpenAIAPIKey     string `yaml:"-"`
}

type MemorySettings struct {
	MaxTurns          int    `yaml:"max_turns"`
	MaxSources        int    `yaml:"max_sources"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	Summarizer        string `yaml:"summarizer"`
}

type StorageSettings struct {
	DataDir       string `yaml:"data_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"-"`
}

type ServerSettings struct {
	ListenAddr  string `yaml:"listen_addr"`
	RateLimit   bool   `yaml:"rate_limit"`
	AccessKey   string `yaml:"-"`
	MCPEndpoint string `yaml:"mcp_endpoint"`
}

type LLMSettings struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"-"`
}

// Settings is the root of settings.yaml. Secrets never come from the file.
type Settings struct {
	Retrieval RetrievalSettings `yaml:"retrieval"`
	Chunking  ChunkingSettings  `yaml:"chunking"`
	Embedding EmbeddingSettings `yaml:"embedding"`
	Memory    MemorySettings    `yaml:"memory"`
	Storage   StorageSettings   `yaml:"storage"`
	Server    ServerSettings    `yaml:"server"`
	LLM       LLMSettings       `yaml:"llm"`
}

var DefaultExpansionTerms = []string{
	"table", "figure", "results", "methods", "findings",
	"discussion", "conclusion", "appendix", "supplementary",
}

// LoadDotEnv reads a .env file when one exists.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads settings from path. A missing file yields defaults. Environment overrides are applied last.
func Load(path string) (*Settings, error) {
	cfg := unsetSettings()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns settings as if no file existed.
func Default() *Settings {
	cfg := unsetSettings()
	applyDefaults(cfg)
	return cfg
}

// unsetSettings marks the fields whose zero value is a legal setting.
func unsetSettings() *Settings {
	return &Settings{Chunking: ChunkingSettings{Overlap: -1}}
}

// Save writes settings to path, creating directories as needed.
func Save(path string, cfg *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ChunkDatabasePath is where the chunk store lives.
func (s *Settings) ChunkDatabasePath() string {
	return filepath.Join(s.Storage.DataDir, ChunkDatabaseName)
}

func applyEnv(cfg *Settings) {
	if v := os.Getenv("RAG_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RAG_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("RAG_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := envInt("RAG_TOP_K"); v > 0 {
		cfg.Retrieval.TopK = v
	}
	if v := envInt("RAG_RETURN_EVIDENCE"); v > 0 {
		cfg.Retrieval.ReturnEvidence = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Storage.RedisAddr = v
	}
	cfg.Storage.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.Server.AccessKey = os.Getenv("APP_ACCESS_KEY")
	cfg.Embedding.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")

	googleKey := os.Getenv("GEMINI_API_KEY")
	if googleKey == "" {
		googleKey = os.Getenv("GOOGLE_API_KEY")
	}
	cfg.Embedding.GoogleAPIKey = googleKey
}

func applyDefaults(cfg *Settings) {
	r := &cfg.Retrieval
	if r.TopK <= 0 {
		r.TopK = 8
	}
	if r.ReturnEvidence <= 0 {
		r.ReturnEvidence = 8
	}
	if r.ExpansionMode == "" {
		r.ExpansionMode = "static"
	}
	if len(r.ExpansionTerms) == 0 {
		r.ExpansionTerms = append([]string(nil), DefaultExpansionTerms...)
	}
	if r.MaxEvidenceTerms <= 0 {
		r.MaxEvidenceTerms = 18
	}
	if r.QueryCacheSize <= 0 {
		r.QueryCacheSize = 512
	}
	if r.MaxTotalChars <= 0 {
		r.MaxTotalChars = 9000
	}
	if r.MaxCharsPerChunk <= 0 {
		r.MaxCharsPerChunk = 1000
	}
	if r.MaxPageChars <= 0 {
		r.MaxPageChars = 12000
	}

	c := &cfg.Chunking
	if c.Window <= 0 {
		c.Window = 1400
	}
	if c.TableWindow < 2*c.Window {
		c.TableWindow = 2 * c.Window
	}
	if c.Overlap < 0 {
		c.Overlap = 250
	}
	if c.Overlap >= c.Window/2 {
		c.Overlap = c.Window / 4
	}

	e := &cfg.Embedding
	if e.Provider == "" || e.Provider == "auto" {
		switch {
		case e.GoogleAPIKey != "":
			e.Provider = "google"
		case e.OpenAIAPIKey != "":
			e.Provider = "openai"
		default:
			e.Provider = "hash"
		}
	}
	e.Provider = strings.ToLower(e.Provider)
	if e.Model == "" {
		switch e.Provider {
		case "google":
			e.Model = GoogleEmbeddingModel
		case "openai":
			e.Model = OpenAIEmbeddingModel
		default:
			e.Model = HashEmbeddingModel
		}
	}
	if e.Dimension <= 0 {
		switch e.Provider {
		case "google", "openai":
			e.Dimension = 1536
		default:
			e.Dimension = 384
		}
	}
	if e.BatchSize <= 0 {
		e.BatchSize = 100
	}
	if e.MaxRetries == 0 {
		e.MaxRetries = 3
	}
	if e.RetryBaseDelayMs <= 0 {
		e.RetryBaseDelayMs = 500
	}

	m := &cfg.Memory
	if m.MaxTurns < 2 {
		m.MaxTurns = 4
	}
	if m.MaxTurns > 4 {
		m.MaxTurns = 4
	}
	if m.MaxSources <= 0 {
		m.MaxSources = 8
	}
	if m.SessionTTLMinutes <= 0 {
		m.SessionTTLMinutes = int(SessionTTL.Minutes())
	}
	if m.Summarizer == "" {
		m.Summarizer = "heuristic"
	}

	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.RedisAddr == "" {
		cfg.Storage.RedisAddr = RedisAddr
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ServerListenAddr
	}
	if cfg.Server.MCPEndpoint == "" {
		cfg.Server.MCPEndpoint = "/mcp"
	}
	l := &cfg.LLM
	l.Provider = strings.ToLower(l.Provider)
	if l.Provider == "" {
		switch {
		case cfg.Embedding.GoogleAPIKey != "":
			l.Provider = "gemini"
		case cfg.Embedding.OpenAIAPIKey != "":
			l.Provider = "openai"
		default:
			l.Provider = "none"
		}
	}
	switch l.Provider {
	case "gemini":
		l.APIKey = cfg.Embedding.GoogleAPIKey
	case "openai":
		l.APIKey = cfg.Embedding.OpenAIAPIKey
	}
	if l.Model == "" {
		if l.Provider == "openai" {
			l.Model = OpenAIModelName
		} else {
			l.Model = GeminiModelName
		}
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}
