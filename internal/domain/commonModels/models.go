package commonModels

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Document struct {
	SourcePath          string    `json:"source_path"`
	Name                string    `json:"doc_name"`
	LastIngestTimestamp time.Time `json:"ingested_at"`
	ContentType         DocType   `json:"contentType"`
	IsTable             bool      `json:"is_table"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var TXT DocType = "TXT"
var CSV DocType = "CSV"
var ERR DocType = "ERROR"

// Page is one unit of extracted text. Number is nil for non-paginated sources.
type Page struct {
	Number *int   `json:"number,omitempty"`
	Text   string `json:"text"`
}

// Chunk is the atomic retrieval unit. Text is verbatim and never mutated after indexing.
type Chunk struct {
	ChunkID    string `json:"chunk_id"`
	SourcePath string `json:"source_path"`
	Page       *int   `json:"page"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
	IsTable    bool   `json:"is_table"`
	WindowSize int    `json:"window_size"`
	// Overlap counts the leading runes of Text repeated from the previous chunk.
	Overlap int `json:"overlap"`
}

type PassOrigin string

const (
	PassPrecision PassOrigin = "precision"
	PassRecall    PassOrigin = "recall"
)

type Hit struct {
	Chunk      Chunk      `json:"chunk"`
	Score      float64    `json:"score"`
	PassOrigin PassOrigin `json:"pass_origin"`
	// Seq is the global insertion order of the chunk, used for deterministic tie-breaks.
	Seq uint64 `json:"-"`
}

type RetrievalStatus string

const (
	StatusOK     RetrievalStatus = "OK"
	StatusNoHits RetrievalStatus = "NO_HITS"
)

// SourceRecord is the persisted, human-inspectable record of what was indexed for one source.
type SourceRecord struct {
	SourcePath     string          `json:"source_path"`
	IndexedAt      time.Time       `json:"indexed_at"`
	EmbeddingModel string          `json:"embedding_model"`
	Dimension      int             `json:"dimension"`
	Chunks         []RecordedChunk `json:"chunks"`
}

type RecordedChunk struct {
	ChunkID    string `json:"chunk_id"`
	Page       *int   `json:"page"`
	Text       string `json:"text"`
	IsTable    bool   `json:"is_table"`
	WindowSize int    `json:"window_size"`
}

var chunkNamespace = uuid.MustParse("6f1c2a4e-8a0b-4f55-9d0e-3b7f5d3c2a10")

// NewChunkID derives a stable id, so identical input always maps to the same chunk.
func NewChunkID(sourcePath string, page *int, ordinal int, text string) string {
	key := fmt.Sprintf("%s\x00%s\x00%d\x00%s", sourcePath, PageLabel(page), ordinal, text)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// PageLabel renders a nullable page for logs and citations.
func PageLabel(page *int) string {
	if page == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *page)
}

func PageOf(n int) *int {
	return &n
}

func SamePage(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ReconstructPage rebuilds the original page text from its chunks, given in ordinal order.
func ReconstructPage(chunks []Chunk) string {
	var sb strings.Builder
	for _, c := range chunks {
		runes := []rune(c.Text)
		skip := c.Overlap
		if skip > len(runes) {
			skip = len(runes)
		}
		sb.WriteString(string(runes[skip:]))
	}
	return sb.String()
}

func (r SourceRecord) ChunkIDs() []string {
	ids := make([]string, 0, len(r.Chunks))
	for _, c := range r.Chunks {
		ids = append(ids, c.ChunkID)
	}
	return ids
}
