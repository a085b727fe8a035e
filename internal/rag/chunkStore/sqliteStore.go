package chunkStore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
	"github.com/akolanti/GroundedRAG/internal/rag/chunkStore/migrations"
	"github.com/akolanti/GroundedRAG/pkg/logger_i"
)

// Store is the durable record of chunks, their metadata and their vectors.
type Store interface {
	Put(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32, model string) error
	ReplaceSource(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error
	Get(ctx context.Context, chunkID string) (commonModels.Chunk, error)
	GetMany(ctx context.Context, chunkIDs []string) (map[string]commonModels.Chunk, error)
	GetBySourcePage(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error)
	ChunkIDsForSource(ctx context.Context, source string) ([]string, error)
	ListSources(ctx context.Context) ([]SourceInfo, error)
	DeleteSource(ctx context.Context, source string) error
	SourceRecord(ctx context.Context, source string) (commonModels.SourceRecord, error)
	LoadAll(ctx context.Context, fn func(StoredChunk) error) error
	Dimension(ctx context.Context) (int, string, error)
	Close() error
}

type StoredChunk struct {
	Chunk  commonModels.Chunk
	Vector []float32
}

type SourceInfo struct {
	SourcePath     string    `json:"source_path"`
	IndexedAt      time.Time `json:"indexed_at"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkCount     int       `json:"chunk_count"`
}

type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *logger_i.Logger
}

const chunkColumns = "chunk_id, source_path, page, ordinal, text, is_table, window_size, overlap"

// NewSQLiteStore opens (or creates) the chunk database at path and runs pending migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{db: db, path: path, logger: logger_i.NewLogger("ChunkStore")}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	s.logger.Info("Chunk store opened", "path", path)
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		s.logger.Debug("Applied migration", "name", name)
	}
	return nil
}

// Put replaces, per source, every chunk previously stored for that source. All sources commit together.
func (s *SQLiteStore) Put(ctx context.Context, chunks []commonModels.Chunk, vectors [][]float32, model string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	order := make([]string, 0)
	groups := make(map[string][]int)
	for i, c := range chunks {
		if _, ok := groups[c.SourcePath]; !ok {
			order = append(order, c.SourcePath)
		}
		groups[c.SourcePath] = append(groups[c.SourcePath], i)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, source := range order {
			idx := groups[source]
			sc := make([]commonModels.Chunk, len(idx))
			sv := make([][]float32, len(idx))
			for j, i := range idx {
				sc[j], sv[j] = chunks[i], vectors[i]
			}
			if err := s.replaceInTx(ctx, tx, source, sc, sv, model); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceSource swaps the whole chunk set of one source in a single transaction. An empty set removes the source.
func (s *SQLiteStore) ReplaceSource(ctx context.Context, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d != %d", len(chunks), len(vectors))
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.replaceInTx(ctx, tx, source, chunks, vectors, model)
	})
}

func (s *SQLiteStore) replaceInTx(ctx context.Context, tx *sql.Tx, source string, chunks []commonModels.Chunk, vectors [][]float32, model string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE source_path = ?", source); err != nil {
		return fmt.Errorf("deleting chunks of %s: %w", source, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM sources WHERE source_path = ?", source); err != nil {
		return fmt.Errorf("deleting source %s: %w", source, err)
	}
	if len(chunks) == 0 {
		return nil
	}

	dim := len(vectors[0])
	if err := s.ensureDimension(ctx, tx, dim, model); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (`+chunkColumns+`, vector) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if c.SourcePath != source {
			return fmt.Errorf("chunk %s belongs to %s, not %s", c.ChunkID, c.SourcePath, source)
		}
		if len(vectors[i]) != dim {
			return fmt.Errorf("chunk %s: vector dimension %d != %d", c.ChunkID, len(vectors[i]), dim)
		}
		_, err := stmt.ExecContext(ctx, c.ChunkID, c.SourcePath, pageArg(c.Page), c.Ordinal, c.Text,
			boolToInt(c.IsTable), c.WindowSize, c.Overlap, encodeVector(vectors[i]))
		if err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ChunkID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sources (source_path, indexed_at, embedding_model, dimension, chunk_count) VALUES (?, ?, ?, ?, ?)`,
		source, time.Now().UTC().Format(time.RFC3339Nano), model, dim, len(chunks))
	if err != nil {
		return fmt.Errorf("recording source %s: %w", source, err)
	}
	return nil
}

func (s *SQLiteStore) ensureDimension(ctx context.Context, tx *sql.Tx, dim int, model string) error {
	var stored string
	err := tx.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'dimension'").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO index_meta (key, value) VALUES ('dimension', ?), ('embedding_model', ?)",
			strconv.Itoa(dim), model); err != nil {
			return fmt.Errorf("recording index dimension: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index dimension: %w", err)
	}
	if stored != strconv.Itoa(dim) {
		return fmt.Errorf("index dimension is %s, refusing vectors of dimension %d", stored, dim)
	}
	return nil
}

// Dimension reports the fixed vector dimension of this store, or 0 when nothing was indexed yet.
func (s *SQLiteStore) Dimension(ctx context.Context) (int, string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM index_meta WHERE key IN ('dimension', 'embedding_model')")
	if err != nil {
		return 0, "", fmt.Errorf("reading index meta: %w", err)
	}
	defer rows.Close()

	var dim int
	var model string
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return 0, "", err
		}
		switch k {
		case "dimension":
			dim, _ = strconv.Atoi(v)
		case "embedding_model":
			model = v
		}
	}
	return dim, model, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, chunkID string) (commonModels.Chunk, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE chunk_id = ?", chunkID)
	c, err := scanChunk(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commonModels.Chunk{}, fmt.Errorf("chunk %s: %w", chunkID, commonModels.ErrNotFound)
	}
	return c, err
}

// GetMany returns the chunks that exist. Missing ids are simply absent from the map.
func (s *SQLiteStore) GetMany(ctx context.Context, chunkIDs []string) (map[string]commonModels.Chunk, error) {
	result := make(map[string]commonModels.Chunk, len(chunkIDs))
	if len(chunkIDs) == 0 {
		return result, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunkIDs)), ",")
	args := make([]any, len(chunkIDs))
	for i, id := range chunkIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE chunk_id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		result[c.ChunkID] = c
	}
	return result, rows.Err()
}

// GetBySourcePage returns chunks in original order. No match is an empty slice, not an error.
func (s *SQLiteStore) GetBySourcePage(ctx context.Context, source string, page *int) ([]commonModels.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+chunkColumns+" FROM chunks WHERE source_path = ? AND page IS ? ORDER BY ordinal, seq",
		source, pageArg(page))
	if err != nil {
		return nil, fmt.Errorf("querying page: %w", err)
	}
	defer rows.Close()

	chunks := make([]commonModels.Chunk, 0)
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStore) ChunkIDsForSource(ctx context.Context, source string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT chunk_id FROM chunks WHERE source_path = ? ORDER BY seq", source)
	if err != nil {
		return nil, fmt.Errorf("querying chunk ids: %w", err)
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) ListSources(ctx context.Context) ([]SourceInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT source_path, indexed_at, embedding_model, dimension, chunk_count FROM sources ORDER BY source_path")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	defer rows.Close()

	sources := make([]SourceInfo, 0)
	for rows.Next() {
		info, err := scanSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, info)
	}
	return sources, rows.Err()
}

func (s *SQLiteStore) DeleteSource(ctx context.Context, source string) error {
	return s.ReplaceSource(ctx, source, nil, nil, "")
}

// SourceRecord returns the audit record of a source, or ErrNotFound when it was never indexed.
func (s *SQLiteStore) SourceRecord(ctx context.Context, source string) (commonModels.SourceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT source_path, indexed_at, embedding_model, dimension, chunk_count FROM sources WHERE source_path = ?", source)
	info, err := scanSource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return commonModels.SourceRecord{}, fmt.Errorf("source %s: %w", source, commonModels.ErrNotFound)
	}
	if err != nil {
		return commonModels.SourceRecord{}, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+chunkColumns+" FROM chunks WHERE source_path = ? ORDER BY seq", source)
	if err != nil {
		return commonModels.SourceRecord{}, fmt.Errorf("querying chunks of %s: %w", source, err)
	}
	defer rows.Close()

	record := commonModels.SourceRecord{
		SourcePath:     info.SourcePath,
		IndexedAt:      info.IndexedAt,
		EmbeddingModel: info.EmbeddingModel,
		Dimension:      info.Dimension,
		Chunks:         make([]commonModels.RecordedChunk, 0, info.ChunkCount),
	}
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return commonModels.SourceRecord{}, err
		}
		record.Chunks = append(record.Chunks, commonModels.RecordedChunk{
			ChunkID:    c.ChunkID,
			Page:       c.Page,
			Text:       c.Text,
			IsTable:    c.IsTable,
			WindowSize: c.WindowSize,
		})
	}
	return record, rows.Err()
}

// LoadAll streams every stored chunk with its vector, in insertion order.
func (s *SQLiteStore) LoadAll(ctx context.Context, fn func(StoredChunk) error) error {
	rows, err := s.db.QueryContext(ctx, "SELECT "+chunkColumns+", vector FROM chunks ORDER BY seq")
	if err != nil {
		return fmt.Errorf("loading chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c    commonModels.Chunk
			page sql.NullInt64
			tbl  int
			blob []byte
		)
		if err := rows.Scan(&c.ChunkID, &c.SourcePath, &page, &c.Ordinal, &c.Text, &tbl, &c.WindowSize, &c.Overlap, &blob); err != nil {
			return err
		}
		c.Page = pageFromNull(page)
		c.IsTable = tbl != 0
		vector, err := decodeVector(blob)
		if err != nil {
			return commonModels.NewCorruptionError(c.SourcePath, "chunk %s: %v", c.ChunkID, err)
		}
		if err := fn(StoredChunk{Chunk: c, Vector: vector}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (commonModels.Chunk, error) {
	var (
		c    commonModels.Chunk
		page sql.NullInt64
		tbl  int
	)
	if err := row.Scan(&c.ChunkID, &c.SourcePath, &page, &c.Ordinal, &c.Text, &tbl, &c.WindowSize, &c.Overlap); err != nil {
		return commonModels.Chunk{}, err
	}
	c.Page = pageFromNull(page)
	c.IsTable = tbl != 0
	return c, nil
}

func scanSource(row rowScanner) (SourceInfo, error) {
	var (
		info      SourceInfo
		indexedAt string
	)
	if err := row.Scan(&info.SourcePath, &indexedAt, &info.EmbeddingModel, &info.Dimension, &info.ChunkCount); err != nil {
		return SourceInfo{}, err
	}
	info.IndexedAt, _ = time.Parse(time.RFC3339Nano, indexedAt)
	return info, nil
}

func pageArg(page *int) any {
	if page == nil {
		return nil
	}
	return int64(*page)
}

func pageFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	p := int(v.Int64)
	return &p
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob of %d bytes is not a float32 array", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
