package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
)

func writeSettings(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	settings := "storage:\n  data_dir: " + dataDir + "\nembedding:\n  provider: hash\n  dimension: 128\nllm:\n  provider: none\n"
	path := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settings), 0o644))
	return path, dir
}

func run(t *testing.T, settingsPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--settings", settingsPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	for _, name := range []string{"a.txt", "sub/b.md", "c.png", ".git/d.txt", "sub/e.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	files, err := discover(root)
	require.NoError(t, err)

	var sources []string
	for _, f := range files {
		sources = append(sources, f.source)
	}
	assert.ElementsMatch(t, []string{"a.txt", "sub/b.md", "sub/e.csv"}, sources)
}

func TestDiscover_SingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	files, err := discover(path)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "paper.txt", files[0].source)

	_, err = discover(filepath.Join(t.TempDir(), "image.png"))
	assert.Error(t, err)
}

func TestIndexVerifyExportRemove(t *testing.T) {
	settingsPath, dir := writeSettings(t)
	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "notes.txt"),
		[]byte("The trial enrolled 412 patients.\fMedian survival was 14.2 months."), 0o644))

	out, err := run(t, settingsPath, "index", docs)
	require.NoError(t, err)
	assert.Contains(t, out, "OK   notes.txt")

	out, err = run(t, settingsPath, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")

	out, err = run(t, settingsPath, "verify")
	require.NoError(t, err)
	assert.Contains(t, out, "OK      notes.txt")

	exportPath := filepath.Join(dir, "notes.json")
	_, err = run(t, settingsPath, "export", "notes.txt", exportPath)
	require.NoError(t, err)

	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var record commonModels.SourceRecord
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "notes.txt", record.SourcePath)
	assert.Len(t, record.Chunks, 2)

	_, err = run(t, settingsPath, "remove", "notes.txt")
	require.NoError(t, err)

	out, err = run(t, settingsPath, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "No sources indexed.")
}

func TestIndex_Reindex(t *testing.T) {
	settingsPath, dir := writeSettings(t)
	doc := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(doc, []byte("first version"), 0o644))

	_, err := run(t, settingsPath, "index", doc)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(doc, []byte("second version"), 0o644))
	_, err = run(t, settingsPath, "index", doc)
	require.NoError(t, err)

	exportPath := filepath.Join(dir, "paper.json")
	_, err = run(t, settingsPath, "export", "paper.txt", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	var record commonModels.SourceRecord
	require.NoError(t, json.Unmarshal(data, &record))
	require.Len(t, record.Chunks, 1)
	assert.Equal(t, "second version", record.Chunks[0].Text)
}
