package retrieval

import (
	"fmt"
	"strings"

	"github.com/akolanti/GroundedRAG/internal/domain/commonModels"
)

const NoHitsText = "NO_HITS"

// Header is the citation tag of an excerpt: [source p.X c.Y]. Unpaginated sources omit p.X.
func Header(c commonModels.Chunk) string {
	if c.Page == nil {
		return fmt.Sprintf("[%s c.%d]", c.SourcePath, c.Ordinal)
	}
	return fmt.Sprintf("[%s p.%d c.%d]", c.SourcePath, *c.Page, c.Ordinal)
}

// SourceLabel is the "path p.X" form cited with an answer.
func SourceLabel(c commonModels.Chunk) string {
	if c.Page == nil {
		return c.SourcePath
	}
	return fmt.Sprintf("%s p.%d", c.SourcePath, *c.Page)
}

// Citations returns each distinct source label once, in order.
func Citations(chunks []commonModels.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var out []string
	for _, c := range chunks {
		label := SourceLabel(c)
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	return out
}

// SourcePaths returns each distinct source_path once, in order.
func SourcePaths(chunks []commonModels.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var out []string
	for _, c := range chunks {
		if _, ok := seen[c.SourcePath]; ok || c.SourcePath == "" {
			continue
		}
		seen[c.SourcePath] = struct{}{}
		out = append(out, c.SourcePath)
	}
	return out
}

// FormatEvidence renders excerpts for the reasoning layer. Each excerpt is cut to maxPerChunk
// runes and rendering stops before maxTotal would be exceeded.
func FormatEvidence(chunks []commonModels.Chunk, maxTotal int, maxPerChunk int) string {
	var blocks []string
	total := 0
	for _, c := range chunks {
		txt := strings.TrimSpace(strings.ReplaceAll(c.Text, "\r\n", "\n"))
		if txt == "" {
			continue
		}
		if r := []rune(txt); len(r) > maxPerChunk {
			txt = string(r[:maxPerChunk])
		}
		block := Header(c) + "\n" + txt
		size := len([]rune(block))
		if total+size > maxTotal {
			break
		}
		blocks = append(blocks, block)
		total += size
	}
	if len(blocks) == 0 {
		return NoHitsText
	}
	return strings.Join(blocks, "\n\n")
}
