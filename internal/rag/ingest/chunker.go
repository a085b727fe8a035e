package ingest

import (
	"strings"
	"unicode"

	"github.com/akolanti/GroundedRAG/internal/config"
)

// piece is one window of a page before it gets an id and a vector.
type piece struct {
	text    string
	isTable bool
	window  int
	overlap int
}

// Chunker splits page text into overlapping windows. Windows tile the page, so
// dropping each window's overlap prefix and concatenating gives the page back.
type Chunker struct {
	window      int
	tableWindow int
	overlap     int
}

func NewChunker(cs config.ChunkingSettings) *Chunker {
	return &Chunker{
		window:      cs.Window,
		tableWindow: cs.TableWindow,
		overlap:     cs.Overlap,
	}
}

type segment struct {
	runes   []rune
	isTable bool
}

// Split windows one page. Whitespace-only text yields nothing.
func (c *Chunker) Split(text string, isTableHint bool) []piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	var out []piece
	for _, seg := range segments(text, isTableHint) {
		w := c.window
		if seg.isTable {
			w = c.tableWindow
		}
		out = append(out, c.windows(seg, w)...)
	}
	return out
}

func (c *Chunker) windows(seg segment, w int) []piece {
	r := seg.runes
	n := len(r)
	var out []piece

	start, ov := 0, 0
	for {
		if n-start <= w {
			out = append(out, piece{text: string(r[start:]), isTable: seg.isTable, window: w, overlap: ov})
			return out
		}

		end := snapBack(r, start, start+w, seg.isTable)
		if isBlank(r[end:]) {
			end = n
		}
		out = append(out, piece{text: string(r[start:end]), isTable: seg.isTable, window: w, overlap: ov})
		if end >= n {
			return out
		}

		next := end - c.overlap
		if next <= start {
			next = start + 1
		}
		next = snapForward(r, next, end, seg.isTable)
		ov = end - next
		start = next
	}
}

// snapBack moves a window end back to a sentence end (prose) or a row end (table).
func snapBack(r []rune, start, end int, isTable bool) int {
	half := start + (end-start)/2

	if isTable {
		for i := end; i > start; i-- {
			if r[i-1] == '\n' {
				return i
			}
		}
		return end
	}

	for i := end; i > half; i-- {
		if i < len(r) && isSentenceEnd(r, i) {
			return i
		}
	}
	for i := end; i > half; i-- {
		if unicode.IsSpace(r[i-1]) && !unicode.IsSpace(r[i]) {
			return i
		}
	}
	return end
}

// isSentenceEnd reports whether a sentence ended right before i and the next word starts at i.
func isSentenceEnd(r []rune, i int) bool {
	if i < 2 || unicode.IsSpace(r[i]) {
		return false
	}
	if r[i-1] == '\n' {
		return true
	}
	if !unicode.IsSpace(r[i-1]) {
		return false
	}
	switch r[i-2] {
	case '.', '!', '?', ';', ':':
		return true
	}
	return false
}

// snapForward moves a window start forward to the next word or row start, never past limit.
func snapForward(r []rune, pos, limit int, isTable bool) int {
	if pos == 0 {
		return 0
	}
	for i := pos; i < limit; i++ {
		if isTable {
			if r[i-1] == '\n' {
				return i
			}
			continue
		}
		if unicode.IsSpace(r[i-1]) && !unicode.IsSpace(r[i]) {
			return i
		}
	}
	if isTable {
		return limit
	}
	return pos
}

func isBlank(r []rune) bool {
	for _, x := range r {
		if !unicode.IsSpace(x) {
			return false
		}
	}
	return true
}

// segments cuts a page into blocks at blank lines and merges neighbours of the same kind.
// Every rune of the page belongs to exactly one segment.
func segments(text string, isTableHint bool) []segment {
	lines := strings.SplitAfter(text, "\n")

	type block struct {
		text    string
		isTable bool
	}
	var blocks []block
	var cur strings.Builder
	var body []string
	inGap := false

	flush := func() {
		if cur.Len() == 0 {
			return
		}
		blocks = append(blocks, block{text: cur.String(), isTable: isTableHint || looksTabular(body)})
		cur.Reset()
		body = nil
	}

	for _, line := range lines {
		blank := strings.TrimSpace(line) == ""
		if !blank && inGap && len(body) > 0 {
			flush()
		}
		inGap = blank
		cur.WriteString(line)
		if !blank {
			body = append(body, line)
		}
	}
	flush()

	var segs []segment
	for _, b := range blocks {
		if len(segs) > 0 && segs[len(segs)-1].isTable == b.isTable {
			last := &segs[len(segs)-1]
			last.runes = append(last.runes, []rune(b.text)...)
			continue
		}
		segs = append(segs, segment{runes: []rune(b.text), isTable: b.isTable})
	}
	return segs
}

// looksTabular: most lines carry column separators, or the block is mostly numbers.
func looksTabular(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	if len(lines) >= 2 {
		withColumns := 0
		for _, l := range lines {
			if hasColumns(strings.TrimRight(l, "\r\n")) {
				withColumns++
			}
		}
		if withColumns*2 > len(lines) {
			return true
		}
	}

	tokens, numeric := 0, 0
	for _, l := range lines {
		for _, f := range strings.Fields(l) {
			tokens++
			if isNumericToken(f) {
				numeric++
			}
		}
	}
	return tokens >= 4 && numeric*2 >= tokens
}

func hasColumns(line string) bool {
	if strings.ContainsAny(line, "\t|") {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return strings.Contains(trimmed, "  ")
}

func isNumericToken(tok string) bool {
	digits, other := 0, 0
	for _, r := range tok {
		switch {
		case unicode.IsDigit(r):
			digits++
		case strings.ContainsRune(".,%-+()<>=±", r):
		default:
			other++
		}
	}
	return digits > 0 && digits >= other
}
