package vectorDB

import "math"

// Entry is one embedding record waiting to be indexed.
type Entry struct {
	ChunkID    string
	SourcePath string
	Vector     []float32
}

// Match is a search result. Seq is the insertion order and breaks score ties.
type Match struct {
	ChunkID    string
	SourcePath string
	Score      float64
	Seq        uint64
}

// Index is a local similarity index over normalized vectors. Search never returns more than k matches.
type Index interface {
	Add(chunkID string, source string, vector []float32) error
	Search(query []float32, k int) ([]Match, error)
	RemoveBySource(source string) int
	ReplaceSource(source string, entries []Entry) error
	IDsForSource(source string) []string
	Len() int
	Dimension() int
}

// Normalize returns an L2-normalized copy of v. ok is false for a zero or non-finite vector.
func Normalize(v []float32) (out []float32, ok bool) {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	out = make([]float32, len(v))
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return out, false
	}
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out, true
}

func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
