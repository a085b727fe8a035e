// Package hashEmbedding is an offline embedder based on signed feature hashing.
//
// Unigrams and adjacent bigrams are hashed into a fixed number of buckets and
// weighted by log-scaled term frequency. It needs no vocabulary and no network,
// and identical text always produces the identical vector.
package hashEmbedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/akolanti/GroundedRAG/internal/rag/embedding"
)

type Embedder struct {
	dimension int
	model     string
}

var _ embedding.Embedder = (*Embedder)(nil)

func New(dimension int, model string) (*Embedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dimension)
	}
	return &Embedder{dimension: dimension, model: model}, nil
}

func (e *Embedder) Dimension() int    { return e.dimension }
func (e *Embedder) ModelName() string { return e.model }

func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *Embedder) BatchEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) embed(text string) []float32 {
	tokens := Tokenize(text)
	counts := make(map[string]int, len(tokens)*2)
	for i, tok := range tokens {
		counts[tok]++
		if i > 0 {
			counts[tokens[i-1]+" "+tok]++
		}
	}

	vec := make([]float64, e.dimension)
	for feature, n := range counts {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		bucket := int(sum % uint64(e.dimension))
		sign := 1.0
		if (sum>>63)&1 == 1 {
			sign = -1.0
		}
		vec[bucket] += sign * (1 + math.Log(float64(n)))
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.dimension)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// Tokenize lowercases text and splits it on anything that is not a letter, digit, '%' or '.' inside a number.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '%' || r == '.')
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
