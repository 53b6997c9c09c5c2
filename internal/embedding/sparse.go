package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"sort"
	"strings"

	"cartpilot/internal/vectorstore"
)

// BM25 term-frequency saturation parameters.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
	// bm25AvgLen approximates the average token count of product
	// names; names are short so the length normalization is mild.
	bm25AvgLen = 16.0
)

// BM25Embedder is a hashed sparse embedder: tokens are FNV-hashed into
// a large index space and weighted with the BM25 term-frequency
// component. Document-frequency weighting is applied store-side by the
// sparse field's IDF modifier, so query vectors carry uniform values.
// Pure function of its input, no corpus preparation needed.
type BM25Embedder struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

var _ SparseEmbedder = (*BM25Embedder)(nil)

// NewBM25 creates a sparse BM25 embedder.
func NewBM25() *BM25Embedder {
	return &BM25Embedder{
		tokenPattern: regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`),
		stopwords:    defaultStopwords(),
	}
}

// Model returns the sparse model identifier used as the vector field name.
func (e *BM25Embedder) Model() string { return "bm25" }

// EmbedDocuments computes BM25-weighted sparse vectors for document texts.
func (e *BM25Embedder) EmbedDocuments(_ context.Context, texts []string) ([]vectorstore.SparseVector, error) {
	out := make([]vectorstore.SparseVector, len(texts))
	for i, text := range texts {
		tokens := e.tokenize(text)
		tf := make(map[uint32]int)
		for _, tok := range tokens {
			tf[hashToken(tok)]++
		}
		docLen := float64(len(tokens))
		vec := vectorstore.SparseVector{
			Indices: make([]uint32, 0, len(tf)),
			Values:  make([]float32, 0, len(tf)),
		}
		for _, idx := range sortedKeys(tf) {
			f := float64(tf[idx])
			weight := f * (bm25K1 + 1) / (f + bm25K1*(1-bm25B+bm25B*docLen/bm25AvgLen))
			vec.Indices = append(vec.Indices, idx)
			vec.Values = append(vec.Values, float32(weight))
		}
		out[i] = vec
	}
	return out, nil
}

// EmbedQuery computes a query-side sparse vector with uniform weights.
func (e *BM25Embedder) EmbedQuery(_ context.Context, text string) (vectorstore.SparseVector, error) {
	seen := make(map[uint32]struct{})
	for _, tok := range e.tokenize(text) {
		seen[hashToken(tok)] = struct{}{}
	}
	vec := vectorstore.SparseVector{
		Indices: make([]uint32, 0, len(seen)),
		Values:  make([]float32, 0, len(seen)),
	}
	for idx := range seen {
		vec.Indices = append(vec.Indices, idx)
	}
	sort.Slice(vec.Indices, func(i, j int) bool { return vec.Indices[i] < vec.Indices[j] })
	for range vec.Indices {
		vec.Values = append(vec.Values, 1.0)
	}
	return vec, nil
}

func (e *BM25Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, isStop := e.stopwords[tok]; isStop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func hashToken(tok string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(tok))
	return h.Sum32()
}

func sortedKeys(m map[uint32]int) []uint32 {
	keys := make([]uint32, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "for", "to", "of",
		"in", "on", "at", "by", "with", "as", "is", "are", "was",
		"were", "be", "it", "this", "that", "from", "into", "about",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
