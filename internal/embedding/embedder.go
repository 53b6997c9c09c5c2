// Package embedding provides dense and sparse text embedding for the
// product catalog. Dense vectors carry semantic similarity; sparse
// vectors preserve exact-term precision for brand names and model
// numbers.
package embedding

import (
	"context"
	"fmt"

	"cartpilot/internal/config"
	"cartpilot/internal/vectorstore"
)

// DenseEmbedder produces fixed-length semantic vectors.
type DenseEmbedder interface {
	// Embed generates an embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. One provider
	// call per batch; more efficient than repeated Embed calls.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Model returns the embedding model name.
	Model() string

	// Dimension returns the vector dimension. Must match the dense
	// field size declared at collection creation.
	Dimension() int
}

// SparseEmbedder produces index/value vectors over a hashed vocabulary.
type SparseEmbedder interface {
	// EmbedDocuments generates document-side sparse vectors with
	// term-frequency weighting.
	EmbedDocuments(ctx context.Context, texts []string) ([]vectorstore.SparseVector, error)

	// EmbedQuery generates a query-side sparse vector. Values are
	// uniform; document-frequency weighting happens store-side.
	EmbedQuery(ctx context.Context, text string) (vectorstore.SparseVector, error)

	// Model returns the sparse model identifier.
	Model() string
}

// NewDense creates a dense embedder from configuration.
func NewDense(cfg config.Config) (DenseEmbedder, error) {
	switch cfg.EmbedProvider {
	case config.ProviderOllama, "":
		return newLangchainDense(cfg)
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires OPENAI_API_KEY")
		}
		return newLangchainDense(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbedProvider)
	}
}
