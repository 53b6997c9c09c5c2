// Package vectorstore defines the collection-oriented vector storage
// contract the retrieval engine is written against. Implementations:
// a Qdrant REST client and an in-memory store for tests and local use.
package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrNotFound indicates the requested point or collection is absent.
	ErrNotFound = errors.New("not found")

	// ErrCollectionExists indicates a create on an existing collection.
	ErrCollectionExists = errors.New("collection already exists")
)

// Distance metrics for dense vector fields.
const (
	DistanceCosine = "Cosine"
	DistanceDot    = "Dot"
)

// FusionRRF selects Reciprocal Rank Fusion when merging prefetch branches.
const FusionRRF = "rrf"

// SparseVector is an index/value pairing over a large vocabulary.
// Indices and Values are parallel and equally sized.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

// DenseField declares one named dense vector field of a collection.
type DenseField struct {
	Size     int
	Distance string
}

// SparseField declares one named sparse vector field. Modifier "idf"
// asks the store to weight matches by inverse document frequency.
type SparseField struct {
	Modifier string
}

// CollectionSchema declares the vector fields of a collection.
type CollectionSchema struct {
	Dense  map[string]DenseField
	Sparse map[string]SparseField
}

// Point is one stored record: a stable id, vectors keyed by field name,
// and an opaque payload.
type Point struct {
	ID      uint64
	Dense   map[string][]float32
	Sparse  map[string]SparseVector
	Payload map[string]any
}

// ScoredPoint is a query hit with its fused or branch score.
type ScoredPoint struct {
	Point
	Score float64
}

// Condition is one conjunctive filter clause. Exactly one of the match
// kinds is set.
type Condition struct {
	// Field names the payload key the condition applies to.
	Field string
	// MatchText requires a full-text/equality match on Field.
	MatchText *string
	// Range constrains a numeric payload field.
	Range *Range
	// HasID restricts results to the given point ids (Field ignored).
	HasID []uint64
}

// Range is a numeric payload constraint; nil bounds are open.
type Range struct {
	GTE *float64
	LTE *float64
}

// Filter is a conjunctive (must) list of conditions.
type Filter struct {
	Must []Condition
}

// Prefetch is a candidate-generation branch of a fused query. Exactly
// one of DenseQuery/SparseQuery is set, and Using names the vector
// field it runs against.
type Prefetch struct {
	Using       string
	DenseQuery  []float32
	SparseQuery *SparseVector
	Filter      *Filter
	Limit       int
}

// QueryRequest describes a multi-branch fused query.
type QueryRequest struct {
	Prefetch []Prefetch
	// Fusion selects how branch rankings are merged (FusionRRF).
	Fusion string
	Filter *Filter
	Limit  int
	Offset int
}

// Store is the vector database contract. All calls are blocking and
// honor ctx cancellation/deadline.
type Store interface {
	// CreateCollection declares a new collection with the given schema.
	// Returns ErrCollectionExists if the name is taken.
	CreateCollection(ctx context.Context, name string, schema CollectionSchema) error

	// CollectionExists probes for a collection without mutating anything.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// DeleteCollection removes a collection. Deleting an absent
	// collection is not an error.
	DeleteCollection(ctx context.Context, name string) error

	// Upsert writes points, replacing any with matching ids.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Retrieve fetches points by id. Missing ids are simply absent from
	// the result; it is not an error.
	Retrieve(ctx context.Context, collection string, ids []uint64) ([]Point, error)

	// Scroll pages through points in stable id order with an optional
	// payload filter. No ranking.
	Scroll(ctx context.Context, collection string, filter *Filter, limit, offset int) ([]Point, error)

	// Query runs the prefetch branches, fuses their rankings, and
	// returns the paged fused result.
	Query(ctx context.Context, collection string, req QueryRequest) ([]ScoredPoint, error)

	// DeletePoints removes points by id. Absent ids are ignored.
	DeletePoints(ctx context.Context, collection string, ids []uint64) error
}
