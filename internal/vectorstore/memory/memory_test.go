package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cartpilot/internal/vectorstore"
)

const coll = "test"

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	err := s.CreateCollection(context.Background(), coll, vectorstore.CollectionSchema{
		Dense:  map[string]vectorstore.DenseField{"dense": {Size: 2, Distance: vectorstore.DistanceCosine}},
		Sparse: map[string]vectorstore.SparseField{"sparse": {Modifier: "idf"}},
	})
	require.NoError(t, err)
	return s
}

func seedPoints(t *testing.T, s *Store) {
	t.Helper()
	points := []vectorstore.Point{
		{
			ID:      1,
			Dense:   map[string][]float32{"dense": {1, 0}},
			Sparse:  map[string]vectorstore.SparseVector{"sparse": {Indices: []uint32{10, 20}, Values: []float32{1, 1}}},
			Payload: map[string]any{"name": "alpha", "main_category": "electronics", "discount_price": 25.0},
		},
		{
			ID:      2,
			Dense:   map[string][]float32{"dense": {0, 1}},
			Sparse:  map[string]vectorstore.SparseVector{"sparse": {Indices: []uint32{30}, Values: []float32{1}}},
			Payload: map[string]any{"name": "beta", "main_category": "appliances", "discount_price": 80.0},
		},
		{
			ID:      3,
			Dense:   map[string][]float32{"dense": {1, 1}},
			Sparse:  map[string]vectorstore.SparseVector{"sparse": {Indices: []uint32{10}, Values: []float32{1}}},
			Payload: map[string]any{"name": "gamma", "main_category": "electronics", "discount_price": 45.0},
		},
	}
	require.NoError(t, s.Upsert(context.Background(), coll, points))
}

func TestCreateCollectionConflict(t *testing.T) {
	s := newStore(t)
	err := s.CreateCollection(context.Background(), coll, vectorstore.CollectionSchema{})
	assert.True(t, errors.Is(err, vectorstore.ErrCollectionExists))
}

func TestUpsertDimensionMismatch(t *testing.T) {
	s := newStore(t)
	err := s.Upsert(context.Background(), coll, []vectorstore.Point{
		{ID: 1, Dense: map[string][]float32{"dense": {1, 2, 3}}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestQueryFusesBranches(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	// Dense branch prefers id 1; the sparse branch sees term 10 in both
	// 1 and 3, breaking the sparse tie on ascending id. Point 1 wins
	// both branches and must come out first.
	hits, err := s.Query(context.Background(), coll, vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: "dense", DenseQuery: []float32{1, 0}, Limit: 10},
			{Using: "sparse", SparseQuery: &vectorstore.SparseVector{Indices: []uint32{10}, Values: []float32{1}}, Limit: 10},
		},
		Fusion: vectorstore.FusionRRF,
		Limit:  10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, uint64(1), hits[0].ID)

	// Point 2 never overlaps the sparse query and loses on cosine, so
	// it ranks below 3.
	ids := make([]uint64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	assert.Equal(t, []uint64{1, 3, 2}, ids)
}

func TestQueryDeterministic(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	req := vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: "sparse", SparseQuery: &vectorstore.SparseVector{Indices: []uint32{10}, Values: []float32{1}}, Limit: 10},
		},
		Fusion: vectorstore.FusionRRF,
		Limit:  10,
	}

	first, err := s.Query(context.Background(), coll, req)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := s.Query(context.Background(), coll, req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestQuerySparseRequiresOverlap(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	hits, err := s.Query(context.Background(), coll, vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: "sparse", SparseQuery: &vectorstore.SparseVector{Indices: []uint32{999}, Values: []float32{1}}, Limit: 10},
		},
		Fusion: vectorstore.FusionRRF,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Empty(t, hits, "no term overlap means no candidates")
}

func TestQueryAppliesFilter(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	cat := "Electronics"
	hits, err := s.Query(context.Background(), coll, vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: "dense", DenseQuery: []float32{1, 1}, Limit: 10},
		},
		Fusion: vectorstore.FusionRRF,
		Filter: &vectorstore.Filter{Must: []vectorstore.Condition{
			{Field: "main_category", MatchText: &cat},
		}},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2, "match is case-insensitive")
	for _, h := range hits {
		assert.Equal(t, "electronics", h.Payload["main_category"])
	}
}

func TestQueryRangeFilter(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	gte, lte := 30.0, 90.0
	hits, err := s.Query(context.Background(), coll, vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: "dense", DenseQuery: []float32{1, 1}, Limit: 10},
		},
		Fusion: vectorstore.FusionRRF,
		Filter: &vectorstore.Filter{Must: []vectorstore.Condition{
			{Field: "discount_price", Range: &vectorstore.Range{GTE: &gte, LTE: &lte}},
		}},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		price := h.Payload["discount_price"].(float64)
		assert.GreaterOrEqual(t, price, gte)
		assert.LessOrEqual(t, price, lte)
	}
}

func TestQueryPagination(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	req := vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{{Using: "dense", DenseQuery: []float32{1, 1}, Limit: 10}},
		Fusion:   vectorstore.FusionRRF,
	}

	req.Limit, req.Offset = 10, 0
	all, err := s.Query(context.Background(), coll, req)
	require.NoError(t, err)
	require.Len(t, all, 3)

	req.Limit, req.Offset = 2, 1
	page, err := s.Query(context.Background(), coll, req)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, all[1].ID, page[0].ID)
	assert.Equal(t, all[2].ID, page[1].ID)

	req.Limit, req.Offset = 10, 99
	empty, err := s.Query(context.Background(), coll, req)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestScrollOrderAndFilter(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)

	points, err := s.Scroll(context.Background(), coll, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, uint64(1), points[0].ID)
	assert.Equal(t, uint64(3), points[2].ID)

	cat := "electronics"
	filtered, err := s.Scroll(context.Background(), coll, &vectorstore.Filter{
		Must: []vectorstore.Condition{{Field: "main_category", MatchText: &cat}},
	}, 10, 1)
	require.NoError(t, err)
	require.Len(t, filtered, 1, "offset applies after filtering")
	assert.Equal(t, uint64(3), filtered[0].ID)
}

func TestRetrieveAndDelete(t *testing.T) {
	s := newStore(t)
	seedPoints(t, s)
	ctx := context.Background()

	got, err := s.Retrieve(ctx, coll, []uint64{2, 99})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].ID)

	require.NoError(t, s.DeletePoints(ctx, coll, []uint64{2}))
	got, err = s.Retrieve(ctx, coll, []uint64{2})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUnknownCollection(t *testing.T) {
	s := New()
	_, err := s.Scroll(context.Background(), "missing", nil, 10, 0)
	assert.True(t, errors.Is(err, vectorstore.ErrNotFound))
}
