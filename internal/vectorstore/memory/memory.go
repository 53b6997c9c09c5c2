// Package memory provides an in-memory vectorstore.Store used by tests
// and the local development mode. Fusion and filtering mirror the
// Qdrant behavior the retrieval engine relies on, deterministically.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"cartpilot/internal/vectorstore"
)

// rrfK is the standard rank-fusion constant.
const rrfK = 60

type collection struct {
	schema vectorstore.CollectionSchema
	points map[uint64]vectorstore.Point
}

// Store is a thread-safe in-memory vector store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

var _ vectorstore.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) CreateCollection(_ context.Context, name string, schema vectorstore.CollectionSchema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("create collection %s: %w", name, vectorstore.ErrCollectionExists)
	}
	s.collections[name] = &collection{
		schema: schema,
		points: make(map[uint64]vectorstore.Point),
	}
	return nil
}

func (s *Store) CollectionExists(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *Store) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) Upsert(_ context.Context, name string, points []vectorstore.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, vectorstore.ErrNotFound)
	}
	for _, p := range points {
		for field, vec := range p.Dense {
			spec, ok := coll.schema.Dense[field]
			if !ok {
				return fmt.Errorf("unknown dense field %q", field)
			}
			if len(vec) != spec.Size {
				return fmt.Errorf("dense field %q: dimension mismatch: got %d, want %d", field, len(vec), spec.Size)
			}
		}
		coll.points[p.ID] = p
	}
	return nil
}

func (s *Store) Retrieve(_ context.Context, name string, ids []uint64) ([]vectorstore.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, vectorstore.ErrNotFound)
	}
	out := make([]vectorstore.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := coll.points[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) Scroll(_ context.Context, name string, filter *vectorstore.Filter, limit, offset int) ([]vectorstore.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, vectorstore.ErrNotFound)
	}
	ids := sortedIDs(coll)
	out := []vectorstore.Point{}
	skipped := 0
	for _, id := range ids {
		p := coll.points[id]
		if !matches(p, filter) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Query(_ context.Context, name string, req vectorstore.QueryRequest) ([]vectorstore.ScoredPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("collection %s: %w", name, vectorstore.ErrNotFound)
	}
	if req.Fusion != "" && req.Fusion != vectorstore.FusionRRF {
		return nil, fmt.Errorf("unsupported fusion method %q", req.Fusion)
	}

	// Rank each prefetch branch independently, then fuse by
	// reciprocal rank. Ties break on ascending id so the fused order
	// is a pure function of the branch rankings.
	fused := map[uint64]float64{}
	for _, branch := range req.Prefetch {
		ranking := s.rankBranch(coll, branch, req.Filter)
		for rank, id := range ranking {
			fused[id] += 1.0 / float64(rrfK+rank+1)
		}
	}

	ids := make([]uint64, 0, len(fused))
	for id := range fused {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if fused[ids[i]] != fused[ids[j]] {
			return fused[ids[i]] > fused[ids[j]]
		}
		return ids[i] < ids[j]
	})

	if req.Offset > len(ids) {
		ids = nil
	} else {
		ids = ids[req.Offset:]
	}
	if req.Limit > 0 && len(ids) > req.Limit {
		ids = ids[:req.Limit]
	}

	out := make([]vectorstore.ScoredPoint, 0, len(ids))
	for _, id := range ids {
		out = append(out, vectorstore.ScoredPoint{Point: coll.points[id], Score: fused[id]})
	}
	return out, nil
}

func (s *Store) DeletePoints(_ context.Context, name string, ids []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	coll, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("collection %s: %w", name, vectorstore.ErrNotFound)
	}
	for _, id := range ids {
		delete(coll.points, id)
	}
	return nil
}

// rankBranch scores all matching points for one prefetch branch and
// returns their ids best-first, truncated to the branch limit.
func (s *Store) rankBranch(coll *collection, branch vectorstore.Prefetch, topFilter *vectorstore.Filter) []uint64 {
	type scored struct {
		id    uint64
		score float64
	}
	var candidates []scored
	for _, id := range sortedIDs(coll) {
		p := coll.points[id]
		if !matches(p, branch.Filter) || !matches(p, topFilter) {
			continue
		}
		var score float64
		switch {
		case branch.DenseQuery != nil:
			vec, ok := p.Dense[branch.Using]
			if !ok {
				continue
			}
			score = cosine(branch.DenseQuery, vec)
		case branch.SparseQuery != nil:
			vec, ok := p.Sparse[branch.Using]
			if !ok {
				continue
			}
			score = sparseDot(*branch.SparseQuery, vec)
			if score == 0 {
				continue // no term overlap, not a candidate
			}
		default:
			continue
		}
		candidates = append(candidates, scored{id: id, score: score})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].id < candidates[j].id
	})
	if branch.Limit > 0 && len(candidates) > branch.Limit {
		candidates = candidates[:branch.Limit]
	}
	ids := make([]uint64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids
}

func sortedIDs(coll *collection) []uint64 {
	ids := make([]uint64, 0, len(coll.points))
	for id := range coll.points {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func matches(p vectorstore.Point, f *vectorstore.Filter) bool {
	if f == nil {
		return true
	}
	for _, cond := range f.Must {
		if !matchCondition(p, cond) {
			return false
		}
	}
	return true
}

func matchCondition(p vectorstore.Point, cond vectorstore.Condition) bool {
	if len(cond.HasID) > 0 {
		for _, id := range cond.HasID {
			if p.ID == id {
				return true
			}
		}
		return false
	}
	val, ok := p.Payload[cond.Field]
	if !ok || val == nil {
		return false
	}
	if cond.MatchText != nil {
		s, ok := val.(string)
		if !ok {
			return false
		}
		return strings.Contains(strings.ToLower(s), strings.ToLower(*cond.MatchText))
	}
	if cond.Range != nil {
		num, ok := toFloat(val)
		if !ok {
			return false
		}
		if cond.Range.GTE != nil && num < *cond.Range.GTE {
			return false
		}
		if cond.Range.LTE != nil && num > *cond.Range.LTE {
			return false
		}
		return true
	}
	return true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func sparseDot(a, b vectorstore.SparseVector) float64 {
	idx := make(map[uint32]float32, len(a.Indices))
	for i, ix := range a.Indices {
		idx[ix] = a.Values[i]
	}
	var dot float64
	for i, ix := range b.Indices {
		if v, ok := idx[ix]; ok {
			dot += float64(v) * float64(b.Values[i])
		}
	}
	return dot
}
