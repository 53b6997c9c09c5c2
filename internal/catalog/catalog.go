// Package catalog implements the retrieval engine: it translates
// search queries into ranked products from the vector store, using the
// dense and sparse embedders, with deterministic filtering and RRF
// fusion of both signal types.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cartpilot/internal/embedding"
	"cartpilot/internal/metrics"
	"cartpilot/internal/models"
	"cartpilot/internal/vectorstore"
)

const (
	// DefaultBatchSize is the ingestion batch size when none is given.
	DefaultBatchSize = 100

	// DefaultLimit caps result pages when no limit is supplied.
	DefaultLimit = 10

	// prefetchMultiplier scales the per-branch candidate count
	// relative to the requested limit.
	prefetchMultiplier = 2

	// minPrefetch is the floor for per-branch candidates so small
	// pages still fuse over a meaningful pool.
	minPrefetch = 20

	// ingestWorkers bounds parallel batch ingestion. Batches write
	// disjoint ids and report disjoint entries, so the observable
	// result is identical to sequential processing.
	ingestWorkers = 4
)

// Service is the retrieval engine.
type Service struct {
	store  vectorstore.Store
	dense  embedding.DenseEmbedder
	sparse embedding.SparseEmbedder
}

// New creates a retrieval engine over the given store and embedders.
func New(store vectorstore.Store, dense embedding.DenseEmbedder, sparse embedding.SparseEmbedder) *Service {
	return &Service{store: store, dense: dense, sparse: sparse}
}

// denseField returns the vector field name for the dense model.
func (s *Service) denseField() string {
	return fieldName(s.dense.Model())
}

// sparseField returns the vector field name for the sparse model.
func (s *Service) sparseField() string {
	return fieldName(s.sparse.Model())
}

// fieldName derives a vector field name from a model identifier by
// taking the last path segment.
func fieldName(model string) string {
	if i := strings.LastIndex(model, "/"); i >= 0 {
		return model[i+1:]
	}
	return model
}

// CreateCollection declares the collection schema: one cosine dense
// field sized to the configured model and one IDF-weighted sparse
// field. Returns false when the collection already exists or the
// create fails; callers probe CollectionExists when they need to
// distinguish the two.
func (s *Service) CreateCollection(ctx context.Context, name string) bool {
	schema := vectorstore.CollectionSchema{
		Dense: map[string]vectorstore.DenseField{
			s.denseField(): {Size: s.dense.Dimension(), Distance: vectorstore.DistanceCosine},
		},
		Sparse: map[string]vectorstore.SparseField{
			s.sparseField(): {Modifier: "idf"},
		},
	}
	if err := s.store.CreateCollection(ctx, name, schema); err != nil {
		slog.Warn("create collection failed", "collection", name, "error", err)
		return false
	}
	return true
}

// CollectionExists probes the store for the collection.
func (s *Service) CollectionExists(ctx context.Context, name string) (bool, error) {
	return s.store.CollectionExists(ctx, name)
}

// DeleteCollection removes the collection; already-absent is success.
func (s *Service) DeleteCollection(ctx context.Context, name string) error {
	return s.store.DeleteCollection(ctx, name)
}

// AddProducts ingests products in fixed-size batches with per-item
// outcome reporting. Batches are independent: an embedding or upsert
// failure marks the whole batch failed and later batches still run.
func (s *Service) AddProducts(ctx context.Context, collection string, products []models.Product, batchSize int, preventDuplicates bool) *models.AddReport {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	report := models.NewAddReport()
	if len(products) == 0 {
		return report
	}

	type batchResult struct {
		successful []models.Product
		failed     map[int]string
	}

	var batches [][]models.Product
	for i := 0; i < len(products); i += batchSize {
		end := min(i+batchSize, len(products))
		batches = append(batches, products[i:end])
	}

	results := make([]batchResult, len(batches))
	var g errgroup.Group
	g.SetLimit(ingestWorkers)
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			results[i] = batchResult{failed: map[int]string{}}
			s.addBatch(ctx, collection, batch, preventDuplicates, &results[i].successful, results[i].failed)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures land in the report

	// Batch order is preserved in the report.
	for _, r := range results {
		report.Successful = append(report.Successful, r.successful...)
		for id, reason := range r.failed {
			report.Failed[id] = reason
		}
	}
	return report
}

// addBatch processes one ingestion batch: duplicate screening, one
// embedding call per signal kind, then one upsert.
func (s *Service) addBatch(ctx context.Context, collection string, batch []models.Product, preventDuplicates bool, successful *[]models.Product, failed map[int]string) {
	pending := batch
	if preventDuplicates {
		ids := make([]uint64, len(batch))
		for i, p := range batch {
			ids[i] = uint64(p.ID)
		}
		existing, err := s.store.Retrieve(ctx, collection, ids)
		if err != nil {
			for _, p := range batch {
				failed[p.ID] = fmt.Sprintf("Duplicate check failed: %v", err)
			}
			return
		}
		existingIDs := make(map[uint64]struct{}, len(existing))
		for _, pt := range existing {
			existingIDs[pt.ID] = struct{}{}
		}
		pending = make([]models.Product, 0, len(batch))
		for _, p := range batch {
			if _, ok := existingIDs[uint64(p.ID)]; ok {
				failed[p.ID] = fmt.Sprintf("Product with ID %d already exists", p.ID)
				continue
			}
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return
	}

	names := make([]string, len(pending))
	for i, p := range pending {
		names[i] = p.Name
	}

	denseVecs, err := s.dense.EmbedBatch(ctx, names)
	if err != nil {
		markBatchFailed(pending, failed, "Embedding generation failed: %v", err)
		return
	}
	sparseVecs, err := s.sparse.EmbedDocuments(ctx, names)
	if err != nil {
		markBatchFailed(pending, failed, "Embedding generation failed: %v", err)
		return
	}

	points := make([]vectorstore.Point, len(pending))
	for i, p := range pending {
		points[i] = vectorstore.Point{
			ID:      uint64(p.ID),
			Dense:   map[string][]float32{s.denseField(): denseVecs[i]},
			Sparse:  map[string]vectorstore.SparseVector{s.sparseField(): sparseVecs[i]},
			Payload: productPayload(p),
		}
	}

	start := time.Now()
	err = s.store.Upsert(ctx, collection, points)
	metrics.Record(metrics.OpUpsert, time.Since(start))
	if err != nil {
		markBatchFailed(pending, failed, "Upsert operation failed: %v", err)
		return
	}
	*successful = append(*successful, pending...)
}

func markBatchFailed(batch []models.Product, failed map[int]string, format string, err error) {
	reason := fmt.Sprintf(format, err)
	for _, p := range batch {
		failed[p.ID] = reason
	}
}

// Search runs the two-branch hybrid query: dense and sparse prefetch
// over the filtered collection, fused with Reciprocal Rank Fusion,
// paged, and mapped back to products.
func (s *Service) Search(ctx context.Context, collection string, q models.SearchQuery) ([]models.Product, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	denseVec, err := s.dense.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sparseVec, err := s.sparse.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	filter := buildFilter(q.MainCategory, q.SubCategory, q.PriceMin, q.PriceMax)
	prefetchLimit := max(limit*prefetchMultiplier, minPrefetch)

	req := vectorstore.QueryRequest{
		Prefetch: []vectorstore.Prefetch{
			{Using: s.denseField(), DenseQuery: denseVec, Filter: filter, Limit: prefetchLimit},
			{Using: s.sparseField(), SparseQuery: &sparseVec, Filter: filter, Limit: prefetchLimit},
		},
		Fusion: vectorstore.FusionRRF,
		Filter: filter,
		Limit:  limit,
		Offset: q.Offset,
	}

	start := time.Now()
	hits, err := s.store.Query(ctx, collection, req)
	metrics.Record(metrics.OpSearch, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	out := make([]models.Product, 0, len(hits))
	for _, hit := range hits {
		p, err := productFromPayload(hit.Payload)
		if err != nil {
			slog.Warn("skipping malformed payload", "id", hit.ID, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// List pages products in storage order with optional category filters.
func (s *Service) List(ctx context.Context, collection string, limit, offset int, mainCategory, subCategory *string) ([]models.Product, error) {
	if subCategory != nil && mainCategory == nil {
		return nil, fmt.Errorf("%w: sub_category filter requires main_category", models.ErrValidation)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	filter := buildFilter(mainCategory, subCategory, nil, nil)
	points, err := s.store.Scroll(ctx, collection, filter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("scroll %s: %w", collection, err)
	}
	out := make([]models.Product, 0, len(points))
	for _, pt := range points {
		p, err := productFromPayload(pt.Payload)
		if err != nil {
			slog.Warn("skipping malformed payload", "id", pt.ID, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Get fetches one product by id. Returns vectorstore.ErrNotFound when
// absent.
func (s *Service) Get(ctx context.Context, collection string, id int) (models.Product, error) {
	points, err := s.store.Retrieve(ctx, collection, []uint64{uint64(id)})
	if err != nil {
		return models.Product{}, fmt.Errorf("retrieve %d: %w", id, err)
	}
	if len(points) == 0 {
		return models.Product{}, fmt.Errorf("product %d: %w", id, vectorstore.ErrNotFound)
	}
	return productFromPayload(points[0].Payload)
}

// Delete removes one product. Returns vectorstore.ErrNotFound when the
// id was already absent; callers treat that as reportable, non-fatal.
func (s *Service) Delete(ctx context.Context, collection string, id int) error {
	points, err := s.store.Retrieve(ctx, collection, []uint64{uint64(id)})
	if err != nil {
		return fmt.Errorf("retrieve %d: %w", id, err)
	}
	if len(points) == 0 {
		return fmt.Errorf("product %d: %w", id, vectorstore.ErrNotFound)
	}
	return s.store.DeletePoints(ctx, collection, []uint64{uint64(id)})
}

// ListCategories scans the collection and maps each main category to
// its sorted sub-categories.
func (s *Service) ListCategories(ctx context.Context, collection string) (map[string][]string, error) {
	const pageSize = 256
	subs := map[string]map[string]struct{}{}
	for offset := 0; ; offset += pageSize {
		points, err := s.store.Scroll(ctx, collection, nil, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("scroll %s: %w", collection, err)
		}
		for _, pt := range points {
			main, _ := pt.Payload["main_category"].(string)
			if main == "" {
				continue
			}
			if _, ok := subs[main]; !ok {
				subs[main] = map[string]struct{}{}
			}
			if sub, _ := pt.Payload["sub_category"].(string); sub != "" {
				subs[main][sub] = struct{}{}
			}
		}
		if len(points) < pageSize {
			break
		}
	}

	out := make(map[string][]string, len(subs))
	for main, set := range subs {
		list := make([]string, 0, len(set))
		for sub := range set {
			list = append(list, sub)
		}
		sort.Strings(list)
		out[main] = list
	}
	return out, nil
}

func buildFilter(mainCategory, subCategory *string, priceMin, priceMax *float64) *vectorstore.Filter {
	var must []vectorstore.Condition
	if mainCategory != nil {
		must = append(must, vectorstore.Condition{Field: "main_category", MatchText: mainCategory})
	}
	if subCategory != nil {
		must = append(must, vectorstore.Condition{Field: "sub_category", MatchText: subCategory})
	}
	if priceMin != nil || priceMax != nil {
		must = append(must, vectorstore.Condition{
			Field: "discount_price",
			Range: &vectorstore.Range{GTE: priceMin, LTE: priceMax},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &vectorstore.Filter{Must: must}
}

// productPayload flattens a product into the stored payload form.
func productPayload(p models.Product) map[string]any {
	data, _ := json.Marshal(p)
	var payload map[string]any
	_ = json.Unmarshal(data, &payload)
	return payload
}

// productFromPayload maps a stored payload back into a product.
func productFromPayload(payload map[string]any) (models.Product, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.Product{}, fmt.Errorf("encode payload: %w", err)
	}
	var p models.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return models.Product{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}
