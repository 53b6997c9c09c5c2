// Package qdrant implements vectorstore.Store against the Qdrant REST
// API. It speaks plain JSON over HTTP so the only runtime requirement
// is a reachable Qdrant instance.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"cartpilot/internal/vectorstore"
)

// Config holds connection details for a Qdrant server.
type Config struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Store is a REST client to Qdrant implementing vectorstore.Store.
type Store struct {
	url    string
	apiKey string
	client *http.Client
}

var _ vectorstore.Store = (*Store)(nil)

// New creates a Qdrant-backed store.
func New(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Store) CreateCollection(ctx context.Context, name string, schema vectorstore.CollectionSchema) error {
	vectors := map[string]any{}
	for field, spec := range schema.Dense {
		vectors[field] = map[string]any{
			"size":     spec.Size,
			"distance": spec.Distance,
		}
	}
	sparse := map[string]any{}
	for field, spec := range schema.Sparse {
		cfg := map[string]any{}
		if spec.Modifier != "" {
			cfg["modifier"] = spec.Modifier
		}
		sparse[field] = cfg
	}
	body := map[string]any{"vectors": vectors}
	if len(sparse) > 0 {
		body["sparse_vectors"] = sparse
	}
	return s.do(ctx, http.MethodPut, "/collections/"+name, body, nil)
}

func (s *Store) CollectionExists(ctx context.Context, name string) (bool, error) {
	var result struct {
		Exists bool `json:"exists"`
	}
	if err := s.do(ctx, http.MethodGet, "/collections/"+name+"/exists", nil, &result); err != nil {
		return false, err
	}
	return result.Exists, nil
}

func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	// Qdrant returns 200 with result=false for an absent collection,
	// which matches the idempotent contract.
	return s.do(ctx, http.MethodDelete, "/collections/"+name, nil, nil)
}

func (s *Store) Upsert(ctx context.Context, collection string, points []vectorstore.Point) error {
	if len(points) == 0 {
		return nil
	}
	payload := make([]map[string]any, len(points))
	for i, p := range points {
		vector := map[string]any{}
		for field, vec := range p.Dense {
			vector[field] = vec
		}
		for field, vec := range p.Sparse {
			vector[field] = map[string]any{
				"indices": vec.Indices,
				"values":  vec.Values,
			}
		}
		payload[i] = map[string]any{
			"id":      p.ID,
			"vector":  vector,
			"payload": p.Payload,
		}
	}
	body := map[string]any{"points": payload}
	return s.do(ctx, http.MethodPut, "/collections/"+collection+"/points?wait=true", body, nil)
}

func (s *Store) Retrieve(ctx context.Context, collection string, ids []uint64) ([]vectorstore.Point, error) {
	if len(ids) == 0 {
		return []vectorstore.Point{}, nil
	}
	body := map[string]any{
		"ids":          ids,
		"with_payload": true,
	}
	var result []struct {
		ID      uint64         `json:"id"`
		Payload map[string]any `json:"payload"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points", body, &result); err != nil {
		return nil, err
	}
	points := make([]vectorstore.Point, len(result))
	for i, r := range result {
		points[i] = vectorstore.Point{ID: r.ID, Payload: r.Payload}
	}
	return points, nil
}

func (s *Store) Scroll(ctx context.Context, collection string, filter *vectorstore.Filter, limit, offset int) ([]vectorstore.Point, error) {
	// The query endpoint without a query vector pages points in id
	// order and, unlike the scroll endpoint, takes a numeric offset.
	body := map[string]any{
		"with_payload": true,
		"limit":        limit,
		"offset":       offset,
	}
	if f := encodeFilter(filter); f != nil {
		body["filter"] = f
	}
	var result struct {
		Points []struct {
			ID      uint64         `json:"id"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/query", body, &result); err != nil {
		return nil, err
	}
	points := make([]vectorstore.Point, len(result.Points))
	for i, r := range result.Points {
		points[i] = vectorstore.Point{ID: r.ID, Payload: r.Payload}
	}
	return points, nil
}

func (s *Store) Query(ctx context.Context, collection string, req vectorstore.QueryRequest) ([]vectorstore.ScoredPoint, error) {
	prefetch := make([]map[string]any, len(req.Prefetch))
	for i, branch := range req.Prefetch {
		b := map[string]any{
			"using": branch.Using,
			"limit": branch.Limit,
		}
		switch {
		case branch.DenseQuery != nil:
			b["query"] = branch.DenseQuery
		case branch.SparseQuery != nil:
			b["query"] = map[string]any{
				"indices": branch.SparseQuery.Indices,
				"values":  branch.SparseQuery.Values,
			}
		}
		if f := encodeFilter(branch.Filter); f != nil {
			b["filter"] = f
		}
		prefetch[i] = b
	}
	body := map[string]any{
		"prefetch":     prefetch,
		"query":        map[string]any{"fusion": req.Fusion},
		"with_payload": true,
		"limit":        req.Limit,
		"offset":       req.Offset,
	}
	if f := encodeFilter(req.Filter); f != nil {
		body["filter"] = f
	}
	var result struct {
		Points []struct {
			ID      uint64         `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"points"`
	}
	if err := s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/query", body, &result); err != nil {
		return nil, err
	}
	points := make([]vectorstore.ScoredPoint, len(result.Points))
	for i, r := range result.Points {
		points[i] = vectorstore.ScoredPoint{
			Point: vectorstore.Point{ID: r.ID, Payload: r.Payload},
			Score: r.Score,
		}
	}
	return points, nil
}

func (s *Store) DeletePoints(ctx context.Context, collection string, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	body := map[string]any{"points": ids}
	return s.do(ctx, http.MethodPost, "/collections/"+collection+"/points/delete?wait=true", body, nil)
}

func encodeFilter(f *vectorstore.Filter) map[string]any {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(f.Must))
	for _, cond := range f.Must {
		switch {
		case len(cond.HasID) > 0:
			must = append(must, map[string]any{"has_id": cond.HasID})
		case cond.MatchText != nil:
			must = append(must, map[string]any{
				"key":   cond.Field,
				"match": map[string]any{"text": *cond.MatchText},
			})
		case cond.Range != nil:
			r := map[string]any{}
			if cond.Range.GTE != nil {
				r["gte"] = *cond.Range.GTE
			}
			if cond.Range.LTE != nil {
				r["lte"] = *cond.Range.LTE
			}
			must = append(must, map[string]any{
				"key":   cond.Field,
				"range": r,
			})
		}
	}
	return map[string]any{"must": must}
}

// apiEnvelope is Qdrant's standard response wrapper.
type apiEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

// do issues one request with exponential-backoff retry on transient
// failures and decodes the result envelope into out when non-nil.
func (s *Store) do(ctx context.Context, method, path string, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		encoded, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if encoded != nil {
			reader = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, s.url+path, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("api-key", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("qdrant %s %s: %w", method, path, err))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("read response: %w", err))
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return fmt.Errorf("qdrant %s %s: %w", method, path, vectorstore.ErrNotFound)
		case resp.StatusCode == http.StatusConflict:
			return fmt.Errorf("qdrant %s %s: %w", method, path, vectorstore.ErrCollectionExists)
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 200)))
		case resp.StatusCode >= 400:
			return fmt.Errorf("qdrant %s %s: status %d: %s", method, path, resp.StatusCode, truncate(data, 200))
		}

		if out != nil {
			var envelope apiEnvelope
			if err := json.Unmarshal(data, &envelope); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			if err := json.Unmarshal(envelope.Result, out); err != nil {
				return fmt.Errorf("decode result: %w", err)
			}
		}
		return nil
	})
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
