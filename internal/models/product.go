// Package models defines the shared data types for the product catalog
// and the shopping assistant.
package models

import (
	"errors"
	"fmt"
)

// ErrValidation marks input that fails a Validate check. Match with
// errors.Is.
var ErrValidation = errors.New("validation failed")

// Product is the canonical catalog entity. The name is the embedding
// source text; everything else is payload carried through the vector
// store untouched.
type Product struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	MainCategory *string  `json:"main_category,omitempty"`
	SubCategory  *string  `json:"sub_category,omitempty"`
	Image        *string  `json:"image,omitempty"`
	Link         *string  `json:"link,omitempty"`
	Ratings      *float64 `json:"ratings,omitempty"`
	NoOfRatings  *int     `json:"no_of_ratings,omitempty"`
	// Prices are USD. discount_price <= actual_price when both are set;
	// advisory only, never enforced by storage.
	DiscountPrice *float64 `json:"discount_price,omitempty"`
	ActualPrice   *float64 `json:"actual_price,omitempty"`
}

// Validate checks the fields a product must carry before ingestion.
func (p Product) Validate() error {
	if p.ID < 0 {
		return fmt.Errorf("%w: product id must be non-negative, got %d", ErrValidation, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: product %d has an empty name", ErrValidation, p.ID)
	}
	return nil
}

// SearchQuery drives one Retrieval Engine search. Transient, produced
// from UserPreferences or request parameters, never persisted.
type SearchQuery struct {
	Query        string
	MainCategory *string
	SubCategory  *string
	PriceMin     *float64
	PriceMax     *float64
	Limit        int
	Offset       int
}

// Validate rejects filter combinations the store cannot answer.
// A sub-category filter is only meaningful inside a main category.
func (q SearchQuery) Validate() error {
	if q.SubCategory != nil && q.MainCategory == nil {
		return fmt.Errorf("%w: sub_category filter requires main_category", ErrValidation)
	}
	if q.Limit < 0 || q.Offset < 0 {
		return fmt.Errorf("%w: limit and offset must be non-negative", ErrValidation)
	}
	return nil
}

// AddReport is the per-item outcome of a batch ingestion call.
type AddReport struct {
	Successful []Product      `json:"successful"`
	Failed     map[int]string `json:"failed"`
}

// NewAddReport returns an empty report ready for accumulation.
func NewAddReport() *AddReport {
	return &AddReport{
		Successful: []Product{},
		Failed:     map[int]string{},
	}
}

// StrPtr returns a pointer to s. Convenience for optional fields.
func StrPtr(s string) *string { return &s }

// FloatPtr returns a pointer to f.
func FloatPtr(f float64) *float64 { return &f }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }
