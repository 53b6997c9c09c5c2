// Package ingest loads product catalogs from the Amazon products CSV
// dump into the models the catalog service expects.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"cartpilot/internal/models"
)

// rupeeToUSD converts dataset prices, which are in Indian rupees, to
// US dollars at a fixed rate.
const rupeeToUSD = 0.012

// columns the loader understands; unknown columns are ignored.
const (
	colName         = "name"
	colMainCategory = "main_category"
	colSubCategory  = "sub_category"
	colImage        = "image"
	colLink         = "link"
	colRatings      = "ratings"
	colNoOfRatings  = "no_of_ratings"
	colDiscPrice    = "discount_price"
	colActualPrice  = "actual_price"
)

// LoadFile reads products from a CSV file. Row order determines
// product ids, starting at 1, so repeated loads of the same file
// produce the same ids.
func LoadFile(path string, limit int) ([]models.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return Load(f, limit)
}

// Load reads products from CSV data. The first record must be a
// header naming the columns. Rows without a usable product name are
// skipped; malformed optional fields degrade to nil. limit <= 0 loads
// everything.
func Load(r io.Reader, limit int) ([]models.Product, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, col := range header {
		idx[strings.TrimSpace(strings.ToLower(col))] = i
	}
	if _, ok := idx[colName]; !ok {
		return nil, fmt.Errorf("csv header misses %q column", colName)
	}

	var products []models.Product
	skipped := 0
	for row := 1; ; row++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", row, err)
		}

		field := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		name := field(colName)
		if name == "" || strings.EqualFold(name, "nan") {
			skipped++
			continue
		}

		p := models.Product{
			ID:            row,
			Name:          name,
			MainCategory:  strPtr(field(colMainCategory)),
			SubCategory:   strPtr(field(colSubCategory)),
			Image:         urlPtr(field(colImage)),
			Link:          urlPtr(field(colLink)),
			Ratings:       parseRating(field(colRatings)),
			NoOfRatings:   parseCount(field(colNoOfRatings)),
			DiscountPrice: parsePrice(field(colDiscPrice)),
			ActualPrice:   parsePrice(field(colActualPrice)),
		}
		products = append(products, p)

		if limit > 0 && len(products) >= limit {
			break
		}
	}

	if skipped > 0 {
		slog.Info("skipped unusable csv rows", "count", skipped)
	}
	return products, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// urlPtr keeps a field only when it parses as an absolute http(s) URL.
func urlPtr(s string) *string {
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil
	}
	return &s
}

// parsePrice strips currency symbols and thousands separators and
// converts rupees to dollars.
func parsePrice(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(strings.TrimPrefix(s, "₹"), ",", ""))
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return nil
	}
	usd := v * rupeeToUSD
	return &usd
}

// parseRating tolerates the dataset's junk values ("Get", "FREE", ...)
// by dropping anything outside a 0..5 float.
func parseRating(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 5 {
		return nil
	}
	return &v
}

func parseCount(s string) *int {
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
