package domain

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ProductQuery describes a search request sent to the provider
type ProductQuery struct {
	Phrase             string
	CategoryExternalID string
	Limit              int
}

// Validate performs basic validation on the query
func (q ProductQuery) Validate() error {
	if strings.TrimSpace(q.Phrase) == "" && strings.TrimSpace(q.CategoryExternalID) == "" {
		return ErrInvalidQuery
	}
	return nil
}

// CategoryDescriptor identifies a provider category. It is a comparable value:
// two descriptors are the same only when every field matches.
type CategoryDescriptor struct {
	ExternalID string `validate:"required"`
	Name       string
}

// PricePoint is a provider-side price observation
type PricePoint struct {
	Value decimal.Decimal
	Date  time.Time `validate:"required"`
}

// CandidateProduct is a product record returned by the provider that has not
// yet been checked against the catalog
type CandidateProduct struct {
	Name         string `validate:"required"`
	Description  string
	Category     CategoryDescriptor
	PriceHistory []PricePoint `validate:"dive"`
}

// SearchProvider supplies candidate products for a query. It must not touch
// the catalog store.
type SearchProvider interface {
	Search(ctx context.Context, query ProductQuery) ([]CandidateProduct, error)
}
