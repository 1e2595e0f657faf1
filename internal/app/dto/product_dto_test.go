package dto

import (
	"testing"
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/shopspring/decimal"
)

func TestToProductView(t *testing.T) {
	p := &domain.Product{
		ID:          4,
		Name:        "Kindle Paperwhite",
		Description: "e-reader",
		PriceHistory: []domain.Value{
			{ID: 1, Value: decimal.RequireFromString("149.99"), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
			{ID: 2, Value: decimal.RequireFromString("129.90"), Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		},
		CategoryID: 2,
		Category:   &domain.Category{ID: 2, ExternalID: "ereaders", Name: "E-readers"},
	}

	view, err := ToProductView(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ID != 4 || view.Name != "Kindle Paperwhite" || view.Description != "e-reader" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Category != (CategoryView{ID: 2, Name: "E-readers", ExternalID: "ereaders"}) {
		t.Fatalf("unexpected category view: %+v", view.Category)
	}
	if len(view.PriceHistory) != 2 {
		t.Fatalf("expected 2 price points, got %d", len(view.PriceHistory))
	}
	if view.PriceHistory[0] != (PriceView{Value: "149.99", Date: "2024-01-05"}) {
		t.Fatalf("unexpected first price: %+v", view.PriceHistory[0])
	}
	if view.PriceHistory[1].Value != "129.9" || view.PriceHistory[1].Date != "2024-03-01" {
		t.Fatalf("unexpected second price: %+v", view.PriceHistory[1])
	}
}

func TestToProductViewEmptyHistory(t *testing.T) {
	view, err := ToProductView(&domain.Product{
		ID:       1,
		Name:     "Bare",
		Category: &domain.Category{ID: 1, ExternalID: "x"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.PriceHistory == nil || len(view.PriceHistory) != 0 {
		t.Fatalf("expected empty non-nil history, got %#v", view.PriceHistory)
	}
}

func TestToProductViewRequiresCategory(t *testing.T) {
	if _, err := ToProductView(&domain.Product{ID: 1, Name: "Orphan", CategoryID: 9}); !domain.IsInvariant(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if _, err := ToProductView(nil); !domain.IsInvariant(err) {
		t.Fatalf("expected invariant error for nil product, got %v", err)
	}

	_, err := ToProductViewList([]*domain.Product{
		{ID: 1, Name: "ok", Category: &domain.Category{ID: 1}},
		{ID: 2, Name: "orphan"},
	})
	if !domain.IsInvariant(err) {
		t.Fatalf("expected list projection to fail, got %v", err)
	}
}

func TestSearchProductRequestToProductQuery(t *testing.T) {
	q := SearchProductRequest{Phrase: "kindle", Category: "ereaders", Limit: 5}.ToProductQuery()
	if q != (domain.ProductQuery{Phrase: "kindle", CategoryExternalID: "ereaders", Limit: 5}) {
		t.Fatalf("unexpected query: %+v", q)
	}
}
