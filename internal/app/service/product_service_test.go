package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mrops-br/price-watch-api/internal/domain"
)

func TestSearchProductCreatesCategoryAndProduct(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	provider := &fakeProvider{candidates: []domain.CandidateProduct{
		candidate("Widget", "ext-1", "Tools", "10.00", "9.50"),
	}}
	svc := newTestProductService(store, provider)

	added, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "widget"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(added) != 1 || added[0].Name != "Widget" {
		t.Fatalf("expected only Widget to be returned, got %+v", added)
	}
	if added[0].Category.ExternalID != "ext-1" || added[0].Category.Name != "Tools" {
		t.Fatalf("unexpected category: %+v", added[0].Category)
	}
	if len(added[0].PriceHistory) != 2 || added[0].PriceHistory[1].Value != "9.5" {
		t.Fatalf("unexpected price history: %+v", added[0].PriceHistory)
	}

	category, err := store.Categories().FindByExternalID(ctx, "ext-1")
	if err != nil {
		t.Fatalf("category not stored: %v", err)
	}
	product, err := store.Products().FindByID(ctx, added[0].ID)
	if err != nil {
		t.Fatalf("product not stored: %v", err)
	}
	if product.CategoryID != category.ID {
		t.Fatalf("product references category %d, want %d", product.CategoryID, category.ID)
	}
	if len(provider.queries) != 1 || provider.queries[0].Phrase != "widget" {
		t.Fatalf("unexpected provider queries: %+v", provider.queries)
	}
}

func TestSearchProductIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	provider := &fakeProvider{candidates: []domain.CandidateProduct{
		candidate("Widget", "ext-1", "Tools", "10.00"),
	}}
	svc := newTestProductService(store, provider)

	first, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "widget"})
	if err != nil || len(first) != 1 {
		t.Fatalf("first search: %v, %d products", err, len(first))
	}

	second, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "widget"})
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected no new products, got %+v", second)
	}

	if _, err := store.Products().FindByID(ctx, first[0].ID+1); !domain.IsNotFound(err) {
		t.Fatalf("expected no second product row, got %v", err)
	}
	category := &domain.Category{ExternalID: "ext-1"}
	if err := store.Categories().Save(ctx, category); !domain.IsConflict(err) {
		t.Fatalf("expected ext-1 to be stored exactly once, got %v", err)
	}
}

func TestSearchProductDeduplicatesWithinBatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	provider := &fakeProvider{candidates: []domain.CandidateProduct{
		candidate("Widget", "ext-1", "Tools", "10.00"),
		candidate("Gadget", "ext-1", "Tools", "5.00"),
		candidate("Widget", "ext-2", "Hardware", "12.00"),
	}}
	svc := newTestProductService(store, provider)

	added, err := svc.SearchProduct(ctx, domain.ProductQuery{CategoryExternalID: "ext-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(added) != 2 {
		t.Fatalf("expected 2 products, got %d", len(added))
	}
	if added[0].Name != "Widget" || added[0].Category.ExternalID != "ext-1" {
		t.Fatalf("expected first Widget to win, got %+v", added[0])
	}
	if added[1].Name != "Gadget" {
		t.Fatalf("expected Gadget second, got %+v", added[1])
	}
	if added[0].Category.ID != added[1].Category.ID {
		t.Fatalf("products sharing a descriptor must share the category row")
	}

	// Categories of skipped candidates are still reconciled.
	if ok, _ := store.Categories().ExistsByExternalID(ctx, "ext-2"); !ok {
		t.Fatalf("expected ext-2 to be reconciled")
	}
}

func TestSearchProductRejectsEmptyQuery(t *testing.T) {
	provider := &fakeProvider{}
	svc := newTestProductService(newTestStore(), provider)

	_, err := svc.SearchProduct(context.Background(), domain.ProductQuery{Limit: 3})
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
	if len(provider.queries) != 0 {
		t.Fatalf("provider must not be called for an invalid query")
	}
}

func TestSearchProductProviderFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	providerErr := errors.New("upstream unavailable")
	svc := newTestProductService(store, &fakeProvider{err: providerErr})

	if _, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "x"}); !errors.Is(err, providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestSearchProductRollsBackCategoriesWhenSaveFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	saveErr := errors.New("disk full")
	provider := &fakeProvider{candidates: []domain.CandidateProduct{
		candidate("Widget", "ext-1", "Tools", "10.00"),
	}}
	svc := newTestProductService(failingSaveStore{CatalogStore: store, err: saveErr}, provider)

	if _, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "widget"}); !errors.Is(err, saveErr) {
		t.Fatalf("expected save error, got %v", err)
	}

	if ok, _ := store.Categories().ExistsByExternalID(ctx, "ext-1"); ok {
		t.Fatalf("category created in a failed synchronization must be rolled back")
	}
	if ok, _ := store.Products().ExistsByName(ctx, "Widget"); ok {
		t.Fatalf("product must not be stored")
	}
}

func TestSearchProductMissingCategoryExternalID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	provider := &fakeProvider{candidates: []domain.CandidateProduct{
		candidate("Widget", "ext-1", "Tools"),
		candidate("Nameless", "", "Unknown"),
	}}
	svc := newTestProductService(store, provider)

	if _, err := svc.SearchProduct(ctx, domain.ProductQuery{Phrase: "w"}); !domain.IsInvariant(err) {
		t.Fatalf("expected invariant error, got %v", err)
	}
	if ok, _ := store.Categories().ExistsByExternalID(ctx, "ext-1"); ok {
		t.Fatalf("nothing may be persisted when reconciliation fails")
	}
}

func TestGetProductDetails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	ids := seedProducts(t, store, "Widget")
	svc := newTestProductService(store, &fakeProvider{})

	view, err := svc.GetProductDetails(ctx, ids[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Name != "Widget" || view.Category.ExternalID != "seed" {
		t.Fatalf("unexpected view: %+v", view)
	}

	if _, err := svc.GetProductDetails(ctx, 999); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
