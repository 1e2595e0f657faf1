package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/repository/memory"
	"github.com/shopspring/decimal"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func testTracer() trace.Tracer {
	return tracenoop.NewTracerProvider().Tracer("test")
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestStore() *memory.Store {
	return memory.NewStore(testTracer(), testLogger())
}

func newTestProductService(store domain.CatalogStore, provider domain.SearchProvider) *ProductService {
	meter := metricnoop.NewMeterProvider().Meter("test")
	reconciler := NewCategoryReconciler(testTracer(), meter, testLogger())
	return NewProductService(store, provider, reconciler, testTracer(), meter, testLogger())
}

func newTestSubscriptionService(store domain.CatalogStore) *SubscriptionService {
	return NewSubscriptionService(store, testTracer(), metricnoop.NewMeterProvider().Meter("test"), testLogger())
}

// fakeProvider returns a fixed candidate list and records the queries it saw
type fakeProvider struct {
	candidates []domain.CandidateProduct
	err        error

	mu      sync.Mutex
	queries []domain.ProductQuery
}

func (p *fakeProvider) Search(_ context.Context, query domain.ProductQuery) ([]domain.CandidateProduct, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, query)
	if p.err != nil {
		return nil, p.err
	}
	return append([]domain.CandidateProduct(nil), p.candidates...), nil
}

func candidate(name, extID, categoryName string, prices ...string) domain.CandidateProduct {
	c := domain.CandidateProduct{
		Name:     name,
		Category: domain.CategoryDescriptor{ExternalID: extID, Name: categoryName},
	}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		c.PriceHistory = append(c.PriceHistory, domain.PricePoint{
			Value: decimal.RequireFromString(p),
			Date:  day.AddDate(0, 0, i),
		})
	}
	return c
}

// seedProducts stores one product per name under a shared category and returns their IDs
func seedProducts(t *testing.T, store domain.CatalogStore, names ...string) []int64 {
	t.Helper()

	var ids []int64
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
		category := &domain.Category{ExternalID: "seed", Name: "Seed"}
		if err := tx.Categories().Save(ctx, category); err != nil {
			return err
		}
		products := make([]*domain.Product, len(names))
		for i, name := range names {
			products[i] = &domain.Product{Name: name, CategoryID: category.ID}
		}
		if err := tx.Products().SaveAll(ctx, products); err != nil {
			return err
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed products: %v", err)
	}
	return ids
}

func seedUser(t *testing.T, store domain.CatalogStore, name string) int64 {
	t.Helper()

	user := &domain.User{Name: name}
	if err := store.Users().Save(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

// failingSaveStore wraps a store so that every SaveAll inside a transaction fails
type failingSaveStore struct {
	domain.CatalogStore
	err error
}

func (s failingSaveStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return s.CatalogStore.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return fn(ctx, failingSaveTx{Tx: tx, err: s.err})
	})
}

type failingSaveTx struct {
	domain.Tx
	err error
}

func (t failingSaveTx) Products() domain.ProductRepository {
	return failingProducts{ProductRepository: t.Tx.Products(), err: t.err}
}

type failingProducts struct {
	domain.ProductRepository
	err error
}

func (p failingProducts) SaveAll(context.Context, []*domain.Product) error {
	return p.err
}
