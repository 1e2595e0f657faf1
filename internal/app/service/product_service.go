package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases: synchronizing search results into
// the catalog and reading product details
type ProductService struct {
	store                domain.CatalogStore
	provider             domain.SearchProvider
	reconciler           *CategoryReconciler
	tracer               trace.Tracer
	logger               *slog.Logger
	productSyncedCounter metric.Int64Counter
	searchCandidates     metric.Int64Counter
	productOperations    metric.Int64Counter
}

// NewProductService creates a new product service
func NewProductService(
	store domain.CatalogStore,
	provider domain.SearchProvider,
	reconciler *CategoryReconciler,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *ProductService {
	// Initialize metrics
	productSyncedCounter, _ := meter.Int64Counter(
		"products.synchronized.total",
		metric.WithDescription("Total number of products persisted from search results"),
	)

	searchCandidates, _ := meter.Int64Counter(
		"search.candidates.total",
		metric.WithDescription("Total number of candidate products returned by the search provider"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	return &ProductService{
		store:                store,
		provider:             provider,
		reconciler:           reconciler,
		tracer:               tracer,
		logger:               logger,
		productSyncedCounter: productSyncedCounter,
		searchCandidates:     searchCandidates,
		productOperations:    productOperations,
	}
}

// SearchProduct queries the search provider and merges the candidates into the
// catalog. Only the products created by this call are returned; candidates whose
// name is already in the catalog are skipped.
func (s *ProductService) SearchProduct(ctx context.Context, query domain.ProductQuery) ([]dto.ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.SearchProduct")
	defer span.End()

	syncID := uuid.NewString()
	span.SetAttributes(
		attribute.String("sync.id", syncID),
		attribute.String("search.phrase", query.Phrase),
		attribute.String("search.category", query.CategoryExternalID),
	)

	logger := s.logger.With(slog.String("sync_id", syncID))
	logger.InfoContext(ctx, "Searching products",
		slog.String("phrase", query.Phrase),
		slog.String("category", query.CategoryExternalID),
	)

	if err := query.Validate(); err != nil {
		s.fail(ctx, span, "search", "Invalid query", err)
		return nil, err
	}

	// The provider call stays outside the transaction.
	candidates, err := s.provider.Search(ctx, query)
	if err != nil {
		s.fail(ctx, span, "search", "Search provider failed", err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("search.candidates", len(candidates)))
	s.searchCandidates.Add(ctx, int64(len(candidates)))

	var added []*domain.Product
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := s.reconciler.Reconcile(ctx, tx, categoriesOf(candidates)); err != nil {
			return err
		}

		fresh, err := s.newCandidates(ctx, tx, candidates)
		if err != nil {
			return err
		}

		products := make([]*domain.Product, 0, len(fresh))
		for _, c := range fresh {
			p, err := s.toProduct(ctx, tx, c)
			if err != nil {
				return err
			}
			products = append(products, p)
		}
		if len(products) == 0 {
			return nil
		}

		if err := tx.Products().SaveAll(ctx, products); err != nil {
			return err
		}
		added = products
		return nil
	})
	if err != nil {
		s.fail(ctx, span, "search", "Failed to synchronize products", err)
		return nil, err
	}

	views, err := dto.ToProductViewList(added)
	if err != nil {
		s.fail(ctx, span, "search", "Failed to project products", err)
		return nil, err
	}

	s.productSyncedCounter.Add(ctx, int64(len(added)))
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "search"),
			attribute.String("result", "success"),
		),
	)

	span.SetAttributes(attribute.Int("product.synchronized", len(added)))
	logger.InfoContext(ctx, "Products synchronized",
		slog.Int("candidates", len(candidates)),
		slog.Int("synchronized", len(added)),
	)

	span.SetStatus(codes.Ok, "Products synchronized")
	return views, nil
}

// GetProductDetails retrieves a product by ID
func (s *ProductService) GetProductDetails(ctx context.Context, id int64) (*dto.ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductDetails")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	s.logger.InfoContext(ctx, "Getting product by ID",
		slog.Int64("product_id", id),
	)

	product, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		s.fail(ctx, span, "read", "Product lookup failed", err)
		return nil, err
	}

	view, err := dto.ToProductView(product)
	if err != nil {
		s.fail(ctx, span, "read", "Failed to project product", err)
		return nil, err
	}

	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", "read"),
			attribute.String("result", "success"),
		),
	)

	span.SetStatus(codes.Ok, "Product retrieved successfully")
	return &view, nil
}

// newCandidates drops candidates whose name is already stored or already
// accepted earlier in the same batch
func (s *ProductService) newCandidates(ctx context.Context, tx domain.Tx, candidates []domain.CandidateProduct) ([]domain.CandidateProduct, error) {
	accepted := make(map[string]struct{}, len(candidates))
	fresh := make([]domain.CandidateProduct, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := accepted[c.Name]; ok {
			continue
		}
		exists, err := tx.Products().ExistsByName(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		accepted[c.Name] = struct{}{}
		fresh = append(fresh, c)
	}
	return fresh, nil
}

func (s *ProductService) toProduct(ctx context.Context, tx domain.Tx, c domain.CandidateProduct) (*domain.Product, error) {
	category, err := tx.Categories().FindByExternalID(ctx, c.Category.ExternalID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, &domain.InvariantError{
				Entity: "product",
				Reason: "category " + c.Category.ExternalID + " missing after reconciliation",
			}
		}
		return nil, err
	}

	history := make([]domain.Value, len(c.PriceHistory))
	for i, pp := range c.PriceHistory {
		history[i] = domain.NewValue(pp.Value, pp.Date)
	}

	return &domain.Product{
		Name:         c.Name,
		Description:  c.Description,
		PriceHistory: history,
		CategoryID:   category.ID,
		Category:     category,
	}, nil
}

func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	result := "failure"
	if domain.IsNotFound(err) {
		result = "not_found"
		s.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
	} else {
		s.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
	}

	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

func categoriesOf(candidates []domain.CandidateProduct) []domain.CategoryDescriptor {
	out := make([]domain.CategoryDescriptor, len(candidates))
	for i, c := range candidates {
		out[i] = c.Category
	}
	return out
}
