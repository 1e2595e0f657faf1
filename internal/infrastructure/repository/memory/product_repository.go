package memory

import (
	"context"
	"log/slog"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository
type ProductRepository struct {
	view view
}

// FindByID retrieves a product by ID together with its category
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.view.store.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	var product *domain.Product
	err := r.view.read(func(st *state) error {
		stored, exists := st.products[id]
		if !exists {
			return domain.NewNotFound("product", id)
		}
		product = st.hydrate(stored)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Product not found")
		r.view.store.logger.WarnContext(ctx, "Product not found",
			slog.Int64("product_id", id),
		)
		return nil, err
	}

	span.SetStatus(codes.Ok, "Product found")
	return product, nil
}

// ExistsByName reports whether a product with the given name is stored
func (r *ProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	_, span := r.view.store.tracer.Start(ctx, "ProductRepository.ExistsByName")
	defer span.End()

	var exists bool
	_ = r.view.read(func(st *state) error {
		_, exists = st.productNames[name]
		return nil
	})

	span.SetAttributes(attribute.Bool("product.exists", exists))
	return exists, nil
}

// SaveAll stores the products as one unit. Nothing is written when any
// product conflicts or references an unknown category.
func (r *ProductRepository) SaveAll(ctx context.Context, products []*domain.Product) error {
	ctx, span := r.view.store.tracer.Start(ctx, "ProductRepository.SaveAll")
	defer span.End()

	span.SetAttributes(attribute.Int("product.count", len(products)))

	err := r.view.write(ctx, func(st *state) error {
		staged := st.clone()
		for _, p := range products {
			if err := p.Validate(); err != nil {
				return err
			}
			if _, taken := staged.productNames[p.Name]; taken {
				return &domain.ConflictError{Entity: "product", Field: "name", Value: p.Name}
			}
			category, ok := staged.categories[p.CategoryID]
			if !ok {
				return &domain.InvariantError{Entity: "product", Reason: "unknown category for product " + p.Name}
			}

			staged.seq.product++
			p.ID = staged.seq.product
			for i := range p.PriceHistory {
				staged.seq.value++
				p.PriceHistory[i].ID = staged.seq.value
			}
			p.Category = &category

			stored := *p.Clone()
			stored.Category = nil
			staged.products[p.ID] = stored
			staged.productNames[p.Name] = p.ID
		}
		*st = *staged
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store products")
		return err
	}

	r.view.store.logger.InfoContext(ctx, "Products created in repository",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products stored successfully")
	return nil
}

// hydrate returns a detached copy of a stored product with its category attached
func (st *state) hydrate(stored domain.Product) *domain.Product {
	product := stored.Clone()
	if category, ok := st.categories[stored.CategoryID]; ok {
		product.Category = &category
	}
	return product
}
