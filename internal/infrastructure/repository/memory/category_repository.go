package memory

import (
	"context"
	"log/slog"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CategoryRepository is an in-memory implementation of domain.CategoryRepository
type CategoryRepository struct {
	view view
}

// FindByExternalID retrieves a category by the provider's identifier
func (r *CategoryRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Category, error) {
	_, span := r.view.store.tracer.Start(ctx, "CategoryRepository.FindByExternalID")
	defer span.End()

	span.SetAttributes(attribute.String("category.external_id", externalID))

	var category *domain.Category
	err := r.view.read(func(st *state) error {
		id, ok := st.categoryExtID[externalID]
		if !ok {
			return &domain.NotFoundError{Entity: "category", Key: externalID}
		}
		c := st.categories[id]
		category = &c
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Category not found")
		return nil, err
	}

	span.SetStatus(codes.Ok, "Category found")
	return category, nil
}

// ExistsByExternalID reports whether a category with the external ID is stored
func (r *CategoryRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	_, span := r.view.store.tracer.Start(ctx, "CategoryRepository.ExistsByExternalID")
	defer span.End()

	var exists bool
	_ = r.view.read(func(st *state) error {
		_, exists = st.categoryExtID[externalID]
		return nil
	})

	span.SetAttributes(attribute.Bool("category.exists", exists))
	return exists, nil
}

// Save stores a new category, rejecting a duplicate external ID
func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	ctx, span := r.view.store.tracer.Start(ctx, "CategoryRepository.Save")
	defer span.End()

	span.SetAttributes(attribute.String("category.external_id", category.ExternalID))

	err := r.view.write(ctx, func(st *state) error {
		if _, taken := st.categoryExtID[category.ExternalID]; taken {
			return &domain.ConflictError{Entity: "category", Field: "external_id", Value: category.ExternalID}
		}
		st.seq.category++
		category.ID = st.seq.category
		st.categories[category.ID] = *category
		st.categoryExtID[category.ExternalID] = category.ID
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store category")
		return err
	}

	r.view.store.logger.DebugContext(ctx, "Category created in repository",
		slog.Int64("category_id", category.ID),
		slog.String("external_id", category.ExternalID),
	)

	span.SetStatus(codes.Ok, "Category stored")
	return nil
}
