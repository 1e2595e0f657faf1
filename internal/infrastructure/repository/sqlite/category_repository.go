package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CategoryRepository is a SQLite implementation of domain.CategoryRepository
type CategoryRepository struct {
	store *Store
	q     querier
}

// FindByExternalID retrieves a category by the provider's identifier
func (r *CategoryRepository) FindByExternalID(ctx context.Context, externalID string) (*domain.Category, error) {
	ctx, span := r.store.tracer.Start(ctx, "CategoryRepository.FindByExternalID")
	defer span.End()

	span.SetAttributes(attribute.String("category.external_id", externalID))

	var c domain.Category
	if err := r.q.QueryRowContext(ctx,
		`SELECT id, external_id, name FROM categories WHERE external_id = ?`, externalID,
	).Scan(&c.ID, &c.ExternalID, &c.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetStatus(codes.Error, "Category not found")
			return nil, &domain.NotFoundError{Entity: "category", Key: externalID}
		}
		span.RecordError(err)
		return nil, fmt.Errorf("find category by external id: %w", err)
	}

	span.SetStatus(codes.Ok, "Category found")
	return &c, nil
}

// ExistsByExternalID reports whether a category with the external ID is stored
func (r *CategoryRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	ctx, span := r.store.tracer.Start(ctx, "CategoryRepository.ExistsByExternalID")
	defer span.End()

	var exists bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE external_id = ?)`, externalID,
	).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("category exists by external id: %w", err)
	}

	span.SetAttributes(attribute.Bool("category.exists", exists))
	return exists, nil
}

// Save inserts a category. A duplicate external ID yields a domain.ConflictError.
func (r *CategoryRepository) Save(ctx context.Context, category *domain.Category) error {
	ctx, span := r.store.tracer.Start(ctx, "CategoryRepository.Save")
	defer span.End()

	span.SetAttributes(attribute.String("category.external_id", category.ExternalID))

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (external_id, name) VALUES (?, ?)`,
		category.ExternalID, category.Name,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store category")
		if isUniqueViolation(err) {
			return &domain.ConflictError{Entity: "category", Field: "external_id", Value: category.ExternalID, Err: err}
		}
		return fmt.Errorf("insert category: %w", err)
	}

	if category.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}

	span.SetStatus(codes.Ok, "Category stored")
	return nil
}
