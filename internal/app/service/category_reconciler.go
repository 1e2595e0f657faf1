package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CategoryReconciler makes sure every category referenced by the search
// provider exists locally exactly once, keyed by its external ID
type CategoryReconciler struct {
	tracer                 trace.Tracer
	logger                 *slog.Logger
	categoryCreatedCounter metric.Int64Counter
}

// NewCategoryReconciler creates a new category reconciler
func NewCategoryReconciler(tracer trace.Tracer, meter metric.Meter, logger *slog.Logger) *CategoryReconciler {
	categoryCreatedCounter, _ := meter.Int64Counter(
		"categories.created.total",
		metric.WithDescription("Total number of categories created from search results"),
	)

	return &CategoryReconciler{
		tracer:                 tracer,
		logger:                 logger,
		categoryCreatedCounter: categoryCreatedCounter,
	}
}

// Reconcile creates the missing categories among descriptors inside tx and
// returns how many were created. A conflicting insert means another writer got
// there first, so the category is treated as existing.
func (r *CategoryReconciler) Reconcile(ctx context.Context, tx domain.Tx, descriptors []domain.CategoryDescriptor) (int, error) {
	ctx, span := r.tracer.Start(ctx, "CategoryReconciler.Reconcile")
	defer span.End()

	distinct := distinctDescriptors(descriptors)
	span.SetAttributes(attribute.Int("category.distinct", len(distinct)))

	created := 0
	for _, d := range distinct {
		if d.ExternalID == "" {
			err := &domain.InvariantError{
				Entity: "category",
				Reason: fmt.Sprintf("descriptor %q has no external id", d.Name),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid category descriptor")
			return created, err
		}

		exists, err := tx.Categories().ExistsByExternalID(ctx, d.ExternalID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to check category")
			return created, err
		}
		if exists {
			continue
		}

		category := &domain.Category{ExternalID: d.ExternalID, Name: d.Name}
		if err := tx.Categories().Save(ctx, category); err != nil {
			if domain.IsConflict(err) {
				r.logger.WarnContext(ctx, "Category created concurrently, using existing one",
					slog.String("external_id", d.ExternalID),
				)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "Failed to create category")
			return created, err
		}

		created++
		r.categoryCreatedCounter.Add(ctx, 1)
		r.logger.InfoContext(ctx, "Category created",
			slog.Int64("category_id", category.ID),
			slog.String("external_id", category.ExternalID),
			slog.String("name", category.Name),
		)
	}

	span.SetAttributes(attribute.Int("category.created", created))
	span.SetStatus(codes.Ok, "Categories reconciled")
	return created, nil
}

// distinctDescriptors keeps the first occurrence of every descriptor value
func distinctDescriptors(descriptors []domain.CategoryDescriptor) []domain.CategoryDescriptor {
	seen := make(map[domain.CategoryDescriptor]struct{}, len(descriptors))
	out := make([]domain.CategoryDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
