// Package search contains the search provider adapters. Providers only read
// from their source; they never touch the catalog store.
package search

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/price-watch-api/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// isValid reports whether the catalog could ever accept c. Records without a
// name or without a category external ID are logged and skipped.
func isValid(ctx context.Context, logger *slog.Logger, c domain.CandidateProduct) bool {
	if err := validate.StructCtx(ctx, c); err != nil {
		logger.WarnContext(ctx, "Discarding invalid search candidate",
			slog.String("name", c.Name),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}
