package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// SubscriptionService manages the association between users and the products
// they follow
type SubscriptionService struct {
	store                  domain.CatalogStore
	tracer                 trace.Tracer
	logger                 *slog.Logger
	subscriptionOperations metric.Int64Counter
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	store domain.CatalogStore,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
) *SubscriptionService {
	subscriptionOperations, _ := meter.Int64Counter(
		"subscriptions.operations",
		metric.WithDescription("Total number of subscription operations"),
	)

	return &SubscriptionService{
		store:                  store,
		tracer:                 tracer,
		logger:                 logger,
		subscriptionOperations: subscriptionOperations,
	}
}

// CreateSubscription subscribes a user to a product. Existing subscriptions for
// the same pair are not checked, so repeated calls create repeated rows.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, userID, productID int64) (*dto.SubscriptionView, error) {
	ctx, span := s.tracer.Start(ctx, "SubscriptionService.CreateSubscription")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", productID),
	)

	var subscription *domain.Subscription
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := requireEndpoints(ctx, tx, userID, productID); err != nil {
			return err
		}

		subscription = &domain.Subscription{
			UserID:    userID,
			ProductID: productID,
			CreatedAt: time.Now().UTC(),
		}
		return tx.Subscriptions().Save(ctx, subscription)
	})
	if err != nil {
		s.fail(ctx, span, "create", "Failed to create subscription", err)
		return nil, err
	}

	s.succeed(ctx, "create")
	s.logger.InfoContext(ctx, "Subscription created",
		slog.Int64("subscription_id", subscription.ID),
		slog.Int64("user_id", userID),
		slog.Int64("product_id", productID),
	)

	span.SetStatus(codes.Ok, "Subscription created")
	view := dto.ToSubscriptionView(subscription)
	return &view, nil
}

// RemoveSubscription deletes every subscription of the user to the product
func (s *SubscriptionService) RemoveSubscription(ctx context.Context, userID, productID int64) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "SubscriptionService.RemoveSubscription")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("product.id", productID),
	)

	var removed int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := requireEndpoints(ctx, tx, userID, productID); err != nil {
			return err
		}

		n, err := tx.Subscriptions().DeleteByProductAndUser(ctx, productID, userID)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		s.fail(ctx, span, "remove", "Failed to remove subscription", err)
		return 0, err
	}

	s.succeed(ctx, "remove")
	s.logger.InfoContext(ctx, "Subscription removed",
		slog.Int64("user_id", userID),
		slog.Int64("product_id", productID),
		slog.Int64("removed", removed),
	)

	span.SetAttributes(attribute.Int64("subscription.removed", removed))
	span.SetStatus(codes.Ok, "Subscription removed")
	return removed, nil
}

// GetSubscribedProducts lists the products a user is subscribed to, each at most once
func (s *SubscriptionService) GetSubscribedProducts(ctx context.Context, userID int64) ([]dto.ProductView, error) {
	ctx, span := s.tracer.Start(ctx, "SubscriptionService.GetSubscribedProducts")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", userID))

	products, err := s.subscribedProducts(ctx, userID)
	if err != nil {
		s.fail(ctx, span, "list", "Failed to list subscribed products", err)
		return nil, err
	}

	views, err := dto.ToProductViewList(products)
	if err != nil {
		s.fail(ctx, span, "list", "Failed to project products", err)
		return nil, err
	}

	s.succeed(ctx, "list")
	s.logger.InfoContext(ctx, "Subscribed products listed",
		slog.Int64("user_id", userID),
		slog.Int("count", len(views)),
	)

	span.SetAttributes(attribute.Int("product.count", len(views)))
	span.SetStatus(codes.Ok, "Subscribed products listed")
	return views, nil
}

func (s *SubscriptionService) subscribedProducts(ctx context.Context, userID int64) ([]*domain.Product, error) {
	if _, err := s.store.Users().FindByID(ctx, userID); err != nil {
		return nil, err
	}

	subscriptions, err := s.store.Subscriptions().FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(subscriptions))
	products := make([]*domain.Product, 0, len(subscriptions))
	for _, sub := range subscriptions {
		if _, ok := seen[sub.ProductID]; ok {
			continue
		}
		seen[sub.ProductID] = struct{}{}

		product, err := s.store.Products().FindByID(ctx, sub.ProductID)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, nil
}

func (s *SubscriptionService) succeed(ctx context.Context, operation string) {
	s.subscriptionOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", "success"),
		),
	)
}

func (s *SubscriptionService) fail(ctx context.Context, span trace.Span, operation, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	result := "failure"
	if domain.IsNotFound(err) {
		result = "not_found"
		s.logger.WarnContext(ctx, msg, slog.String("error", err.Error()))
	} else {
		s.logger.ErrorContext(ctx, msg, slog.String("error", err.Error()))
	}

	s.subscriptionOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// requireEndpoints fails with a NotFoundError unless both user and product exist
func requireEndpoints(ctx context.Context, tx domain.Tx, userID, productID int64) error {
	if _, err := tx.Users().FindByID(ctx, userID); err != nil {
		return err
	}
	if _, err := tx.Products().FindByID(ctx, productID); err != nil {
		return err
	}
	return nil
}
