package memory

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserRepository is an in-memory implementation of domain.UserRepository
type UserRepository struct {
	view view
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	_, span := r.view.store.tracer.Start(ctx, "UserRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", id))

	var user *domain.User
	err := r.view.read(func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return domain.NewNotFound("user", id)
		}
		user = &u
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "User not found")
		return nil, err
	}
	return user, nil
}

// Save stores a new user and assigns its ID
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	ctx, span := r.view.store.tracer.Start(ctx, "UserRepository.Save")
	defer span.End()

	return r.view.write(ctx, func(st *state) error {
		st.seq.user++
		user.ID = st.seq.user
		st.users[user.ID] = *user
		span.SetAttributes(attribute.Int64("user.id", user.ID))
		return nil
	})
}

// SubscriptionRepository is an in-memory implementation of domain.SubscriptionRepository
type SubscriptionRepository struct {
	view view
}

// Save stores a new subscription. Both ends must exist.
func (r *SubscriptionRepository) Save(ctx context.Context, subscription *domain.Subscription) error {
	ctx, span := r.view.store.tracer.Start(ctx, "SubscriptionRepository.Save")
	defer span.End()

	err := r.view.write(ctx, func(st *state) error {
		if _, ok := st.users[subscription.UserID]; !ok {
			return domain.NewNotFound("user", subscription.UserID)
		}
		if _, ok := st.products[subscription.ProductID]; !ok {
			return domain.NewNotFound("product", subscription.ProductID)
		}
		st.seq.subscription++
		subscription.ID = st.seq.subscription
		st.subscriptions[subscription.ID] = *subscription
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store subscription")
		return err
	}

	r.view.store.logger.DebugContext(ctx, "Subscription created in repository",
		slog.Int64("subscription_id", subscription.ID),
	)

	span.SetStatus(codes.Ok, "Subscription stored")
	return nil
}

// FindByUser returns the user's subscriptions ordered by ID
func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID int64) ([]*domain.Subscription, error) {
	_, span := r.view.store.tracer.Start(ctx, "SubscriptionRepository.FindByUser")
	defer span.End()

	var subscriptions []*domain.Subscription
	_ = r.view.read(func(st *state) error {
		for _, id := range slices.Sorted(maps.Keys(st.subscriptions)) {
			sub := st.subscriptions[id]
			if sub.UserID == userID {
				subscriptions = append(subscriptions, &sub)
			}
		}
		return nil
	})

	span.SetAttributes(attribute.Int("subscription.count", len(subscriptions)))
	return subscriptions, nil
}

// DeleteByProductAndUser removes every subscription matching the pair
func (r *SubscriptionRepository) DeleteByProductAndUser(ctx context.Context, productID, userID int64) (int64, error) {
	ctx, span := r.view.store.tracer.Start(ctx, "SubscriptionRepository.DeleteByProductAndUser")
	defer span.End()

	var removed int64
	err := r.view.write(ctx, func(st *state) error {
		for id, sub := range st.subscriptions {
			if sub.UserID == userID && sub.ProductID == productID {
				delete(st.subscriptions, id)
				removed++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	span.SetAttributes(attribute.Int64("subscription.removed", removed))
	return removed, nil
}
