package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// UserRepository is a SQLite implementation of domain.UserRepository
type UserRepository struct {
	store *Store
	q     querier
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := r.store.tracer.Start(ctx, "UserRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", id))

	var u domain.User
	if err := r.q.QueryRowContext(ctx,
		`SELECT id, name FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, domain.NewNotFound("user", id)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

// Save inserts a user and assigns its ID
func (r *UserRepository) Save(ctx context.Context, user *domain.User) error {
	ctx, span := r.store.tracer.Start(ctx, "UserRepository.Save")
	defer span.End()

	res, err := r.q.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, user.Name)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert user: %w", err)
	}
	if user.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// SubscriptionRepository is a SQLite implementation of domain.SubscriptionRepository
type SubscriptionRepository struct {
	store *Store
	q     querier
}

// Save inserts a subscription
func (r *SubscriptionRepository) Save(ctx context.Context, subscription *domain.Subscription) error {
	ctx, span := r.store.tracer.Start(ctx, "SubscriptionRepository.Save")
	defer span.End()

	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = time.Now().UTC()
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, product_id, created_at) VALUES (?, ?, ?)`,
		subscription.UserID, subscription.ProductID, subscription.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store subscription")
		if isForeignKeyViolation(err) {
			return &domain.NotFoundError{
				Entity: "user or product",
				Key:    fmt.Sprintf("%d/%d", subscription.UserID, subscription.ProductID),
			}
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	if subscription.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription stored")
	return nil
}

// FindByUser returns the user's subscriptions ordered by ID
func (r *SubscriptionRepository) FindByUser(ctx context.Context, userID int64) ([]*domain.Subscription, error) {
	ctx, span := r.store.tracer.Start(ctx, "SubscriptionRepository.FindByUser")
	defer span.End()

	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, product_id, created_at FROM subscriptions WHERE user_id = ? ORDER BY id`,
		userID,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("find subscriptions by user: %w", err)
	}
	defer rows.Close()

	var subscriptions []*domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		var createdAt string
		if err := rows.Scan(&s.ID, &s.UserID, &s.ProductID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("parse subscription created_at: %w", err)
		}
		subscriptions = append(subscriptions, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}

	span.SetAttributes(attribute.Int("subscription.count", len(subscriptions)))
	return subscriptions, nil
}

// DeleteByProductAndUser removes every subscription matching the pair
func (r *SubscriptionRepository) DeleteByProductAndUser(ctx context.Context, productID, userID int64) (int64, error) {
	ctx, span := r.store.tracer.Start(ctx, "SubscriptionRepository.DeleteByProductAndUser")
	defer span.End()

	res, err := r.q.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE product_id = ? AND user_id = ?`,
		productID, userID,
	)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("delete subscriptions: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete subscriptions: %w", err)
	}

	span.SetAttributes(attribute.Int64("subscription.removed", removed))
	return removed, nil
}
