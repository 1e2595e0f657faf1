package domain

import (
	"context"
)

// ProductRepository defines the contract for product storage
type ProductRepository interface {
	// FindByID returns a NotFoundError when the product does not exist.
	FindByID(ctx context.Context, id int64) (*Product, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	// SaveAll persists products and assigns their IDs. A duplicate name yields a ConflictError.
	SaveAll(ctx context.Context, products []*Product) error
}

// CategoryRepository defines the contract for category storage
type CategoryRepository interface {
	// FindByExternalID returns a NotFoundError when no category carries the external ID.
	FindByExternalID(ctx context.Context, externalID string) (*Category, error)
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
	// Save assigns the category ID. A duplicate external ID yields a ConflictError.
	Save(ctx context.Context, category *Category) error
}

// UserRepository defines the contract for user lookups
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*User, error)
	Save(ctx context.Context, user *User) error
}

// SubscriptionRepository defines the contract for subscription storage
type SubscriptionRepository interface {
	Save(ctx context.Context, subscription *Subscription) error
	// FindByUser returns the user's subscriptions ordered by subscription ID.
	FindByUser(ctx context.Context, userID int64) ([]*Subscription, error)
	// DeleteByProductAndUser removes every matching row and reports how many were removed.
	DeleteByProductAndUser(ctx context.Context, productID, userID int64) (int64, error)
}

// Tx exposes the repositories bound to one unit of work
type Tx interface {
	Products() ProductRepository
	Categories() CategoryRepository
	Users() UserRepository
	Subscriptions() SubscriptionRepository
}

// CatalogStore is the persistent catalog. Its own repositories run outside any
// explicit transaction with read-committed visibility; WithinTx runs fn
// atomically, committing when fn returns nil and rolling back otherwise.
type CatalogStore interface {
	Tx
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Close() error
}
