package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products and mirrors a category known to the search provider
type Category struct {
	ID         int64
	ExternalID string
	Name       string
}

// Value is a single price point in a product's history
type Value struct {
	ID    int64
	Value decimal.Decimal
	Date  time.Time
}

// Product represents the product entity.
// Name is the only key used to match products coming from the search provider,
// so two distinct real-world products sharing a name collapse into one.
type Product struct {
	ID           int64
	Name         string
	Description  string
	PriceHistory []Value
	CategoryID   int64
	// Category is a copy loaded by the store; it is never shared between products.
	Category *Category
}

// User is owned by an external collaborator and referenced only by ID
type User struct {
	ID   int64
	Name string
}

// Subscription binds a user to a product
type Subscription struct {
	ID        int64
	UserID    int64
	ProductID int64
	CreatedAt time.Time
}

// NewValue creates a price point truncated to day precision
func NewValue(value decimal.Decimal, date time.Time) Value {
	return Value{
		Value: value,
		Date:  TruncateToDay(date),
	}
}

// TruncateToDay drops the time of day, keeping the calendar date in UTC
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clone returns a deep copy so callers never alias store-owned state
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	out := *p
	out.PriceHistory = append([]Value(nil), p.PriceHistory...)
	if p.Category != nil {
		c := *p.Category
		out.Category = &c
	}
	return &out
}

// Validate checks the product can be persisted
func (p *Product) Validate() error {
	if p.Name == "" {
		return &InvariantError{Entity: "product", Reason: "name is required"}
	}
	if p.CategoryID == 0 {
		return &InvariantError{Entity: "product", Reason: "category reference is required"}
	}
	return nil
}
