package dto

import (
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
)

// SubscriptionView represents a created subscription
type SubscriptionView struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ProductID int64     `json:"product_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ToSubscriptionView converts a domain Subscription to SubscriptionView
func ToSubscriptionView(s *domain.Subscription) SubscriptionView {
	return SubscriptionView{
		ID:        s.ID,
		UserID:    s.UserID,
		ProductID: s.ProductID,
		CreatedAt: s.CreatedAt,
	}
}

// CreateUserRequest represents the request to register a user
type CreateUserRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// UserView represents a registered user
type UserView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ToUserView converts a domain User to UserView
func ToUserView(u *domain.User) UserView {
	return UserView{ID: u.ID, Name: u.Name}
}
