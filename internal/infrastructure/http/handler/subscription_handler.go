package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/app/service"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/http/response"
)

// SubscriptionHandler handles HTTP requests for users and their subscriptions
type SubscriptionHandler struct {
	subscriptions *service.SubscriptionService
	users         *service.UserService
	logger        *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptions *service.SubscriptionService, users *service.UserService, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		users:         users,
		logger:        logger,
	}
}

// CreateUser handles POST /users
func (h *SubscriptionHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	if err := validate.StructCtx(r.Context(), req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.RegisterUser(r.Context(), &req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, user)
}

// ListSubscribedProducts handles GET /users/{userID}/subscriptions
func (h *SubscriptionHandler) ListSubscribedProducts(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	products, err := h.subscriptions.GetSubscribedProducts(r.Context(), userID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// Subscribe handles POST /users/{userID}/subscriptions/{productID}
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := pairFromPath(w, r)
	if !ok {
		return
	}

	subscription, err := h.subscriptions.CreateSubscription(r.Context(), userID, productID)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, subscription)
}

// Unsubscribe handles DELETE /users/{userID}/subscriptions/{productID}
func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := pairFromPath(w, r)
	if !ok {
		return
	}

	if _, err := h.subscriptions.RemoveSubscription(r.Context(), userID, productID); err != nil {
		response.FromError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pairFromPath(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := pathID(r, "userID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return 0, 0, false
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return 0, 0, false
	}
	return userID, productID, true
}
