package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/app/service"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/http/response"
)

var validate = validator.New()

var errInvalidID = errors.New("id must be a positive integer")

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger,
	}
}

// SearchProducts handles GET /products/search
func (h *ProductHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := dto.SearchProductRequest{
		Phrase:   q.Get("q"),
		Category: q.Get("category"),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(w, http.StatusBadRequest, errors.New("limit must be an integer"))
			return
		}
		req.Limit = limit
	}

	if err := validate.StructCtx(r.Context(), req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	products, err := h.service.SearchProduct(r.Context(), req.ToProductQuery())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	product, err := h.service.GetProductDetails(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

func pathID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
