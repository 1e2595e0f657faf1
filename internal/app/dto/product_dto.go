package dto

import (
	"github.com/mrops-br/price-watch-api/internal/domain"
)

const dateLayout = "2006-01-02"

// SearchProductRequest represents the query parameters of a product search
type SearchProductRequest struct {
	Phrase   string `validate:"omitempty,max=200"`
	Category string `validate:"omitempty,max=100"`
	Limit    int    `validate:"gte=0,lte=500"`
}

// ToProductQuery converts the request to a provider query
func (r SearchProductRequest) ToProductQuery() domain.ProductQuery {
	return domain.ProductQuery{
		Phrase:             r.Phrase,
		CategoryExternalID: r.Category,
		Limit:              r.Limit,
	}
}

// CategoryView is the external representation of a category
type CategoryView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ExternalID string `json:"external_id"`
}

// PriceView is the external representation of a price point
type PriceView struct {
	Value string `json:"value"`
	Date  string `json:"date"`
}

// ProductView is the external representation of a product
type ProductView struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	PriceHistory []PriceView  `json:"price_history"`
	Category     CategoryView `json:"category"`
}

// ToCategoryView converts a domain Category to CategoryView
func ToCategoryView(c *domain.Category) CategoryView {
	return CategoryView{
		ID:         c.ID,
		Name:       c.Name,
		ExternalID: c.ExternalID,
	}
}

// ToPriceView converts a domain Value to PriceView
func ToPriceView(v domain.Value) PriceView {
	return PriceView{
		Value: v.Value.String(),
		Date:  v.Date.Format(dateLayout),
	}
}

// ToProductView converts a domain Product to ProductView.
// A product without a loaded category cannot be projected.
func ToProductView(p *domain.Product) (ProductView, error) {
	if p == nil {
		return ProductView{}, &domain.InvariantError{Entity: "product", Reason: "nil product"}
	}
	if p.Category == nil {
		return ProductView{}, &domain.InvariantError{
			Entity: "product",
			Reason: "category reference is unset for product " + p.Name,
		}
	}

	prices := make([]PriceView, len(p.PriceHistory))
	for i, v := range p.PriceHistory {
		prices[i] = ToPriceView(v)
	}

	return ProductView{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		PriceHistory: prices,
		Category:     ToCategoryView(p.Category),
	}, nil
}

// ToProductViewList converts a list of domain Products to ProductView list
func ToProductViewList(products []*domain.Product) ([]ProductView, error) {
	views := make([]ProductView, len(products))
	for i, p := range products {
		view, err := ToProductView(p)
		if err != nil {
			return nil, err
		}
		views[i] = view
	}
	return views, nil
}
