package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const dateLayout = "2006-01-02"

// ProductRepository is a SQLite implementation of domain.ProductRepository
type ProductRepository struct {
	store *Store
	q     querier
}

// FindByID retrieves a product with its category and ordered price history
func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := r.store.tracer.Start(ctx, "ProductRepository.FindByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("product.id", id))

	query := `
		SELECT p.id, p.name, p.description, c.id, c.external_id, c.name
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = ?`

	var p domain.Product
	var c domain.Category
	if err := r.q.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &c.ID, &c.ExternalID, &c.Name,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetStatus(codes.Error, "Product not found")
			return nil, domain.NewNotFound("product", id)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query product")
		return nil, fmt.Errorf("find product by id: %w", err)
	}
	p.CategoryID = c.ID
	p.Category = &c

	history, err := r.priceHistory(ctx, p.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query price history")
		return nil, err
	}
	p.PriceHistory = history

	span.SetStatus(codes.Ok, "Product found")
	return &p, nil
}

func (r *ProductRepository) priceHistory(ctx context.Context, productID int64) ([]domain.Value, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, value, price_date FROM product_values WHERE product_id = ? ORDER BY position`,
		productID,
	)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var history []domain.Value
	for rows.Next() {
		var v domain.Value
		var date string
		if err := rows.Scan(&v.ID, &v.Value, &date); err != nil {
			return nil, fmt.Errorf("scan price history: %w", err)
		}
		if v.Date, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("parse price date %q: %w", date, err)
		}
		history = append(history, v)
	}
	return history, rows.Err()
}

// ExistsByName reports whether a product with the given name is stored
func (r *ProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	ctx, span := r.store.tracer.Start(ctx, "ProductRepository.ExistsByName")
	defer span.End()

	var exists bool
	if err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE name = ?)`, name,
	).Scan(&exists); err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("product exists by name: %w", err)
	}

	span.SetAttributes(attribute.Bool("product.exists", exists))
	return exists, nil
}

// SaveAll inserts the products and their price history in one transaction
func (r *ProductRepository) SaveAll(ctx context.Context, products []*domain.Product) error {
	ctx, span := r.store.tracer.Start(ctx, "ProductRepository.SaveAll")
	defer span.End()

	span.SetAttributes(attribute.Int("product.count", len(products)))

	err := r.store.atomic(ctx, r.q, func(q querier) error {
		for _, p := range products {
			if err := insertProduct(ctx, q, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to store products")
		return err
	}

	r.store.logger.InfoContext(ctx, "Products created in repository",
		slog.Int("count", len(products)),
	)

	span.SetStatus(codes.Ok, "Products stored successfully")
	return nil
}

func insertProduct(ctx context.Context, q querier, p *domain.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}

	res, err := q.ExecContext(ctx,
		`INSERT INTO products (name, description, category_id) VALUES (?, ?, ?)`,
		p.Name, p.Description, p.CategoryID,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return &domain.ConflictError{Entity: "product", Field: "name", Value: p.Name, Err: err}
		case isForeignKeyViolation(err):
			return &domain.InvariantError{Entity: "product", Reason: "unknown category for product " + p.Name}
		}
		return fmt.Errorf("insert product: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	for i := range p.PriceHistory {
		v := &p.PriceHistory[i]
		res, err := q.ExecContext(ctx,
			`INSERT INTO product_values (product_id, position, value, price_date) VALUES (?, ?, ?, ?)`,
			p.ID, i, v.Value.String(), v.Date.Format(dateLayout),
		)
		if err != nil {
			return fmt.Errorf("insert price point: %w", err)
		}
		if v.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert price point: %w", err)
		}
	}

	if p.Category == nil {
		var c domain.Category
		if err := q.QueryRowContext(ctx,
			`SELECT id, external_id, name FROM categories WHERE id = ?`, p.CategoryID,
		).Scan(&c.ID, &c.ExternalID, &c.Name); err != nil {
			return fmt.Errorf("load product category: %w", err)
		}
		p.Category = &c
	}
	return nil
}
