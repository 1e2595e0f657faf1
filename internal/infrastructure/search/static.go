package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gopkg.in/yaml.v3"
)

// StaticProvider serves candidates from a fixed catalog, typically loaded
// from a YAML file. Matching is a case-insensitive substring test on the name
// and description.
type StaticProvider struct {
	candidates []domain.CandidateProduct
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewStaticProvider creates a provider over the given candidates
func NewStaticProvider(candidates []domain.CandidateProduct, tracer trace.Tracer, logger *slog.Logger) *StaticProvider {
	return &StaticProvider{
		candidates: candidates,
		tracer:     tracer,
		logger:     logger,
	}
}

// LoadStaticProvider reads a YAML catalog from path. An empty path yields an
// empty catalog.
func LoadStaticProvider(path string, tracer trace.Tracer, logger *slog.Logger) (*StaticProvider, error) {
	if path == "" {
		return NewStaticProvider(nil, tracer, logger), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open search catalog: %w", err)
	}
	defer f.Close()

	candidates, err := ParseCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("parse search catalog %s: %w", path, err)
	}

	logger.Info("Static search catalog loaded",
		slog.String("path", path),
		slog.Int("products", len(candidates)),
	)
	return NewStaticProvider(candidates, tracer, logger), nil
}

type catalogFile struct {
	Products []catalogProduct `yaml:"products"`
}

type catalogProduct struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    struct {
		ExternalID string `yaml:"external_id"`
		Name       string `yaml:"name"`
	} `yaml:"category"`
	PriceHistory []struct {
		Value string `yaml:"value"`
		Date  string `yaml:"date"`
	} `yaml:"price_history"`
}

// ParseCatalog decodes a YAML catalog into candidate products
func ParseCatalog(r io.Reader) ([]domain.CandidateProduct, error) {
	var file catalogFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil && err != io.EOF {
		return nil, err
	}

	candidates := make([]domain.CandidateProduct, 0, len(file.Products))
	for _, p := range file.Products {
		c := domain.CandidateProduct{
			Name:        p.Name,
			Description: p.Description,
			Category: domain.CategoryDescriptor{
				ExternalID: p.Category.ExternalID,
				Name:       p.Category.Name,
			},
		}
		for _, pp := range p.PriceHistory {
			value, err := decimal.NewFromString(pp.Value)
			if err != nil {
				return nil, fmt.Errorf("product %q: price %q: %w", p.Name, pp.Value, err)
			}
			date, err := time.Parse(time.DateOnly, pp.Date)
			if err != nil {
				return nil, fmt.Errorf("product %q: date %q: %w", p.Name, pp.Date, err)
			}
			c.PriceHistory = append(c.PriceHistory, domain.PricePoint{Value: value, Date: date})
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// Search returns copies of the catalog entries matching the query
func (p *StaticProvider) Search(ctx context.Context, query domain.ProductQuery) ([]domain.CandidateProduct, error) {
	ctx, span := p.tracer.Start(ctx, "StaticProvider.Search")
	defer span.End()

	phrase := strings.ToLower(strings.TrimSpace(query.Phrase))

	var matches []domain.CandidateProduct
	for _, c := range p.candidates {
		if query.CategoryExternalID != "" && c.Category.ExternalID != query.CategoryExternalID {
			continue
		}
		if phrase != "" &&
			!strings.Contains(strings.ToLower(c.Name), phrase) &&
			!strings.Contains(strings.ToLower(c.Description), phrase) {
			continue
		}
		if !isValid(ctx, p.logger, c) {
			continue
		}
		c.PriceHistory = slices.Clone(c.PriceHistory)
		matches = append(matches, c)
		if query.Limit > 0 && len(matches) == query.Limit {
			break
		}
	}

	span.SetAttributes(attribute.Int("search.results", len(matches)))
	span.SetStatus(codes.Ok, "Search completed")
	return matches, nil
}
