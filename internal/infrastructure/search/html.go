package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// Selectors locate product fields on a storefront search results page
type Selectors struct {
	Item           string
	Name           string
	Description    string
	Price          string
	Category       string
	CategoryIDAttr string
}

// HTMLConfig configures the HTML search provider
type HTMLConfig struct {
	BaseURL           string
	QueryParam        string
	CategoryParam     string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Selectors         Selectors
}

// HTMLProvider scrapes a storefront's search page. Every result carries a
// single price point dated the day of the search.
type HTMLProvider struct {
	cfg     HTMLConfig
	client  *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
	logger  *slog.Logger
	now     func() time.Time
}

// NewHTMLProvider creates a new HTML search provider
func NewHTMLProvider(cfg HTMLConfig, tracer trace.Tracer, logger *slog.Logger) *HTMLProvider {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &HTMLProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, 1),
		tracer:  tracer,
		logger:  logger,
		now:     time.Now,
	}
}

// Search fetches the results page for the query and extracts candidates
func (p *HTMLProvider) Search(ctx context.Context, query domain.ProductQuery) ([]domain.CandidateProduct, error) {
	ctx, span := p.tracer.Start(ctx, "HTMLProvider.Search")
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rate limiter wait failed")
		return nil, fmt.Errorf("search rate limit: %w", err)
	}

	doc, err := p.fetch(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch search results")
		p.logger.ErrorContext(ctx, "Search provider request failed",
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	today := p.now()
	var candidates []domain.CandidateProduct
	doc.Find(p.cfg.Selectors.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if c, ok := p.parseItem(ctx, item, today); ok && isValid(ctx, p.logger, c) {
			candidates = append(candidates, c)
		}
		return query.Limit <= 0 || len(candidates) < query.Limit
	})

	span.SetAttributes(attribute.Int("search.results", len(candidates)))
	span.SetStatus(codes.Ok, "Search completed")
	return candidates, nil
}

func (p *HTMLProvider) fetch(ctx context.Context, query domain.ProductQuery) (*goquery.Document, error) {
	u, err := url.Parse(p.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse search base url: %w", err)
	}
	params := u.Query()
	if query.Phrase != "" {
		params.Set(p.cfg.QueryParam, query.Phrase)
	}
	if query.CategoryExternalID != "" && p.cfg.CategoryParam != "" {
		params.Set(p.cfg.CategoryParam, query.CategoryExternalID)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if p.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", p.cfg.UserAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("request was cancelled: %w", ctx.Err())
		default:
			return nil, fmt.Errorf("failed to execute request: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search provider returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}
	return doc, nil
}

func (p *HTMLProvider) parseItem(ctx context.Context, item *goquery.Selection, today time.Time) (domain.CandidateProduct, bool) {
	sel := p.cfg.Selectors

	name := strings.TrimSpace(item.Find(sel.Name).First().Text())
	category := item.Find(sel.Category).First()

	c := domain.CandidateProduct{
		Name:        name,
		Description: strings.TrimSpace(item.Find(sel.Description).First().Text()),
		Category: domain.CategoryDescriptor{
			ExternalID: strings.TrimSpace(category.AttrOr(sel.CategoryIDAttr, "")),
			Name:       strings.TrimSpace(category.Text()),
		},
	}

	priceText := strings.TrimSpace(item.Find(sel.Price).First().Text())
	if priceText != "" {
		value, err := ParsePrice(priceText)
		if err != nil {
			p.logger.WarnContext(ctx, "Skipping unparsable price",
				slog.String("name", name),
				slog.String("price", priceText),
			)
			return c, false
		}
		c.PriceHistory = []domain.PricePoint{{Value: value, Date: domain.TruncateToDay(today)}}
	}
	return c, true
}

var nonPriceChars = regexp.MustCompile(`[^0-9.,]`)

// ParsePrice reads a price written with either "." or "," as the decimal
// separator, such as "R$ 1.234,56", "$1,234.56" or "19,90"
func ParsePrice(text string) (decimal.Decimal, error) {
	clean := nonPriceChars.ReplaceAllString(text, "")
	if clean == "" {
		return decimal.Decimal{}, fmt.Errorf("no digits in price %q", text)
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			clean = strings.ReplaceAll(clean, ".", "")
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(clean, ",") == 1 && len(clean)-lastComma-1 <= 2 {
			clean = strings.Replace(clean, ",", ".", 1)
		} else {
			clean = strings.ReplaceAll(clean, ",", "")
		}
	case lastDot >= 0:
		if strings.Count(clean, ".") > 1 || len(clean)-lastDot-1 == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	return decimal.NewFromString(clean)
}
