package search

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace/noop"
)

const testCatalog = `
products:
  - name: Sony WH-1000XM5
    description: Wireless noise cancelling headphones
    category: {external_id: audio, name: Audio}
    price_history:
      - {value: "399.99", date: "2024-01-10"}
      - {value: "349.99", date: "2024-02-14"}
  - name: Bose QuietComfort
    description: Over-ear headphones
    category: {external_id: audio, name: Audio}
  - name: Kindle Paperwhite
    description: E-reader
    category: {external_id: ereaders, name: E-readers}
  - name: Unfiled gadget
    description: headphones adapter without category
`

func newTestStaticProvider(t *testing.T) *StaticProvider {
	t.Helper()
	candidates, err := ParseCatalog(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return NewStaticProvider(candidates, noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))
}

func TestParseCatalog(t *testing.T) {
	candidates, err := ParseCatalog(strings.NewReader(testCatalog))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(candidates))
	}

	sony := candidates[0]
	if sony.Category != (domain.CategoryDescriptor{ExternalID: "audio", Name: "Audio"}) {
		t.Fatalf("unexpected category: %+v", sony.Category)
	}
	if len(sony.PriceHistory) != 2 {
		t.Fatalf("expected 2 price points, got %d", len(sony.PriceHistory))
	}
	if !sony.PriceHistory[1].Value.Equal(decimal.RequireFromString("349.99")) ||
		sony.PriceHistory[1].Date.Format("2006-01-02") != "2024-02-14" {
		t.Fatalf("unexpected price point: %+v", sony.PriceHistory[1])
	}
}

func TestParseCatalogErrors(t *testing.T) {
	tests := map[string]string{
		"bad price": `products: [{name: x, price_history: [{value: "abc", date: "2024-01-01"}]}]`,
		"bad date":  `products: [{name: x, price_history: [{value: "1.00", date: "01/02/2024"}]}]`,
		"bad yaml":  `products: {`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCatalog(strings.NewReader(doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}

	candidates, err := ParseCatalog(strings.NewReader(""))
	if err != nil || len(candidates) != 0 {
		t.Fatalf("expected empty catalog, got %v, %v", candidates, err)
	}
}

func TestStaticProviderSearch(t *testing.T) {
	ctx := context.Background()
	p := newTestStaticProvider(t)

	got, err := p.Search(ctx, domain.ProductQuery{Phrase: "HEADPHONES"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the uncategorized match is discarded
	if len(got) != 2 || got[0].Name != "Sony WH-1000XM5" || got[1].Name != "Bose QuietComfort" {
		t.Fatalf("unexpected matches: %+v", got)
	}

	got, _ = p.Search(ctx, domain.ProductQuery{CategoryExternalID: "ereaders"})
	if len(got) != 1 || got[0].Name != "Kindle Paperwhite" {
		t.Fatalf("unexpected category matches: %+v", got)
	}

	got, _ = p.Search(ctx, domain.ProductQuery{Phrase: "headphones", CategoryExternalID: "ereaders"})
	if len(got) != 0 {
		t.Fatalf("expected phrase and category to both apply, got %+v", got)
	}

	got, _ = p.Search(ctx, domain.ProductQuery{Phrase: "o", Limit: 1})
	if len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(got))
	}
}

func TestStaticProviderReturnsCopies(t *testing.T) {
	ctx := context.Background()
	p := newTestStaticProvider(t)

	first, _ := p.Search(ctx, domain.ProductQuery{Phrase: "sony"})
	first[0].PriceHistory[0].Value = decimal.Zero

	second, _ := p.Search(ctx, domain.ProductQuery{Phrase: "sony"})
	if second[0].PriceHistory[0].Value.IsZero() {
		t.Fatalf("provider catalog was mutated through a result")
	}
}

func TestLoadStaticProviderEmptyPath(t *testing.T) {
	p, err := LoadStaticProvider("", noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := p.Search(context.Background(), domain.ProductQuery{Phrase: "x"})
	if len(got) != 0 {
		t.Fatalf("expected empty results, got %+v", got)
	}
}

func TestStaticProviderLimitCountsOnlyValidCandidates(t *testing.T) {
	p := NewStaticProvider([]domain.CandidateProduct{
		{Name: "Adapter", Category: domain.CategoryDescriptor{Name: "Loose"}},
		{Name: "Adapter cable", Category: domain.CategoryDescriptor{ExternalID: "cables", Name: "Cables"}},
	}, noop.NewTracerProvider().Tracer("test"), slog.New(slog.DiscardHandler))

	got, err := p.Search(context.Background(), domain.ProductQuery{Phrase: "adapter", Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Adapter cable" {
		t.Fatalf("expected the valid candidate to fill the limit, got %+v", got)
	}
}
