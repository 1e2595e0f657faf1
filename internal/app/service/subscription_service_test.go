package service

import (
	"context"
	"testing"

	"github.com/mrops-br/price-watch-api/internal/app/dto"
	"github.com/mrops-br/price-watch-api/internal/domain"
)

func TestCreateSubscriptionUnknownProduct(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	userID := seedUser(t, store, "ana")
	svc := newTestSubscriptionService(store)

	if _, err := svc.CreateSubscription(ctx, userID, 5); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	subs, err := store.Subscriptions().FindByUser(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subs) != 0 {
		t.Fatalf("expected no subscriptions, got %d", len(subs))
	}
}

func TestCreateSubscriptionUnknownUser(t *testing.T) {
	store := newTestStore()
	ids := seedProducts(t, store, "Widget")
	svc := newTestSubscriptionService(store)

	if _, err := svc.CreateSubscription(context.Background(), 42, ids[0]); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetSubscribedProductsReturnsEachProductOnce(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	ids := seedProducts(t, store, "Widget", "Gadget", "Gizmo")
	userID := seedUser(t, store, "ana")
	otherID := seedUser(t, store, "bo")
	svc := newTestSubscriptionService(store)

	for _, productID := range []int64{ids[1], ids[0], ids[1]} {
		if _, err := svc.CreateSubscription(ctx, userID, productID); err != nil {
			t.Fatalf("subscribe %d: %v", productID, err)
		}
	}
	if _, err := svc.CreateSubscription(ctx, otherID, ids[2]); err != nil {
		t.Fatalf("subscribe other user: %v", err)
	}

	products, err := svc.GetSubscribedProducts(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := productNames(products); len(got) != 2 || got[0] != "Gadget" || got[1] != "Widget" {
		t.Fatalf("expected [Gadget Widget], got %v", got)
	}
}

func TestCreateSubscriptionAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	ids := seedProducts(t, store, "Widget")
	userID := seedUser(t, store, "ana")
	svc := newTestSubscriptionService(store)

	first, err := svc.CreateSubscription(ctx, userID, ids[0])
	if err != nil {
		t.Fatalf("first subscribe: %v", err)
	}
	second, err := svc.CreateSubscription(ctx, userID, ids[0])
	if err != nil {
		t.Fatalf("second subscribe: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected two subscription rows")
	}
	if first.CreatedAt.IsZero() {
		t.Fatalf("expected creation time to be set")
	}

	removed, err := svc.RemoveSubscription(ctx, userID, ids[0])
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected both rows removed, got %d", removed)
	}

	products, err := svc.GetSubscribedProducts(ctx, userID)
	if err != nil || len(products) != 0 {
		t.Fatalf("expected no subscribed products, got %v, %v", products, err)
	}
}

func TestRemoveSubscriptionWithoutRowsIsNoOp(t *testing.T) {
	store := newTestStore()
	ids := seedProducts(t, store, "Widget")
	userID := seedUser(t, store, "ana")
	svc := newTestSubscriptionService(store)

	removed, err := svc.RemoveSubscription(context.Background(), userID, ids[0])
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op, got %d, %v", removed, err)
	}
}

func TestRemoveSubscriptionUnknownEndpoints(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	ids := seedProducts(t, store, "Widget")
	userID := seedUser(t, store, "ana")
	svc := newTestSubscriptionService(store)

	if _, err := svc.RemoveSubscription(ctx, 99, ids[0]); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if _, err := svc.RemoveSubscription(ctx, userID, 99); !domain.IsNotFound(err) {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func TestGetSubscribedProductsUnknownUser(t *testing.T) {
	svc := newTestSubscriptionService(newTestStore())
	if _, err := svc.GetSubscribedProducts(context.Background(), 7); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRegisterUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewUserService(store, testTracer(), testLogger())

	view, err := svc.RegisterUser(ctx, &dto.CreateUserRequest{Name: "ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.ID == 0 || view.Name != "ana" {
		t.Fatalf("unexpected user: %+v", view)
	}
	if _, err := store.Users().FindByID(ctx, view.ID); err != nil {
		t.Fatalf("user not stored: %v", err)
	}
}

func productNames(products []dto.ProductView) []string {
	names := make([]string, len(products))
	for i, p := range products {
		names[i] = p.Name
	}
	return names
}
