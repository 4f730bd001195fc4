package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
)

func TestListOpenDistributionsOldestFirst(t *testing.T) {
	s := New()
	base := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)

	seed := []struct {
		id        string
		status    string
		createdAt time.Time
	}{
		{"dist-newer", domain.DistStatusPending, base.Add(2 * time.Hour)},
		{"dist-oldest", domain.DistStatusDelivered, base},
		{"dist-cancelled", domain.DistStatusCancelled, base.Add(time.Hour)},
	}
	for _, d := range seed {
		_, err := s.CreateDistribution(context.Background(), domain.Distribution{
			ID:        d.id,
			CashierID: "cashier-1",
			Status:    d.status,
			Items: []domain.DistributionItem{
				{ProductID: "prod-x", ProductName: "X", Quantity: 1, UnitPriceCents: 100},
			},
			CreatedAt: d.createdAt,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", d.id, err)
		}
	}

	open, err := s.ListOpenDistributions(context.Background(), "cashier-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("cancelled must be excluded, got %d", len(open))
	}
	if open[0].ID != "dist-oldest" || open[1].ID != "dist-newer" {
		t.Fatalf("expected oldest first, got %s, %s", open[0].ID, open[1].ID)
	}
}

func TestListOpenDistributionsTiesBreakOnID(t *testing.T) {
	s := New()
	at := time.Date(2026, 8, 29, 8, 0, 0, 0, time.UTC)

	for _, id := range []string{"dist-b", "dist-a"} {
		_, err := s.CreateDistribution(context.Background(), domain.Distribution{
			ID:        id,
			CashierID: "cashier-1",
			Status:    domain.DistStatusPending,
			Items: []domain.DistributionItem{
				{ProductID: "prod-x", ProductName: "X", Quantity: 1, UnitPriceCents: 100},
			},
			CreatedAt: at,
		})
		if err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	open, err := s.ListOpenDistributions(context.Background(), "cashier-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if open[0].ID != "dist-a" || open[1].ID != "dist-b" {
		t.Fatalf("equal timestamps must order by id, got %s, %s", open[0].ID, open[1].ID)
	}
}

func TestCreateDistributionComputesTotals(t *testing.T) {
	s := New()

	created, err := s.CreateDistribution(context.Background(), domain.Distribution{
		CashierID: "cashier-1",
		Items: []domain.DistributionItem{
			{ProductID: "prod-x", ProductName: "X", Quantity: 4, UnitPriceCents: 250},
			{ProductID: "prod-y", ProductName: "Y", Quantity: 2, UnitPriceCents: 500},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Status != domain.DistStatusPending {
		t.Fatalf("expected default pending, got %s", created.Status)
	}
	if created.Items[0].TotalValueCents != 1000 || created.Items[1].TotalValueCents != 1000 {
		t.Fatalf("item totals not computed: %+v", created.Items)
	}
	if created.TotalValueCents != 2000 {
		t.Fatalf("distribution total = %d", created.TotalValueCents)
	}
}

func TestReplaceDistributionIsWholesale(t *testing.T) {
	s := New()
	created, err := s.CreateDistribution(context.Background(), domain.Distribution{
		ID:        "dist-1",
		CashierID: "cashier-1",
		Status:    domain.DistStatusDelivered,
		Items: []domain.DistributionItem{
			{ProductID: "prod-x", ProductName: "X", Quantity: 5, UnitPriceCents: 100},
			{ProductID: "prod-y", ProductName: "Y", Quantity: 3, UnitPriceCents: 200},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	replacement := *created
	replacement.CashierID = "cashier-hijack" // must be ignored
	replacement.Status = domain.DistStatusCancelled
	replacement.Items = nil
	replacement.TotalValueCents = 0

	updated, err := s.ReplaceDistribution(context.Background(), replacement)
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if updated.CashierID != "cashier-1" {
		t.Fatalf("replace must preserve the owner, got %s", updated.CashierID)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("replace must preserve createdAt")
	}
	if updated.UpdatedAt.Before(created.UpdatedAt) {
		t.Fatalf("replace must advance updatedAt")
	}

	stored, err := s.GetDistributionByID(context.Background(), "dist-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(stored.Items) != 0 || stored.Status != domain.DistStatusCancelled {
		t.Fatalf("item list must be replaced wholesale, got %+v", stored)
	}
}

func TestReplaceDistributionUnknownID(t *testing.T) {
	s := New()

	_, err := s.ReplaceDistribution(context.Background(), domain.Distribution{ID: "dist-ghost"})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSeededStoreHasWorkingFixture(t *testing.T) {
	s := NewSeeded()

	open, err := s.ListOpenDistributions(context.Background(), "cashier-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 seeded open distributions, got %d", len(open))
	}
	for _, dist := range open {
		if dist.TotalValueCents == 0 || len(dist.Items) == 0 {
			t.Fatalf("seed distribution %s is empty", dist.ID)
		}
	}

	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) < 2 {
		t.Fatalf("expected seeded admin and cashier accounts, got %d", len(users))
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	s := New()

	user := domain.UserAccount{Username: "kasirbaru", Password: "$2a$10$fakefakefakefakefakefake", Role: "cashier", Active: true}
	if err := s.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(context.Background(), user); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected duplicate rejection, got %v", err)
	}
}
