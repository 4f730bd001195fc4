package cache

import (
	"context"
	"testing"
	"time"

	"retailpos/backend/internal/domain"
)

func TestNoopSummaryCacheAlwaysMisses(t *testing.T) {
	c := NoopSummaryCache{}
	ctx := context.Background()

	summary := &domain.SalesSummary{CashierID: "cashier-1", NetSalesCents: 7000}
	if err := c.Set(ctx, "summary:cashier-1:2026-08-30", summary, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, found, err := c.Get(ctx, "summary:cashier-1:2026-08-30")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found || got != nil {
		t.Fatalf("noop cache must never hit, got %v", got)
	}
}
