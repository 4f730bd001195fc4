// Package reconcile implements the stock-decrement pass that runs after
// a sale is recorded: it drains the cashier's open distributions by the
// sold quantities, removing exhausted line items and cancelling fully
// drained distributions.
package reconcile

import (
	"retailpos/backend/internal/domain"
)

// Demand maps a product id to the quantity still needing deduction.
// It is built per request, passed explicitly, and mutated by Apply;
// it must never be shared across requests.
type Demand map[string]int

// BuildDemand aggregates sold items into per-product demand. The same
// product id appearing on multiple lines has its quantities summed.
func BuildDemand(items []domain.TransactionItem) Demand {
	demand := make(Demand, len(items))
	for _, item := range items {
		demand[item.ProductID] += item.Quantity
	}
	return demand
}

// Remaining reports the total quantity still unsatisfied.
func (d Demand) Remaining() int {
	total := 0
	for _, qty := range d {
		total += qty
	}
	return total
}

// Report describes what a reconciliation run did. Unsatisfied demand is
// a diagnostic, not an error: the sale stands regardless.
type Report struct {
	UpdatedIDs   []string
	CancelledIDs []string
	Unsatisfied  Demand
}

// Apply drains one distribution against the demand ledger. Line items
// are visited in their stored order; each deducts
// min(remaining demand, item quantity) from both sides. The returned
// distribution carries a freshly built item list holding only items
// with quantity > 0, a recomputed total value, and status "cancelled"
// when no items survive. The input distribution is not mutated.
//
// Allocation is greedy: a distribution processed earlier is drained
// before a later one for the same product. Callers must not assume
// FIFO-by-age or optimal allocation.
func Apply(dist domain.Distribution, demand Demand) (domain.Distribution, bool) {
	changed := false
	survivors := make([]domain.DistributionItem, 0, len(dist.Items))

	for _, item := range dist.Items {
		remaining := demand[item.ProductID]
		if remaining > 0 && item.Quantity > 0 {
			deduct := min(remaining, item.Quantity)
			item.Quantity -= deduct
			item.TotalValueCents = int64(item.Quantity) * item.UnitPriceCents
			demand[item.ProductID] = remaining - deduct
			changed = true
		}
		if item.Quantity > 0 {
			survivors = append(survivors, item)
		}
	}

	if !changed {
		return dist, false
	}

	total := int64(0)
	for _, item := range survivors {
		total += int64(item.Quantity) * item.UnitPriceCents
	}

	dist.Items = survivors
	dist.TotalValueCents = total
	if len(survivors) == 0 {
		dist.Status = domain.DistStatusCancelled
	}
	return dist, true
}

// Leftover returns the product ids with positive remaining demand after
// all distributions were processed, as a fresh map.
func (d Demand) Leftover() Demand {
	leftover := make(Demand)
	for productID, qty := range d {
		if qty > 0 {
			leftover[productID] = qty
		}
	}
	return leftover
}
