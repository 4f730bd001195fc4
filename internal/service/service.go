package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"retailpos/backend/internal/cache"
	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/reconcile"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// Validation failures are reported at category level only: which group
// of fields was bad, not which field.
var (
	ErrMissingFields        = fmt.Errorf("%w: missing required fields", store.ErrInvalidInput)
	ErrMissingPaymentFields = fmt.Errorf("%w: missing payment calculation fields", store.ErrInvalidInput)
	ErrInvalidItem          = fmt.Errorf("%w: invalid item data - missing required fields", store.ErrInvalidInput)
)

// ErrForbidden marks an authorization failure so the HTTP layer can
// map it to 403 instead of a generic server error.
var ErrForbidden = errors.New("admin role required")

type Service struct {
	repo       store.Repository
	summaries  cache.SummaryCache
	summaryTTL time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = time.Minute
	}

	return &Service{
		repo:       repo,
		summaries:  summaries,
		summaryTTL: summaryTTL,
	}
}

// RecordTransaction validates and persists a sale, then reconciles the
// cashier's open distributions against the sold quantities. A
// reconciliation shortfall is logged but never fails the sale; a
// reconciliation error after the sale persisted is returned while the
// transaction stays persisted.
func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionCreateRequest) (*domain.Transaction, error) {
	if err := s.repo.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	tx, err := buildTransaction(req)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.CreateTransaction(ctx, *tx)
	if err != nil {
		return nil, err
	}

	log.Printf("[service] transaction recorded id=%s cashier=%s items=%d total=%d",
		created.ID, created.CashierID, len(created.Items), created.TotalAmountCents)

	demand := reconcile.BuildDemand(created.Items)
	report, err := s.reconcileDistributions(ctx, created.CashierID, demand)
	if err != nil {
		return nil, err
	}

	for productID, qty := range report.Unsatisfied {
		log.Printf("[service] WARN: could not decrease %d units of product %s - insufficient stock in distributions", qty, productID)
	}

	return created, nil
}

// buildTransaction validates the request and shapes a transaction with
// status fixed to completed. Zero is valid for every payment field and
// for discounts, so only presence is checked there.
func buildTransaction(req domain.TransactionCreateRequest) (*domain.Transaction, error) {
	if strings.TrimSpace(req.CashierID) == "" || len(req.Items) == 0 {
		return nil, ErrMissingFields
	}
	if req.SubtotalCents == nil || req.TotalAmountCents == nil || req.CashReceivedCents == nil || req.ChangeCents == nil {
		return nil, ErrMissingPaymentFields
	}

	items := make([]domain.TransactionItem, 0, len(req.Items))
	for _, in := range req.Items {
		if in.ProductID == "" || in.ProductName == "" || in.ProductSKU == "" || in.Category == "" {
			return nil, ErrInvalidItem
		}
		if in.Quantity == 0 || in.UnitPriceCents == 0 || in.LineTotalCents == 0 {
			return nil, ErrInvalidItem
		}
		if in.DiscountCents == nil {
			return nil, ErrInvalidItem
		}
		items = append(items, domain.TransactionItem{
			ProductID:      in.ProductID,
			ProductName:    in.ProductName,
			ProductSKU:     in.ProductSKU,
			Category:       in.Category,
			Quantity:       in.Quantity,
			UnitPriceCents: in.UnitPriceCents,
			DiscountCents:  *in.DiscountCents,
			LineTotalCents: in.LineTotalCents,
		})
	}

	overallDiscount := int64(0)
	if req.OverallDiscountCents != nil {
		overallDiscount = *req.OverallDiscountCents
	}

	now := time.Now().UTC()
	return &domain.Transaction{
		ID:                   xid.New("tx"),
		CashierID:            strings.TrimSpace(req.CashierID),
		Items:                items,
		SubtotalCents:        *req.SubtotalCents,
		OverallDiscountCents: overallDiscount,
		TotalAmountCents:     *req.TotalAmountCents,
		CashReceivedCents:    *req.CashReceivedCents,
		ChangeCents:          *req.ChangeCents,
		Status:               domain.TxStatusCompleted,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// reconcileDistributions drains the cashier's pending and delivered
// distributions against the demand ledger, persisting each changed
// distribution before moving to the next. Distributions are processed
// in the store's deterministic fetch order.
func (s *Service) reconcileDistributions(ctx context.Context, cashierID string, demand reconcile.Demand) (reconcile.Report, error) {
	report := reconcile.Report{}

	dists, err := s.repo.ListOpenDistributions(ctx, cashierID)
	if err != nil {
		return report, err
	}

	for _, dist := range dists {
		updated, changed := reconcile.Apply(dist, demand)
		if !changed {
			continue
		}

		if _, err := s.repo.ReplaceDistribution(ctx, updated); err != nil {
			return report, err
		}

		report.UpdatedIDs = append(report.UpdatedIDs, updated.ID)
		if updated.Status == domain.DistStatusCancelled {
			report.CancelledIDs = append(report.CancelledIDs, updated.ID)
		}
		log.Printf("[service] distribution %s reconciled, remaining value=%d status=%s",
			updated.ID, updated.TotalValueCents, updated.Status)
	}

	report.Unsatisfied = demand.Leftover()
	return report, nil
}

func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) CreateDistribution(ctx context.Context, req domain.DistributionCreateRequest) (*domain.Distribution, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, ErrForbidden
	}

	if strings.TrimSpace(req.CashierID) == "" || len(req.Items) == 0 {
		return nil, ErrMissingFields
	}
	status := req.Status
	if status == "" {
		status = domain.DistStatusPending
	}
	if status != domain.DistStatusPending && status != domain.DistStatusDelivered {
		return nil, fmt.Errorf("%w: unsupported distribution status %q", store.ErrInvalidInput, status)
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, ErrInvalidItem
		}
	}

	dist := domain.Distribution{
		CashierID: strings.TrimSpace(req.CashierID),
		Status:    status,
		Items:     req.Items,
	}
	created, err := s.repo.CreateDistribution(ctx, dist)
	if err != nil {
		return nil, err
	}

	log.Printf("[service] distribution created id=%s cashier=%s items=%d value=%d",
		created.ID, created.CashierID, len(created.Items), created.TotalValueCents)
	return created, nil
}

func (s *Service) GetDistribution(ctx context.Context, id string) (*domain.Distribution, error) {
	if strings.TrimSpace(id) == "" {
		return nil, store.ErrInvalidInput
	}
	return s.repo.GetDistributionByID(ctx, id)
}

func (s *Service) ListDistributions(ctx context.Context, filter domain.DistributionFilter) ([]domain.Distribution, error) {
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	return s.repo.ListDistributions(ctx, filter)
}

// SalesSummary aggregates one cashier's completed sales for a calendar
// day (UTC). Results are cached briefly since the report is consulted
// repeatedly during shift handover.
func (s *Service) SalesSummary(ctx context.Context, cashierID string, date string) (domain.SalesSummary, error) {
	cashierID = strings.TrimSpace(cashierID)
	if cashierID == "" {
		return domain.SalesSummary{}, fmt.Errorf("%w: cashierId required", store.ErrInvalidInput)
	}

	day := time.Now().UTC()
	if date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.SalesSummary{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidInput)
		}
		day = parsed
	}
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	key := fmt.Sprintf("summary:%s:%s", cashierID, from.Format("2006-01-02"))
	if cached, found, err := s.summaries.Get(ctx, key); err == nil && found {
		return *cached, nil
	} else if err != nil {
		log.Printf("[service] WARN: summary cache get failed key=%s: %v", key, err)
	}

	summary, err := s.repo.GetSalesSummary(ctx, cashierID, from, to)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	summary.Date = from.Format("2006-01-02")

	if err := s.summaries.Set(ctx, key, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache set failed key=%s: %v", key, err)
	}

	return summary, nil
}

// IsClientInputError reports whether err should map to a 4xx response.
func IsClientInputError(err error) bool {
	return errors.Is(err, store.ErrInvalidInput)
}
