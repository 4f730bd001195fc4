package store

import (
	"context"
	"errors"
	"time"

	"retailpos/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("store unavailable")
)

type Repository interface {
	Ping(ctx context.Context) error

	CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error)

	CreateDistribution(ctx context.Context, dist domain.Distribution) (*domain.Distribution, error)
	GetDistributionByID(ctx context.Context, id string) (*domain.Distribution, error)
	ListDistributions(ctx context.Context, filter domain.DistributionFilter) ([]domain.Distribution, error)
	// ListOpenDistributions returns the cashier's pending and delivered
	// distributions in a deterministic order (created_at ascending, id
	// ascending as tie-break). The reconciler drains them in this order.
	ListOpenDistributions(ctx context.Context, cashierID string) ([]domain.Distribution, error)
	// ReplaceDistribution overwrites the stored distribution wholesale,
	// including its full item list, in a single write.
	ReplaceDistribution(ctx context.Context, dist domain.Distribution) (*domain.Distribution, error)

	GetSalesSummary(ctx context.Context, cashierID string, from time.Time, to time.Time) (domain.SalesSummary, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}
