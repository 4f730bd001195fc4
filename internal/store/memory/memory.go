package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	transactionsByID  map[string]domain.Transaction
	distributionsByID map[string]domain.Distribution
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo
// mode. Credentials are read from SEED_ADMIN_PASSWORD and
// SEED_CASHIER_PASSWORD; hardcoded dev defaults apply when unset.
// These credentials are never used in production (the backend uses
// PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		transactionsByID:  make(map[string]domain.Transaction),
		distributionsByID: make(map[string]domain.Distribution),
		usersByUsername:   seedUsers(),
	}
}

// NewSeeded returns a store preloaded with demo distributions for a
// sample cashier so a fresh dev server has stock to sell against.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seed := []domain.Distribution{
		{
			ID:        "dist-seed-1",
			CashierID: "cashier-1",
			Status:    domain.DistStatusDelivered,
			Items: []domain.DistributionItem{
				{ProductID: "prod-mie-01", ProductName: "Mie Goreng Instan", Quantity: 40, UnitPriceCents: 3500, TotalValueCents: 140000},
				{ProductID: "prod-kopi-01", ProductName: "Kopi Sachet", Quantity: 60, UnitPriceCents: 2600, TotalValueCents: 156000},
			},
			CreatedAt: now.Add(-48 * time.Hour),
			UpdatedAt: now.Add(-48 * time.Hour),
		},
		{
			ID:        "dist-seed-2",
			CashierID: "cashier-1",
			Status:    domain.DistStatusPending,
			Items: []domain.DistributionItem{
				{ProductID: "prod-mie-01", ProductName: "Mie Goreng Instan", Quantity: 24, UnitPriceCents: 3500, TotalValueCents: 84000},
				{ProductID: "prod-air-01", ProductName: "Air Mineral 600ml", Quantity: 48, UnitPriceCents: 3900, TotalValueCents: 187200},
			},
			CreatedAt: now.Add(-24 * time.Hour),
			UpdatedAt: now.Add(-24 * time.Hour),
		},
	}
	for _, dist := range seed {
		dist.TotalValueCents = itemTotal(dist.Items)
		s.distributionsByID[dist.ID] = dist
	}
	return s
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.CashierID == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	tx.Items = slices.Clone(tx.Items)
	s.transactionsByID[tx.ID] = tx
	created := tx
	return &created, nil
}

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Transaction, 0, len(s.transactionsByID))
	for _, tx := range s.transactionsByID {
		if filter.CashierID != "" && tx.CashierID != filter.CashierID {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		tx.Items = slices.Clone(tx.Items)
		result = append(result, tx)
	}

	slices.SortFunc(result, func(a, b domain.Transaction) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateDistribution(_ context.Context, dist domain.Distribution) (*domain.Distribution, error) {
	if dist.CashierID == "" || len(dist.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range dist.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dist.ID == "" {
		dist.ID = xid.New("dist")
	}
	if dist.Status == "" {
		dist.Status = domain.DistStatusPending
	}
	now := time.Now().UTC()
	if dist.CreatedAt.IsZero() {
		dist.CreatedAt = now
	}
	dist.UpdatedAt = dist.CreatedAt

	dist.Items = normalizeItems(dist.Items)
	dist.TotalValueCents = itemTotal(dist.Items)
	s.distributionsByID[dist.ID] = dist
	created := dist
	return &created, nil
}

func (s *Store) GetDistributionByID(_ context.Context, id string) (*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist, exists := s.distributionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	dist.Items = slices.Clone(dist.Items)
	return &dist, nil
}

func (s *Store) ListDistributions(_ context.Context, filter domain.DistributionFilter) ([]domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Distribution, 0, len(s.distributionsByID))
	for _, dist := range s.distributionsByID {
		if filter.CashierID != "" && dist.CashierID != filter.CashierID {
			continue
		}
		if filter.Status != "" && dist.Status != filter.Status {
			continue
		}
		dist.Items = slices.Clone(dist.Items)
		result = append(result, dist)
	}

	sortDistributionsAsc(result)

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ListOpenDistributions(_ context.Context, cashierID string) ([]domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Distribution, 0, 8)
	for _, dist := range s.distributionsByID {
		if dist.CashierID != cashierID {
			continue
		}
		if dist.Status != domain.DistStatusPending && dist.Status != domain.DistStatusDelivered {
			continue
		}
		dist.Items = slices.Clone(dist.Items)
		result = append(result, dist)
	}

	sortDistributionsAsc(result)
	return result, nil
}

func (s *Store) ReplaceDistribution(_ context.Context, dist domain.Distribution) (*domain.Distribution, error) {
	if dist.ID == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.distributionsByID[dist.ID]
	if !exists {
		return nil, store.ErrNotFound
	}

	dist.CashierID = existing.CashierID
	dist.CreatedAt = existing.CreatedAt
	dist.UpdatedAt = time.Now().UTC()
	dist.Items = slices.Clone(dist.Items)
	s.distributionsByID[dist.ID] = dist
	updated := dist
	return &updated, nil
}

func (s *Store) GetSalesSummary(_ context.Context, cashierID string, from time.Time, to time.Time) (domain.SalesSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.SalesSummary{CashierID: cashierID}
	for _, tx := range s.transactionsByID {
		if tx.CashierID != cashierID || tx.Status != domain.TxStatusCompleted {
			continue
		}
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		summary.Transactions++
		summary.GrossSalesCents += tx.SubtotalCents
		summary.DiscountCents += tx.OverallDiscountCents
		summary.NetSalesCents += tx.TotalAmountCents
		summary.CashReceivedCents += tx.CashReceivedCents
		summary.ChangeCents += tx.ChangeCents
	}
	return summary, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.TrimSpace(user.Username)
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func normalizeItems(items []domain.DistributionItem) []domain.DistributionItem {
	normalized := make([]domain.DistributionItem, 0, len(items))
	for _, item := range items {
		item.TotalValueCents = int64(item.Quantity) * item.UnitPriceCents
		normalized = append(normalized, item)
	}
	return normalized
}

func itemTotal(items []domain.DistributionItem) int64 {
	total := int64(0)
	for _, item := range items {
		total += int64(item.Quantity) * item.UnitPriceCents
	}
	return total
}

func sortDistributionsAsc(dists []domain.Distribution) {
	slices.SortFunc(dists, func(a, b domain.Distribution) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.Before(b.CreatedAt) {
			return -1
		}
		return 1
	})
}

func cmpString(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
