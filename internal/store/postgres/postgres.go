package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"retailpos/backend/internal/domain"
	"retailpos/backend/internal/store"
	"retailpos/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return store.ErrUnavailable
	}
	return nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			cashier_id TEXT NOT NULL,
			subtotal_cents BIGINT NOT NULL,
			overall_discount_cents BIGINT NOT NULL DEFAULT 0,
			total_amount_cents BIGINT NOT NULL,
			cash_received_cents BIGINT NOT NULL,
			change_cents BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_cashier_created
			ON transactions (cashier_id, created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS transaction_items (
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			line_no INT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			product_sku TEXT NOT NULL,
			category TEXT NOT NULL,
			qty INT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			discount_cents BIGINT NOT NULL,
			line_total_cents BIGINT NOT NULL,
			PRIMARY KEY (transaction_id, line_no)
		)`,
		`CREATE TABLE IF NOT EXISTS distributions (
			id TEXT PRIMARY KEY,
			cashier_id TEXT NOT NULL,
			status TEXT NOT NULL,
			total_value_cents BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_distributions_cashier_status
			ON distributions (cashier_id, status)`,
		`CREATE TABLE IF NOT EXISTS distribution_items (
			distribution_id TEXT NOT NULL REFERENCES distributions(id),
			line_no INT NOT NULL,
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			qty INT NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			total_value_cents BIGINT NOT NULL,
			PRIMARY KEY (distribution_id, line_no)
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			password TEXT NOT NULL,
			role TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.CashierID == "" || len(tx.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	if tx.UpdatedAt.IsZero() {
		tx.UpdatedAt = tx.CreatedAt
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusCompleted
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (
			id, cashier_id, subtotal_cents, overall_discount_cents, total_amount_cents,
			cash_received_cents, change_cents, status, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, tx.ID, tx.CashierID, tx.SubtotalCents, tx.OverallDiscountCents, tx.TotalAmountCents,
		tx.CashReceivedCents, tx.ChangeCents, tx.Status, tx.CreatedAt, tx.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for lineNo, item := range tx.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (
				transaction_id, line_no, product_id, product_name, product_sku,
				category, qty, unit_price_cents, discount_cents, line_total_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, tx.ID, lineNo, item.ProductID, item.ProductName, item.ProductSKU,
			item.Category, item.Quantity, item.UnitPriceCents, item.DiscountCents, item.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cashier_id, subtotal_cents, overall_discount_cents, total_amount_cents,
			cash_received_cents, change_cents, status, created_at, updated_at
		FROM transactions
		WHERE ($1 = '' OR cashier_id = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, filter.CashierID, filter.Status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, limit)
	for rows.Next() {
		var tx domain.Transaction
		if err := rows.Scan(&tx.ID, &tx.CashierID, &tx.SubtotalCents, &tx.OverallDiscountCents,
			&tx.TotalAmountCents, &tx.CashReceivedCents, &tx.ChangeCents, &tx.Status,
			&tx.CreatedAt, &tx.UpdatedAt); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		tx.UpdatedAt = tx.UpdatedAt.UTC()
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range transactions {
		items, err := s.loadTransactionItems(ctx, transactions[i].ID)
		if err != nil {
			return nil, err
		}
		transactions[i].Items = items
	}

	return transactions, nil
}

func (s *Store) loadTransactionItems(ctx context.Context, transactionID string) ([]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, product_sku, category, qty,
			unit_price_cents, discount_cents, line_total_cents
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY line_no ASC
	`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.TransactionItem, 0, 8)
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.ProductSKU, &item.Category,
			&item.Quantity, &item.UnitPriceCents, &item.DiscountCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateDistribution(ctx context.Context, dist domain.Distribution) (*domain.Distribution, error) {
	if dist.CashierID == "" || len(dist.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	for _, item := range dist.Items {
		if item.ProductID == "" || item.Quantity < 1 || item.UnitPriceCents < 0 {
			return nil, store.ErrInvalidInput
		}
	}

	if dist.ID == "" {
		dist.ID = xid.New("dist")
	}
	if dist.Status == "" {
		dist.Status = domain.DistStatusPending
	}
	if dist.CreatedAt.IsZero() {
		dist.CreatedAt = time.Now().UTC()
	}
	dist.UpdatedAt = dist.CreatedAt

	total := int64(0)
	for i := range dist.Items {
		dist.Items[i].TotalValueCents = int64(dist.Items[i].Quantity) * dist.Items[i].UnitPriceCents
		total += dist.Items[i].TotalValueCents
	}
	dist.TotalValueCents = total

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO distributions (id, cashier_id, status, total_value_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, dist.ID, dist.CashierID, dist.Status, dist.TotalValueCents, dist.CreatedAt, dist.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	if err := insertDistributionItems(ctx, pgTx, dist.ID, dist.Items); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := dist
	return &created, nil
}

func (s *Store) GetDistributionByID(ctx context.Context, id string) (*domain.Distribution, error) {
	var dist domain.Distribution
	err := s.db.QueryRowContext(ctx, `
		SELECT id, cashier_id, status, total_value_cents, created_at, updated_at
		FROM distributions
		WHERE id = $1
	`, id).Scan(&dist.ID, &dist.CashierID, &dist.Status, &dist.TotalValueCents, &dist.CreatedAt, &dist.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	dist.CreatedAt = dist.CreatedAt.UTC()
	dist.UpdatedAt = dist.UpdatedAt.UTC()

	items, err := s.loadDistributionItems(ctx, dist.ID)
	if err != nil {
		return nil, err
	}
	dist.Items = items
	return &dist, nil
}

func (s *Store) ListDistributions(ctx context.Context, filter domain.DistributionFilter) ([]domain.Distribution, error) {
	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cashier_id, status, total_value_cents, created_at, updated_at
		FROM distributions
		WHERE ($1 = '' OR cashier_id = $1)
			AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, filter.CashierID, filter.Status, limit)
	if err != nil {
		return nil, err
	}
	return s.collectDistributions(ctx, rows)
}

func (s *Store) ListOpenDistributions(ctx context.Context, cashierID string) ([]domain.Distribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cashier_id, status, total_value_cents, created_at, updated_at
		FROM distributions
		WHERE cashier_id = $1 AND status = ANY($2)
		ORDER BY created_at ASC, id ASC
	`, cashierID, []string{domain.DistStatusPending, domain.DistStatusDelivered})
	if err != nil {
		return nil, err
	}
	return s.collectDistributions(ctx, rows)
}

func (s *Store) collectDistributions(ctx context.Context, rows *sql.Rows) ([]domain.Distribution, error) {
	defer rows.Close()

	dists := make([]domain.Distribution, 0, 16)
	for rows.Next() {
		var dist domain.Distribution
		if err := rows.Scan(&dist.ID, &dist.CashierID, &dist.Status, &dist.TotalValueCents,
			&dist.CreatedAt, &dist.UpdatedAt); err != nil {
			return nil, err
		}
		dist.CreatedAt = dist.CreatedAt.UTC()
		dist.UpdatedAt = dist.UpdatedAt.UTC()
		dists = append(dists, dist)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range dists {
		items, err := s.loadDistributionItems(ctx, dists[i].ID)
		if err != nil {
			return nil, err
		}
		dists[i].Items = items
	}
	return dists, nil
}

func (s *Store) loadDistributionItems(ctx context.Context, distributionID string) ([]domain.DistributionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, product_name, qty, unit_price_cents, total_value_cents
		FROM distribution_items
		WHERE distribution_id = $1
		ORDER BY line_no ASC
	`, distributionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.DistributionItem, 0, 8)
	for rows.Next() {
		var item domain.DistributionItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity,
			&item.UnitPriceCents, &item.TotalValueCents); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceDistribution rewrites the distribution row and its full item
// list in one serializable transaction, so item removal and a status
// downgrade to cancelled land in the same write.
func (s *Store) ReplaceDistribution(ctx context.Context, dist domain.Distribution) (*domain.Distribution, error) {
	if dist.ID == "" {
		return nil, store.ErrInvalidInput
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	dist.UpdatedAt = time.Now().UTC()
	res, err := pgTx.ExecContext(ctx, `
		UPDATE distributions
		SET status = $2, total_value_cents = $3, updated_at = $4
		WHERE id = $1
	`, dist.ID, dist.Status, dist.TotalValueCents, dist.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	if _, err := pgTx.ExecContext(ctx, `
		DELETE FROM distribution_items WHERE distribution_id = $1
	`, dist.ID); err != nil {
		return nil, err
	}
	if err := insertDistributionItems(ctx, pgTx, dist.ID, dist.Items); err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	updated := dist
	return &updated, nil
}

func (s *Store) GetSalesSummary(ctx context.Context, cashierID string, from time.Time, to time.Time) (domain.SalesSummary, error) {
	summary := domain.SalesSummary{CashierID: cashierID}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(subtotal_cents), 0),
			COALESCE(SUM(overall_discount_cents), 0),
			COALESCE(SUM(total_amount_cents), 0),
			COALESCE(SUM(cash_received_cents), 0),
			COALESCE(SUM(change_cents), 0)
		FROM transactions
		WHERE cashier_id = $1 AND status = $2 AND created_at >= $3 AND created_at < $4
	`, cashierID, domain.TxStatusCompleted, from, to).Scan(
		&summary.Transactions, &summary.GrossSalesCents, &summary.DiscountCents,
		&summary.NetSalesCents, &summary.CashReceivedCents, &summary.ChangeCents)
	if err != nil {
		return domain.SalesSummary{}, err
	}
	return summary, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidInput
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func insertDistributionItems(ctx context.Context, pgTx *sql.Tx, distributionID string, items []domain.DistributionItem) error {
	for lineNo, item := range items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO distribution_items (
				distribution_id, line_no, product_id, product_name, qty,
				unit_price_cents, total_value_cents
			)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, distributionID, lineNo, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPriceCents, item.TotalValueCents)
		if err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
