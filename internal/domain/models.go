package domain

import "time"

// TransactionItem is a single sold line on a completed sale. Monetary
// amounts are stored in cents; the wire names follow the POS client
// contract (productId, price, total, ...).
type TransactionItem struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	ProductSKU     string `json:"productSku"`
	Category       string `json:"category"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"price"`
	DiscountCents  int64  `json:"discount"`
	LineTotalCents int64  `json:"total"`
}

// Transaction is a persisted sale. Status is fixed to "completed" at
// creation and the record is never updated afterwards.
type Transaction struct {
	ID                   string            `json:"id"`
	CashierID            string            `json:"cashierId"`
	Items                []TransactionItem `json:"items"`
	SubtotalCents        int64             `json:"subtotal"`
	OverallDiscountCents int64             `json:"overallDiscount"`
	TotalAmountCents     int64             `json:"totalAmount"`
	CashReceivedCents    int64             `json:"cashReceived"`
	ChangeCents          int64             `json:"change"`
	Status               string            `json:"status"`
	CreatedAt            time.Time         `json:"createdAt"`
	UpdatedAt            time.Time         `json:"updatedAt"`
}

// TransactionItemInput mirrors TransactionItem for request decoding.
// Discount and total are pointers because zero is a valid discount but
// a missing field is a malformed item.
type TransactionItemInput struct {
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	ProductSKU     string `json:"productSku"`
	Category       string `json:"category"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"price"`
	DiscountCents  *int64 `json:"discount"`
	LineTotalCents int64  `json:"total"`
}

// TransactionCreateRequest is the POST /transactions body. The four
// payment calculation fields are pointers: they may legitimately be
// zero, so presence rather than truthiness must be checked.
type TransactionCreateRequest struct {
	CashierID            string                 `json:"cashierId"`
	Items                []TransactionItemInput `json:"items"`
	SubtotalCents        *int64                 `json:"subtotal"`
	OverallDiscountCents *int64                 `json:"overallDiscount,omitempty"`
	TotalAmountCents     *int64                 `json:"totalAmount"`
	CashReceivedCents    *int64                 `json:"cashReceived"`
	ChangeCents          *int64                 `json:"change"`
}

type TransactionFilter struct {
	CashierID string
	Status    string
	Limit     int
}

// DistributionItem is stock allocated to a cashier for one product.
// TotalValueCents is always Quantity * UnitPriceCents.
type DistributionItem struct {
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	Quantity        int    `json:"quantity"`
	UnitPriceCents  int64  `json:"price"`
	TotalValueCents int64  `json:"totalValue"`
}

// Distribution is a batch of stock assigned to a cashier. Sales drain
// its items; a fully drained distribution transitions to "cancelled".
type Distribution struct {
	ID              string             `json:"id"`
	CashierID       string             `json:"cashierId"`
	Status          string             `json:"status"`
	Items           []DistributionItem `json:"items"`
	TotalValueCents int64              `json:"totalValue"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

type DistributionCreateRequest struct {
	CashierID string             `json:"cashierId"`
	Status    string             `json:"status,omitempty"`
	Items     []DistributionItem `json:"items"`
}

type DistributionFilter struct {
	CashierID string
	Status    string
	Limit     int
}

// SalesSummary aggregates a cashier's completed sales for one day.
type SalesSummary struct {
	CashierID         string `json:"cashierId"`
	Date              string `json:"date"`
	Transactions      int64  `json:"transactions"`
	GrossSalesCents   int64  `json:"grossSales"`
	DiscountCents     int64  `json:"discount"`
	NetSalesCents     int64  `json:"netSales"`
	CashReceivedCents int64  `json:"cashReceived"`
	ChangeCents       int64  `json:"change"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	TxStatusCompleted = "completed"
)

const (
	DistStatusPending   = "pending"
	DistStatusDelivered = "delivered"
	DistStatusCancelled = "cancelled"
)
