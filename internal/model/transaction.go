package model

import (
	"math"
	"time"
)

// TransactionStatus is managed by external collaborators after creation.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
	StatusCancelled TransactionStatus = "cancelled"
)

// Transaction is a single peer-to-peer trade produced by the market.
type Transaction struct {
	ID          string            `json:"id"`
	SellerID    int               `json:"seller_id"`
	BuyerID     int               `json:"buyer_id"`
	Amount      float64           `json:"amount_kwh"`
	PricePerKWh float64           `json:"price_per_kwh"`
	TotalPrice  float64           `json:"total_price"`
	Timestamp   time.Time         `json:"timestamp"`
	Status      TransactionStatus `json:"status"`
}

// RoundedTotal returns TotalPrice rounded to cents, the billed amount kept
// alongside the exact total in persisted history.
func (t Transaction) RoundedTotal() float64 {
	return math.Round(t.TotalPrice*100) / 100
}
