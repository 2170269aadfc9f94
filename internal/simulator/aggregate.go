package simulator

import (
	"github.com/shopspring/decimal"

	"community_energy/internal/model"
)

// Defaults for the aggregate tracker.
const (
	DefaultLogCapacity   = 100
	DefaultGridValuation = 0.15 // currency per kWh kept off the grid
)

// Aggregates accumulates community-wide totals across ticks and keeps the
// most recent transactions in a bounded FIFO log.
type Aggregates struct {
	Ticks             uint64          `json:"ticks"`
	TotalEnergyTraded float64         `json:"total_energy_traded_kwh"`
	MoneySaved        decimal.Decimal `json:"money_saved"`
	P2PValue          decimal.Decimal `json:"p2p_value"`
	GridSold          float64         `json:"grid_sold_kwh"`
	GridBought        float64         `json:"grid_bought_kwh"`
	TransactionCount  uint64          `json:"transaction_count"`

	Log           []model.Transaction `json:"log"`
	LogCapacity   int                 `json:"log_capacity"`
	GridValuation decimal.Decimal     `json:"grid_valuation"`
}

// NewAggregates returns an empty tracker. A non-positive capacity falls back
// to DefaultLogCapacity.
func NewAggregates(logCapacity int, gridValuation float64) Aggregates {
	if logCapacity <= 0 {
		logCapacity = DefaultLogCapacity
	}
	return Aggregates{
		MoneySaved:    decimal.Zero,
		P2PValue:      decimal.Zero,
		LogCapacity:   logCapacity,
		GridValuation: decimal.NewFromFloat(gridValuation),
	}
}

// Record folds one tick into the totals and returns the updated tracker.
// The receiver is not modified, so a published tracker stays consistent.
func (a Aggregates) Record(r TickResult) Aggregates {
	a.Ticks++
	a.TotalEnergyTraded += r.TotalEnergyTraded
	a.MoneySaved = a.MoneySaved.Add(decimal.NewFromFloat(r.TotalEnergyTraded).Mul(a.GridValuation))
	for _, tx := range r.Transactions {
		a.P2PValue = a.P2PValue.Add(decimal.NewFromFloat(tx.TotalPrice))
	}
	a.GridSold += r.Settlement.GridSold
	a.GridBought += r.Settlement.GridBought
	a.TransactionCount += uint64(len(r.Transactions))
	a.Log = appendBounded(a.Log, r.Transactions, a.LogCapacity)
	return a
}

// appendBounded returns a new slice holding the last capacity entries of
// log followed by txs. The input slice is never written to.
func appendBounded(log, txs []model.Transaction, capacity int) []model.Transaction {
	total := len(log) + len(txs)
	drop := total - capacity
	if drop < 0 {
		drop = 0
	}

	out := make([]model.Transaction, 0, total-drop)
	if drop < len(log) {
		out = append(out, log[drop:]...)
		out = append(out, txs...)
	} else {
		out = append(out, txs[drop-len(log):]...)
	}
	return out
}

// Summary holds running totals for broadcasting.
type Summary struct {
	Ticks                uint64  `json:"ticks"`
	TotalEnergyTradedKWh float64 `json:"total_energy_traded_kwh"`
	MoneySaved           float64 `json:"money_saved"`
	P2PValue             float64 `json:"p2p_value"`
	GridSoldKWh          float64 `json:"grid_sold_kwh"`
	GridBoughtKWh        float64 `json:"grid_bought_kwh"`
	TransactionCount     uint64  `json:"transaction_count"`

	Battery BatterySummary `json:"battery"`
}

// Summary flattens the tracker into plain numbers.
func (a *Aggregates) Summary() Summary {
	return Summary{
		Ticks:                a.Ticks,
		TotalEnergyTradedKWh: a.TotalEnergyTraded,
		MoneySaved:           a.MoneySaved.Round(2).InexactFloat64(),
		P2PValue:             a.P2PValue.Round(2).InexactFloat64(),
		GridSoldKWh:          a.GridSold,
		GridBoughtKWh:        a.GridBought,
		TransactionCount:     a.TransactionCount,
	}
}
