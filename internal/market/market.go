// Package market clears one tick of peer-to-peer energy trading.
//
// Matching is a greedy double auction: sellers are offered cheapest first,
// buyers with the highest willingness to pay are served first, and every
// trade is priced at the midpoint of the two limits. Cost is
// O(sellers × buyers) per tick, fine for a few dozen households but the
// scaling limit of this design.
package market

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"community_energy/internal/model"
)

// Params holds the market thresholds in kWh.
type Params struct {
	// ParticipationThreshold: |surplus| must strictly exceed this to trade.
	ParticipationThreshold float64 `yaml:"participation_threshold"`
	// DustThreshold: sellers at or below this are skipped and buyers at or
	// below this stop matching.
	DustThreshold float64 `yaml:"dust_threshold"`
}

// DefaultParams returns the reference thresholds.
func DefaultParams() Params {
	return Params{
		ParticipationThreshold: 0.1,
		DustThreshold:          0.05,
	}
}

// Validate rejects negative or inverted thresholds.
func (p Params) Validate() error {
	if math.IsNaN(p.DustThreshold) || p.DustThreshold < 0 {
		return &model.ValidationError{Field: "market.dust_threshold", Reason: "must be non-negative"}
	}
	if math.IsNaN(p.ParticipationThreshold) || p.ParticipationThreshold < p.DustThreshold {
		return &model.ValidationError{Field: "market.participation_threshold", Reason: "must be at least the dust threshold"}
	}
	return nil
}

// offer is a seller's view of the market for one tick.
type offer struct {
	idx       int // index into the household slice
	id        int
	available float64
	minPrice  float64
}

// bid is a buyer's view of the market for one tick.
type bid struct {
	idx      int
	id       int
	needed   float64
	maxPrice float64
}

// fill is one matched trade before it becomes a Transaction.
type fill struct {
	seller *offer
	buyer  *bid
	amount float64
	price  float64
}

// Result is the outcome of one clearing round.
type Result struct {
	Transactions []model.Transaction
	EnergyTraded float64
	Sellers      int
	Buyers       int
	Quote        Quote
}

var txNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("community-energy/transactions"))

// TransactionID derives a stable transaction ID from the tick and the
// trade's sequence number within it.
func TransactionID(tick uint64, seq int) string {
	return uuid.NewSHA1(txNamespace, []byte(fmt.Sprintf("%d/%d", tick, seq))).String()
}

// Match pairs sellers and buyers from the households' signed surplus and
// applies each trade to the households in place. Inactive households are
// ignored. A tick with no compatible prices yields no transactions.
func Match(households []model.Household, p Params, tick uint64, hour int, ts time.Time) Result {
	offers, bids := classify(households, p)
	res := Result{
		Sellers: len(offers),
		Buyers:  len(bids),
		Quote:   indicativeQuote(offers, bids, hour),
	}

	for i, f := range match(offers, bids, p) {
		s := &households[f.seller.idx]
		b := &households[f.buyer.idx]
		s.Surplus -= f.amount
		s.P2PSold += f.amount
		b.Surplus += f.amount
		b.P2PBought += f.amount

		res.EnergyTraded += f.amount
		res.Transactions = append(res.Transactions, model.Transaction{
			ID:          TransactionID(tick, i),
			SellerID:    f.seller.id,
			BuyerID:     f.buyer.id,
			Amount:      f.amount,
			PricePerKWh: f.price,
			TotalPrice:  f.amount * f.price,
			Timestamp:   ts,
			Status:      model.StatusCompleted,
		})
	}
	return res
}

// classify splits households into sorted offers and bids.
func classify(households []model.Household, p Params) ([]*offer, []*bid) {
	var offers []*offer
	var bids []*bid
	for i, h := range households {
		if !h.Active {
			continue
		}
		switch {
		case h.Surplus > p.ParticipationThreshold:
			offers = append(offers, &offer{idx: i, id: h.ID, available: h.Surplus, minPrice: h.SellPriceMin})
		case h.Surplus < -p.ParticipationThreshold:
			bids = append(bids, &bid{idx: i, id: h.ID, needed: -h.Surplus, maxPrice: h.BuyPriceMax})
		}
	}

	// Stable so equal prices keep household order.
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].minPrice < offers[j].minPrice })
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].maxPrice > bids[j].maxPrice })
	return offers, bids
}

// match runs the greedy matching over pre-sorted offers and bids.
func match(offers []*offer, bids []*bid, p Params) []fill {
	var fills []fill
	for _, b := range bids {
		remaining := b.needed
		for _, o := range offers {
			if o.available <= p.DustThreshold {
				continue
			}
			if o.minPrice > b.maxPrice {
				continue
			}

			amount := math.Min(remaining, o.available)
			fills = append(fills, fill{
				seller: o,
				buyer:  b,
				amount: amount,
				price:  (o.minPrice + b.maxPrice) / 2,
			})
			o.available -= amount
			remaining -= amount

			if remaining <= p.DustThreshold {
				break
			}
		}
		b.needed = remaining
	}
	return fills
}
