package ws

import (
	"encoding/json"
	"time"

	"community_energy/internal/model"
	"community_energy/internal/simulator"
)

// Envelope wraps all WebSocket messages with a type discriminator.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Message type constants
const (
	// Client -> Server
	TypeSimStart        = "sim:start"
	TypeSimPause        = "sim:pause"
	TypeSimStep         = "sim:step"
	TypeSimSetInterval  = "sim:set_interval"
	TypeHouseholdAdd    = "household:add"
	TypeHouseholdPrices = "household:update_prices"
	TypeHouseholdRemove = "household:remove"
	TypeHistoryQuery    = "history:query"

	// Server -> Client
	TypeSimState          = "sim:state"
	TypeTickResult        = "tick:result"
	TypeCommunitySnapshot = "community:snapshot"
	TypeHistoryResult     = "history:result"
	TypeError             = "error"
)

// Client -> Server messages

type SetIntervalPayload struct {
	IntervalMS int `json:"interval_ms"`
}

type HouseholdAddPayload struct {
	Name               string  `json:"name"`
	SolarCapacityKW    float64 `json:"solar_capacity_kw"`
	BatteryCapacityKWh float64 `json:"battery_capacity_kwh"`
	BatterySOCKWh      float64 `json:"battery_soc_kwh"`
	BaseConsumptionKW  float64 `json:"base_consumption_kw"`
	SellPriceMin       float64 `json:"sell_price_min"`
	BuyPriceMax        float64 `json:"buy_price_max"`
}

type HouseholdPricesPayload struct {
	ID           int     `json:"id"`
	SellPriceMin float64 `json:"sell_price_min"`
	BuyPriceMax  float64 `json:"buy_price_max"`
}

type HouseholdRemovePayload struct {
	ID int `json:"id"`
}

// HistoryQueryPayload asks for one household's history in [start, end).
// Timestamps are RFC 3339.
type HistoryQueryPayload struct {
	HouseholdID int    `json:"household_id"`
	Start       string `json:"start"`
	End         string `json:"end"`
}

// Server -> Client messages

type SimStatePayload struct {
	Tick       uint64 `json:"tick"`
	Day        int    `json:"day"`
	Hour       int    `json:"hour"`
	Time       string `json:"time"`
	Weather    string `json:"weather"`
	IntervalMS int64  `json:"interval_ms"`
	Running    bool   `json:"running"`
}

type TransactionInfo struct {
	ID          string  `json:"id"`
	SellerID    int     `json:"seller_id"`
	BuyerID     int     `json:"buyer_id"`
	AmountKWh   float64 `json:"amount_kwh"`
	PricePerKWh float64 `json:"price_per_kwh"`
	TotalPrice  float64 `json:"total_price"`
	Timestamp   string  `json:"timestamp"`
	Status      string  `json:"status"`
}

type TickResultPayload struct {
	Tick                 uint64            `json:"tick"`
	Day                  int               `json:"day"`
	Hour                 int               `json:"hour"`
	Timestamp            string            `json:"timestamp"`
	Weather              string            `json:"weather"`
	Households           []model.Household `json:"households"`
	Transactions         []TransactionInfo `json:"transactions"`
	TotalEnergyTradedKWh float64           `json:"total_energy_traded_kwh"`
	Sellers              int               `json:"sellers"`
	Buyers               int               `json:"buyers"`
	GridSoldKWh          float64           `json:"grid_sold_kwh"`
	GridBoughtKWh        float64           `json:"grid_bought_kwh"`
	BatteryStoredKWh     float64           `json:"battery_stored_kwh"`
	IndicativePrice      float64           `json:"indicative_price"`
	Summary              simulator.Summary `json:"summary"`
}

type CommunitySnapshotPayload struct {
	Households   []model.Household `json:"households"`
	Transactions []TransactionInfo `json:"transactions"`
	Summary      simulator.Summary `json:"summary"`
}

type HistoryResultPayload struct {
	HouseholdID  int                  `json:"household_id"`
	Records      []model.EnergyRecord `json:"records"`
	Transactions []TransactionInfo    `json:"transactions"`
}

type ErrorPayload struct {
	Request string `json:"request"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func NewEnvelope(msgType string, payload any) ([]byte, error) {
	var raw json.RawMessage
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

func SimStateFromEngine(s simulator.State) SimStatePayload {
	return SimStatePayload{
		Tick:       s.Tick,
		Day:        s.Day,
		Hour:       s.Hour,
		Time:       s.Time.Format(time.RFC3339),
		Weather:    s.Weather,
		IntervalMS: s.Interval.Milliseconds(),
		Running:    s.Running,
	}
}

func TransactionsFromModel(txs []model.Transaction) []TransactionInfo {
	out := make([]TransactionInfo, len(txs))
	for i, t := range txs {
		out[i] = TransactionInfo{
			ID:          t.ID,
			SellerID:    t.SellerID,
			BuyerID:     t.BuyerID,
			AmountKWh:   t.Amount,
			PricePerKWh: t.PricePerKWh,
			TotalPrice:  t.TotalPrice,
			Timestamp:   t.Timestamp.Format(time.RFC3339),
			Status:      string(t.Status),
		}
	}
	return out
}

func TickResultFromEngine(r simulator.TickResult, s simulator.Summary) TickResultPayload {
	return TickResultPayload{
		Tick:                 r.Tick,
		Day:                  r.Day,
		Hour:                 r.Hour,
		Timestamp:            r.Timestamp.Format(time.RFC3339),
		Weather:              string(r.Weather),
		Households:           r.Households,
		Transactions:         TransactionsFromModel(r.Transactions),
		TotalEnergyTradedKWh: r.TotalEnergyTraded,
		Sellers:              r.Sellers,
		Buyers:               r.Buyers,
		GridSoldKWh:          r.Settlement.GridSold,
		GridBoughtKWh:        r.Settlement.GridBought,
		BatteryStoredKWh:     r.BatteryStoredKWh,
		IndicativePrice:      r.Quote.Price,
		Summary:              s,
	}
}

// SnapshotFromCommunity reports the household list and the bounded
// transaction log.
func SnapshotFromCommunity(c simulator.Community) CommunitySnapshotPayload {
	return CommunitySnapshotPayload{
		Households:   c.Households,
		Transactions: TransactionsFromModel(c.Aggregates.Log),
		Summary:      c.Summary(),
	}
}
