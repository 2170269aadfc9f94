package market

// Quote is an informational price estimate for the tick. It never affects
// clearing, which always uses the midpoint rule.
type Quote struct {
	Price              float64 `json:"price"`
	BasePrice          float64 `json:"base_price"`
	TimeOfDayFactor    float64 `json:"time_of_day_factor"`
	SupplyDemandFactor float64 `json:"supply_demand_factor"`
	Supply             float64 `json:"supply_kwh"`
	Demand             float64 `json:"demand_kwh"`
}

const quoteBasePrice = 0.12

// indicativeQuote scales the base price by time of day and by the
// demand/supply ratio of the classified participants.
func indicativeQuote(offers []*offer, bids []*bid, hour int) Quote {
	q := Quote{
		BasePrice:          quoteBasePrice,
		TimeOfDayFactor:    1.0,
		SupplyDemandFactor: 1.0,
	}

	switch {
	case hour >= 17 && hour <= 21:
		q.TimeOfDayFactor = 1.5
	case hour >= 9 && hour <= 15:
		q.TimeOfDayFactor = 0.8
	}

	for _, o := range offers {
		q.Supply += o.available
	}
	for _, b := range bids {
		q.Demand += b.needed
	}
	if q.Supply > 0 && q.Demand > 0 {
		ratio := q.Demand / q.Supply
		switch {
		case ratio > 1.5:
			q.SupplyDemandFactor = 1.3
		case ratio < 0.5:
			q.SupplyDemandFactor = 0.7
		}
	}

	q.Price = q.BasePrice * q.TimeOfDayFactor * q.SupplyDemandFactor
	return q
}
