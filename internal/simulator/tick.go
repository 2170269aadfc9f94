package simulator

import (
	"time"

	"community_energy/internal/market"
	"community_energy/internal/model"
	"community_energy/internal/solar"
)

// Clock tracks simulated time. Each tick covers one hour.
type Clock struct {
	Start time.Time `json:"start"` // day 1, 00:00
	Tick  uint64    `json:"tick"`
	Day   int       `json:"day"`
	Hour  int       `json:"hour"`
}

// NewClock returns a clock on day 1 at the given hour.
func NewClock(start time.Time, hour int) Clock {
	return Clock{Start: start, Day: 1, Hour: ((hour % 24) + 24) % 24}
}

// Time returns the simulated timestamp of the current tick.
func (c Clock) Time() time.Time {
	return c.Start.Add(time.Duration((c.Day-1)*24+c.Hour) * time.Hour)
}

// Next advances one hour, rolling the day over at midnight.
func (c Clock) Next() Clock {
	c.Tick++
	c.Hour = (c.Hour + 1) % 24
	if c.Hour == 0 {
		c.Day++
	}
	return c
}

// Params are the per-tick knobs of the pipeline.
type Params struct {
	Market market.Params
}

// TickResult is everything a single tick produced.
type TickResult struct {
	Tick      uint64        `json:"tick"`
	Day       int           `json:"day"`
	Hour      int           `json:"hour"`
	Timestamp time.Time     `json:"timestamp"`
	Weather   model.Weather `json:"weather"`

	Households        []model.Household   `json:"households"`
	Transactions      []model.Transaction `json:"transactions"`
	TotalEnergyTraded float64             `json:"total_energy_traded_kwh"`

	Sellers          int               `json:"sellers"`
	Buyers           int               `json:"buyers"`
	Settlement       market.Settlement `json:"settlement"`
	Quote            market.Quote      `json:"quote"`
	BatteryStoredKWh float64           `json:"battery_stored_kwh"`
}

// RunTick computes one tick for the given households without touching the
// input slice: production and consumption, battery charging, market
// matching, then grid settlement.
func RunTick(households []model.Household, clock Clock, weather model.Weather, p Params, rng Rand) TickResult {
	out := make([]model.Household, len(households))
	copy(out, households)

	res := TickResult{
		Tick:      clock.Tick,
		Day:       clock.Day,
		Hour:      clock.Hour,
		Timestamp: clock.Time(),
		Weather:   weather,
	}

	for i := range out {
		h := &out[i]
		h.ResetTick()
		if !h.Active {
			continue
		}
		h.Production = solar.DaylightProfile.Production(h, clock.Hour, weather, rng)
		h.Consumption = Consumption(h, clock.Hour, rng)
		h.Surplus = h.Production - h.Consumption
		res.BatteryStoredKWh += ChargeBattery(h)
	}

	m := market.Match(out, p.Market, clock.Tick, clock.Hour, res.Timestamp)
	res.Settlement = market.Settle(out, p.Market)

	res.Households = out
	res.Transactions = m.Transactions
	res.TotalEnergyTraded = m.EnergyTraded
	res.Sellers = m.Sellers
	res.Buyers = m.Buyers
	res.Quote = m.Quote
	return res
}

// Community is the full state of one simulation instance. It is passed into
// and returned from each tick, never shared implicitly.
type Community struct {
	Households []model.Household `json:"households"`
	Clock      Clock             `json:"clock"`
	Weather    WeatherModel      `json:"weather"`
	Aggregates Aggregates        `json:"aggregates"`
	Params     Params            `json:"-"`
}

// Tick runs the full pipeline once and returns the next community state
// along with the tick's result. The receiver is left unchanged.
func (c Community) Tick(rng Rand) (Community, TickResult) {
	weather := c.Weather
	w := weather.Advance(rng)

	res := RunTick(c.Households, c.Clock, w, c.Params, rng)

	next := c
	next.Households = res.Households
	next.Weather = weather
	next.Aggregates = c.Aggregates.Record(res)
	next.Clock = c.Clock.Next()
	return next, res
}

// Clone returns a deep copy safe to hand to other goroutines.
func (c Community) Clone() Community {
	c.Households = append([]model.Household(nil), c.Households...)
	c.Aggregates.Log = append([]model.Transaction(nil), c.Aggregates.Log...)
	return c
}

// Household returns the household with the given ID. Only mutate the result
// on a community obtained from Clone.
func (c *Community) Household(id int) (*model.Household, bool) {
	for i := range c.Households {
		if c.Households[i].ID == id {
			return &c.Households[i], true
		}
	}
	return nil, false
}

// NextHouseholdID returns one past the highest ID in use.
func (c *Community) NextHouseholdID() int {
	next := 1
	for _, h := range c.Households {
		if h.ID >= next {
			next = h.ID + 1
		}
	}
	return next
}

// Summary returns running totals plus current battery state.
func (c *Community) Summary() Summary {
	s := c.Aggregates.Summary()
	s.Battery = SummarizeBatteries(c.Households)
	return s
}
