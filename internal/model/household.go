package model

import (
	"fmt"
	"math"
)

// MaxPricePerKWh bounds household price preferences.
const MaxPricePerKWh = 10.0

// Household is one prosumer in the community.
type Household struct {
	ID   int    `json:"id"`
	Name string `json:"name"`

	SolarCapacity   float64 `json:"solar_capacity_kw"`
	BatteryCapacity float64 `json:"battery_capacity_kwh"`
	BatterySOC      float64 `json:"battery_soc_kwh"`
	BaseConsumption float64 `json:"base_consumption_kw"`

	// Price preferences (currency/kWh)
	SellPriceMin float64 `json:"sell_price_min"`
	BuyPriceMax  float64 `json:"buy_price_max"`

	// Active is false once a household is soft-deleted.
	Active bool `json:"active"`

	// Per-tick values, recomputed every tick.
	Production  float64 `json:"production_kwh"`
	Consumption float64 `json:"consumption_kwh"`
	Surplus     float64 `json:"surplus_kwh"`
	P2PSold     float64 `json:"p2p_sold_kwh"`
	P2PBought   float64 `json:"p2p_bought_kwh"`
	GridSold    float64 `json:"grid_sold_kwh"`
	GridBought  float64 `json:"grid_bought_kwh"`
	Residual    float64 `json:"residual_kwh"`
}

// ValidationError reports an invalid household or configuration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewHousehold validates the parameters and returns an active household.
func NewHousehold(id int, name string, solarKW, batteryKWh, socKWh, baseKW, sellMin, buyMax float64) (Household, error) {
	h := Household{
		ID:              id,
		Name:            name,
		SolarCapacity:   solarKW,
		BatteryCapacity: batteryKWh,
		BatterySOC:      socKWh,
		BaseConsumption: baseKW,
		SellPriceMin:    sellMin,
		BuyPriceMax:     buyMax,
		Active:          true,
	}
	if err := h.Validate(); err != nil {
		return Household{}, err
	}
	return h, nil
}

// Validate checks the household's fixed parameters. Values are never clamped.
func (h *Household) Validate() error {
	if err := positive("solar_capacity", h.SolarCapacity); err != nil {
		return err
	}
	if err := positive("battery_capacity", h.BatteryCapacity); err != nil {
		return err
	}
	if math.IsNaN(h.BaseConsumption) || math.IsInf(h.BaseConsumption, 0) || h.BaseConsumption < 0 {
		return &ValidationError{Field: "base_consumption", Reason: "must be a finite non-negative number"}
	}
	if math.IsNaN(h.BatterySOC) || h.BatterySOC < 0 || h.BatterySOC > h.BatteryCapacity {
		return &ValidationError{Field: "battery_soc", Reason: fmt.Sprintf("must be within [0, %g]", h.BatteryCapacity)}
	}
	if err := ValidatePrice("sell_price_min", h.SellPriceMin); err != nil {
		return err
	}
	return ValidatePrice("buy_price_max", h.BuyPriceMax)
}

// ValidatePrice checks a per-kWh price is within [0, MaxPricePerKWh].
func ValidatePrice(field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > MaxPricePerKWh {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be within [0, %g]", MaxPricePerKWh)}
	}
	return nil
}

func positive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return &ValidationError{Field: field, Reason: "must be a finite positive number"}
	}
	return nil
}

// ResetTick zeroes the per-tick counters.
func (h *Household) ResetTick() {
	h.Production = 0
	h.Consumption = 0
	h.Surplus = 0
	h.P2PSold = 0
	h.P2PBought = 0
	h.GridSold = 0
	h.GridBought = 0
	h.Residual = 0
}

// NetPosition returns the tick's unsettled energy: zero once the grid has cleared.
func (h *Household) NetPosition() float64 {
	return h.Production - h.Consumption -
		(h.P2PSold - h.P2PBought) -
		(h.GridSold - h.GridBought) -
		h.Residual
}

// BatteryPercent returns state of charge as a percentage of capacity.
func (h *Household) BatteryPercent() float64 {
	if h.BatteryCapacity <= 0 {
		return 0
	}
	return h.BatterySOC / h.BatteryCapacity * 100
}
