package model

import "time"

// EnergyRecord is one household's energy flows for a single tick.
type EnergyRecord struct {
	HouseholdID  int       `json:"household_id"`
	Tick         uint64    `json:"tick"`
	Timestamp    time.Time `json:"timestamp"`
	Production   float64   `json:"production_kwh"`
	Consumption  float64   `json:"consumption_kwh"`
	BatteryLevel float64   `json:"battery_level_kwh"`
	Surplus      float64   `json:"surplus_kwh"` // before trading
	P2PSold      float64   `json:"p2p_sold_kwh"`
	P2PBought    float64   `json:"p2p_bought_kwh"`
	GridSold     float64   `json:"grid_sold_kwh"`
	GridBought   float64   `json:"grid_bought_kwh"`
}

// RecordOf captures a settled household's tick values.
func RecordOf(h Household, tick uint64, ts time.Time) EnergyRecord {
	return EnergyRecord{
		HouseholdID:  h.ID,
		Tick:         tick,
		Timestamp:    ts,
		Production:   h.Production,
		Consumption:  h.Consumption,
		BatteryLevel: h.BatterySOC,
		Surplus:      h.Production - h.Consumption,
		P2PSold:      h.P2PSold,
		P2PBought:    h.P2PBought,
		GridSold:     h.GridSold,
		GridBought:   h.GridBought,
	}
}
