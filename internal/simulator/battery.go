package simulator

import (
	"math"

	"community_energy/internal/model"
)

// chargeShare is the fraction of positive surplus stored in the battery.
const chargeShare = 0.5

// ChargeBattery stores half of the household's positive surplus, capped at
// capacity, and returns the energy actually stored. Batteries only charge:
// a deficit never draws them down. The surplus offered to the market is
// left unchanged.
func ChargeBattery(h *model.Household) float64 {
	charge := math.Max(0, h.Surplus) * chargeShare
	soc := math.Min(h.BatteryCapacity, h.BatterySOC+charge)
	stored := soc - h.BatterySOC
	if stored < 0 {
		stored = 0
	}
	h.BatterySOC = soc
	return stored
}

// BatterySummary holds community-wide storage figures for broadcasting.
type BatterySummary struct {
	StoredKWh     float64 `json:"stored_kwh"`
	CapacityKWh   float64 `json:"capacity_kwh"`
	SoCPercent    float64 `json:"soc_percent"`
	FullBatteries int     `json:"full_batteries"`
}

// SummarizeBatteries aggregates state of charge over active households.
func SummarizeBatteries(households []model.Household) BatterySummary {
	var s BatterySummary
	for _, h := range households {
		if !h.Active {
			continue
		}
		s.StoredKWh += h.BatterySOC
		s.CapacityKWh += h.BatteryCapacity
		if h.BatterySOC >= h.BatteryCapacity {
			s.FullBatteries++
		}
	}
	if s.CapacityKWh > 0 {
		s.SoCPercent = s.StoredKWh / s.CapacityKWh * 100
	}
	return s
}
