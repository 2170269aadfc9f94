package simulator

import "community_energy/internal/model"

// Consumption returns a household's demand in kWh for one hourly tick.
// At most one daily band applies, then ±20% noise.
func Consumption(h *model.Household, hour int, rng Rand) float64 {
	c := h.BaseConsumption

	switch {
	case hour >= 7 && hour <= 9: // morning peak
		c *= 1.5 + rng.Float64()*0.5
	case hour >= 18 && hour <= 22: // evening peak
		c *= 2.0 + rng.Float64()*1.0
	case hour >= 23 || hour <= 5: // night
		c *= 0.5 + rng.Float64()*0.3
	}

	return c * (0.8 + rng.Float64()*0.4)
}
