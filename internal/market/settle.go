package market

import "community_energy/internal/model"

// Settlement sums what the grid absorbed in one tick.
type Settlement struct {
	GridSold   float64 `json:"grid_sold_kwh"`
	GridBought float64 `json:"grid_bought_kwh"`
	Residual   float64 `json:"residual_kwh"`
}

// Settle clears every household's remaining surplus against the grid, which
// has unlimited capacity. Residuals above the participation threshold are
// traded in full; smaller ones are booked as Residual. Either way surplus
// ends at zero. Calling Settle on a settled slice is a no-op.
func Settle(households []model.Household, p Params) Settlement {
	var s Settlement
	for i := range households {
		h := &households[i]
		if !h.Active || h.Surplus == 0 {
			continue
		}

		switch {
		case h.Surplus > p.ParticipationThreshold:
			h.GridSold += h.Surplus
			s.GridSold += h.Surplus
		case h.Surplus < -p.ParticipationThreshold:
			h.GridBought += -h.Surplus
			s.GridBought += -h.Surplus
		default:
			h.Residual += h.Surplus
			s.Residual += h.Surplus
		}
		h.Surplus = 0
	}
	return s
}
