package simulator

import (
	"fmt"
	"math"

	"community_energy/internal/model"
)

var householdNames = []string{
	"Smith Home", "Green House", "Solar Meadows", "Sunnydale", "EcoVilla",
	"Brightside", "Power Nest", "SunHaven", "Riverside", "Hilltop",
	"Oakwood", "Maple Lane", "Sunset Home", "Valley View", "Highland",
	"Lakeside", "Parkview", "Brookside", "Meadowlark", "Sunnyside",
}

// GenerateHouseholds builds n demo households with IDs 1..n. All randomness
// comes from rng, so the same seed yields the same community.
func GenerateHouseholds(n int, rng Rand) ([]model.Household, error) {
	out := make([]model.Household, 0, n)
	for i := 0; i < n; i++ {
		h, err := GenerateHousehold(i+1, rng)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// GenerateHousehold draws one household:
// solar 3–10 kW, base load 0.3×solar + [0, 0.5) kW, battery (1.5–2.5)×solar kWh
// starting 10–50% full, sell floor 0.08–0.12 and buy ceiling 0.15–0.20 per kWh.
func GenerateHousehold(id int, rng Rand) (model.Household, error) {
	solarKW := math.Round((3+rng.Float64()*7)*10) / 10
	baseKW := solarKW*0.3 + rng.Float64()*0.5
	batteryKWh := solarKW * (1.5 + rng.Float64())
	soc := batteryKWh * (0.1 + rng.Float64()*0.4)
	sellMin := 0.08 + rng.Float64()*0.04
	buyMax := 0.15 + rng.Float64()*0.05

	name := householdNames[(id-1)%len(householdNames)]
	h, err := model.NewHousehold(id, name, solarKW, batteryKWh, soc, baseKW, sellMin, buyMax)
	if err != nil {
		return model.Household{}, fmt.Errorf("generating household %d: %w", id, err)
	}
	return h, nil
}
