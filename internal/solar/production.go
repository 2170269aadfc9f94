package solar

import (
	"math"

	"community_energy/internal/model"
)

// Source is the random source used for production noise.
type Source interface {
	Float64() float64
}

// Profile holds the clear-sky generation shape for each hour [0-23],
// normalized so the peak hour is 1.0.
type Profile struct {
	HourlyFactor [24]float64
	PeakHour     int
}

// DaylightProfile is the half-sine curve from 06:00 to 18:00, peaking at noon.
var DaylightProfile = buildDaylightProfile()

func buildDaylightProfile() Profile {
	var p Profile
	var peak float64
	for h := 0; h < 24; h++ {
		f := math.Max(0, math.Sin(float64(h-6)*math.Pi/12))
		p.HourlyFactor[h] = f
		if f > peak {
			peak = f
			p.PeakHour = h
		}
	}
	return p
}

// Factor returns the clear-sky factor for an hour, wrapping outside [0, 24).
func (p *Profile) Factor(hour int) float64 {
	hour %= 24
	if hour < 0 {
		hour += 24
	}
	return p.HourlyFactor[hour]
}

// Production returns the household's solar output in kWh for one hourly tick:
// capacity × daylight factor × weather coefficient × U[0.9, 1.1].
func (p *Profile) Production(h *model.Household, hour int, weather model.Weather, rng Source) float64 {
	variation := 0.9 + rng.Float64()*0.2
	out := h.SolarCapacity * p.Factor(hour) * weather.Coefficient() * variation
	if out < 0 {
		return 0
	}
	return out
}
