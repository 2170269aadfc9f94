package simulator

import "community_energy/internal/model"

// Weather spells last between 4 and 15 ticks inclusive.
const (
	minWeatherSpell = 4
	maxWeatherSpell = 15
)

// WeatherModel holds the current weather and the ticks left until it is redrawn.
type WeatherModel struct {
	State     model.Weather `json:"state"`
	Countdown int           `json:"countdown"`
}

// NewWeatherModel starts in the given state with a freshly drawn spell.
func NewWeatherModel(initial model.Weather, rng Rand) WeatherModel {
	return WeatherModel{State: initial, Countdown: drawSpell(rng)}
}

// Advance consumes one tick of the current spell. When the spell runs out a
// new length and a new state are drawn; the state may repeat.
func (w *WeatherModel) Advance(rng Rand) model.Weather {
	w.Countdown--
	if w.Countdown <= 0 {
		w.Countdown = drawSpell(rng)
		w.State = model.AllWeather[rng.IntN(len(model.AllWeather))]
	}
	return w.State
}

func drawSpell(rng Rand) int {
	return minWeatherSpell + rng.IntN(maxWeatherSpell-minWeatherSpell+1)
}
