package model

// Weather is the community-wide sky condition for a tick.
type Weather string

const (
	WeatherSunny        Weather = "sunny"
	WeatherPartlyCloudy Weather = "partly_cloudy"
	WeatherCloudy       Weather = "cloudy"
	WeatherRainy        Weather = "rainy"
)

// AllWeather lists every weather state in draw order.
var AllWeather = []Weather{WeatherSunny, WeatherPartlyCloudy, WeatherCloudy, WeatherRainy}

// weatherCoefficient scales solar output per weather state.
var weatherCoefficient = map[Weather]float64{
	WeatherSunny:        1.0,
	WeatherPartlyCloudy: 0.7,
	WeatherCloudy:       0.4,
	WeatherRainy:        0.2,
}

// Coefficient returns the solar production multiplier for w.
// Unknown states are treated as sunny.
func (w Weather) Coefficient() float64 {
	if c, ok := weatherCoefficient[w]; ok {
		return c
	}
	return 1.0
}

// Valid reports whether w is one of the known weather states.
func (w Weather) Valid() bool {
	_, ok := weatherCoefficient[w]
	return ok
}
