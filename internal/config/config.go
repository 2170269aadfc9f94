// Package config loads the simulator's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"community_energy/internal/market"
	"community_energy/internal/model"
	"community_energy/internal/simulator"
	"community_energy/internal/store"
)

// DateLayout is the format of simulation.start_date.
const DateLayout = "2006-01-02"

// Config is the on-disk configuration shape (YAML).
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Market     market.Params    `yaml:"market"`
	Aggregates AggregateConfig  `yaml:"aggregates"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
}

type SimulationConfig struct {
	IntervalMS   int    `yaml:"interval_ms"`
	Households   int    `yaml:"households"`
	StartHour    int    `yaml:"start_hour"`
	StartWeather string `yaml:"start_weather"`
	StartDate    string `yaml:"start_date"`
	// Seed of 0 means seed from the wall clock.
	Seed int64 `yaml:"seed"`
}

type AggregateConfig struct {
	LogCapacity   int     `yaml:"log_capacity"`
	GridValuation float64 `yaml:"grid_valuation"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type StorageConfig struct {
	// SQLitePath enables the durable history sink when non-empty.
	SQLitePath string `yaml:"sqlite_path"`
	// RetentionTicks caps the in-memory history kept per household.
	RetentionTicks int `yaml:"retention_ticks"`
}

// Default returns the reference configuration: 12 households starting on a
// sunny day at 08:00, one tick per second.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			IntervalMS:   int(simulator.DefaultInterval / time.Millisecond),
			Households:   12,
			StartHour:    8,
			StartWeather: string(model.WeatherSunny),
			StartDate:    "2024-06-01",
		},
		Market: market.DefaultParams(),
		Aggregates: AggregateConfig{
			LogCapacity:   simulator.DefaultLogCapacity,
			GridValuation: simulator.DefaultGridValuation,
		},
		Server:  ServerConfig{Addr: ":8080"},
		Storage: StorageConfig{RetentionTicks: store.DefaultRetention},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads path over the defaults without validating.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c := Default()
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	s := c.Simulation
	interval := s.Interval()
	if interval < simulator.MinInterval || interval > simulator.MaxInterval {
		return &model.ValidationError{
			Field:  "simulation.interval_ms",
			Reason: fmt.Sprintf("must be within [%d, %d]", simulator.MinInterval.Milliseconds(), simulator.MaxInterval.Milliseconds()),
		}
	}
	if s.Households < 0 {
		return &model.ValidationError{Field: "simulation.households", Reason: "must be non-negative"}
	}
	if s.StartHour < 0 || s.StartHour > 23 {
		return &model.ValidationError{Field: "simulation.start_hour", Reason: "must be within [0, 23]"}
	}
	if !model.Weather(s.StartWeather).Valid() {
		return &model.ValidationError{Field: "simulation.start_weather", Reason: fmt.Sprintf("unknown weather %q", s.StartWeather)}
	}
	if _, err := time.Parse(DateLayout, s.StartDate); err != nil {
		return &model.ValidationError{Field: "simulation.start_date", Reason: "must be YYYY-MM-DD"}
	}
	if err := c.Market.Validate(); err != nil {
		return fmt.Errorf("market config invalid: %w", err)
	}
	if c.Aggregates.LogCapacity <= 0 {
		return &model.ValidationError{Field: "aggregates.log_capacity", Reason: "must be positive"}
	}
	if v := c.Aggregates.GridValuation; math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return &model.ValidationError{Field: "aggregates.grid_valuation", Reason: "must be a finite non-negative number"}
	}
	if c.Storage.RetentionTicks <= 0 {
		return &model.ValidationError{Field: "storage.retention_ticks", Reason: "must be positive"}
	}
	if c.Server.Addr == "" {
		return &model.ValidationError{Field: "server.addr", Reason: "is required"}
	}
	return nil
}

// Interval returns the tick pacing as a duration.
func (s SimulationConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// SeedOrNow returns the configured seed, or the current time when unset.
func (s SimulationConfig) SeedOrNow() int64 {
	if s.Seed != 0 {
		return s.Seed
	}
	return time.Now().UnixNano()
}

// Community builds the starting community: generated households, the
// configured clock and weather, and an empty aggregate tracker. Call
// Validate first.
func (c *Config) Community(rng simulator.Rand) (simulator.Community, error) {
	start, err := time.Parse(DateLayout, c.Simulation.StartDate)
	if err != nil {
		return simulator.Community{}, fmt.Errorf("start date: %w", err)
	}
	households, err := simulator.GenerateHouseholds(c.Simulation.Households, rng)
	if err != nil {
		return simulator.Community{}, fmt.Errorf("generating households: %w", err)
	}
	return simulator.Community{
		Households: households,
		Clock:      simulator.NewClock(start, c.Simulation.StartHour),
		Weather:    simulator.NewWeatherModel(model.Weather(c.Simulation.StartWeather), rng),
		Aggregates: simulator.NewAggregates(c.Aggregates.LogCapacity, c.Aggregates.GridValuation),
		Params:     simulator.Params{Market: c.Market},
	}, nil
}
