package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"community_energy/internal/config"
	"community_energy/internal/simulator"
	"community_energy/internal/store"
)

// collector implements simulator.Callback, keeping only the latest summary.
type collector struct {
	summary simulator.Summary
	trades  map[int]householdTrades
}

type householdTrades struct {
	name       string
	sold       float64
	bought     float64
	gridSold   float64
	gridBought float64
}

func newCollector() *collector {
	return &collector{trades: make(map[int]householdTrades)}
}

func (c *collector) OnState(simulator.State) {}

func (c *collector) OnTick(r simulator.TickResult, s simulator.Summary) {
	c.summary = s
	for _, h := range r.Households {
		t := c.trades[h.ID]
		t.name = h.Name
		t.sold += h.P2PSold
		t.bought += h.P2PBought
		t.gridSold += h.GridSold
		t.gridBought += h.GridBought
		c.trades[h.ID] = t
	}
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults used when empty)")
	ticks := flag.Int("ticks", 24*7, "number of hourly ticks to run")
	seedFlag := flag.Int64("seed", 0, "random seed (overrides simulation.seed; 0 keeps the config value)")
	households := flag.Int("households", 0, "number of generated households (overrides config)")
	dbPath := flag.String("db", "", "optional SQLite history path")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if *households > 0 {
		cfg.Simulation.Households = *households
	}

	seed := resolveSeed(cfg.Simulation, *seedFlag)
	rng := simulator.NewRand(seed)
	community, err := cfg.Community(rng)
	if err != nil {
		log.Fatalf("Failed to build community: %v", err)
	}

	var sinks []simulator.Sink
	if *dbPath != "" {
		db, err := store.OpenSQLite(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer db.Close()
		sinks = append(sinks, db)
	}

	cb := newCollector()
	engine := simulator.New(community, rng, cb, sinks...)
	for range *ticks {
		engine.Step()
	}

	report(os.Stdout, engine.Snapshot(), cb, seed)
}

// resolveSeed prefers a non-zero -seed flag, then the configured seed, then
// the wall clock.
func resolveSeed(s config.SimulationConfig, flagSeed int64) int64 {
	if flagSeed != 0 {
		s.Seed = flagSeed
	}
	return s.SeedOrNow()
}

func report(w io.Writer, c simulator.Community, cb *collector, seed int64) {
	s := c.Summary()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Community Energy Market")
	fmt.Fprintf(w, "  Households: %d, seed %d, %d ticks (ended day %d %02d:00)\n",
		len(c.Households), seed, s.Ticks, c.Clock.Day, c.Clock.Hour)
	fmt.Fprintf(w, "  P2P traded: %.1f kWh in %d trades, value %.2f, saved %.2f\n",
		s.TotalEnergyTradedKWh, s.TransactionCount, s.P2PValue, s.MoneySaved)
	fmt.Fprintf(w, "  Grid: sold %.1f kWh, bought %.1f kWh\n", s.GridSoldKWh, s.GridBoughtKWh)
	fmt.Fprintf(w, "  Batteries: %.1f / %.1f kWh (%.0f%%), %d full\n",
		s.Battery.StoredKWh, s.Battery.CapacityKWh, s.Battery.SoCPercent, s.Battery.FullBatteries)
	fmt.Fprintln(w)

	ids := make([]int, 0, len(cb.trades))
	for id := range cb.trades {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fmt.Fprintf(w, " %3s │ %-14s │ %9s │ %9s │ %9s │ %9s\n", "ID", "Name", "P2P sold", "P2P bought", "Grid sold", "Grid bought")
	fmt.Fprintf(w, "─────┼────────────────┼───────────┼───────────┼───────────┼───────────\n")
	for _, id := range ids {
		t := cb.trades[id]
		fmt.Fprintf(w, " %3d │ %-14s │ %9.1f │ %9.1f │ %9.1f │ %9.1f\n",
			id, t.name, t.sold, t.bought, t.gridSold, t.gridBought)
	}
	fmt.Fprintln(w)
}
