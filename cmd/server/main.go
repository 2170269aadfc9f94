package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"community_energy/internal/config"
	"community_energy/internal/simulator"
	"community_energy/internal/store"
	"community_energy/internal/ws"
)

// overrides holds command-line values that win over the config file.
// Zero values mean "not set".
type overrides struct {
	addr       string
	seed       int64
	intervalMS int
	households int
	dbPath     string
}

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults used when empty)")
	frontendDir := flag.String("frontend-dir", "frontend/build", "directory containing frontend build")
	autostart := flag.Bool("autostart", false, "start ticking immediately")
	var o overrides
	flag.StringVar(&o.addr, "addr", "", "listen address (overrides server.addr)")
	flag.Int64Var(&o.seed, "seed", 0, "random seed (overrides simulation.seed)")
	flag.IntVar(&o.intervalMS, "interval", 0, "milliseconds between ticks (overrides simulation.interval_ms)")
	flag.IntVar(&o.households, "households", 0, "number of generated households (overrides simulation.households)")
	flag.StringVar(&o.dbPath, "db", "", "SQLite history path (overrides storage.sqlite_path)")
	flag.Parse()

	cfg, err := loadConfig(*configPath, o)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	seed := cfg.Simulation.SeedOrNow()
	rng := simulator.NewRand(seed)
	community, err := cfg.Community(rng)
	if err != nil {
		log.Fatalf("Failed to build community: %v", err)
	}
	log.Printf("Community ready: %d households, seed %d, starting %s %02d:00 (%s)",
		len(community.Households), seed, cfg.Simulation.StartDate, cfg.Simulation.StartHour, cfg.Simulation.StartWeather)

	history, closeHistory, err := openHistory(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer closeHistory()

	hub := ws.NewHub()
	bridge := ws.NewBridge(hub)
	engine := simulator.New(community, rng, bridge, history)
	engine.SetInterval(cfg.Simulation.Interval())

	handler := ws.NewHandler(hub, engine, history)
	mux := newMux(handler)

	// Serve frontend static files
	if _, err := os.Stat(*frontendDir); err == nil {
		log.Printf("Serving frontend from %s", *frontendDir)
		mux.Handle("/", http.FileServer(http.Dir(*frontendDir)))
	}

	if *autostart {
		engine.Start()
	}

	log.Printf("Starting server on %s", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, mux); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the config file (or defaults), applies command-line
// overrides and validates the result.
func loadConfig(path string, o overrides) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.LoadUnchecked(path); err != nil {
			return nil, err
		}
	}

	if o.addr != "" {
		cfg.Server.Addr = o.addr
	}
	if o.seed != 0 {
		cfg.Simulation.Seed = o.seed
	}
	if o.intervalMS != 0 {
		cfg.Simulation.IntervalMS = o.intervalMS
	}
	if o.households != 0 {
		cfg.Simulation.Households = o.households
	}
	if o.dbPath != "" {
		cfg.Storage.SQLitePath = o.dbPath
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// historyBackend records ticks and answers history:query.
type historyBackend interface {
	simulator.Sink
	store.Reader
}

// openHistory returns the SQLite history when a path is configured, otherwise
// a bounded in-memory store.
func openHistory(cfg config.StorageConfig) (historyBackend, func() error, error) {
	if cfg.SQLitePath == "" {
		log.Printf("Keeping the last %d ticks of history in memory", cfg.RetentionTicks)
		return store.New(cfg.RetentionTicks), func() error { return nil }, nil
	}
	db, err := store.OpenSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("Recording history to %s", cfg.SQLitePath)
	return db, db.Close, nil
}

func newMux(wsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("/ws", wsHandler)
	return mux
}
