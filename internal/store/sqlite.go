package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"community_energy/internal/model"
	"community_energy/internal/simulator"
)

const schema = `
CREATE TABLE IF NOT EXISTS energy_records (
	household_id  INTEGER NOT NULL,
	tick          INTEGER NOT NULL,
	ts            INTEGER NOT NULL,
	production    REAL NOT NULL,
	consumption   REAL NOT NULL,
	battery_level REAL NOT NULL,
	surplus       REAL NOT NULL,
	p2p_sold      REAL NOT NULL,
	p2p_bought    REAL NOT NULL,
	grid_sold     REAL NOT NULL,
	grid_bought   REAL NOT NULL,
	PRIMARY KEY (household_id, tick)
);
CREATE INDEX IF NOT EXISTS idx_energy_records_ts ON energy_records (household_id, ts);
CREATE TABLE IF NOT EXISTS transactions (
	id            TEXT PRIMARY KEY,
	tick          INTEGER NOT NULL,
	seller_id     INTEGER NOT NULL,
	buyer_id      INTEGER NOT NULL,
	amount        REAL NOT NULL,
	price_per_kwh REAL NOT NULL,
	total_price   REAL NOT NULL,
	billed_total  REAL NOT NULL,
	ts            INTEGER NOT NULL,
	status        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_ts ON transactions (ts);
`

var (
	_ Reader = (*Store)(nil)
	_ Reader = (*SQLite)(nil)
)

// SQLite appends tick history to a SQLite database and serves it back.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway database.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

// AppendTick writes one tick's records and transactions in a single
// transaction.
func (s *SQLite) AppendTick(r simulator.TickResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tick %d: %w", r.Tick, err)
	}
	defer tx.Rollback()

	recStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO energy_records
		(household_id, tick, ts, production, consumption, battery_level, surplus,
		 p2p_sold, p2p_bought, grid_sold, grid_bought)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}
	defer recStmt.Close()

	for _, h := range r.Households {
		if !h.Active {
			continue
		}
		rec := model.RecordOf(h, r.Tick, r.Timestamp)
		if _, err := recStmt.ExecContext(ctx,
			rec.HouseholdID, int64(rec.Tick), rec.Timestamp.Unix(),
			rec.Production, rec.Consumption, rec.BatteryLevel, rec.Surplus,
			rec.P2PSold, rec.P2PBought, rec.GridSold, rec.GridBought,
		); err != nil {
			return fmt.Errorf("insert record household %d tick %d: %w", h.ID, r.Tick, err)
		}
	}

	txStmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO transactions
		(id, tick, seller_id, buyer_id, amount, price_per_kwh, total_price, billed_total, ts, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transactions: %w", err)
	}
	defer txStmt.Close()

	for _, t := range r.Transactions {
		if _, err := txStmt.ExecContext(ctx,
			t.ID, int64(r.Tick), t.SellerID, t.BuyerID,
			t.Amount, t.PricePerKWh, t.TotalPrice, t.RoundedTotal(), t.Timestamp.Unix(), string(t.Status),
		); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tick %d: %w", r.Tick, err)
	}
	return nil
}

// RecordsInRange reads a household's records in [start, end), oldest first.
func (s *SQLite) RecordsInRange(ctx context.Context, householdID int, start, end time.Time) ([]model.EnergyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT household_id, tick, ts, production, consumption,
		battery_level, surplus, p2p_sold, p2p_bought, grid_sold, grid_bought
		FROM energy_records
		WHERE household_id = ? AND ts >= ? AND ts < ?
		ORDER BY ts`, householdID, start.Unix(), end.Unix())
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []model.EnergyRecord
	for rows.Next() {
		var (
			rec  model.EnergyRecord
			tick int64
			ts   int64
		)
		if err := rows.Scan(&rec.HouseholdID, &tick, &ts, &rec.Production, &rec.Consumption,
			&rec.BatteryLevel, &rec.Surplus, &rec.P2PSold, &rec.P2PBought, &rec.GridSold, &rec.GridBought); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Tick = uint64(tick)
		rec.Timestamp = time.Unix(ts, 0).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TransactionsInRange reads trades in [start, end), oldest first. A
// householdID of 0 matches every household.
func (s *SQLite) TransactionsInRange(ctx context.Context, householdID int, start, end time.Time) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, seller_id, buyer_id, amount, price_per_kwh,
		total_price, ts, status
		FROM transactions
		WHERE ts >= ? AND ts < ? AND (? = 0 OR seller_id = ? OR buyer_id = ?)
		ORDER BY ts, rowid`, start.Unix(), end.Unix(), householdID, householdID, householdID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t      model.Transaction
			ts     int64
			status string
		)
		if err := rows.Scan(&t.ID, &t.SellerID, &t.BuyerID, &t.Amount, &t.PricePerKWh,
			&t.TotalPrice, &ts, &status); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Timestamp = time.Unix(ts, 0).UTC()
		t.Status = model.TransactionStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}
