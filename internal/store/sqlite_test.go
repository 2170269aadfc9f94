package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community_energy/internal/model"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLite_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	appendAll(t, db, makeTicks([]float64{3, 4, 5}))

	ctx := context.Background()
	records, err := db.RecordsInRange(ctx, 1, startTime, startTime.Add(3*hour))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, startTime, records[0].Timestamp)
	assert.Equal(t, uint64(2), records[2].Tick)
	assert.InDelta(t, 5.0, records[2].Production, 1e-9)
	assert.InDelta(t, 4.0, records[2].Surplus, 1e-9)

	inactive, err := db.RecordsInRange(ctx, 3, startTime, startTime.Add(3*hour))
	require.NoError(t, err)
	assert.Empty(t, inactive)

	txs, err := db.TransactionsInRange(ctx, 0, startTime.Add(hour), startTime.Add(3*hour))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, 1, txs[0].SellerID)
	assert.Equal(t, 2, txs[0].BuyerID)
	assert.Equal(t, model.StatusCompleted, txs[0].Status)
	assert.Equal(t, startTime.Add(hour), txs[0].Timestamp)
}

func TestSQLite_TotalPriceExactAndBilled(t *testing.T) {
	db := openTestDB(t)
	appendAll(t, db, makeTicks([]float64{3}))
	ctx := context.Background()

	txs, err := db.TransactionsInRange(ctx, 0, startTime, startTime.Add(hour))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.InDelta(t, 0.125, txs[0].PricePerKWh, 1e-12)
	assert.InDelta(t, 0.125, txs[0].TotalPrice, 1e-12)

	var billed float64
	require.NoError(t, db.db.QueryRowContext(ctx,
		`SELECT billed_total FROM transactions WHERE id = ?`, txs[0].ID).Scan(&billed))
	assert.InDelta(t, 0.13, billed, 1e-12)
}

func TestSQLite_TransactionsByHousehold(t *testing.T) {
	db := openTestDB(t)
	appendAll(t, db, makeTicks([]float64{3, 4, 5}))
	ctx := context.Background()

	seller, err := db.TransactionsInRange(ctx, 1, startTime, startTime.Add(3*hour))
	require.NoError(t, err)
	assert.Len(t, seller, 3)

	buyer, err := db.TransactionsInRange(ctx, 2, startTime.Add(hour), startTime.Add(2*hour))
	require.NoError(t, err)
	require.Len(t, buyer, 1)
	assert.Equal(t, startTime.Add(hour), buyer[0].Timestamp)

	none, err := db.TransactionsInRange(ctx, 3, startTime, startTime.Add(3*hour))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// TestReaders_Agree checks that the memory and SQLite histories answer the
// same queries identically.
func TestReaders_Agree(t *testing.T) {
	ticks := makeTicks([]float64{3, 4, 5, 6})
	mem := New(0)
	db := openTestDB(t)
	appendAll(t, mem, ticks)
	appendAll(t, db, ticks)
	ctx := context.Background()
	start, end := startTime.Add(hour), startTime.Add(4*hour)

	for _, r := range []Reader{mem, db} {
		records, err := r.RecordsInRange(ctx, 1, start, end)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, uint64(1), records[0].Tick)
		assert.Equal(t, start, records[0].Timestamp)

		txs, err := r.TransactionsInRange(ctx, 2, start, end)
		require.NoError(t, err)
		require.Len(t, txs, 3)
		assert.Equal(t, ticks[1].Transactions[0].ID, txs[0].ID)
		assert.InDelta(t, 0.125, txs[0].TotalPrice, 1e-12)
	}
}

func TestSQLite_ReappendIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ticks := makeTicks([]float64{3, 4})
	appendAll(t, db, ticks)
	appendAll(t, db, ticks)

	records, err := db.RecordsInRange(context.Background(), 2, startTime, startTime.Add(2*hour))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	txs, err := db.TransactionsInRange(context.Background(), 0, startTime, startTime.Add(2*hour))
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestOpenSQLite_BadPath(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing", "dir", "history.db"))
	assert.Error(t, err)
}
