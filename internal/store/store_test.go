package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community_energy/internal/market"
	"community_energy/internal/model"
	"community_energy/internal/simulator"
)

var (
	startTime = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	hour      = time.Hour
)

// makeTicks builds one tick per production value with two households:
// household 1 sells 1 kWh to household 2 each tick.
func makeTicks(production []float64) []simulator.TickResult {
	ticks := make([]simulator.TickResult, len(production))
	for i, p := range production {
		ts := startTime.Add(time.Duration(i) * hour)
		ticks[i] = simulator.TickResult{
			Tick:      uint64(i),
			Timestamp: ts,
			Households: []model.Household{
				{ID: 1, Active: true, Production: p, Consumption: 1, BatterySOC: 2, P2PSold: 1},
				{ID: 2, Active: true, Production: 0, Consumption: 2, P2PBought: 1, GridBought: 1},
				{ID: 3, Active: false},
			},
			Transactions: []model.Transaction{{
				ID:          market.TransactionID(uint64(i), 0),
				SellerID:    1,
				BuyerID:     2,
				Amount:      1,
				PricePerKWh: 0.125,
				TotalPrice:  0.125,
				Timestamp:   ts,
				Status:      model.StatusCompleted,
			}},
		}
	}
	return ticks
}

func appendAll(t *testing.T, sink simulator.Sink, ticks []simulator.TickResult) {
	t.Helper()
	for _, r := range ticks {
		require.NoError(t, sink.AppendTick(r))
	}
}

func TestStore_AppendTick(t *testing.T) {
	s := New(0)
	appendAll(t, s, makeTicks([]float64{3, 4, 5, 6, 7}))
	ctx := context.Background()

	for _, id := range []int{1, 2} {
		records, err := s.RecordsInRange(ctx, id, startTime, startTime.Add(5*hour))
		require.NoError(t, err)
		assert.Len(t, records, 5)
	}
	inactive, err := s.RecordsInRange(ctx, 3, startTime, startTime.Add(5*hour))
	require.NoError(t, err)
	assert.Empty(t, inactive, "inactive households are not recorded")
}

func TestStore_RecordFields(t *testing.T) {
	s := New(0)
	appendAll(t, s, makeTicks([]float64{3}))
	ctx := context.Background()

	records, err := s.RecordsInRange(ctx, 1, startTime, startTime.Add(hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, uint64(0), r.Tick)
	assert.InDelta(t, 3.0, r.Production, 1e-9)
	assert.InDelta(t, 2.0, r.Surplus, 1e-9)
	assert.InDelta(t, 2.0, r.BatteryLevel, 1e-9)
	assert.InDelta(t, 1.0, r.P2PSold, 1e-9)

	records, err = s.RecordsInRange(ctx, 2, startTime, startTime.Add(hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, -2.0, records[0].Surplus, 1e-9)
	assert.InDelta(t, 1.0, records[0].GridBought, 1e-9)
}

func TestStore_RecordsInRange(t *testing.T) {
	s := New(0)
	appendAll(t, s, makeTicks([]float64{3, 4, 5, 6, 7}))
	ctx := context.Background()

	// Hour 1 to hour 3 (exclusive)
	result, err := s.RecordsInRange(ctx, 1, startTime.Add(hour), startTime.Add(3*hour))
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.InDelta(t, 4.0, result[0].Production, 0.001)
	assert.InDelta(t, 5.0, result[1].Production, 0.001)

	result, err = s.RecordsInRange(ctx, 1, startTime.Add(10*hour), startTime.Add(11*hour))
	require.NoError(t, err)
	assert.Empty(t, result)

	result, err = s.RecordsInRange(ctx, 99, startTime, startTime.Add(hour))
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestStore_TransactionsInRange(t *testing.T) {
	s := New(0)
	appendAll(t, s, makeTicks([]float64{3, 4, 5, 6}))
	ctx := context.Background()

	all, err := s.TransactionsInRange(ctx, 0, startTime, startTime.Add(4*hour))
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mid, err := s.TransactionsInRange(ctx, 2, startTime.Add(hour), startTime.Add(3*hour))
	require.NoError(t, err)
	require.Len(t, mid, 2)
	assert.Equal(t, startTime.Add(hour), mid[0].Timestamp)

	none, err := s.TransactionsInRange(ctx, 3, startTime, startTime.Add(4*hour))
	require.NoError(t, err)
	assert.Empty(t, none)

	reversed, err := s.TransactionsInRange(ctx, 0, startTime.Add(4*hour), startTime.Add(2*hour))
	require.NoError(t, err)
	assert.Empty(t, reversed)
}

func TestStore_RetentionEvictsOldest(t *testing.T) {
	s := New(3)
	appendAll(t, s, makeTicks([]float64{3, 4, 5, 6, 7}))
	ctx := context.Background()
	window := startTime.Add(5 * hour)

	records, err := s.RecordsInRange(ctx, 1, startTime, window)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, uint64(2), records[0].Tick)
	assert.InDelta(t, 5.0, records[0].Production, 1e-9)
	assert.Equal(t, uint64(4), records[2].Tick)
	assert.Len(t, s.records[1], 3)
	assert.LessOrEqual(t, cap(s.records[1]), 3)

	txs, err := s.TransactionsInRange(ctx, 0, startTime, window)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, startTime.Add(2*hour), txs[0].Timestamp)
	assert.Len(t, s.transactions, 3)
}

func TestNew_DefaultRetention(t *testing.T) {
	assert.Equal(t, DefaultRetention, New(0).retention)
	assert.Equal(t, DefaultRetention, New(-5).retention)
	assert.Equal(t, 48, New(48).retention)
}

func TestAppendBounded(t *testing.T) {
	var s []int
	for i := range 5 {
		s = appendBounded(s, i, 3)
	}
	assert.Equal(t, []int{2, 3, 4}, s)

	assert.Equal(t, []int{7}, appendBounded(nil, 7, 1))
	assert.Equal(t, []int{8}, appendBounded([]int{7}, 8, 1))
}

func TestStore_FromEngine(t *testing.T) {
	rng := simulator.NewRand(5)
	households, err := simulator.GenerateHouseholds(6, rng)
	require.NoError(t, err)
	c := simulator.Community{
		Households: households,
		Clock:      simulator.NewClock(startTime.Add(-8*hour), 8),
		Weather:    simulator.NewWeatherModel(model.WeatherSunny, rng),
		Aggregates: simulator.NewAggregates(simulator.DefaultLogCapacity, simulator.DefaultGridValuation),
	}
	c.Params.Market = market.DefaultParams()

	s := New(0)
	e := simulator.New(c, rng, nil, s)
	for range 24 {
		e.Step()
	}
	ctx := context.Background()

	for _, h := range households {
		records, err := s.RecordsInRange(ctx, h.ID, startTime, startTime.Add(24*hour))
		require.NoError(t, err)
		require.Len(t, records, 24)
		for i, r := range records {
			assert.Equal(t, uint64(i), r.Tick)
			assert.GreaterOrEqual(t, r.Production, 0.0)
		}
	}
	txs, err := s.TransactionsInRange(ctx, 0, startTime, startTime.Add(24*hour))
	require.NoError(t, err)
	assert.Equal(t, int(e.Snapshot().Aggregates.TransactionCount), len(txs))
}
