package simulator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community_energy/internal/model"
)

type mockCallback struct {
	mu        sync.Mutex
	states    []State
	results   []TickResult
	summaries []Summary
}

func (m *mockCallback) OnState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states = append(m.states, s)
}

func (m *mockCallback) OnTick(r TickResult, s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, r)
	m.summaries = append(m.summaries, s)
}

func (m *mockCallback) tickCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.results)
}

func (m *mockCallback) allResults() []TickResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]TickResult, len(m.results))
	copy(cp, m.results)
	return cp
}

func (m *mockCallback) lastSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.summaries) == 0 {
		return Summary{}
	}
	return m.summaries[len(m.summaries)-1]
}

type recordingSink struct {
	mu    sync.Mutex
	ticks []uint64
	err   error
}

func (s *recordingSink) AppendTick(r TickResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks = append(s.ticks, r.Tick)
	return s.err
}

func newTestEngine(t *testing.T, sinks ...Sink) (*Engine, *mockCallback) {
	t.Helper()
	c, rng := testCommunity(t, 1, 12)
	cb := &mockCallback{}
	return New(c, rng, cb, sinks...), cb
}

func TestEngine_InitialState(t *testing.T) {
	e, _ := newTestEngine(t)

	state := e.State()
	assert.Equal(t, 1, state.Day)
	assert.Equal(t, 8, state.Hour)
	assert.Equal(t, uint64(0), state.Tick)
	assert.Equal(t, "sunny", state.Weather)
	assert.Equal(t, DefaultInterval, state.Interval)
	assert.False(t, state.Running)
	assert.Equal(t, simStart.Add(8*time.Hour), state.Time)
}

func TestEngine_Step(t *testing.T) {
	sink := &recordingSink{}
	e, cb := newTestEngine(t, sink)

	res := e.Step()
	assert.Equal(t, 8, res.Hour)
	assert.Equal(t, 1, cb.tickCount())
	assert.Equal(t, 9, e.State().Hour)
	assert.Equal(t, uint64(1), cb.lastSummary().Ticks)

	e.Step()
	assert.Equal(t, []uint64{0, 1}, sink.ticks)
	assert.Equal(t, uint64(2), e.Snapshot().Aggregates.Ticks)
}

func TestEngine_SinkErrorDoesNotAbortTick(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	e, cb := newTestEngine(t, sink)

	e.Step()
	e.Step()
	assert.Equal(t, 2, cb.tickCount())
	assert.Equal(t, 10, e.State().Hour)
}

func TestEngine_StartPause(t *testing.T) {
	e, cb := newTestEngine(t)
	e.SetInterval(MinInterval)

	e.Start()
	assert.True(t, e.State().Running)

	require.Eventually(t, func() bool { return cb.tickCount() >= 2 }, 3*time.Second, 10*time.Millisecond)
	e.Pause()
	assert.False(t, e.State().Running)

	paused := e.State().Tick
	assert.Equal(t, uint64(cb.tickCount()), paused)

	time.Sleep(3 * MinInterval)
	assert.Equal(t, paused, e.State().Tick, "no ticks while paused")

	// Resume keeps accumulated state.
	e.Start()
	require.Eventually(t, func() bool { return e.State().Tick > paused }, 3*time.Second, 10*time.Millisecond)
	e.Pause()
	assert.Equal(t, e.State().Tick, e.Snapshot().Aggregates.Ticks)

	results := cb.allResults()
	for i, r := range results {
		assert.Equal(t, uint64(i), r.Tick)
	}
}

func TestEngine_SetInterval(t *testing.T) {
	e, _ := newTestEngine(t)

	e.SetInterval(2 * time.Second)
	assert.Equal(t, 2*time.Second, e.State().Interval)

	e.SetInterval(time.Millisecond)
	assert.Equal(t, MinInterval, e.Interval())

	e.SetInterval(time.Minute)
	assert.Equal(t, MaxInterval, e.Interval())
}

func TestEngine_SubmitWhilePaused(t *testing.T) {
	e, _ := newTestEngine(t)

	err := <-e.Submit("add", AddHousehold(model.Household{
		Name:            "New Build",
		SolarCapacity:   4,
		BatteryCapacity: 8,
		BaseConsumption: 1,
		SellPriceMin:    0.09,
		BuyPriceMax:     0.17,
	}))
	require.NoError(t, err)

	snap := e.Snapshot()
	require.Len(t, snap.Households, 13)
	added := snap.Households[12]
	assert.Equal(t, 13, added.ID)
	assert.True(t, added.Active)

	res := e.Step()
	assert.Len(t, res.Households, 13)
}

func TestEngine_SubmitRejectsInvalid(t *testing.T) {
	e, _ := newTestEngine(t)

	err := <-e.Submit("add", AddHousehold(model.Household{SolarCapacity: -1, BatteryCapacity: 8}))
	var ve *model.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "solar_capacity", ve.Field)
	assert.Len(t, e.Snapshot().Households, 12)

	err = <-e.Submit("prices", UpdatePrices(1, 0.1, -2))
	require.Error(t, err)

	err = <-e.Submit("remove", RemoveHousehold(404))
	require.Error(t, err)
}

func TestEngine_UpdatePrices(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, <-e.Submit("prices", UpdatePrices(3, 0.5, 0.6)))
	snap := e.Snapshot()
	h, ok := snap.Household(3)
	require.True(t, ok)
	assert.Equal(t, 0.5, h.SellPriceMin)
	assert.Equal(t, 0.6, h.BuyPriceMax)
}

func TestEngine_SubmitWhileRunningAppliesBetweenTicks(t *testing.T) {
	e, cb := newTestEngine(t)
	e.SetInterval(MinInterval)
	e.Start()
	defer e.Pause()

	require.Eventually(t, func() bool { return cb.tickCount() >= 1 }, 3*time.Second, 10*time.Millisecond)

	var err error
	select {
	case err = <-e.Submit("remove", RemoveHousehold(1)):
	case <-time.After(3 * time.Second):
		t.Fatal("mutation was never applied")
	}
	require.NoError(t, err)
	applied := cb.tickCount()

	require.Eventually(t, func() bool { return cb.tickCount() > applied }, 3*time.Second, 10*time.Millisecond)
	results := cb.allResults()
	last := results[len(results)-1]
	assert.False(t, last.Households[0].Active)
	for _, tx := range last.Transactions {
		assert.NotEqual(t, 1, tx.SellerID)
		assert.NotEqual(t, 1, tx.BuyerID)
	}
}

func TestEngine_PublishedSnapshotIsStable(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Step()

	snap := e.Snapshot()
	before := snap.Clone()
	e.Step()
	e.Step()
	assert.Equal(t, before, snap)
}
