package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"community_energy/internal/model"
	"community_energy/internal/simulator"
)

// DefaultRetention is the number of ticks of history kept in memory per
// household: 30 days of hourly ticks.
const DefaultRetention = 720

// Reader serves history queries. Both Store and SQLite implement it.
type Reader interface {
	// RecordsInRange returns a household's records in [start, end), oldest first.
	RecordsInRange(ctx context.Context, householdID int, start, end time.Time) ([]model.EnergyRecord, error)
	// TransactionsInRange returns trades in [start, end), oldest first. A
	// householdID of 0 matches every household; otherwise only trades where
	// it is seller or buyer.
	TransactionsInRange(ctx context.Context, householdID int, start, end time.Time) ([]model.Transaction, error)
}

// Store holds recent per-household energy history and traded transactions in
// memory. Records arrive in tick order, so each slice stays sorted by
// timestamp. Only the last retention ticks are kept.
type Store struct {
	mu           sync.RWMutex
	retention    int
	records      map[int][]model.EnergyRecord // keyed by household ID
	ticks        []time.Time                  // timestamps of retained ticks
	transactions []model.Transaction
}

// New returns an empty store keeping at most retention ticks of history.
// Non-positive values select DefaultRetention.
func New(retention int) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		retention: retention,
		records:   make(map[int][]model.EnergyRecord),
	}
}

// AppendTick stores the records of every active household and the tick's
// transactions, evicting the oldest entries beyond the retention window.
func (s *Store) AppendTick(r simulator.TickResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range r.Households {
		if !h.Active {
			continue
		}
		s.records[h.ID] = appendBounded(s.records[h.ID], model.RecordOf(h, r.Tick, r.Timestamp), s.retention)
	}

	s.ticks = appendBounded(s.ticks, r.Timestamp, s.retention)
	oldest := s.ticks[0]
	drop := sort.Search(len(s.transactions), func(i int) bool {
		return !s.transactions[i].Timestamp.Before(oldest)
	})
	if drop > 0 {
		s.transactions = append([]model.Transaction(nil), s.transactions[drop:]...)
	}
	s.transactions = append(s.transactions, r.Transactions...)
	return nil
}

// appendBounded appends v, dropping the oldest entries so at most capacity
// remain. Evicting copies into a fresh slice so the dropped prefix can be
// collected.
func appendBounded[T any](s []T, v T, capacity int) []T {
	if len(s) < capacity {
		return append(s, v)
	}
	out := make([]T, 0, capacity)
	out = append(out, s[len(s)-capacity+1:]...)
	return append(out, v)
}

func (s *Store) RecordsInRange(_ context.Context, householdID int, start, end time.Time) ([]model.EnergyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.records[householdID]
	if len(all) == 0 {
		return nil, nil
	}

	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	if startIdx >= endIdx {
		return nil, nil
	}

	result := make([]model.EnergyRecord, endIdx-startIdx)
	copy(result, all[startIdx:endIdx])
	return result, nil
}

func (s *Store) TransactionsInRange(_ context.Context, householdID int, start, end time.Time) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.transactions
	startIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(start)
	})
	endIdx := sort.Search(len(all), func(i int) bool {
		return !all[i].Timestamp.Before(end)
	})

	var result []model.Transaction
	for _, tx := range all[startIdx:max(startIdx, endIdx)] {
		if householdID == 0 || tx.SellerID == householdID || tx.BuyerID == householdID {
			result = append(result, tx)
		}
	}
	return result, nil
}
