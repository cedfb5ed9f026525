package claims_test

import (
	"context"
	"sort"
	"sync"

	claims "ms-allocation/internal/claims/service"
	"ms-allocation/internal/models"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory CapacityStore, ClaimStore and Transactor. The
// mutex makes each operation atomic the way a single SQL statement is.
type memStore struct {
	mu     sync.Mutex
	pools  map[int64]*models.Pool
	prices map[int64]decimal.Decimal
	claims map[int64]*models.Claim
	nextID int64

	// Fault injection.
	priceErr     error
	sumErr       error
	createErr    error
	decrementErr error
	incrementErr error
	// afterSum runs outside the lock once SumActiveQuantity has read.
	afterSum func()
}

func newMemStore() *memStore {
	return &memStore{
		pools:  make(map[int64]*models.Pool),
		prices: make(map[int64]decimal.Decimal),
		claims: make(map[int64]*models.Claim),
	}
}

// addEvent registers an event with one pool per entry of capacities.
func (s *memStore) addEvent(eventID int64, price string, capacities ...int) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[eventID] = decimal.RequireFromString(price)
	ids := make([]int64, 0, len(capacities))
	for _, c := range capacities {
		s.nextID++
		s.pools[s.nextID] = &models.Pool{ID: s.nextID, EventID: eventID, Remaining: c}
		ids = append(ids, s.nextID)
	}
	return ids
}

func (s *memStore) remaining(eventID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, p := range s.pools {
		if p.EventID == eventID {
			total += p.Remaining
		}
	}
	return total
}

func (s *memStore) poolRemaining(poolID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pools[poolID].Remaining
}

func (s *memStore) activeQuantity(eventID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, c := range s.claims {
		if c.EventID == eventID && c.State.Active() {
			total += c.Quantity
		}
	}
	return total
}

func (s *memStore) listPools(eventID int64, onlyAvailable bool) []models.Pool {
	var out []models.Pool
	for _, p := range s.pools {
		if p.EventID != eventID || (onlyAvailable && p.Remaining <= 0) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) ListPoolsWithCapacity(_ context.Context, eventID int64) ([]models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPools(eventID, true), nil
}

func (s *memStore) ListPools(_ context.Context, eventID int64) ([]models.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listPools(eventID, false), nil
}

func (s *memStore) ConditionalDecrement(_ context.Context, poolID int64, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.decrementErr != nil {
		return false, s.decrementErr
	}
	p, ok := s.pools[poolID]
	if !ok || p.Remaining < n {
		return false, nil
	}
	p.Remaining -= n
	return true, nil
}

func (s *memStore) Increment(_ context.Context, poolID int64, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.incrementErr != nil {
		return s.incrementErr
	}
	p, ok := s.pools[poolID]
	if !ok {
		return models.ErrPoolNotFound
	}
	p.Remaining += n
	return nil
}

func (s *memStore) GetUnitPrice(_ context.Context, eventID int64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.priceErr != nil {
		return decimal.Zero, s.priceErr
	}
	price, ok := s.prices[eventID]
	if !ok {
		return decimal.Zero, models.ErrEventNotFound
	}
	return price, nil
}

func (s *memStore) SumActiveQuantity(_ context.Context, userID, eventID int64) (int, error) {
	s.mu.Lock()
	if s.sumErr != nil {
		s.mu.Unlock()
		return 0, s.sumErr
	}
	total := 0
	for _, c := range s.claims {
		if c.HolderID == userID && c.EventID == eventID && c.State.Active() {
			total += c.Quantity
		}
	}
	hook := s.afterSum
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return total, nil
}

func (s *memStore) CreateClaim(_ context.Context, claim models.Claim) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return nil, s.createErr
	}
	s.nextID++
	claim.ID = s.nextID
	stored := claim
	s.claims[claim.ID] = &stored
	return &claim, nil
}

func (s *memStore) GetClaim(_ context.Context, claimID int64) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	out := *c
	return &out, nil
}

func (s *memStore) SetClaimState(_ context.Context, claimID int64, state models.ClaimState) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.claims[claimID]
	if !ok {
		return nil, models.ErrClaimNotFound
	}
	if c.State == models.ClaimStateCancelled {
		return nil, models.ErrAlreadyCancelled
	}
	c.State = state
	out := *c
	return &out, nil
}

// WithinTx keeps an undo log and replays it if fn fails.
func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, capacity claims.CapacityStore, claimStore claims.ClaimStore) error) error {
	tx := &memTx{memStore: s}
	if err := fn(ctx, tx, tx); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

type memTx struct {
	*memStore
	undo []func()
}

func (t *memTx) ConditionalDecrement(ctx context.Context, poolID int64, n int) (bool, error) {
	ok, err := t.memStore.ConditionalDecrement(ctx, poolID, n)
	if ok {
		t.undo = append(t.undo, func() { t.pools[poolID].Remaining += n })
	}
	return ok, err
}

func (t *memTx) Increment(ctx context.Context, poolID int64, n int) error {
	if err := t.memStore.Increment(ctx, poolID, n); err != nil {
		return err
	}
	t.undo = append(t.undo, func() { t.pools[poolID].Remaining -= n })
	return nil
}

func (t *memTx) SetClaimState(ctx context.Context, claimID int64, state models.ClaimState) (*models.Claim, error) {
	before, err := t.memStore.GetClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	updated, err := t.memStore.SetClaimState(ctx, claimID, state)
	if err != nil {
		return nil, err
	}
	prev := before.State
	t.undo = append(t.undo, func() { t.claims[claimID].State = prev })
	return updated, nil
}

// fixedOrder tries pools in the order the store lists them and always
// returns released capacity to the first.
type fixedOrder struct{}

func (fixedOrder) Order(pools []models.Pool) []models.Pool { return pools }
func (fixedOrder) Pick(pools []models.Pool) models.Pool    { return pools[0] }

// mutexGuard is an in-process QuotaGuard.
type mutexGuard struct {
	mu sync.Mutex
}

func (g *mutexGuard) Acquire(context.Context, int64, int64) (func(), error) {
	g.mu.Lock()
	return g.mu.Unlock, nil
}
