package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pressroom/internal/db"
)

// fakeStore implements Store with the same conditional semantics as the
// SQL layer: the check and the decrement happen under one lock.
type fakeStore struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[uuid.UUID]int64)}
}

func (s *fakeStore) ChargeBalance(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, db.ErrUserNotFound
	}
	if balance < amount {
		return 0, db.ErrInsufficientBalance
	}
	s.balances[userID] = balance - amount
	return s.balances[userID], nil
}

func (s *fakeStore) AddBalance(_ context.Context, userID uuid.UUID, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.balances[userID]; !ok {
		return 0, db.ErrUserNotFound
	}
	s.balances[userID] += amount
	return s.balances[userID], nil
}

func (s *fakeStore) GetBalance(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance, ok := s.balances[userID]
	if !ok {
		return 0, db.ErrUserNotFound
	}
	return balance, nil
}

func newTestLedger() (*Ledger, *fakeStore) {
	store := newFakeStore()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(store, logger), store
}

func TestChargeThenRefundRestoresBalance(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	user := uuid.New()
	store.balances[user] = 500

	balance, err := ledger.Charge(ctx, user, 320)
	require.NoError(t, err)
	assert.Equal(t, int64(180), balance)

	balance, err = ledger.Refund(ctx, user, 320)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)
}

func TestChargeInsufficient(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	user := uuid.New()
	store.balances[user] = 100

	_, err := ledger.Charge(ctx, user, 101)
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	balance, err := ledger.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	ledger, store := newTestLedger()
	user := uuid.New()
	store.balances[user] = 100

	_, err := ledger.Charge(context.Background(), user, 0)
	assert.Error(t, err)
	_, err = ledger.Charge(context.Background(), user, -5)
	assert.Error(t, err)
}

func TestCredit(t *testing.T) {
	ledger, store := newTestLedger()
	user := uuid.New()
	store.balances[user] = 0

	balance, err := ledger.Credit(context.Background(), user, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestConcurrentChargesNeverOverdraw(t *testing.T) {
	ledger, store := newTestLedger()
	ctx := context.Background()
	user := uuid.New()
	store.balances[user] = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Charge(ctx, user, 30); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, successes)
	balance, err := ledger.Balance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
}
