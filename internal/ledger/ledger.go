// Package ledger provides atomic charge, refund and credit operations against
// per-user token balances. All mutations go through the storage layer's single
// conditional UPDATE; there is no read-then-write anywhere.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/pressroom/internal/db"
)

// ErrInsufficientBalance is returned by Charge when the balance is below the
// requested amount.
var ErrInsufficientBalance = db.ErrInsufficientBalance

// Store is the storage dependency of the ledger. *db.DB satisfies it.
type Store interface {
	ChargeBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	AddBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Ledger charges before generation starts and refunds on any terminal failure
// after the charge. Refund and credit never fail on the amount.
type Ledger struct {
	store Store
	log   *logrus.Logger
}

// New creates a Ledger backed by the given store.
func New(store Store, log *logrus.Logger) *Ledger {
	return &Ledger{store: store, log: log}
}

// Charge atomically deducts amount from the user's balance. It fails with
// ErrInsufficientBalance exactly when balance < amount and never partially
// decrements.
func (l *Ledger) Charge(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("charge amount must be positive, got %d", amount)
	}
	balance, err := l.store.ChargeBalance(ctx, userID, amount)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			l.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount}).
				Warn("charge rejected: insufficient balance")
		}
		return 0, err
	}
	l.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "balance": balance}).
		Info("charged")
	return balance, nil
}

// Refund returns previously charged tokens after a failed generation or
// publish. Refunds may drive the balance computation but never fail on the
// amount.
func (l *Ledger) Refund(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	balance, err := l.store.AddBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	l.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "balance": balance}).
		Info("refunded")
	return balance, nil
}

// Credit adds purchased tokens to the user's balance.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	balance, err := l.store.AddBalance(ctx, userID, amount)
	if err != nil {
		return 0, err
	}
	l.log.WithFields(logrus.Fields{"user_id": userID, "amount": amount, "balance": balance}).
		Info("credited")
	return balance, nil
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return l.store.GetBalance(ctx, userID)
}
