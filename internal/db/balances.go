package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrInsufficientBalance is returned by ChargeBalance when the user's balance
// is below the requested amount. The balance is never partially decremented.
var ErrInsufficientBalance = errors.New("insufficient balance")

// ErrUserNotFound is returned when a balance operation targets a missing user.
var ErrUserNotFound = errors.New("user not found")

// ChargeBalance atomically decrements a user's balance by amount, failing if
// the balance is below amount. The condition and the decrement are one
// statement so concurrent charges for the same user cannot overdraw.
func (db *DB) ChargeBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := db.pool.QueryRow(ctx,
		`UPDATE users SET balance = balance - $2, updated_at = NOW()
		 WHERE id = $1 AND balance >= $2
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the user does not exist or the balance was too low.
			exists, existsErr := db.userExists(ctx, userID)
			if existsErr != nil {
				return 0, existsErr
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientBalance
		}
		return 0, fmt.Errorf("failed to charge balance: %w", err)
	}
	return balance, nil
}

// AddBalance atomically increments a user's balance by amount. Used for both
// refunds and credits; it never fails on the amount.
func (db *DB) AddBalance(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := db.pool.QueryRow(ctx,
		`UPDATE users SET balance = balance + $2, updated_at = NOW()
		 WHERE id = $1
		 RETURNING balance`,
		userID, amount,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to add balance: %w", err)
	}
	return balance, nil
}

// GetBalance returns the user's current balance.
func (db *DB) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := db.pool.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (db *DB) userExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := db.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}
