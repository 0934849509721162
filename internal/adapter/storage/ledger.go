package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

const txColumns = `id, account_id, kind, amount, status, description, method, COALESCE(refund_of, ''), created_at, settled_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(&tx.ID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.Status,
		&tx.Description, &tx.Method, &tx.RefundOf, &tx.CreatedAt, &tx.SettledAt)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Append inserts the transaction. Completed transactions move the balance in
// the same database transaction, with the account row locked.
func (r *PostgresStore) Append(ctx context.Context, t *domain.Transaction) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var balance int64
	err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, t.AccountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %s: %w", t.AccountID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}

	if t.Status == domain.TxCompleted && balance+t.Amount < 0 {
		return domain.ErrInsufficientBalance
	}

	var refundOf *string
	if t.RefundOf != "" {
		refundOf = &t.RefundOf
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO transactions (id, account_id, kind, amount, status, description, method, refund_of, created_at, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.AccountID, string(t.Kind), t.Amount, string(t.Status), t.Description, t.Method, refundOf, t.CreatedAt, t.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if t.Status == domain.TxCompleted {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, t.Amount, t.AccountID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Settle finalizes a pending transaction.
func (r *PostgresStore) Settle(ctx context.Context, txID string, status domain.TransactionStatus, at time.Time) (*domain.Transaction, error) {
	if status == domain.TxPending {
		return nil, domain.ErrInvalidTransition
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t, err := scanTransaction(tx.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, txID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", txID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if t.Status != domain.TxPending {
		return nil, fmt.Errorf("transaction %s is %s: %w", txID, t.Status, domain.ErrInvalidTransition)
	}

	if status == domain.TxCompleted {
		var balance int64
		err = tx.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, t.AccountID).Scan(&balance)
		if err != nil {
			return nil, err
		}
		if balance+t.Amount < 0 {
			return nil, domain.ErrInsufficientBalance
		}
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = balance + $1 WHERE id = $2`, t.Amount, t.AccountID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, settled_at = $2 WHERE id = $3`, string(status), at, txID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	t.Status = status
	t.SettledAt = &at
	return t, nil
}

func (r *PostgresStore) GetTransaction(ctx context.Context, txID string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1`, txID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", txID, domain.ErrNotFound)
	}
	return t, err
}

func (r *PostgresStore) FindRefund(ctx context.Context, originalID string) (*domain.Transaction, error) {
	t, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE refund_of = $1`, originalID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// ListTransactions fetches the account history, newest first
func (r *PostgresStore) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+txColumns+` FROM transactions WHERE account_id = $1 ORDER BY seq DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		history = append(history, *t)
	}
	return history, rows.Err()
}

func (r *PostgresStore) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return balance, err
}
