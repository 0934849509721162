package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

const orderColumns = `id, account_id, items, total, status, payment_method, delivery_type,
	charge_transaction_id, COALESCE(refund_transaction_id, ''), created_at, completed_at, cancelled_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var items []byte
	err := row.Scan(&o.ID, &o.AccountID, &items, &o.Total, &o.Status, &o.PaymentMethod, &o.DeliveryType,
		&o.ChargeTransactionID, &o.RefundTransactionID, &o.CreatedAt, &o.CompletedAt, &o.CancelledAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *PostgresStore) CreateOrder(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO orders (id, account_id, items, total, status, payment_method, delivery_type,
			charge_transaction_id, refund_transaction_id, created_at, completed_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.AccountID, items, o.Total, string(o.Status), o.PaymentMethod, string(o.DeliveryType),
		o.ChargeTransactionID, nullable(o.RefundTransactionID), o.CreatedAt, o.CompletedAt, o.CancelledAt)
	if err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateOrder writes the mutable fields: status, refund and timestamps.
func (r *PostgresStore) UpdateOrder(ctx context.Context, o *domain.Order) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $1, refund_transaction_id = $2, completed_at = $3, cancelled_at = $4
		WHERE id = $5`,
		string(o.Status), nullable(o.RefundTransactionID), o.CompletedAt, o.CancelledAt, o.ID)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	return nil
}

func (r *PostgresStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, err
}

func (r *PostgresStore) ListOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	rows, err := r.db.Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE account_id = $1 ORDER BY seq DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
