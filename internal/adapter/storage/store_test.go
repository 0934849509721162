package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

type store interface {
	ports.AccountStore
	ports.LedgerStore
	ports.OrderStore
}

// stores returns the memory store plus Postgres when TEST_DATABASE_URL is set.
func stores(t *testing.T) map[string]store {
	t.Helper()
	out := map[string]store{"memory": NewMemoryStore()}
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		pool, err := ConnectDB(context.Background(), url)
		require.NoError(t, err)
		t.Cleanup(pool.Close)
		out["postgres"] = NewPostgresStore(pool)
	}
	return out
}

var epoch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newAccount(t *testing.T, s store) *domain.Account {
	t.Helper()
	acc := &domain.Account{
		ID:        uuid.NewString(),
		Email:     uuid.NewString() + "@example.com",
		Name:      "Test",
		Language:  "en",
		CreatedAt: epoch,
	}
	require.NoError(t, s.CreateAccount(context.Background(), acc))
	return acc
}

func completed(accountID string, kind domain.TransactionKind, amount int64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		Status:    domain.TxCompleted,
		CreatedAt: at,
		SettledAt: &at,
	}
}

func TestAccounts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := newAccount(t, s)

			got, err := s.GetAccount(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, acc.Email, got.Email)
			assert.Zero(t, got.CoinBalance)

			got, err = s.GetAccountByEmail(ctx, acc.Email)
			require.NoError(t, err)
			assert.Equal(t, acc.ID, got.ID)

			dup := *acc
			dup.ID = uuid.NewString()
			assert.ErrorIs(t, s.CreateAccount(ctx, &dup), domain.ErrEmailTaken)

			_, err = s.GetAccount(ctx, uuid.NewString())
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = s.GetAccountByEmail(ctx, "ghost@example.com")
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := newAccount(t, s)
			require.NoError(t, s.DeleteAccount(ctx, acc.ID))

			_, err := s.GetAccountByEmail(ctx, acc.Email)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			again := *acc
			assert.NoError(t, s.CreateAccount(ctx, &again), "email is free after delete")

			require.NoError(t, s.Append(ctx, completed(acc.ID, domain.KindBonus, 100, epoch)))
			assert.Error(t, s.DeleteAccount(ctx, acc.ID), "accounts with history stay")
			_, err = s.GetAccount(ctx, acc.ID)
			assert.NoError(t, err)
		})
	}
}

func TestLedgerKeepsBalanceInStep(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := newAccount(t, s)

			require.NoError(t, s.Append(ctx, completed(acc.ID, domain.KindBonus, 100, epoch)))
			purchase := completed(acc.ID, domain.KindPurchase, -60, epoch.Add(time.Minute))
			require.NoError(t, s.Append(ctx, purchase))

			err := s.Append(ctx, completed(acc.ID, domain.KindPurchase, -41, epoch.Add(2*time.Minute)))
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

			balance, err := s.Balance(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(40), balance)

			history, err := s.ListTransactions(ctx, acc.ID)
			require.NoError(t, err)
			require.Len(t, history, 2, "a rejected charge stores nothing")
			assert.Equal(t, purchase.ID, history[0].ID, "most recent first")

			refund := completed(acc.ID, domain.KindRefund, 60, epoch.Add(3*time.Minute))
			refund.RefundOf = purchase.ID
			require.NoError(t, s.Append(ctx, refund))

			found, err := s.FindRefund(ctx, purchase.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, refund.ID, found.ID)

			none, err := s.FindRefund(ctx, refund.ID)
			require.NoError(t, err)
			assert.Nil(t, none)
		})
	}
}

func TestSettle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := newAccount(t, s)

			pending := &domain.Transaction{
				ID:        uuid.NewString(),
				AccountID: acc.ID,
				Kind:      domain.KindTopUp,
				Amount:    1000,
				Status:    domain.TxPending,
				Method:    domain.MethodPayPal,
				CreatedAt: epoch,
			}
			require.NoError(t, s.Append(ctx, pending))
			balance, err := s.Balance(ctx, acc.ID)
			require.NoError(t, err)
			assert.Zero(t, balance, "pending credits do not count")

			settled, err := s.Settle(ctx, pending.ID, domain.TxCompleted, epoch.Add(time.Second))
			require.NoError(t, err)
			assert.Equal(t, domain.TxCompleted, settled.Status)
			require.NotNil(t, settled.SettledAt)

			balance, err = s.Balance(ctx, acc.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1000), balance)

			_, err = s.Settle(ctx, pending.ID, domain.TxFailed, epoch.Add(2*time.Second))
			assert.ErrorIs(t, err, domain.ErrInvalidTransition)

			_, err = s.Settle(ctx, uuid.NewString(), domain.TxCompleted, epoch)
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestOrders(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			acc := newAccount(t, s)
			charge := completed(acc.ID, domain.KindBonus, 500, epoch)
			require.NoError(t, s.Append(ctx, charge))

			first := &domain.Order{
				ID:        uuid.NewString(),
				AccountID: acc.ID,
				Items: []domain.CartItem{{
					Product:  domain.Product{ID: "pubg-uc-660", Name: "PUBG Mobile 660 UC", Price: 999},
					Quantity: 2,
				}},
				Total:               1998,
				Status:              domain.OrderProcessing,
				PaymentMethod:       domain.MethodCoins,
				DeliveryType:        domain.DeliveryManual,
				ChargeTransactionID: charge.ID,
				CreatedAt:           epoch,
			}
			require.NoError(t, s.CreateOrder(ctx, first))

			second := *first
			second.ID = uuid.NewString()
			second.CreatedAt = epoch.Add(time.Hour)
			require.NoError(t, s.CreateOrder(ctx, &second))

			got, err := s.GetOrder(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, first.Items, got.Items)
			assert.Equal(t, int64(1998), got.Total)

			done := epoch.Add(2 * time.Hour)
			got.Status = domain.OrderCompleted
			got.CompletedAt = &done
			require.NoError(t, s.UpdateOrder(ctx, got))

			got, err = s.GetOrder(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.OrderCompleted, got.Status)
			require.NotNil(t, got.CompletedAt)
			assert.True(t, done.Equal(*got.CompletedAt))

			list, err := s.ListOrders(ctx, acc.ID)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, second.ID, list[0].ID)

			_, err = s.GetOrder(ctx, uuid.NewString())
			assert.ErrorIs(t, err, domain.ErrNotFound)
		})
	}
}

func TestMemoryStoreCopiesOrders(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	o := &domain.Order{ID: "o-1", AccountID: "a", Items: []domain.CartItem{{Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, o))
	o.Items[0].Quantity = 9

	got, err := s.GetOrder(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].Quantity)
}

func TestWebhookOutbox(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := ConnectDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	outbox := NewWebhookOutbox(pool)

	target := "https://hooks.example.com/" + uuid.NewString()
	require.NoError(t, outbox.Enqueue(ctx, target, []byte(`{"event":"ping"}`)))

	var job *domain.WebhookJob
	for {
		j, err := outbox.Claim(ctx, time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NotNil(t, j, "enqueued job should be claimable")
		if j.URL == target {
			job = j
			break
		}
		require.NoError(t, outbox.Complete(ctx, j.ID))
	}
	assert.JSONEq(t, `{"event":"ping"}`, string(job.Payload))

	require.NoError(t, outbox.Retry(ctx, job.ID, time.Now().Add(time.Hour)))
	require.NoError(t, outbox.Fail(ctx, job.ID))
	assert.ErrorIs(t, outbox.Complete(ctx, uuid.NewString()), domain.ErrNotFound)
}
