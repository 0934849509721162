package wallet

import (
	"context"
	"log/slog"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/ibrahimkeyboad/maxen/internal/adapter/storage"
	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

// op kinds: 0 approved top-up, 1 declined top-up, 2 charge, 3 refund of the latest purchase.
type op struct {
	Kind   int
	Amount int64
}

func genOp() gopter.Gen {
	return gopter.CombineGens(gen.IntRange(0, 3), gen.Int64Range(1, 3000)).Map(func(v []interface{}) op {
		return op{Kind: v[0].(int), Amount: v[1].(int64)}
	})
}

// TestBalanceInvariant checks that after any sequence of top-ups, charges and
// refunds the balance equals the sum of completed amounts and is never negative.
func TestBalanceInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("balance equals sum of completed transactions", prop.ForAll(
		func(ops []op) bool {
			ctx := context.Background()
			store := storage.NewMemoryStore()
			gateway := &stubGateway{}
			ledger := NewLedger(store, gateway, nil, slog.New(slog.DiscardHandler))
			if err := store.CreateAccount(ctx, &domain.Account{ID: "acc", Email: "acc@example.com"}); err != nil {
				return false
			}
			if _, err := ledger.GrantBonus(ctx, "acc", domain.WelcomeBonus, "Welcome bonus"); err != nil {
				return false
			}

			var purchases []string
			for _, o := range ops {
				switch o.Kind {
				case 0, 1:
					if _, err := ledger.TopUp(ctx, "acc", o.Amount, domain.PaymentMethod{Kind: domain.MethodPayPal}); err != nil {
						return false
					}
					gateway.last()(ports.PaymentResult{Approved: o.Kind == 0})
					if err := ledger.Wait(ctx); err != nil {
						return false
					}
				case 2:
					tx, err := ledger.Charge(ctx, "acc", o.Amount, "purchase")
					if err == nil {
						purchases = append(purchases, tx.ID)
					}
				case 3:
					if len(purchases) > 0 {
						_, _ = ledger.Refund(ctx, "acc", purchases[len(purchases)-1])
						purchases = purchases[:len(purchases)-1]
					}
				}

				balance, err := ledger.Balance(ctx, "acc")
				if err != nil || balance < 0 {
					return false
				}
			}

			history, err := ledger.History(ctx, "acc")
			if err != nil {
				return false
			}
			var sum int64
			for _, tx := range history {
				if tx.Status == domain.TxCompleted {
					sum += tx.Amount
				}
			}
			balance, _ := ledger.Balance(ctx, "acc")
			return balance == sum
		},
		gen.SliceOf(genOp()),
	))

	properties.TestingRun(t)
}
