package wallet

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
)

// Summary is the wallet overview: balance plus this month's movement.
type Summary struct {
	Balance           int64           `json:"balance"`
	BalanceUSD        decimal.Decimal `json:"balance_usd"`
	AddedThisMonth    int64           `json:"added_this_month"`
	SpentThisMonth    int64           `json:"spent_this_month"`
	TotalTransactions int             `json:"total_transactions"`
}

// Summary counts completed movements in the calendar month containing now.
func (l *Ledger) Summary(ctx context.Context, accountID string, now time.Time) (*Summary, error) {
	balance, err := l.store.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	history, err := l.store.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	s := &Summary{
		Balance:           balance,
		BalanceUSD:        domain.CoinsToUSD(balance),
		TotalTransactions: len(history),
	}
	for _, tx := range history {
		if tx.Status != domain.TxCompleted || tx.CreatedAt.Before(monthStart) {
			continue
		}
		if tx.Amount >= 0 {
			s.AddedThisMonth += tx.Amount
		} else {
			s.SpentThisMonth -= tx.Amount
		}
	}
	return s, nil
}
