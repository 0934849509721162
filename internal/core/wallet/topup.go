package wallet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

var methodNames = map[string]string{
	domain.MethodPayPal:   "PayPal",
	domain.MethodBank:     "Bank Transfer",
	domain.MethodWhatsApp: "WhatsApp Payment",
	domain.MethodCard:     "Card",
}

// TopUp records a pending credit and asks the gateway to collect amount.
// The transaction completes or fails when the gateway calls back, or fails
// when no answer arrives within the confirmation timeout. Preset package
// amounts are credited with their bonus.
func (l *Ledger) TopUp(ctx context.Context, accountID string, amount int64, method domain.PaymentMethod) (tx *domain.Transaction, err error) {
	ctx, span := l.tracer.Start(ctx, "wallet.TopUp", trace.WithAttributes(
		attribute.String("account.id", accountID),
		attribute.Int64("amount", amount),
		attribute.String("method", method.Kind),
	))
	defer func() {
		l.record(ctx, "topup", err)
		endSpan(span, err)
	}()

	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if !domain.IsSupportedMethod(method.Kind) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedMethod, method.Kind)
	}

	credit := amount + domain.PackageBonus(amount)
	description := methodNames[method.Kind] + " Top-up"
	if bonus := credit - amount; bonus > 0 {
		description = fmt.Sprintf("%s (+%d bonus)", description, bonus)
	}

	tx = l.newTransaction(accountID, domain.KindTopUp, credit, domain.TxPending, description)
	tx.Method = method.Kind

	unlock := l.locks.Lock(accountID)
	err = l.store.Append(ctx, tx)
	unlock()
	if err != nil {
		return nil, err
	}

	// The first result wins; anything after it is dropped.
	results := make(chan ports.PaymentResult, 1)
	done := func(res ports.PaymentResult) {
		select {
		case results <- res:
		default:
			l.logger.Warn("duplicate payment confirmation ignored", "tx_id", tx.ID)
		}
	}

	l.inflight.Add(1)
	go l.awaitConfirmation(tx.ID, accountID, results)

	req := ports.PaymentRequest{
		TransactionID: tx.ID,
		AccountID:     accountID,
		Amount:        amount,
		Method:        method,
	}
	if chargeErr := l.gateway.Charge(ctx, req, done); chargeErr != nil {
		done(ports.PaymentResult{Approved: false, Reason: chargeErr.Error()})
		l.logger.Warn("top-up rejected by gateway", "account_id", accountID, "tx_id", tx.ID, "error", chargeErr)
		return tx, fmt.Errorf("%w: %v", domain.ErrPaymentDeclined, chargeErr)
	}

	l.logger.Info("top-up pending confirmation", "account_id", accountID, "tx_id", tx.ID, "amount", amount, "credit", credit)
	return tx, nil
}

func (l *Ledger) awaitConfirmation(txID, accountID string, results <-chan ports.PaymentResult) {
	defer l.inflight.Done()

	timer := time.NewTimer(l.confirmTimeout)
	defer timer.Stop()

	var res ports.PaymentResult
	select {
	case res = <-results:
	case <-timer.C:
		res = ports.PaymentResult{Approved: false, Reason: "payment confirmation timed out"}
	}
	l.settle(txID, accountID, res)
}

func (l *Ledger) settle(txID, accountID string, res ports.PaymentResult) {
	ctx := context.Background()

	status := domain.TxFailed
	if res.Approved {
		status = domain.TxCompleted
	}

	unlock := l.locks.Lock(accountID)
	tx, err := l.store.Settle(ctx, txID, status, l.now())
	unlock()
	if err != nil {
		l.logger.Error("failed to settle top-up", "tx_id", txID, "status", status, "error", err)
		return
	}

	event := domain.EventTopUpCompleted
	if status == domain.TxFailed {
		event = domain.EventTopUpFailed
		l.logger.Warn("top-up failed", "account_id", accountID, "tx_id", txID, "reason", res.Reason)
	} else {
		l.logger.Info("top-up completed", "account_id", accountID, "tx_id", txID, "amount", tx.Amount, "reference", res.Reference)
	}

	err = l.events.Publish(ctx, domain.Event{
		Type:      event,
		AccountID: accountID,
		Data: map[string]any{
			"transaction_id": tx.ID,
			"amount":         tx.Amount,
			"method":         tx.Method,
			"status":         string(tx.Status),
			"reference":      res.Reference,
			"reason":         strings.TrimSpace(res.Reason),
		},
		OccurredAt: l.now(),
	})
	if err != nil {
		l.logger.Error("failed to publish top-up event", "tx_id", txID, "error", err)
	}
}

// Wait blocks until every pending top-up has settled or ctx is done.
func (l *Ledger) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
