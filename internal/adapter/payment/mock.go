// Package payment holds the simulated payment gateway used for top-ups.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/maxen/internal/core/domain"
	"github.com/ibrahimkeyboad/maxen/internal/core/ports"
)

var ErrCardRejected = errors.New("invalid card, only Visa and Mastercard are accepted")

// MockGateway approves or declines charges after a delay, like a customer
// confirming on their phone or bank page.
type MockGateway struct {
	base        context.Context
	delay       time.Duration
	successRate float64
	roll        func() float64
	logger      *slog.Logger

	wg sync.WaitGroup
}

type Option func(*MockGateway)

// WithRoll replaces the random source; a roll below the success rate approves.
func WithRoll(roll func() float64) Option {
	return func(g *MockGateway) { g.roll = roll }
}

// NewMockGateway returns a gateway whose pending confirmations are abandoned
// (declined) once base is cancelled.
func NewMockGateway(base context.Context, delay time.Duration, successRate float64, logger *slog.Logger, opts ...Option) *MockGateway {
	g := &MockGateway{
		base:        base,
		delay:       delay,
		successRate: successRate,
		roll:        rand.Float64,
		logger:      logger.With("component", "payment"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Charge validates the method synchronously and confirms in the background.
func (g *MockGateway) Charge(_ context.Context, req ports.PaymentRequest, done func(ports.PaymentResult)) error {
	attrs := []any{
		slog.String("tx_id", req.TransactionID),
		slog.String("account_id", req.AccountID),
		slog.Int64("amount", req.Amount),
		slog.String("method", req.Method.Kind),
	}

	switch req.Method.Kind {
	case domain.MethodCard:
		ok, brand := domain.ValidateCard(req.Method.CardNumber)
		if !ok {
			g.logger.Warn("card rejected", append(attrs, slog.String("card", domain.MaskCard(req.Method.CardNumber)))...)
			return ErrCardRejected
		}
		attrs = append(attrs, slog.String("brand", string(brand)))
	case domain.MethodPayPal, domain.MethodBank, domain.MethodWhatsApp:
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedMethod, req.Method.Kind)
	}

	g.logger.Info("payment initiated", attrs...)

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()

		timer := time.NewTimer(g.delay)
		defer timer.Stop()

		select {
		case <-g.base.Done():
			g.logger.Warn("payment abandoned, gateway stopping", attrs...)
			done(ports.PaymentResult{Approved: false, Reason: "gateway stopped"})
			return
		case <-timer.C:
		}

		if g.roll() < g.successRate {
			ref := "MX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
			g.logger.Info("payment confirmed", append(attrs, slog.String("reference", ref))...)
			done(ports.PaymentResult{Approved: true, Reference: ref})
			return
		}
		g.logger.Warn("payment declined by customer or timed out", attrs...)
		done(ports.PaymentResult{Approved: false, Reason: "customer cancelled or timed out"})
	}()
	return nil
}

// Wait blocks until every background confirmation has reported.
func (g *MockGateway) Wait() {
	g.wg.Wait()
}
