package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPersistence         = errors.New("persistence unavailable")

	ErrNotFound          = errors.New("not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyRefunded   = errors.New("transaction already refunded")
	ErrNotRefundable     = errors.New("transaction is not refundable")
	ErrEmailTaken        = errors.New("email already registered")
	ErrInvalidProfile    = errors.New("invalid profile")
	ErrInvalidFilter     = errors.New("invalid product filter")
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	ErrPaymentDeclined   = errors.New("payment declined")
)

// ProductUnavailableError names the product that cannot be sold.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is unavailable", e.ProductID)
}

func (e *ProductUnavailableError) Is(target error) bool {
	return target == ErrProductUnavailable
}

// CheckoutError wraps the reason a checkout was rejected.
type CheckoutError struct {
	Err error
}

func (e *CheckoutError) Error() string {
	return "checkout failed: " + e.Err.Error()
}

func (e *CheckoutError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a storage backend that could not be reached.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError wraps err unless it is nil.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}
