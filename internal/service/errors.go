package service

import (
	"errors"

	"delegate-portal/internal/cart"
	"delegate-portal/internal/payment"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrOrderNotFound = errors.New("order not found")
	ErrUserNotFound  = errors.New("user not found")
	ErrItemNotFound  = errors.New("catalog item not found")

	ErrEmptyItems      = errors.New("empty items")
	ErrQuantityInvalid = errors.New("quantity must be between 1 and 10000")
	ErrMissingItemCode = cart.ErrMissingItemCode
	ErrInvalidLine     = cart.ErrInvalidLine
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrPriceMismatch   = errors.New("line price does not match catalog")
	ErrTotalMismatch   = errors.New("total amount does not match lines")
	ErrInvalidStatus   = errors.New("unknown order status")
	ErrSameAccount     = errors.New("cannot transfer to the same account")

	ErrSignatureMismatch   = payment.ErrSignatureMismatch
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrAlreadyPaid         = errors.New("order already paid")
	ErrConcurrentUpdate    = errors.New("order changed concurrently")
)

// IsValidation reports whether err was caused by bad caller input.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrEmptyItems, ErrQuantityInvalid, ErrMissingItemCode, ErrInvalidLine,
		ErrInvalidAmount, ErrPriceMismatch, ErrTotalMismatch, ErrInvalidStatus, ErrSameAccount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
