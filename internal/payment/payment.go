// Package payment verifies inbound payment gateway notifications and maps
// gateway result codes onto order statuses. It has no storage dependencies.
package payment

import "errors"

var (
	ErrSignatureMismatch = errors.New("gateway signature mismatch")
	ErrMissingField      = errors.New("gateway notification missing field")
)
