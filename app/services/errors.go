package services

import "errors"

var (
	// ErrNothingToReport is returned when closing a shift without sales
	ErrNothingToReport = errors.New("no hay ventas para reportar en este turno")

	// ErrInvalidCheckout is returned when a checkout request fails validation
	ErrInvalidCheckout = errors.New("invalid checkout")

	// ErrPINRequired is returned when a protected operation is called without PIN
	ErrPINRequired = errors.New("supervisor PIN required")

	// ErrInvalidPIN is returned when the supervisor PIN does not match
	ErrInvalidPIN = errors.New("invalid supervisor PIN")
)
