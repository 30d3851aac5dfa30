package security

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinPINLength is the shortest supervisor PIN accepted
const MinPINLength = 4

var (
	// ErrPINTooShort is returned when a new PIN is shorter than MinPINLength
	ErrPINTooShort = errors.New("PIN too short")
	// ErrPINMismatch is returned when a PIN does not match its hash
	ErrPINMismatch = errors.New("PIN incorrecto")
)

// HashPIN hashes a supervisor PIN with bcrypt
func HashPIN(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if len(pin) < MinPINLength {
		return "", fmt.Errorf("%w: minimum %d digits", ErrPINTooShort, MinPINLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("could not hash PIN: %w", err)
	}
	return string(hash), nil
}

// CheckPIN compares a PIN against its bcrypt hash
func CheckPIN(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(pin)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPINMismatch
	}
	return err
}
