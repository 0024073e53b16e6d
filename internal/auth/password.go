package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored passwords.
const PasswordCost = 10

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// MaxPasswordLength is the longest password bcrypt can hash, in bytes.
const MaxPasswordLength = 72

var (
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordMismatch = errors.New("password does not match")
)

// placeholderHash is compared against when no account exists so that a
// missing user costs as much as a wrong password.
var placeholderHash, _ = bcrypt.GenerateFromPassword([]byte("woodpecker-placeholder"), PasswordCost)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ComparePassword checks password against hash. An empty hash still runs a
// comparison and always fails.
func ComparePassword(hash, password string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(placeholderHash, []byte(password))
		return ErrPasswordMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return err
	}
	return nil
}
