package otp

import (
	"crypto/rand"
	"math/big"
	"time"
)

// Type distinguishes what flow a one-time code belongs to.
type Type string

const (
	// TypeRegister codes verify a new account's email address.
	TypeRegister Type = "register"
	// TypeResetPassword codes authorize a password reset.
	TypeResetPassword Type = "reset_password"
)

// OTP is a short-lived one-time code delivered by email.
type OTP struct {
	ID        int64
	UserID    *int64
	Email     string
	Code      string
	Type      Type
	Used      bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// GenerateCode produces a numeric code of the given length using
// crypto/rand.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = 6
	}
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
