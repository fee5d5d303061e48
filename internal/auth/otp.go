package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is the window an emailed verification code stays usable.
const OTPValidity = 15 * time.Minute

var otpMax = big.NewInt(1_000_000)

// OTP is a single-use email verification code.
type OTP struct {
	Code      string // exactly 6 digits, zero-padded
	ExpiresAt time.Time
}

// GenerateOTP draws a 6-digit code from a cryptographically strong source.
func GenerateOTP() (*OTP, error) {
	n, err := rand.Int(rand.Reader, otpMax)
	if err != nil {
		return nil, fmt.Errorf("failed to generate otp: %w", err)
	}

	return &OTP{
		Code:      fmt.Sprintf("%06d", n.Int64()),
		ExpiresAt: time.Now().Add(OTPValidity),
	}, nil
}
