package auth

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sixDigits = regexp.MustCompile(`^\d{6}$`)

func TestGenerateOTP_Format(t *testing.T) {
	for i := 0; i < 50; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, otp.Code)
	}
}

func TestGenerateOTP_Window(t *testing.T) {
	otp, err := GenerateOTP()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(OTPValidity), otp.ExpiresAt, 5*time.Second)
}

func TestGenerateOTP_NotConstant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		otp, err := GenerateOTP()
		require.NoError(t, err)
		seen[otp.Code] = true
	}
	// 20 draws from a million values collapsing to one code would mean a
	// broken random source
	assert.Greater(t, len(seen), 1)
}
