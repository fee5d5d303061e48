package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestUser generates unique test user credentials using a timestamp
func TestUser(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// ExtractOTPFromEmail pulls the six-digit code out of a verification email.
// Body format: "Your email verification OTP is {code}. This otp will expire in 15 minutes."
func ExtractOTPFromEmail(emailBody string) string {
	const marker = "OTP is "
	idx := strings.Index(emailBody, marker)
	if idx < 0 {
		return ""
	}
	rest := emailBody[idx+len(marker):]
	end := strings.Index(rest, ".")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// ExtractResetTokenFromEmail pulls the reset secret out of a forgot-password
// email. The secret is the path segment after "reset-password/" in the URL.
func ExtractResetTokenFromEmail(emailBody string) string {
	const marker = "reset-password/"
	idx := strings.Index(emailBody, marker)
	if idx < 0 {
		return ""
	}
	rest := emailBody[idx+len(marker):]
	if fields := strings.Fields(rest); len(fields) > 0 {
		return strings.TrimSuffix(fields[0], ".")
	}
	return ""
}
