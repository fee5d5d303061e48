package logger

import (
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g. "u***@*****.com").
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	// Keep the TLD, mask the rest of the domain
	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// sensitive query parameters that must never reach the request log
var sensitiveParams = []string{
	"password",
	"token",
	"otp",
	"secret",
	"jwt",
	"email",
	"auth",
}

// SanitizeQueryString reports whether a raw query string carries sensitive
// parameters and should be redacted wholesale.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
