package models

import (
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the persisted account record. OTP and reset-token fields are paired:
// both nil or both set.
type User struct {
	ID                          string
	Name                        string
	Email                       string
	PasswordHash                string // never exposed outward
	Role                        string // "user" or "admin"
	IsActive                    bool   // false = soft-deleted, never a hard delete
	IsEmailVerified             bool
	OTPCode                     *string // exactly 6 digits while set
	OTPExpiresAt                *time.Time
	PasswordResetTokenHash      *string // sha256 of the reset secret, never the secret
	PasswordResetTokenExpiresAt *time.Time
	PasswordChangedAt           *time.Time
	CreatedAt                   time.Time
}

// CanLogin reports whether the account is usable for credential login.
func (u *User) CanLogin() bool {
	return u.IsActive && u.IsEmailVerified
}

// OTPValid reports whether candidate matches the active code inside its window.
func (u *User) OTPValid(candidate string, now time.Time) bool {
	if u.OTPCode == nil || u.OTPExpiresAt == nil {
		return false
	}
	return *u.OTPCode == candidate && now.Before(*u.OTPExpiresAt)
}

// ResetTokenValid reports whether hash matches the stored reset-token hash
// inside its window.
func (u *User) ResetTokenValid(hash string, now time.Time) bool {
	if u.PasswordResetTokenHash == nil || u.PasswordResetTokenExpiresAt == nil {
		return false
	}
	return *u.PasswordResetTokenHash == hash && now.Before(*u.PasswordResetTokenExpiresAt)
}

// PasswordChangedAfter reports whether the password changed after a token was
// issued, invalidating that token.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	return u.PasswordChangedAt != nil && u.PasswordChangedAt.After(issuedAt)
}

// PublicUser is the outward projection of an account. No credential, OTP or
// reset fields ever cross this boundary.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity is what the identity middleware attaches to a request context.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
