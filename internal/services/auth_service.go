package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkgauth "github.com/echopoint/echopoint/pkg/auth"
	pkglogger "github.com/echopoint/echopoint/pkg/logger"
)

// UserRepository defines the account persistence operations the services need.
type UserRepository interface {
	GetByID(ctx context.Context, q database.Querier, id string) (*models.User, error)
	GetByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error)
	GetByEmailAndResetHash(ctx context.Context, q database.Querier, email, tokenHash string) (*models.User, error)
	Create(ctx context.Context, q database.Querier, user *models.User) (*models.User, error)
	SetOTP(ctx context.Context, q database.Querier, userID, code string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, q database.Querier, userID string) error
	SetPasswordResetToken(ctx context.Context, q database.Querier, userID, tokenHash string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, q database.Querier, userID, passwordHash string) error
	UpdateName(ctx context.Context, q database.Querier, userID, name string) error
	UpdatePassword(ctx context.Context, q database.Querier, userID, passwordHash string) error
	Deactivate(ctx context.Context, q database.Querier, userID string) error
	List(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.User, error)
}

// AuthService runs the credential flows. Each flow owns one transactional
// unit: it commits on success and otherwise leaves the unit for the error
// boundary to roll back.
type AuthService struct {
	units       database.UnitSource
	users       UserRepository
	email       EmailSender
	tm          *auth.TokenManager
	baseURL     string
	sendTimeout time.Duration
	logger      *slog.Logger
	audit       *pkglogger.AuditLogger
}

func NewAuthService(
	units database.UnitSource,
	users UserRepository,
	email EmailSender,
	tm *auth.TokenManager,
	baseURL string,
	sendTimeout time.Duration,
	logger *slog.Logger,
	audit *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		units:       units,
		users:       users,
		email:       email,
		tm:          tm,
		baseURL:     baseURL,
		sendTimeout: sendTimeout,
		logger:      logger,
		audit:       audit,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	var appErr *models.AppError
	return errors.As(err, &appErr) && appErr.Kind == models.KindNotFound
}

// Signup creates an unverified account and delivers its first OTP. A failed
// delivery aborts the whole flow so no account row survives.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	email = normalizeEmail(email)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, unit, email); err == nil {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "signup", Email: email, FailureReason: "duplicate_email",
		})
		return nil, models.NewConflictError("User already exists. Please sign in.")
	} else if !isNotFound(err) {
		return nil, err
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		return nil, err
	}

	passwordHash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		OTPCode:      &otp.Code,
		OTPExpiresAt: &otp.ExpiresAt,
	}
	user, err = s.users.Create(ctx, unit, user)
	if err != nil {
		return nil, err
	}

	if err := s.sendOTPEmail(ctx, email, "Email Verification OTP - EchoPoint", otp.Code); err != nil {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "signup", Email: email, FailureReason: "otp_delivery_failed",
		})
		return nil, models.NewDeliveryError("Sorry, we couldn't sign you up. Try again later.")
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "signup", UserID: user.ID, Email: email, Success: true,
	})
	return user.Public(), nil
}

// Login verifies credentials against a verified, active account and issues a
// bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.PublicUser, error) {
	email = normalizeEmail(email)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return "", nil, err
	}

	user, err := s.users.GetByEmail(ctx, unit, email)
	if err != nil {
		if isNotFound(err) {
			s.auditLoginFailure(email, "unknown_email")
			return "", nil, models.NewUnauthorizedError("Invalid email or password. Invalid email.")
		}
		return "", nil, err
	}

	if !user.IsActive {
		s.auditLoginFailure(email, "inactive_account")
		return "", nil, models.NewUnauthorizedError("Invalid email or password. Not active")
	}

	if !user.IsEmailVerified {
		s.auditLoginFailure(email, "email_not_verified")
		return "", nil, models.NewUnauthorizedError("Invalid email or password. Email verification")
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLoginFailure(email, "wrong_password")
		return "", nil, models.NewUnauthorizedError("Invalid email or password. Not matching password.")
	}

	token, err := s.tm.Issue(user.ID)
	if err != nil {
		return "", nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return "", nil, err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "login", UserID: user.ID, Email: email, Success: true,
	})
	return token, user.Public(), nil
}

// VerifyEmail consumes the OTP. A wrong code, an expired window and an
// unknown email all surface the same error.
func (s *AuthService) VerifyEmail(ctx context.Context, email, candidateOTP string) error {
	email = normalizeEmail(email)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, unit, email)
	if err != nil {
		if isNotFound(err) {
			s.audit.LogAuthEvent(pkglogger.AuditEvent{
				EventType: "verify_email", Email: email, FailureReason: "unknown_email",
			})
			return models.NewInvalidOrExpiredError("Invalid or expired OTP")
		}
		return err
	}

	if !user.OTPValid(candidateOTP, time.Now()) {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "verify_email", UserID: user.ID, Email: email, FailureReason: "invalid_or_expired_otp",
		})
		return models.NewInvalidOrExpiredError("Invalid or expired OTP")
	}

	if err := s.users.MarkEmailVerified(ctx, unit, user.ID); err != nil {
		return err
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "verify_email", UserID: user.ID, Email: email, Success: true,
	})
	return nil
}

// ResendOTP rotates the verification code for a not-yet-verified account.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, unit, email)
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Unregistered user. Please sign up.")
		}
		return err
	}

	if user.IsEmailVerified {
		return models.NewValidationError("Email already verified. Please sign in.")
	}

	otp, err := auth.GenerateOTP()
	if err != nil {
		return err
	}

	if err := s.users.SetOTP(ctx, unit, user.ID, otp.Code, otp.ExpiresAt); err != nil {
		return err
	}

	if err := s.sendOTPEmail(ctx, email, "New Verification OTP - EchoPoint", otp.Code); err != nil {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "resend_otp", UserID: user.ID, Email: email, FailureReason: "otp_delivery_failed",
		})
		return models.NewDeliveryError("Sorry, we couldn't send you OTP. Try again later.")
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "resend_otp", UserID: user.ID, Email: email, Success: true,
	})
	return nil
}

// ForgotPassword stores a hashed reset secret and mails the raw one. Delivery
// failure is swallowed: the flow rolls back its own unit and the caller still
// answers with the generic success message, so the response shape leaks
// nothing about delivery.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, unit, email)
	if err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("Unregistered user. Please sign up.")
		}
		return err
	}

	plain, hash, err := auth.GenerateResetToken()
	if err != nil {
		return err
	}

	expiresAt := time.Now().Add(auth.ResetTokenValidity)
	if err := s.users.SetPasswordResetToken(ctx, unit, user.ID, hash, expiresAt); err != nil {
		return err
	}

	resetURL := fmt.Sprintf("%s/api/v1/auth/reset-password/%s", s.baseURL, plain)
	body := fmt.Sprintf("Your password reset token is %s. This token will expire in 15 minutes.", resetURL)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	if err := s.email.Send(sendCtx, email, "Password Reset Token -- EchoPoint", body); err != nil {
		s.logger.Error("failed to deliver password reset email",
			slog.String("email", pkglogger.SanitizedEmail(email)),
		)
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "forgot_password", UserID: user.ID, Email: email, FailureReason: "reset_delivery_failed",
		})
		return unit.Rollback(ctx)
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "forgot_password", UserID: user.ID, Email: email, Success: true,
	})
	return nil
}

// ResetPassword trades a valid reset secret for a new password. The stored
// hash, the email and the expiry window must all line up.
func (s *AuthService) ResetPassword(ctx context.Context, resetToken, email, newPassword string) error {
	email = normalizeEmail(email)
	tokenHash := auth.HashResetToken(resetToken)

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmailAndResetHash(ctx, unit, email, tokenHash)
	if err != nil {
		if isNotFound(err) {
			s.audit.LogAuthEvent(pkglogger.AuditEvent{
				EventType: "reset_password", Email: email, FailureReason: "invalid_reset_token",
			})
			return models.NewInvalidOrExpiredError("Expired or invalid reset token.")
		}
		return err
	}

	if !user.ResetTokenValid(tokenHash, time.Now()) {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "reset_password", UserID: user.ID, Email: email, FailureReason: "expired_reset_token",
		})
		return models.NewInvalidOrExpiredError("Expired or invalid reset token.")
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.ResetPassword(ctx, unit, user.ID, passwordHash); err != nil {
		return err
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "reset_password", UserID: user.ID, Email: email, Success: true,
	})
	return nil
}

func (s *AuthService) sendOTPEmail(ctx context.Context, email, subject, code string) error {
	body := fmt.Sprintf("Your email verification OTP is %s. This otp will expire in 15 minutes.", code)

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	return s.email.Send(sendCtx, email, subject, body)
}

func (s *AuthService) auditLoginFailure(email, reason string) {
	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "login", Email: email, FailureReason: reason,
	})
}
