package services

import (
	"context"
	"log/slog"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkgauth "github.com/echopoint/echopoint/pkg/auth"
	pkglogger "github.com/echopoint/echopoint/pkg/logger"
)

// UserService covers the authenticated account surface plus the admin
// operations. Reads run on the pool, writes inside a unit.
type UserService struct {
	pool   database.Querier
	units  database.UnitSource
	users  UserRepository
	logger *slog.Logger
	audit  *pkglogger.AuditLogger
}

func NewUserService(pool database.Querier, units database.UnitSource, users UserRepository, logger *slog.Logger, audit *pkglogger.AuditLogger) *UserService {
	return &UserService{
		pool:   pool,
		units:  units,
		users:  users,
		logger: logger,
		audit:  audit,
	}
}

func (s *UserService) GetMe(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, s.pool, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("User not found.")
		}
		return nil, err
	}
	return user.Public(), nil
}

// UpdateMe changes the account's display name. Same-name updates are rejected
// so the client learns the request was a no-op.
func (s *UserService) UpdateMe(ctx context.Context, userID, name string) (*models.PublicUser, error) {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, unit, userID)
	if err != nil {
		return nil, err
	}

	if name == user.Name {
		return nil, models.NewValidationError("New user name must be different from current user name.")
	}

	if err := s.users.UpdateName(ctx, unit, userID, name); err != nil {
		return nil, err
	}

	if err := unit.Commit(ctx); err != nil {
		return nil, err
	}

	user.Name = name
	return user.Public(), nil
}

// UpdateMyPassword verifies the old password before installing the new one.
// The change stamps password_changed_at, so every outstanding token goes
// stale.
func (s *UserService) UpdateMyPassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == newPassword {
		return models.NewValidationError("New password must be different from current password.")
	}

	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, unit, userID)
	if err != nil {
		return err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		s.audit.LogAuthEvent(pkglogger.AuditEvent{
			EventType: "update_password", UserID: userID, FailureReason: "wrong_password",
		})
		return models.NewUnauthorizedError("Invalid email or password.")
	}

	passwordHash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, unit, userID, passwordHash); err != nil {
		return err
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "update_password", UserID: userID, Success: true,
	})
	return nil
}

// DeleteMe soft-deletes the account after the caller re-confirms their email
// and password.
func (s *UserService) DeleteMe(ctx context.Context, userID, confirmEmail, confirmPassword string) error {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, unit, userID)
	if err != nil {
		return err
	}

	if normalizeEmail(confirmEmail) != user.Email {
		return models.NewUnauthorizedError("Invalid email or password.")
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, confirmPassword); err != nil {
		return models.NewUnauthorizedError("Invalid email or password.")
	}

	if err := s.users.Deactivate(ctx, unit, userID); err != nil {
		return err
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "delete_account", UserID: userID, Success: true,
	})
	return nil
}

// GetUser is the admin single-account lookup.
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.users.GetByID(ctx, s.pool, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, models.NewNotFoundError("This user doesn't exist.")
		}
		return nil, err
	}
	return user.Public(), nil
}

// GetAllUsers lists active accounts for admins, shaped by the query options.
func (s *UserService) GetAllUsers(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error) {
	users, err := s.users.List(ctx, s.pool, opts)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, models.NewNotFoundError("No matching records.")
	}

	public := make([]*models.PublicUser, 0, len(users))
	for _, u := range users {
		public = append(public, u.Public())
	}
	return public, nil
}

// DeleteUser is the admin soft delete.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	unit, err := s.units.Begin(ctx)
	if err != nil {
		return err
	}

	if _, err := s.users.GetByID(ctx, unit, userID); err != nil {
		if isNotFound(err) {
			return models.NewNotFoundError("This user doesn't exist.")
		}
		return err
	}

	if err := s.users.Deactivate(ctx, unit, userID); err != nil {
		return err
	}

	if err := unit.Commit(ctx); err != nil {
		return err
	}

	s.audit.LogAuthEvent(pkglogger.AuditEvent{
		EventType: "admin_delete_user", UserID: userID, Success: true,
	})
	return nil
}
