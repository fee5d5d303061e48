package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, name, email, password_hash, role, is_active, is_email_verified,
	otp_code, otp_expires_at, password_reset_token_hash, password_reset_token_expires_at,
	password_changed_at, created_at`

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRow handles nullable fields and populates a User model from a database row
func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &user.IsActive, &user.IsEmailVerified,
		&user.OTPCode, &user.OTPExpiresAt,
		&user.PasswordResetTokenHash, &user.PasswordResetTokenExpiresAt,
		&user.PasswordChangedAt, &user.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, q database.Querier, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(q.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUserRow(q.QueryRow(ctx, query, email))
}

// GetByEmailAndResetHash matches an account against the email plus the one-way
// hash of the reset secret. Expiry is checked by the caller so an expired token
// and a wrong token surface the same error.
func (r *UserRepository) GetByEmailAndResetHash(ctx context.Context, q database.Querier, email, tokenHash string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE email = $1 AND password_reset_token_hash = $2`
	return scanUserRow(q.QueryRow(ctx, query, email, tokenHash))
}

// Create inserts a fresh, unverified account carrying its first OTP.
func (r *UserRepository) Create(ctx context.Context, q database.Querier, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	user.CreatedAt = time.Now()
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.IsActive = true
	user.IsEmailVerified = false

	query := `
		INSERT INTO users (id, name, email, password_hash, role, is_active, is_email_verified,
			otp_code, otp_expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		user.IsActive, user.IsEmailVerified,
		user.OTPCode, user.OTPExpiresAt, user.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return user, nil
}

// SetOTP rotates the verification code and its window.
func (r *UserRepository) SetOTP(ctx context.Context, q database.Querier, userID, code string, expiresAt time.Time) error {
	query := `UPDATE users SET otp_code = $2, otp_expires_at = $3 WHERE id = $1`

	tag, err := q.Exec(ctx, query, userID, code, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// MarkEmailVerified flips the verification flag and clears the OTP fields.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, q database.Querier, userID string) error {
	query := `
		UPDATE users
		SET is_email_verified = TRUE, otp_code = NULL, otp_expires_at = NULL
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

func (r *UserRepository) SetPasswordResetToken(ctx context.Context, q database.Querier, userID, tokenHash string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET password_reset_token_hash = $2, password_reset_token_expires_at = $3
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, userID, tokenHash, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// ResetPassword installs the new hash, clears the reset-token fields and stamps
// password_changed_at so outstanding tokens go stale.
func (r *UserRepository) ResetPassword(ctx context.Context, q database.Querier, userID, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2,
			password_reset_token_hash = NULL,
			password_reset_token_expires_at = NULL,
			password_changed_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

func (r *UserRepository) UpdateName(ctx context.Context, q database.Querier, userID, name string) error {
	query := `UPDATE users SET name = $2 WHERE id = $1`

	tag, err := q.Exec(ctx, query, userID, name)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// UpdatePassword is the authenticated change-my-password path. It stamps
// password_changed_at like ResetPassword does.
func (r *UserRepository) UpdatePassword(ctx context.Context, q database.Querier, userID, passwordHash string) error {
	query := `UPDATE users SET password_hash = $2, password_changed_at = NOW() WHERE id = $1`

	tag, err := q.Exec(ctx, query, userID, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// Deactivate soft-deletes the account. Rows are never removed here, only the
// cascade from an admin purge would do that.
func (r *UserRepository) Deactivate(ctx context.Context, q database.Querier, userID string) error {
	query := `UPDATE users SET is_active = FALSE WHERE id = $1`

	tag, err := q.Exec(ctx, query, userID)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.NewNotFoundError("No matching records.")
	}
	return nil
}

// ClearExpiredCredentials drops OTP codes and reset-token hashes whose
// windows have closed. Expired values already fail validation; this keeps
// dead secrets from sitting in storage.
func (r *UserRepository) ClearExpiredCredentials(ctx context.Context, q database.Querier) (int64, error) {
	query := `
		UPDATE users
		SET otp_code = CASE WHEN otp_expires_at < NOW() THEN NULL ELSE otp_code END,
			otp_expires_at = CASE WHEN otp_expires_at < NOW() THEN NULL ELSE otp_expires_at END,
			password_reset_token_hash = CASE WHEN password_reset_token_expires_at < NOW() THEN NULL ELSE password_reset_token_hash END,
			password_reset_token_expires_at = CASE WHEN password_reset_token_expires_at < NOW() THEN NULL ELSE password_reset_token_expires_at END
		WHERE otp_expires_at < NOW() OR password_reset_token_expires_at < NOW()
	`

	tag, err := q.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

// List returns active users shaped by the caller's query options.
func (r *UserRepository) List(ctx context.Context, q database.Querier, opts ListOptions) ([]*models.User, error) {
	sqlQuery, args, err := buildListQuery(usersTable, opts, filter{expr: "is_active", op: "=", value: true})
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanUserRows(rows)
}
