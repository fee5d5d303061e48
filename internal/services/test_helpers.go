package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkglogger "github.com/echopoint/echopoint/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// mockUnit satisfies database.Unit without touching a database. The Querier
// methods are never reached because the repositories are mocked too.
type mockUnit struct {
	committed  int
	rolledBack int
}

func (m *mockUnit) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockUnit) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockUnit) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockUnit) Commit(ctx context.Context) error {
	m.committed++
	return nil
}

func (m *mockUnit) Rollback(ctx context.Context) error {
	m.rolledBack++
	return nil
}

type mockUnitSource struct {
	unit      *mockUnit
	BeginFunc func(ctx context.Context) (database.Unit, error)
}

func newMockUnitSource() *mockUnitSource {
	return &mockUnitSource{unit: &mockUnit{}}
}

func (m *mockUnitSource) Begin(ctx context.Context) (database.Unit, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return m.unit, nil
}

type mockUserRepo struct {
	GetByIDFunc                func(ctx context.Context, q database.Querier, id string) (*models.User, error)
	GetByEmailFunc             func(ctx context.Context, q database.Querier, email string) (*models.User, error)
	GetByEmailAndResetHashFunc func(ctx context.Context, q database.Querier, email, tokenHash string) (*models.User, error)
	CreateFunc                 func(ctx context.Context, q database.Querier, user *models.User) (*models.User, error)
	SetOTPFunc                 func(ctx context.Context, q database.Querier, userID, code string, expiresAt time.Time) error
	MarkEmailVerifiedFunc      func(ctx context.Context, q database.Querier, userID string) error
	SetPasswordResetTokenFunc  func(ctx context.Context, q database.Querier, userID, tokenHash string, expiresAt time.Time) error
	ResetPasswordFunc          func(ctx context.Context, q database.Querier, userID, passwordHash string) error
	UpdateNameFunc             func(ctx context.Context, q database.Querier, userID, name string) error
	UpdatePasswordFunc         func(ctx context.Context, q database.Querier, userID, passwordHash string) error
	DeactivateFunc             func(ctx context.Context, q database.Querier, userID string) error
	ListFunc                   func(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, q database.Querier, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, q, id)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, q database.Querier, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, q, email)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockUserRepo) GetByEmailAndResetHash(ctx context.Context, q database.Querier, email, tokenHash string) (*models.User, error) {
	if m.GetByEmailAndResetHashFunc != nil {
		return m.GetByEmailAndResetHashFunc(ctx, q, email, tokenHash)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockUserRepo) Create(ctx context.Context, q database.Querier, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, q, user)
	}
	user.ID = "user-1"
	return user, nil
}

func (m *mockUserRepo) SetOTP(ctx context.Context, q database.Querier, userID, code string, expiresAt time.Time) error {
	if m.SetOTPFunc != nil {
		return m.SetOTPFunc(ctx, q, userID, code, expiresAt)
	}
	return nil
}

func (m *mockUserRepo) MarkEmailVerified(ctx context.Context, q database.Querier, userID string) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, q, userID)
	}
	return nil
}

func (m *mockUserRepo) SetPasswordResetToken(ctx context.Context, q database.Querier, userID, tokenHash string, expiresAt time.Time) error {
	if m.SetPasswordResetTokenFunc != nil {
		return m.SetPasswordResetTokenFunc(ctx, q, userID, tokenHash, expiresAt)
	}
	return nil
}

func (m *mockUserRepo) ResetPassword(ctx context.Context, q database.Querier, userID, passwordHash string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, q, userID, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) UpdateName(ctx context.Context, q database.Querier, userID, name string) error {
	if m.UpdateNameFunc != nil {
		return m.UpdateNameFunc(ctx, q, userID, name)
	}
	return nil
}

func (m *mockUserRepo) UpdatePassword(ctx context.Context, q database.Querier, userID, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, q, userID, passwordHash)
	}
	return nil
}

func (m *mockUserRepo) Deactivate(ctx context.Context, q database.Querier, userID string) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, q, userID)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q, opts)
	}
	return nil, nil
}

type mockPostRepo struct {
	GetByIDFunc func(ctx context.Context, q database.Querier, id string) (*models.Post, error)
	CreateFunc  func(ctx context.Context, q database.Querier, post *models.Post) (*models.Post, error)
	UpdateFunc  func(ctx context.Context, q database.Querier, id string, title, content *string) error
	DeleteFunc  func(ctx context.Context, q database.Querier, id string) error
	ListFunc    func(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.Post, error)
}

func (m *mockPostRepo) GetByID(ctx context.Context, q database.Querier, id string) (*models.Post, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, q, id)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockPostRepo) Create(ctx context.Context, q database.Querier, post *models.Post) (*models.Post, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, q, post)
	}
	post.ID = "post-1"
	return post, nil
}

func (m *mockPostRepo) Update(ctx context.Context, q database.Querier, id string, title, content *string) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, q, id, title, content)
	}
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, q database.Querier, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, q, id)
	}
	return nil
}

func (m *mockPostRepo) List(ctx context.Context, q database.Querier, opts repositories.ListOptions) ([]*models.Post, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q, opts)
	}
	return nil, nil
}

type mockCommentRepo struct {
	GetByIDFunc       func(ctx context.Context, q database.Querier, postID, id string) (*models.Comment, error)
	CreateFunc        func(ctx context.Context, q database.Querier, comment *models.Comment) (*models.Comment, error)
	UpdateContentFunc func(ctx context.Context, q database.Querier, id, content string) error
	DeleteFunc        func(ctx context.Context, q database.Querier, id string) error
	ListForPostFunc   func(ctx context.Context, q database.Querier, postID string, opts repositories.ListOptions) ([]*models.Comment, error)
}

func (m *mockCommentRepo) GetByID(ctx context.Context, q database.Querier, postID, id string) (*models.Comment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, q, postID, id)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockCommentRepo) Create(ctx context.Context, q database.Querier, comment *models.Comment) (*models.Comment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, q, comment)
	}
	comment.ID = "comment-1"
	return comment, nil
}

func (m *mockCommentRepo) UpdateContent(ctx context.Context, q database.Querier, id, content string) error {
	if m.UpdateContentFunc != nil {
		return m.UpdateContentFunc(ctx, q, id, content)
	}
	return nil
}

func (m *mockCommentRepo) Delete(ctx context.Context, q database.Querier, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, q, id)
	}
	return nil
}

func (m *mockCommentRepo) ListForPost(ctx context.Context, q database.Querier, postID string, opts repositories.ListOptions) ([]*models.Comment, error) {
	if m.ListForPostFunc != nil {
		return m.ListForPostFunc(ctx, q, postID, opts)
	}
	return nil, nil
}

type sentEmail struct {
	To      string
	Subject string
	Body    string
}

type mockEmailSender struct {
	SendFunc func(ctx context.Context, to, subject, body string) error
	sent     []sentEmail
}

func (m *mockEmailSender) Send(ctx context.Context, to, subject, body string) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, to, subject, body); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(units database.UnitSource, users UserRepository, email EmailSender) *AuthService {
	logger := discardLogger()
	return NewAuthService(
		units, users, email,
		auth.NewTokenManager("test-secret-for-auth-service-32bb", time.Hour),
		"http://localhost:5000",
		time.Second,
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

func newTestUserService(pool database.Querier, units database.UnitSource, users UserRepository) *UserService {
	logger := discardLogger()
	return NewUserService(pool, units, users, logger, pkglogger.NewAuditLogger(logger))
}
