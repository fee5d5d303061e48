package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

type mockAuthFlows struct {
	SignupFunc         func(ctx context.Context, name, email, password string) (*models.PublicUser, error)
	LoginFunc          func(ctx context.Context, email, password string) (string, *models.PublicUser, error)
	VerifyEmailFunc    func(ctx context.Context, email, candidateOTP string) error
	ResendOTPFunc      func(ctx context.Context, email string) error
	ForgotPasswordFunc func(ctx context.Context, email string) error
	ResetPasswordFunc  func(ctx context.Context, resetToken, email, newPassword string) error
}

func (m *mockAuthFlows) Signup(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, name, email, password)
	}
	return &models.PublicUser{ID: "user-1", Name: name, Email: email}, nil
}

func (m *mockAuthFlows) Login(ctx context.Context, email, password string) (string, *models.PublicUser, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return "token-1", &models.PublicUser{ID: "user-1", Email: email}, nil
}

func (m *mockAuthFlows) VerifyEmail(ctx context.Context, email, candidateOTP string) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, email, candidateOTP)
	}
	return nil
}

func (m *mockAuthFlows) ResendOTP(ctx context.Context, email string) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, email)
	}
	return nil
}

func (m *mockAuthFlows) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *mockAuthFlows) ResetPassword(ctx context.Context, resetToken, email, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, resetToken, email, newPassword)
	}
	return nil
}

type mockUserFlows struct {
	GetMeFunc            func(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateMeFunc         func(ctx context.Context, userID, name string) (*models.PublicUser, error)
	UpdateMyPasswordFunc func(ctx context.Context, userID, oldPassword, newPassword string) error
	DeleteMeFunc         func(ctx context.Context, userID, confirmEmail, confirmPassword string) error
	GetUserFunc          func(ctx context.Context, userID string) (*models.PublicUser, error)
	GetAllUsersFunc      func(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error)
	DeleteUserFunc       func(ctx context.Context, userID string) error
}

func (m *mockUserFlows) GetMe(ctx context.Context, userID string) (*models.PublicUser, error) {
	if m.GetMeFunc != nil {
		return m.GetMeFunc(ctx, userID)
	}
	return &models.PublicUser{ID: userID, Name: "Ann", Email: "ann@example.com"}, nil
}

func (m *mockUserFlows) UpdateMe(ctx context.Context, userID, name string) (*models.PublicUser, error) {
	if m.UpdateMeFunc != nil {
		return m.UpdateMeFunc(ctx, userID, name)
	}
	return &models.PublicUser{ID: userID, Name: name, Email: "ann@example.com"}, nil
}

func (m *mockUserFlows) UpdateMyPassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if m.UpdateMyPasswordFunc != nil {
		return m.UpdateMyPasswordFunc(ctx, userID, oldPassword, newPassword)
	}
	return nil
}

func (m *mockUserFlows) DeleteMe(ctx context.Context, userID, confirmEmail, confirmPassword string) error {
	if m.DeleteMeFunc != nil {
		return m.DeleteMeFunc(ctx, userID, confirmEmail, confirmPassword)
	}
	return nil
}

func (m *mockUserFlows) GetUser(ctx context.Context, userID string) (*models.PublicUser, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, userID)
	}
	return &models.PublicUser{ID: userID}, nil
}

func (m *mockUserFlows) GetAllUsers(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error) {
	if m.GetAllUsersFunc != nil {
		return m.GetAllUsersFunc(ctx, opts)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func (m *mockUserFlows) DeleteUser(ctx context.Context, userID string) error {
	if m.DeleteUserFunc != nil {
		return m.DeleteUserFunc(ctx, userID)
	}
	return nil
}

// doRequest runs one handler the way the router does: chi URL params, an
// optional identity on the context, and the error return captured for
// assertions.
func doRequest(t *testing.T, h pkghttp.HandlerFunc, method, target, body string, identity *models.Identity, params map[string]string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	ctx := req.Context()

	if len(params) > 0 {
		routeCtx := chi.NewRouteContext()
		for k, v := range params {
			routeCtx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
	}

	if identity != nil {
		ctx = auth.ContextWithIdentity(ctx, identity)
	}

	rec := httptest.NewRecorder()
	err := h(rec, req.WithContext(ctx))
	return rec, err
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func userIdentity() *models.Identity {
	return &models.Identity{ID: "user-1", Name: "Ann", Email: "ann@example.com", Role: models.RoleUser}
}
