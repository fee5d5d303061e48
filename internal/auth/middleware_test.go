package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockAccountReader struct {
	GetByIDFunc func(ctx context.Context, q database.Querier, id string) (*models.User, error)
}

func (m *mockAccountReader) GetByID(ctx context.Context, q database.Querier, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, q, id)
	}
	return nil, models.NewNotFoundError("No matching records.")
}

func activeUser(id string) *models.User {
	return &models.User{
		ID: id, Name: "Test User", Email: "test@example.com",
		Role: models.RoleUser, IsActive: true, IsEmailVerified: true,
	}
}

func runProtect(t *testing.T, tm *TokenManager, users AccountReader, decorate func(*http.Request)) (*models.Identity, error) {
	t.Helper()

	var captured *models.Identity
	next := func(w http.ResponseWriter, r *http.Request) error {
		captured, _ = IdentityFromContext(r.Context())
		return nil
	}

	req := httptest.NewRequest("GET", "/api/v1/users/me", nil)
	if decorate != nil {
		decorate(req)
	}

	err := Protect(tm, nil, users)(next)(httptest.NewRecorder(), req)
	return captured, err
}

func TestProtect_MissingToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	_, err := runProtect(t, tm, &mockAccountReader{}, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "Token not found")
}

func TestProtect_HeaderToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Issue("user-1")
	require.NoError(t, err)

	users := &mockAccountReader{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			assert.Equal(t, "user-1", id)
			return activeUser(id), nil
		},
	}

	identity, err := runProtect(t, tm, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-1", identity.ID)
	assert.Equal(t, models.RoleUser, identity.Role)
}

func TestProtect_CookieToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Issue("user-2")
	require.NoError(t, err)

	users := &mockAccountReader{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return activeUser(id), nil
		},
	}

	identity, err := runProtect(t, tm, users, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: JWTCookieName, Value: token})
	})
	require.NoError(t, err)
	require.NotNil(t, identity)
	assert.Equal(t, "user-2", identity.ID)
}

func TestProtect_HeaderTakesPrecedenceOverCookie(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	headerToken, err := tm.Issue("header-user")
	require.NoError(t, err)
	cookieToken, err := tm.Issue("cookie-user")
	require.NoError(t, err)

	users := &mockAccountReader{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			return activeUser(id), nil
		},
	}

	identity, err := runProtect(t, tm, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+headerToken)
		r.AddCookie(&http.Cookie{Name: JWTCookieName, Value: cookieToken})
	})
	require.NoError(t, err)
	assert.Equal(t, "header-user", identity.ID)
}

func TestProtect_InvalidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	_, err := runProtect(t, tm, &mockAccountReader{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer not-a-token")
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
}

func TestProtect_AccountGone(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Issue("ghost")
	require.NoError(t, err)

	_, err = runProtect(t, tm, &mockAccountReader{}, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "does not exist")
}

func TestProtect_StaleCredentialAfterPasswordChange(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	token, err := tm.Issue("user-3")
	require.NoError(t, err)

	changedAt := time.Now().Add(time.Hour)
	users := &mockAccountReader{
		GetByIDFunc: func(ctx context.Context, q database.Querier, id string) (*models.User, error) {
			u := activeUser(id)
			u.PasswordChangedAt = &changedAt
			return u, nil
		},
	}

	_, err = runProtect(t, tm, users, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "sign in again")
}

func TestRestrictTo(t *testing.T) {
	next := func(w http.ResponseWriter, r *http.Request) error { return nil }
	gate := RestrictTo(models.RoleAdmin)

	t.Run("admin passes", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/users/all-users", nil)
		ctx := ContextWithIdentity(req.Context(), &models.Identity{ID: "a", Role: models.RoleAdmin})
		err := gate(next)(httptest.NewRecorder(), req.WithContext(ctx))
		assert.NoError(t, err)
	})

	t.Run("user forbidden", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/users/all-users", nil)
		ctx := ContextWithIdentity(req.Context(), &models.Identity{ID: "u", Role: models.RoleUser})
		err := gate(next)(httptest.NewRecorder(), req.WithContext(ctx))

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 403, appErr.StatusCode)
	})

	t.Run("no identity", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/users/all-users", nil)
		err := gate(next)(httptest.NewRecorder(), req)

		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 401, appErr.StatusCode)
	})
}
