package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserHandler(flows *mockUserFlows) *UserHandler {
	return NewUserHandler(flows, auth.CookieConfig{ExpiresDays: 90})
}

func TestGetMeHandler(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	rec, err := doRequest(t, h.GetMe, "GET", "/api/v1/users/me", "", userIdentity(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	me := resp["data"].(map[string]interface{})["me"].(map[string]interface{})
	assert.Equal(t, "user-1", me["id"])
}

func TestGetMeHandler_NoIdentity(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	_, err := doRequest(t, h.GetMe, "GET", "/api/v1/users/me", "", nil, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
}

func TestUpdateMeHandler(t *testing.T) {
	var gotName string
	flows := &mockUserFlows{
		UpdateMeFunc: func(ctx context.Context, userID, name string) (*models.PublicUser, error) {
			gotName = name
			return &models.PublicUser{ID: userID, Name: name, Email: "ann@example.com"}, nil
		},
	}
	h := newUserHandler(flows)

	rec, err := doRequest(t, h.UpdateMe, "PATCH", "/api/v1/users/update-me", `{"name":"New Name"}`, userIdentity(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "New Name", gotName)
}

func TestUpdateMyPasswordHandler_Validation(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	tests := []struct {
		name string
		body string
	}{
		{"missing old password", `{"newPassword":"newsecret1","newPasswordConfirm":"newsecret1"}`},
		{"short new password", `{"oldPassword":"secret1","newPassword":"abc","newPasswordConfirm":"abc"}`},
		{"mismatched confirm", `{"oldPassword":"secret1","newPassword":"newsecret1","newPasswordConfirm":"other"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doRequest(t, h.UpdateMyPassword, "PATCH", "/api/v1/users/update-my-password", tt.body, userIdentity(), nil)
			require.Error(t, err)

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.StatusCode)
		})
	}
}

func TestDeleteMeHandler_ClearsCookie(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	body := `{"confirmEmail":"ann@example.com","confirmPassword":"secret1"}`
	rec, err := doRequest(t, h.DeleteMe, "DELETE", "/api/v1/users/delete-me", body, userIdentity(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)

	resp := decodeBody(t, rec)
	assert.Contains(t, resp["message"], "Account deleted successfully")
}

func TestGetAllUsersHandler(t *testing.T) {
	flows := &mockUserFlows{
		GetAllUsersFunc: func(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error) {
			return []*models.PublicUser{
				{ID: "u1", Name: "A", Email: "a@x.com"},
				{ID: "u2", Name: "B", Email: "b@x.com"},
			}, nil
		},
	}
	h := newUserHandler(flows)

	rec, err := doRequest(t, h.GetAllUsers, "GET", "/api/v1/users/all-users", "", userIdentity(), nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.EqualValues(t, 2, resp["results"])
	users := resp["data"].(map[string]interface{})["users"].([]interface{})
	assert.Len(t, users, 2)
}

func TestGetAllUsersHandler_FieldProjection(t *testing.T) {
	flows := &mockUserFlows{
		GetAllUsersFunc: func(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error) {
			return []*models.PublicUser{{ID: "u1", Name: "A", Email: "a@x.com"}}, nil
		},
	}
	h := newUserHandler(flows)

	rec, err := doRequest(t, h.GetAllUsers, "GET", "/api/v1/users/all-users?fields=id,name", "", userIdentity(), nil)
	require.NoError(t, err)

	resp := decodeBody(t, rec)
	users := resp["data"].(map[string]interface{})["users"].([]interface{})
	first := users[0].(map[string]interface{})
	assert.Contains(t, first, "id")
	assert.Contains(t, first, "name")
	assert.NotContains(t, first, "email")
}

func TestGetAllUsersHandler_BadQuery(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	_, err := doRequest(t, h.GetAllUsers, "GET", "/api/v1/users/all-users?sort=password_hash", "", userIdentity(), nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestGetUserHandler(t *testing.T) {
	h := newUserHandler(&mockUserFlows{})

	rec, err := doRequest(t, h.GetUser, "GET", "/api/v1/users/user/u-9", "", userIdentity(),
		map[string]string{"userId": "u-9"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	user := resp["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "u-9", user["id"])
}

func TestDeleteUserHandler(t *testing.T) {
	var deleted string
	flows := &mockUserFlows{
		DeleteUserFunc: func(ctx context.Context, userID string) error {
			deleted = userID
			return nil
		},
	}
	h := newUserHandler(flows)

	rec, err := doRequest(t, h.DeleteUser, "DELETE", "/api/v1/users/user/u-9", "", userIdentity(),
		map[string]string{"userId": "u-9"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-9", deleted)
	resp := decodeBody(t, rec)
	assert.Equal(t, "User deleted successfully.", resp["message"])
}
