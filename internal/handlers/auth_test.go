package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthHandler(flows *mockAuthFlows) *AuthHandler {
	return NewAuthHandler(flows, auth.CookieConfig{ExpiresDays: 90})
}

func TestSignupHandler(t *testing.T) {
	var gotName, gotEmail string
	flows := &mockAuthFlows{
		SignupFunc: func(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
			gotName, gotEmail = name, email
			return &models.PublicUser{ID: "user-1", Name: name, Email: email}, nil
		},
	}
	h := newAuthHandler(flows)

	body := `{"name":"Ann","email":"ann@example.com","password":"secret1","passwordConfirm":"secret1"}`
	rec, err := doRequest(t, h.Signup, "POST", "/api/v1/auth/signup", body, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Ann", gotName)
	assert.Equal(t, "ann@example.com", gotEmail)

	resp := decodeBody(t, rec)
	assert.Equal(t, "success", resp["status"])
	assert.Contains(t, resp["message"], "check your email")

	user := resp["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "user-1", user["id"])
	// only the public projection leaves the handler
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "otp")
}

func TestSignupHandler_Validation(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"email":"a@x.com","password":"secret1","passwordConfirm":"secret1"}`},
		{"bad email", `{"name":"A","email":"not-an-email","password":"secret1","passwordConfirm":"secret1"}`},
		{"short password", `{"name":"A","email":"a@x.com","password":"abc","passwordConfirm":"abc"}`},
		{"mismatched confirm", `{"name":"A","email":"a@x.com","password":"secret1","passwordConfirm":"secret2"}`},
		{"garbage body", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := doRequest(t, h.Signup, "POST", "/api/v1/auth/signup", tt.body, nil, nil)
			require.Error(t, err)

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, 400, appErr.StatusCode)
		})
	}
}

func TestLoginHandler_SetsCookieAndJWT(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	body := `{"email":"ann@example.com","password":"secret1"}`
	rec, err := doRequest(t, h.Login, "POST", "/api/v1/auth/login", body, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "token-1", resp["jwt"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.Equal(t, "token-1", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginHandler_ErrorPassesThrough(t *testing.T) {
	flows := &mockAuthFlows{
		LoginFunc: func(ctx context.Context, email, password string) (string, *models.PublicUser, error) {
			return "", nil, models.NewUnauthorizedError("Invalid email or password. Not matching password.")
		},
	}
	h := newAuthHandler(flows)

	body := `{"email":"ann@example.com","password":"wrong"}`
	rec, err := doRequest(t, h.Login, "POST", "/api/v1/auth/login", body, nil, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 401, appErr.StatusCode)
	// the handler must not write anything, the boundary owns the error path
	assert.Zero(t, rec.Body.Len())
	assert.Empty(t, rec.Result().Cookies())
}

func TestVerifyEmailHandler(t *testing.T) {
	var gotOTP string
	flows := &mockAuthFlows{
		VerifyEmailFunc: func(ctx context.Context, email, candidateOTP string) error {
			gotOTP = candidateOTP
			return nil
		},
	}
	h := newAuthHandler(flows)

	body := `{"email":"ann@example.com","candidateOtp":"123456"}`
	rec, err := doRequest(t, h.VerifyEmail, "POST", "/api/v1/auth/verify-email", body, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123456", gotOTP)

	resp := decodeBody(t, rec)
	assert.Equal(t, "Email verified successfully. Please sign in.", resp["message"])
}

func TestVerifyEmailHandler_OTPLength(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	body := `{"email":"ann@example.com","candidateOtp":"12345"}`
	_, err := doRequest(t, h.VerifyEmail, "POST", "/api/v1/auth/verify-email", body, nil, nil)
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}

func TestResendOTPHandler(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	rec, err := doRequest(t, h.ResendOTP, "POST", "/api/v1/auth/resend-otp", `{"email":"ann@example.com"}`, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "We've sent you the requested OTP. Please check your email.", resp["message"])
}

func TestForgotPasswordHandler_GenericSuccess(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	rec, err := doRequest(t, h.ForgotPassword, "POST", "/api/v1/auth/forgot-password", `{"email":"ann@example.com"}`, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "Password reset token has been successfully sent to your email.", resp["message"])
}

func TestResetPasswordHandler(t *testing.T) {
	var gotToken, gotPassword string
	flows := &mockAuthFlows{
		ResetPasswordFunc: func(ctx context.Context, resetToken, email, newPassword string) error {
			gotToken, gotPassword = resetToken, newPassword
			return nil
		},
	}
	h := newAuthHandler(flows)

	body := `{"email":"ann@example.com","newPassword":"newsecret1","newPasswordConfirm":"newsecret1"}`
	rec, err := doRequest(t, h.ResetPassword, "PATCH", "/api/v1/auth/reset-password/abc123", body, nil,
		map[string]string{"resetToken": "abc123"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", gotToken)
	assert.Equal(t, "newsecret1", gotPassword)
}

func TestResetPasswordHandler_MismatchedConfirm(t *testing.T) {
	h := newAuthHandler(&mockAuthFlows{})

	body := `{"email":"ann@example.com","newPassword":"newsecret1","newPasswordConfirm":"other"}`
	_, err := doRequest(t, h.ResetPassword, "PATCH", "/api/v1/auth/reset-password/abc123", body, nil,
		map[string]string{"resetToken": "abc123"})
	require.Error(t, err)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.StatusCode)
}
