package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupVerifyLoginFlow(t *testing.T) {
	cleanTables(t)

	email, password := TestUser("flow")

	// Sign up
	resp, err := testServer.Request("POST", "/api/v1/auth/signup", map[string]string{
		"name":            "Flow User",
		"email":           email,
		"password":        password,
		"passwordConfirm": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var signupBody map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &signupBody))
	assert.Equal(t, "success", signupBody["status"])

	// The verification OTP arrives by email
	lastEmail := testServer.EmailService.GetLastEmail()
	require.NotNil(t, lastEmail)
	assert.Equal(t, email, lastEmail.To)

	otp := ExtractOTPFromEmail(lastEmail.Body)
	require.Len(t, otp, 6)

	// Login before verification is refused
	resp, err = testServer.Request("POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Contains(t, msg, "Invalid email or password")

	// Verify with the mailed OTP
	resp, err = testServer.Request("POST", "/api/v1/auth/verify-email", map[string]string{
		"email":        email,
		"candidateOtp": otp,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Login now succeeds and yields a bearer token
	resp, err = testServer.Request("POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	token, err := ExtractJWTFromResponse(resp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// The token resolves an identity
	resp, err = testServer.RequestWithAuth("GET", "/api/v1/users/me", token, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var meBody map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &meBody))
	me := meBody["data"].(map[string]interface{})["me"].(map[string]interface{})
	assert.Equal(t, email, me["email"])
	assert.Nil(t, me["password_hash"])
}

func TestVerifyEmail_WrongOTP(t *testing.T) {
	cleanTables(t)

	email, password := TestUser("wrongotp")

	resp, err := testServer.Request("POST", "/api/v1/auth/signup", map[string]string{
		"name":            "Wrong OTP",
		"email":           email,
		"password":        password,
		"passwordConfirm": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = testServer.Request("POST", "/api/v1/auth/verify-email", map[string]string{
		"email":        email,
		"candidateOtp": "000000",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	msg, err := GetErrorMessage(resp)
	require.NoError(t, err)
	assert.Equal(t, "Invalid or expired OTP", msg)
}

func TestForgotResetPasswordFlow(t *testing.T) {
	cleanTables(t)

	ctx := t.Context()
	email, oldPassword := TestUser("reset")
	_, err := SeedUser(ctx, testDB.Pool, email, oldPassword, "user", true)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/api/v1/auth/forgot-password", map[string]string{
		"email": email,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	lastEmail := testServer.EmailService.GetLastEmail()
	require.NotNil(t, lastEmail)
	resetToken := ExtractResetTokenFromEmail(lastEmail.Body)
	require.NotEmpty(t, resetToken)

	newPassword := "BrandNewPassword456!"
	resp, err = testServer.Request("PATCH", "/api/v1/auth/reset-password/"+resetToken, map[string]string{
		"email":              email,
		"newPassword":        newPassword,
		"newPasswordConfirm": newPassword,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Old password is dead, new one works
	resp, err = testServer.Request("POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": oldPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp, err = testServer.Request("POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": newPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The secret is single-use
	resp, err = testServer.Request("PATCH", "/api/v1/auth/reset-password/"+resetToken, map[string]string{
		"email":              email,
		"newPassword":        newPassword,
		"newPasswordConfirm": newPassword,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestStaleTokenAfterPasswordChange(t *testing.T) {
	cleanTables(t)

	ctx := t.Context()
	email, password := TestUser("stale")
	_, err := SeedUser(ctx, testDB.Pool, email, password, "user", true)
	require.NoError(t, err)

	resp, err := testServer.Request("POST", "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, err := ExtractJWTFromResponse(resp)
	require.NoError(t, err)

	// Change the password through the authenticated endpoint
	resp, err = testServer.RequestWithAuth("PATCH", "/api/v1/users/update-my-password", token, map[string]string{
		"oldPassword":        password,
		"newPassword":        "ChangedPassword789!",
		"newPasswordConfirm": "ChangedPassword789!",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// The token issued before the change no longer resolves
	resp, err = testServer.RequestWithAuth("GET", "/api/v1/users/me", token, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminGate(t *testing.T) {
	cleanTables(t)

	ctx := t.Context()
	userEmail, userPassword := TestUser("plain")
	_, err := SeedUser(ctx, testDB.Pool, userEmail, userPassword, "user", true)
	require.NoError(t, err)

	adminEmail, adminPassword := TestUser("admin")
	_, err = SeedUser(ctx, testDB.Pool, adminEmail, adminPassword, "admin", true)
	require.NoError(t, err)

	login := func(email, password string) string {
		resp, err := testServer.Request("POST", "/api/v1/auth/login", map[string]string{
			"email":    email,
			"password": password,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		token, err := ExtractJWTFromResponse(resp)
		require.NoError(t, err)
		return token
	}

	userToken := login(userEmail, userPassword)
	adminToken := login(adminEmail, adminPassword)

	resp, err := testServer.RequestWithAuth("GET", "/api/v1/users/all-users", userToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp, err = testServer.RequestWithAuth("GET", "/api/v1/users/all-users", adminToken, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listBody map[string]interface{}
	require.NoError(t, ParseJSONResponse(resp, &listBody))
	assert.EqualValues(t, 2, listBody["results"])
}
