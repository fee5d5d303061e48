package handlers

import (
	"context"
	"net/http"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/models"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AuthFlows is the credential surface the handler exposes over HTTP.
type AuthFlows interface {
	Signup(ctx context.Context, name, email, password string) (*models.PublicUser, error)
	Login(ctx context.Context, email, password string) (string, *models.PublicUser, error)
	VerifyEmail(ctx context.Context, email, candidateOTP string) error
	ResendOTP(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, email, newPassword string) error
}

type AuthHandler struct {
	flows     AuthFlows
	cookieCfg auth.CookieConfig
}

func NewAuthHandler(flows AuthFlows, cookieCfg auth.CookieConfig) *AuthHandler {
	return &AuthHandler{flows: flows, cookieCfg: cookieCfg}
}

// Request DTOs

type SignupRequest struct {
	Name            string `json:"name" validate:"required,min=1"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Email        string `json:"email" validate:"required,email"`
	CandidateOTP string `json:"candidateOtp" validate:"required,len=6"`
}

type EmailOnlyRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Email              string `json:"email" validate:"required,email"`
	NewPassword        string `json:"newPassword" validate:"required,min=6"`
	NewPasswordConfirm string `json:"newPasswordConfirm" validate:"required,eqfield=NewPassword"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) error {
	var req SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	user, err := h.flows.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	pkghttp.WriteJSON(w, http.StatusCreated, pkghttp.Envelope{
		Status:  pkghttp.StatusSuccess,
		Message: "Sign up successful. Please check your email for verification OTP.",
		Data:    map[string]interface{}{"user": user},
	})
	return nil
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) error {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	token, user, err := h.flows.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	auth.SetJWTCookie(w, token, h.cookieCfg)
	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		Status: pkghttp.StatusSuccess,
		JWT:    token,
		Data:   user,
	})
	return nil
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) error {
	var req VerifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.VerifyEmail(r.Context(), req.Email, req.CandidateOTP); err != nil {
		return err
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Email verified successfully. Please sign in.")
	return nil
}

func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) error {
	var req EmailOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.ResendOTP(r.Context(), req.Email); err != nil {
		return err
	}

	pkghttp.WriteMessage(w, http.StatusCreated, "We've sent you the requested OTP. Please check your email.")
	return nil
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	var req EmailOnlyRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.ForgotPassword(r.Context(), req.Email); err != nil {
		return err
	}

	// the same message goes out whether or not delivery worked
	pkghttp.WriteMessage(w, http.StatusOK, "Password reset token has been successfully sent to your email.")
	return nil
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	resetToken := chi.URLParam(r, "resetToken")
	if resetToken == "" {
		return models.NewValidationError("Reset token is required.")
	}

	var req ResetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.ResetPassword(r.Context(), resetToken, req.Email, req.NewPassword); err != nil {
		return err
	}

	pkghttp.WriteMessage(w, http.StatusOK, "New password created successfully. Please sign in.")
	return nil
}
