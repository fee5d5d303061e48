package handlers

import (
	"context"
	"net/http"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/models"
	"github.com/echopoint/echopoint/internal/repositories"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserFlows is the account surface behind the identity middleware.
type UserFlows interface {
	GetMe(ctx context.Context, userID string) (*models.PublicUser, error)
	UpdateMe(ctx context.Context, userID, name string) (*models.PublicUser, error)
	UpdateMyPassword(ctx context.Context, userID, oldPassword, newPassword string) error
	DeleteMe(ctx context.Context, userID, confirmEmail, confirmPassword string) error
	GetUser(ctx context.Context, userID string) (*models.PublicUser, error)
	GetAllUsers(ctx context.Context, opts repositories.ListOptions) ([]*models.PublicUser, error)
	DeleteUser(ctx context.Context, userID string) error
}

type UserHandler struct {
	flows     UserFlows
	cookieCfg auth.CookieConfig
}

func NewUserHandler(flows UserFlows, cookieCfg auth.CookieConfig) *UserHandler {
	return &UserHandler{flows: flows, cookieCfg: cookieCfg}
}

type UpdateMeRequest struct {
	Name string `json:"name" validate:"required,min=1"`
}

type UpdateMyPasswordRequest struct {
	OldPassword        string `json:"oldPassword" validate:"required"`
	NewPassword        string `json:"newPassword" validate:"required,min=6"`
	NewPasswordConfirm string `json:"newPasswordConfirm" validate:"required,eqfield=NewPassword"`
}

type DeleteMeRequest struct {
	ConfirmEmail    string `json:"confirmEmail" validate:"required,email"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

func identityOrErr(r *http.Request) (*models.Identity, error) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil, models.NewUnauthorizedError("Token not found. Please log in again.")
	}
	return identity, nil
}

func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	me, err := h.flows.GetMe(r.Context(), identity.ID)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"me": me})
	return nil
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	var req UpdateMeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	user, err := h.flows.UpdateMe(r.Context(), identity.ID, req.Name)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, user)
	return nil
}

func (h *UserHandler) UpdateMyPassword(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	var req UpdateMyPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.UpdateMyPassword(r.Context(), identity.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, &models.PublicUser{
		ID: identity.ID, Name: identity.Name, Email: identity.Email,
	})
	return nil
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) error {
	identity, err := identityOrErr(r)
	if err != nil {
		return err
	}

	var req DeleteMeRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}

	if err := h.flows.DeleteMe(r.Context(), identity.ID, req.ConfirmEmail, req.ConfirmPassword); err != nil {
		return err
	}

	auth.ClearJWTCookie(w, h.cookieCfg)
	pkghttp.WriteMessage(w, http.StatusOK, "Account deleted successfully. You can recover within 30 days.")
	return nil
}

// Admin surface

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		return models.NewValidationError("User id is required.")
	}

	user, err := h.flows.GetUser(r.Context(), userID)
	if err != nil {
		return err
	}

	pkghttp.WriteData(w, http.StatusOK, map[string]interface{}{"user": user})
	return nil
}

func (h *UserHandler) GetAllUsers(w http.ResponseWriter, r *http.Request) error {
	opts, err := repositories.ParseUserListOptions(r.URL.Query())
	if err != nil {
		return err
	}

	users, err := h.flows.GetAllUsers(r.Context(), opts)
	if err != nil {
		return err
	}

	projected, err := repositories.ProjectFields(users, opts.Fields)
	if err != nil {
		return err
	}

	pkghttp.WriteJSON(w, http.StatusOK, pkghttp.Envelope{
		Status:  pkghttp.StatusSuccess,
		Results: len(users),
		Data:    map[string]interface{}{"users": projected},
	})
	return nil
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) error {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		return models.NewValidationError("User id is required.")
	}

	if err := h.flows.DeleteUser(r.Context(), userID); err != nil {
		return err
	}

	pkghttp.WriteMessage(w, http.StatusOK, "User deleted successfully.")
	return nil
}
