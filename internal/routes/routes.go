package routes

import (
	"net/http"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/handlers"
	"github.com/echopoint/echopoint/internal/middleware"
	"github.com/echopoint/echopoint/internal/models"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Deps carries everything route registration needs.
type Deps struct {
	ErrorHandler   *middleware.ErrorHandler
	TokenManager   *auth.TokenManager
	Pool           database.Querier
	Accounts       auth.AccountReader
	AuthHandler    *handlers.AuthHandler
	UserHandler    *handlers.UserHandler
	PostHandler    *handlers.PostHandler
	CommentHandler *handlers.CommentHandler

	// AuthRateLimit overrides the per-IP limit on credential endpoints.
	// Nil applies the default.
	AuthRateLimit *middleware.RateLimitConfig
}

// RegisterRoutes mounts the versioned API surface. Every handler passes
// through the error boundary; the identity middleware and role gate compose
// inside it.
func RegisterRoutes(router chi.Router, deps Deps) {
	wrap := deps.ErrorHandler.Wrap
	protect := auth.Protect(deps.TokenManager, deps.Pool, deps.Accounts)
	adminOnly := auth.RestrictTo(models.RoleAdmin)

	protected := func(h pkghttp.HandlerFunc) http.Handler {
		return wrap(protect(h))
	}
	admin := func(h pkghttp.HandlerFunc) http.Handler {
		return wrap(protect(adminOnly(h)))
	}

	rateLimitCfg := middleware.DefaultAuthRateLimit()
	if deps.AuthRateLimit != nil {
		rateLimitCfg = *deps.AuthRateLimit
	}
	rateLimit := middleware.RateLimitByIP(rateLimitCfg)

	router.Route("/api/v1", func(r chi.Router) {
		// Public credential endpoints, rate limited per IP
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Method("POST", "/auth/signup", wrap(deps.AuthHandler.Signup))
			r.Method("POST", "/auth/login", wrap(deps.AuthHandler.Login))
			r.Method("POST", "/auth/verify-email", wrap(deps.AuthHandler.VerifyEmail))
			r.Method("POST", "/auth/resend-otp", wrap(deps.AuthHandler.ResendOTP))
			r.Method("POST", "/auth/forgot-password", wrap(deps.AuthHandler.ForgotPassword))
			r.Method("PATCH", "/auth/reset-password/{resetToken}", wrap(deps.AuthHandler.ResetPassword))
		})

		// Authenticated account surface
		r.Method("GET", "/users/me", protected(deps.UserHandler.GetMe))
		r.Method("PATCH", "/users/update-me", protected(deps.UserHandler.UpdateMe))
		r.Method("PATCH", "/users/update-my-password", protected(deps.UserHandler.UpdateMyPassword))
		r.Method("DELETE", "/users/delete-me", protected(deps.UserHandler.DeleteMe))

		// Admin surface
		r.Method("GET", "/users/all-users", admin(deps.UserHandler.GetAllUsers))
		r.Method("GET", "/users/user/{userId}", admin(deps.UserHandler.GetUser))
		r.Method("DELETE", "/users/user/{userId}", admin(deps.UserHandler.DeleteUser))

		// Posts
		r.Method("POST", "/posts", protected(deps.PostHandler.Create))
		r.Method("GET", "/posts", protected(deps.PostHandler.List))
		r.Method("GET", "/posts/{postId}", protected(deps.PostHandler.Get))
		r.Method("PATCH", "/posts/{postId}", protected(deps.PostHandler.Update))
		r.Method("DELETE", "/posts/{postId}", protected(deps.PostHandler.Delete))

		// Comments nested under their post
		r.Method("POST", "/posts/{postId}/comments", protected(deps.CommentHandler.Create))
		r.Method("GET", "/posts/{postId}/comments", protected(deps.CommentHandler.List))
		r.Method("GET", "/posts/{postId}/comments/{commentId}", protected(deps.CommentHandler.Get))
		r.Method("PATCH", "/posts/{postId}/comments/{commentId}", protected(deps.CommentHandler.Update))
		r.Method("DELETE", "/posts/{postId}/comments/{commentId}", protected(deps.CommentHandler.Delete))
	})
}
