package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/models"
	pkghttp "github.com/echopoint/echopoint/pkg/http"
)

// ErrorHandler is the single error boundary for the request pipeline. It
// installs the per-request transactional carrier, rolls back anything left
// open, recovers panics, and renders every failure as an error envelope.
type ErrorHandler struct {
	logger     *slog.Logger
	production bool
}

func NewErrorHandler(logger *slog.Logger, env string) *ErrorHandler {
	return &ErrorHandler{
		logger:     logger,
		production: env == "production",
	}
}

// Wrap adapts an error-returning handler into an http.Handler. No other
// layer writes error responses.
func (h *ErrorHandler) Wrap(next pkghttp.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := database.WithCarrier(r.Context())
		r = r.WithContext(ctx)

		defer database.RollbackOpen(ctx)

		defer func() {
			if rec := recover(); rec != nil {
				h.logger.Error("panic recovered",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				h.render(w, r, models.NewInternalError("Something went wrong"))
			}
		}()

		if err := next(w, r); err != nil {
			h.render(w, r, err)
		}
	})
}

func (h *ErrorHandler) render(w http.ResponseWriter, r *http.Request, err error) {
	err = database.MapPostgresError(err)

	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError(err.Error())
	}

	if !appErr.Operational {
		h.logger.Error("unexpected error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", appErr.Message),
		)
	}

	message := appErr.Message
	if h.production && !appErr.Operational {
		message = "Something went wrong"
	}

	pkghttp.WriteError(w, appErr.StatusCode, message)
}
