package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent records an authentication-flow outcome.
type AuditEvent struct {
	EventType     string // "signup", "login", "verify_email", "resend_otp", "forgot_password", "reset_password"
	UserID        string
	Email         string // masked before logging
	Success       bool
	FailureReason string
}

// AuditLogger emits structured audit records for auth flows.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// LogAuthEvent logs an auth-flow outcome. Email addresses are masked and
// passwords, codes and secrets never reach this type.
func (al *AuditLogger) LogAuthEvent(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
