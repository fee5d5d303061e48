package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/echopoint/echopoint/internal/auth"
	"github.com/echopoint/echopoint/internal/database"
	"github.com/echopoint/echopoint/internal/handlers"
	middlewareCustom "github.com/echopoint/echopoint/internal/middleware"
	"github.com/echopoint/echopoint/internal/repositories"
	"github.com/echopoint/echopoint/internal/routes"
	"github.com/echopoint/echopoint/internal/services"
	pkglogger "github.com/echopoint/echopoint/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

func (m *MockEmailService) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SentEmails = append(m.SentEmails, SentEmail{To: to, Subject: subject, Body: body})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with the database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
	logger       *slog.Logger
}

// NewTestServer initializes a complete HTTP server with a real database and mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	userRepo := repositories.NewUserRepository()
	postRepo := repositories.NewPostRepository()
	commentRepo := repositories.NewCommentRepository()

	mockEmail := &MockEmailService{
		SentEmails: []SentEmail{},
	}

	tokenManager := auth.NewTokenManager("test-secret-32-characters-long-for-testing", 15*time.Minute)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(
		db,
		userRepo,
		mockEmail,
		tokenManager,
		"http://localhost:5000",
		2*time.Second,
		logger,
		auditLogger,
	)
	userService := services.NewUserService(db.Pool, db, userRepo, logger, auditLogger)
	postService := services.NewPostService(db.Pool, db, postRepo)
	commentService := services.NewCommentService(db.Pool, db, commentRepo, postRepo)

	cookieCfg := auth.CookieConfig{ExpiresDays: 1, Secure: false}
	authHandler := handlers.NewAuthHandler(authService, cookieCfg)
	userHandler := handlers.NewUserHandler(userService, cookieCfg)
	postHandler := handlers.NewPostHandler(postService)
	commentHandler := handlers.NewCommentHandler(commentService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Permissive limit so suites can hammer the credential endpoints
	rateLimit := middlewareCustom.RateLimitConfig{RequestsPerMinute: 10000}

	routes.RegisterRoutes(r, routes.Deps{
		ErrorHandler:   middlewareCustom.NewErrorHandler(logger, "test"),
		TokenManager:   tokenManager,
		Pool:           db.Pool,
		Accounts:       userRepo,
		AuthHandler:    authHandler,
		UserHandler:    userHandler,
		PostHandler:    postHandler,
		CommentHandler: commentHandler,
		AuthRateLimit:  &rateLimit,
	})

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		logger:       logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractJWTFromResponse pulls the bearer token from a login response
func ExtractJWTFromResponse(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	var loginResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", err
	}

	if token, ok := loginResp["jwt"].(string); ok {
		return token, nil
	}
	return "", nil
}

// GetErrorMessage extracts the error message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
