// Package http is the transport layer: routing, middleware, JSON codecs and
// the error-to-status mapping. No business logic lives here.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"finledger/internal/auth"
	"finledger/internal/log"
	"finledger/internal/services"
)

// Services bundles everything the server serves.
type Services struct {
	Auth          *auth.Service
	Users         *services.UserService
	Transactions  *services.TransactionService
	Budgets       *services.BudgetService
	Goals         *services.GoalService
	Subscriptions *services.SubscriptionService
	Accounts      *services.AccountService
	Reports       *services.ReportService
	Billing       *services.BillingService
}

// Server wraps http.Server with the middleware stack and route table.
type Server struct {
	http.Server

	svc           Services
	logger        *log.Logger
	rateLimiter   *rateLimiter
	webhookSecret string
	shutdownOnce  sync.Once
}

// NewServer configures all routes and returns a ready-to-run server.
func NewServer(addr string, svc Services, webhookSecret string, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		svc:           svc,
		logger:        logger.WithComponent(log.ComponentHTTP),
		rateLimiter:   newRateLimiter(),
		webhookSecret: webhookSecret,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("POST /auth/register", s.with(s.handleRegister))
	mux.HandleFunc("POST /auth/login", s.with(s.handleLogin))
	mux.HandleFunc("POST /auth/logout", s.with(s.handleLogout))
	mux.HandleFunc("POST /auth/verify", s.with(s.handleVerify))
	mux.HandleFunc("POST /auth/password-reset/request", s.with(s.handlePasswordResetRequest))
	mux.HandleFunc("POST /auth/password-reset/confirm", s.with(s.handlePasswordResetConfirm))

	mux.HandleFunc("GET /api/me", s.with(s.authed(s.handleMe)))
	mux.HandleFunc("PUT /api/me/preferences", s.with(s.authed(s.handleUpdatePreferences)))
	mux.HandleFunc("PUT /api/me/password", s.with(s.authed(s.handleChangePassword)))

	mux.HandleFunc("GET /api/transactions", s.with(s.authed(s.handleListTransactions)))
	mux.HandleFunc("POST /api/transactions", s.with(s.authed(s.handleCreateTransaction)))
	mux.HandleFunc("GET /api/transactions/{id}", s.with(s.authed(s.handleGetTransaction)))
	mux.HandleFunc("PUT /api/transactions/{id}", s.with(s.authed(s.handleUpdateTransaction)))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.with(s.authed(s.handleDeleteTransaction)))

	mux.HandleFunc("GET /api/budgets", s.with(s.authed(s.handleGetBudgets)))
	mux.HandleFunc("POST /api/budgets", s.with(s.authed(s.handleCreateBudget)))
	mux.HandleFunc("PUT /api/budgets/{id}", s.with(s.authed(s.handleUpdateBudget)))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.with(s.authed(s.handleDeleteBudget)))

	mux.HandleFunc("GET /api/goals", s.with(s.authed(s.handleListGoals)))
	mux.HandleFunc("POST /api/goals", s.with(s.authed(s.handleCreateGoal)))
	mux.HandleFunc("PUT /api/goals/{id}", s.with(s.authed(s.handleUpdateGoal)))
	mux.HandleFunc("DELETE /api/goals/{id}", s.with(s.authed(s.handleDeleteGoal)))
	mux.HandleFunc("POST /api/goals/{id}/funds", s.with(s.authed(s.handleAddGoalFunds)))

	mux.HandleFunc("GET /api/subscriptions", s.with(s.authed(s.handleListSubscriptions)))
	mux.HandleFunc("POST /api/subscriptions", s.with(s.authed(s.handleCreateSubscription)))
	mux.HandleFunc("PUT /api/subscriptions/{id}", s.with(s.authed(s.handleUpdateSubscription)))
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.with(s.authed(s.handleDeleteSubscription)))
	mux.HandleFunc("GET /api/subscriptions/monthly-cost", s.with(s.authed(s.handleSubscriptionMonthlyCost)))

	mux.HandleFunc("GET /api/accounts", s.with(s.authed(s.handleListAccounts)))
	mux.HandleFunc("POST /api/accounts", s.with(s.authed(s.handleCreateAccount)))
	mux.HandleFunc("PUT /api/accounts/{id}", s.with(s.authed(s.handleUpdateAccount)))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.with(s.authed(s.handleDeleteAccount)))

	mux.HandleFunc("GET /api/reports/summary", s.with(s.authed(s.handleReportSummary)))

	mux.HandleFunc("POST /webhooks/billing", s.with(s.handleBillingWebhook))

	return s
}

// with is the common middleware: request id, structured request logging,
// security headers, and rate limiting on mutating methods.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodDelete:
			if !s.rateLimiter.allow(clientIP) {
				s.logger.WarnContext(ctx, "rate limit exceeded",
					log.FieldRequestID, requestID,
					log.FieldClientIP, clientIP,
					log.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

type requestIDKey struct{}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// Shutdown stops the listener and the rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
