// Package auth owns identity: registration, credentials, bearer sessions and
// the email verification / password reset flows. Handlers downstream only
// ever see an Identity.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"finledger/internal/core"
	"finledger/internal/log"
	mailer "finledger/internal/mail"
	"finledger/internal/storage"
)

const resetTokenTTL = time.Hour

// Identity is the authenticated caller attached to a request.
type Identity struct {
	UserID int64
	Email  string
}

// Store is the slice of the entity store auth needs.
type Store interface {
	storage.UserStore
	storage.SessionStore
	storage.PasswordResetStore
}

// Service implements the identity flows against a Store.
type Service struct {
	store      Store
	mailer     mailer.Mailer
	sessionTTL time.Duration
	logger     *log.Logger
	now        func() time.Time
}

func NewService(store Store, m mailer.Mailer, sessionTTL time.Duration, logger *log.Logger) *Service {
	return &Service{
		store:      store,
		mailer:     m,
		sessionTTL: sessionTTL,
		logger:     logger.WithComponent(log.ComponentAuth),
		now:        time.Now,
	}
}

// Register creates an unverified account and enqueues the verification mail.
// Mail delivery is best effort; a dead broker must not block signup.
func (s *Service) Register(ctx context.Context, email, password string) (*core.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, core.Invalidf("email", "must be a valid email address")
	}
	if len(password) < 8 {
		return nil, core.Invalidf("password", "must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &core.User{
		Email:        email,
		PasswordHash: string(hash),
		Plan:         core.PlanFree,
		Preferences: core.Preferences{
			Currency:   "USD",
			Locale:     "en",
			Theme:      "light",
			DateFormat: "YYYY-MM-DD",
		},
		VerifyToken: uuid.NewString(),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, u.Email, u.VerifyToken); err != nil {
		s.logger.WarnContext(ctx, "verification mail not enqueued",
			log.FieldUserID, u.ID,
			log.FieldError, err)
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, u.ID)
	return u, nil
}

// Login checks credentials and mints a bearer session. Wrong email and wrong
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*core.Session, *core.User, error) {
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, nil, core.ErrUnauthenticated
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, nil, core.ErrUnauthenticated
	}

	session := core.Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, u.ID)
	return &session, u, nil
}

// Logout invalidates the session token. Unknown tokens are a no-op.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// Verify confirms the email address bound to the token.
func (s *Service) Verify(ctx context.Context, token string) (*core.User, error) {
	u, err := s.store.VerifyUser(ctx, token)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user verified", log.FieldUserID, u.ID)
	return u, nil
}

// RequestPasswordReset enqueues a reset mail. It succeeds for unknown
// addresses too, so the endpoint never confirms whether an email exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}

	pr := core.PasswordReset{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(resetTokenTTL),
	}
	if err := s.store.CreatePasswordReset(ctx, pr); err != nil {
		return err
	}

	if err := s.mailer.SendPasswordReset(ctx, u.Email, pr.Token); err != nil {
		s.logger.WarnContext(ctx, "reset mail not enqueued",
			log.FieldUserID, u.ID,
			log.FieldError, err)
	}
	return nil
}

// ResetPassword consumes a reset token and replaces the password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return core.Invalidf("password", "must be at least 8 characters")
	}

	userID, err := s.store.ConsumePasswordReset(ctx, token, s.now())
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password reset", log.FieldUserID, userID)
	return nil
}

// ChangePassword replaces the password for a logged-in user after checking
// the current one.
func (s *Service) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	if len(next) < 8 {
		return core.Invalidf("password", "must be at least 8 characters")
	}

	u, err := s.store.UserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return core.ErrUnauthenticated
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, string(hash))
}

// Authenticate resolves a bearer token to its identity. Unknown and expired
// tokens are both core.ErrUnauthenticated.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}
	session, err := s.store.SessionByToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, err
	}
	u, err := s.store.UserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ErrUnauthenticated
		}
		return nil, err
	}
	return &Identity{UserID: u.ID, Email: u.Email}, nil
}
