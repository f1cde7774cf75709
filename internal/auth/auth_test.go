package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
	"finledger/internal/log"
	"finledger/internal/storage"
)

type capturedMail struct {
	kind  string
	to    string
	token string
}

type fakeMailer struct {
	sent []capturedMail
	err  error
}

func (f *fakeMailer) SendVerification(_ context.Context, to, token string) error {
	f.sent = append(f.sent, capturedMail{"verify", to, token})
	return f.err
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	f.sent = append(f.sent, capturedMail{"password_reset", to, token})
	return f.err
}

func newTestService(t *testing.T) (*Service, *fakeMailer) {
	t.Helper()
	m := &fakeMailer{}
	svc := NewService(storage.NewMemoryStore(), m, 24*time.Hour, log.New(log.DefaultConfig()))
	return svc, m
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"bad email", "not-an-email", "longenough"},
		{"empty email", "", "longenough"},
		{"short password", "ok@example.com", "short"},
	}
	for _, c := range cases {
		if _, err := svc.Register(ctx, c.email, c.password); !core.IsValidation(err) {
			t.Fatalf("%s: expected validation error, got %v", c.name, err)
		}
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "User@Example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "user@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.Verified {
		t.Fatal("new users must start unverified")
	}
	if u.PasswordHash == "password123" {
		t.Fatal("password stored in clear")
	}
	if len(m.sent) != 1 || m.sent[0].kind != "verify" {
		t.Fatalf("expected one verification mail, got %+v", m.sent)
	}

	session, logged, err := svc.Login(ctx, "user@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if logged.ID != u.ID || session.UserID != u.ID {
		t.Fatal("session bound to wrong user")
	}

	id, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.UserID != u.ID || id.Email != u.Email {
		t.Fatalf("wrong identity: %+v", id)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "a@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := []struct {
		email    string
		password string
	}{
		{"a@example.com", "wrongpassword"},
		{"unknown@example.com", "password123"},
	}
	for i, c := range cases {
		if _, _, err := svc.Login(ctx, c.email, c.password); !errors.Is(err, core.ErrUnauthenticated) {
			t.Fatalf("case %d: expected ErrUnauthenticated, got %v", i, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "dup@example.com", "password123"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(ctx, "DUP@example.com", "password123"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "out@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, _, err := svc.Login(ctx, "out@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestVerifyFlow(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "verify@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	token := m.sent[0].token

	u, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !u.Verified {
		t.Fatal("user not marked verified")
	}
	if _, err := svc.Verify(ctx, token); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on token reuse, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "reset@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Unknown address must not error out.
	if err := svc.RequestPasswordReset(ctx, "nobody@example.com"); err != nil {
		t.Fatalf("request for unknown email: %v", err)
	}

	if err := svc.RequestPasswordReset(ctx, "reset@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	var token string
	for _, sent := range m.sent {
		if sent.kind == "password_reset" {
			token = sent.token
		}
	}
	if token == "" {
		t.Fatal("no reset mail enqueued")
	}

	if err := svc.ResetPassword(ctx, token, "newpassword456"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if _, _, err := svc.Login(ctx, "reset@example.com", "password123"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("old password should be rejected, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "reset@example.com", "newpassword456"); err != nil {
		t.Fatalf("new password login: %v", err)
	}

	// Token is single use.
	if err := svc.ResetPassword(ctx, token, "anotherpass789"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on token reuse, got %v", err)
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ttl@example.com", "password123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, _, err := svc.Login(ctx, "ttl@example.com", "password123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	if _, err := svc.Authenticate(ctx, session.Token); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for expired session, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "chg@example.com", "password123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := svc.ChangePassword(ctx, u.ID, "wrongcurrent", "newpassword456"); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for wrong current password, got %v", err)
	}
	if err := svc.ChangePassword(ctx, u.ID, "password123", "newpassword456"); err != nil {
		t.Fatalf("change: %v", err)
	}
	if _, _, err := svc.Login(ctx, "chg@example.com", "newpassword456"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
