package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snapselect/snapselect/internal/config"
	"github.com/snapselect/snapselect/internal/repository"
	"github.com/snapselect/snapselect/pkg/testutil"
)

func newAuthFixture(t *testing.T) (*AuthService, func()) {
	t.Helper()

	db, _, cleanup := testutil.SetupTest(t)
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = strings.Repeat("x", 32)
	cfg.Auth.TokenTTL = 24
	cfg.Auth.DefaultPlan = "free"
	return NewAuthService(repository.NewPhotographerRepository(db), cfg), cleanup
}

func TestRegisterAndLogin(t *testing.T) {
	svc, cleanup := newAuthFixture(t)
	defer cleanup()

	photographer, token, err := svc.Register("Ana@Example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if photographer.Email != "ana@example.com" {
		t.Fatalf("email = %q, want canonicalized lowercase", photographer.Email)
	}
	if photographer.PlanID != "free" {
		t.Fatalf("plan = %q, want free", photographer.PlanID)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.PhotographerID != photographer.ID {
		t.Fatalf("claims subject = %q, want %q", claims.PhotographerID, photographer.ID)
	}

	// Login is case-insensitive on email.
	loggedIn, _, err := svc.Login("ANA@example.COM", "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if loggedIn.ID != photographer.ID {
		t.Fatalf("logged in as %q, want %q", loggedIn.ID, photographer.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, cleanup := newAuthFixture(t)
	defer cleanup()

	if _, _, err := svc.Register("ana@example.com", "password-one"); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, _, err := svc.Register("Ana@example.com", "password-two"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate register error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, cleanup := newAuthFixture(t)
	defer cleanup()

	if _, _, err := svc.Register("ana@example.com", "correct horse battery"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login("ana@example.com", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email error = %v, want ErrInvalidCredentials", err)
	}
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, cleanup := newAuthFixture(t)
	defer cleanup()

	photographer, token, err := svc.Register("ana@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.ValidateToken(token + "x"); err == nil {
		t.Fatal("expected a mangled token to fail validation")
	}

	// A token signed with a different key must not validate.
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		PhotographerID: photographer.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := foreign.SignedString([]byte(strings.Repeat("y", 32)))
	if err != nil {
		t.Fatalf("sign foreign token: %v", err)
	}
	if _, err := svc.ValidateToken(signed); err == nil {
		t.Fatal("expected a foreign-key token to fail validation")
	}

	// An unsigned token must not validate either.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{PhotographerID: photographer.ID})
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := svc.ValidateToken(raw); err == nil {
		t.Fatal("expected an alg=none token to fail validation")
	}
}

func TestGetByID(t *testing.T) {
	svc, cleanup := newAuthFixture(t)
	defer cleanup()

	photographer, _, err := svc.Register("ana@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := svc.GetByID(photographer.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Email != photographer.Email {
		t.Fatalf("email = %q", got.Email)
	}
	if _, err := svc.GetByID("missing"); !errors.Is(err, ErrPhotographerNotFound) {
		t.Fatalf("missing error = %v, want ErrPhotographerNotFound", err)
	}
}
