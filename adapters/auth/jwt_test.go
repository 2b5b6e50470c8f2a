package auth_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/revmura/revmura-suite/adapters/auth"
	"github.com/revmura/revmura-suite/adapters/clock"
	"github.com/revmura/revmura-suite/adapters/idgen"
)

func newService(secret string, exp time.Duration) (*auth.TokenService, *clock.Fake) {
	c := clock.NewFake(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	return auth.NewTokenService(secret, exp, idgen.NewSequential("jti_"), c), c
}

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc, _ := newService("secret", time.Hour)

	token, expiresAt, err := svc.Issue("admin", auth.RoleOperator)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token %q is not a compact JWT", token)
	}
	if want := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC); !expiresAt.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", expiresAt, want)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.Actor != "admin" || claims.Role != auth.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}
	if claims.ID != "jti_1" || claims.Issuer != auth.Issuer {
		t.Errorf("registered claims = %+v", claims.RegisteredClaims)
	}
}

func TestTokenService_DefaultExpiration(t *testing.T) {
	svc, c := newService("secret", 0)

	_, expiresAt, err := svc.Issue("admin", auth.RoleOperator)
	if err != nil {
		t.Fatal(err)
	}
	if got := expiresAt.Sub(c.Now()); got != 12*time.Hour {
		t.Errorf("expiration = %v, want 12h", got)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc, c := newService("secret", time.Hour)

	token, _, _ := svc.Issue("admin", auth.RoleOperator)
	c.Advance(2 * time.Hour)

	if _, err := svc.Verify(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Verify expired = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	a, _ := newService("secret-a", time.Hour)
	b, _ := newService("secret-b", time.Hour)

	token, _, _ := a.Issue("admin", auth.RoleOperator)
	if _, err := b.Verify(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Verify with other secret = %v, want ErrInvalidToken", err)
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc, _ := newService("", time.Hour)

	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := svc.Verify(tok); err == nil {
			t.Errorf("Verify(%q) should fail", tok)
		}
	}
}

func TestGenerateSecret(t *testing.T) {
	a := auth.GenerateSecret()
	b := auth.GenerateSecret()
	if len(a) != 64 || a == b {
		t.Errorf("secrets %q %q should be distinct 64-char hex", a, b)
	}
}

func TestContextAuthorizer(t *testing.T) {
	var authz auth.ContextAuthorizer
	ctx := context.Background()

	if authz.MayAdminister(ctx) {
		t.Error("anonymous context must not administer")
	}
	if authz.MayAdminister(auth.WithActor(ctx, auth.Actor{Name: "v", Role: auth.RoleViewer})) {
		t.Error("viewer must not administer")
	}
	if !authz.MayAdminister(auth.WithActor(ctx, auth.LocalOperator)) {
		t.Error("operator should administer")
	}

	a, ok := auth.ActorFrom(auth.WithActor(ctx, auth.LocalOperator))
	if !ok || a.Via != "local" {
		t.Errorf("ActorFrom = %+v, %v", a, ok)
	}
}
