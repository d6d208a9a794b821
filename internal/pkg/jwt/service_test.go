package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService(now time.Time) *HMACService {
	s := NewHMACService("skill-registry", "access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestAccessTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(now)
	level := uuid.New()
	sub := Subject{UserID: uuid.New(), Email: "ana@example.com", AccessLevelID: &level}

	tok, err := s.GenerateAccessToken(sub)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	c, err := s.ValidateToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if c.UserID != sub.UserID || c.Email != sub.Email || c.AccessLevelID == nil || *c.AccessLevelID != level {
		t.Fatalf("unexpected claims %+v", c)
	}
	if s.IsRefreshToken(c) || c.Subject != sub.UserID.String() || c.Issuer != "skill-registry" {
		t.Fatalf("unexpected registered claims %+v", c.RegisteredClaims)
	}
}

func TestRefreshToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(now)
	id := uuid.New()

	tok, err := s.GenerateRefreshToken(id)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	c, err := s.ValidateToken(tok)
	if err != nil || !s.IsRefreshToken(c) || c.UserID != id {
		t.Fatalf("unexpected claims %+v err=%v", c, err)
	}
}

func TestExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(now)
	tok, err := s.GenerateAccessToken(Subject{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	s.now = func() time.Time { return now.Add(time.Hour) }
	if _, err := s.ValidateToken(tok); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestForeignTokensRejected(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newTestService(now)

	other := NewHMACService("skill-registry", "other", "other-refresh", time.Hour, time.Hour)
	other.now = s.now
	tok, err := other.GenerateAccessToken(Subject{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := s.ValidateToken(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign secret, got %v", err)
	}

	wrongIssuer := NewHMACService("someone-else", "access-secret", "refresh-secret", time.Hour, time.Hour)
	wrongIssuer.now = s.now
	tok, err = wrongIssuer.GenerateAccessToken(Subject{UserID: uuid.New()})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := s.ValidateToken(tok); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign issuer, got %v", err)
	}

	if _, err := s.ValidateToken("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestMissingSecretCannotSign(t *testing.T) {
	s := NewHMACService("", "", "refresh", time.Minute, time.Minute)
	if _, err := s.GenerateAccessToken(Subject{UserID: uuid.New()}); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}
