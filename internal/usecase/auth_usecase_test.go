package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"skill-registry/internal/pkg/jwt"
	ucauth "skill-registry/internal/usecase/auth"
)

func TestAuth_RegisterLoginRefresh(t *testing.T) {
	f := newFixture()
	svc := jwt.NewHMACService("test", "access", "refresh", time.Minute, time.Hour)
	u := NewAuthUsecase(f.users, f.levels, svc, "")
	ctx := context.Background()

	usr, access, refresh, err := u.Register(ctx, ucauth.RegisterInput{Email: "ana@example.com", Password: "secret"})
	if err != nil || access == "" || refresh == "" {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := u.Refresh(ctx, access); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("access token must not refresh, got %v", err)
	}

	newAccess, newRefresh, err := u.Refresh(ctx, refresh)
	if err != nil || newAccess == "" || newRefresh == "" {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := svc.ValidateToken(newAccess)
	if err != nil || claims.UserID != usr.ID {
		t.Fatalf("unexpected claims %+v err=%v", claims, err)
	}

	if _, _, _, err := u.Login(ctx, ucauth.LoginInput{Email: "ana@example.com", Password: "nope!!"}); !errors.Is(err, ucauth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := u.Refresh(ctx, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuth_RefreshForDeletedUser(t *testing.T) {
	f := newFixture()
	svc := jwt.NewHMACService("test", "access", "refresh", time.Minute, time.Hour)
	u := NewAuthUsecase(f.users, f.levels, svc, "")

	ghost := f.addUser("ghost@example.com")
	tok, _ := svc.GenerateRefreshToken(ghost.ID)
	f.store.mu.Lock()
	delete(f.store.users, ghost.ID)
	f.store.mu.Unlock()

	if _, _, err := u.Refresh(context.Background(), tok); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}
