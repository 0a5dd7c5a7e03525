package authorization

import (
	"errors"
	"testing"
	"time"

	"rental_service/domain"
)

func TestLinkSigner(t *testing.T) {
	signer, err := NewLinkSigner([]byte("test-secret"), time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("ok, token opens the listing it was issued for", func(t *testing.T) {
		token, expiresAt, err := signer.Sign("home-1")
		if err != nil {
			t.Fatal(err)
		}
		if time.Until(expiresAt) > time.Minute {
			t.Errorf("expiry too far ahead: %v", expiresAt)
		}
		if err := signer.Verify(token, "home-1"); err != nil {
			t.Fatalf("expected valid token, got %v", err)
		}
	})

	t.Run("fail, token for another listing", func(t *testing.T) {
		token, _, err := signer.Sign("home-1")
		if err != nil {
			t.Fatal(err)
		}
		if err := signer.Verify(token, "home-2"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("fail, expired token", func(t *testing.T) {
		past, err := NewLinkSigner([]byte("test-secret"), time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, _, err := past.Sign("home-1")
		if err != nil {
			t.Fatal(err)
		}
		if err := signer.Verify(token, "home-1"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("fail, token signed with another secret", func(t *testing.T) {
		other, err := NewLinkSigner([]byte("other-secret"), time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		token, _, err := other.Sign("home-1")
		if err != nil {
			t.Fatal(err)
		}
		if err := signer.Verify(token, "home-1"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("fail, garbage", func(t *testing.T) {
		if err := signer.Verify("not.a.token", "home-1"); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
