package security

import (
	"testing"
	"time"
)

func TestGenerateVerifyRoundTrip(t *testing.T) {
	opts := DefaultOptions([]byte("roundtrip-secret"))

	token, expireAt, err := Generate(opts, "user_42", []string{"chat"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !expireAt.After(time.Now()) {
		t.Fatalf("expireAt in the past: %v", expireAt)
	}

	claims, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	uid, err := claims.UserID()
	if err != nil {
		t.Fatalf("user id: %v", err)
	}
	if uid != "user_42" {
		t.Fatalf("expected user_42, got %q", uid)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := DefaultOptions([]byte("secret-a"))
	verifier := DefaultOptions([]byte("secret-b"))

	token, _, err := Generate(issuer, "user_1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Verify(verifier, token); err == nil {
		t.Fatal("wrong secret must not verify")
	}
}

func TestVerifyExpired(t *testing.T) {
	opts := DefaultOptions([]byte("expired-secret"))
	opts.TTL = -time.Minute

	token, _, err := Generate(opts, "user_1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := Verify(opts, token); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestVerifyGarbage(t *testing.T) {
	opts := DefaultOptions([]byte("garbage-secret"))
	if _, err := Verify(opts, "not.a.jwt"); err == nil {
		t.Fatal("garbage must not verify")
	}
}

func TestUserIDEmptySubject(t *testing.T) {
	opts := DefaultOptions([]byte("empty-sub-secret"))

	// 空 sub 也能签出来，但 UserID 必须拒绝
	token, _, err := Generate(opts, "", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := Verify(opts, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if _, err := claims.UserID(); err == nil {
		t.Fatal("empty subject must be rejected")
	}
}
