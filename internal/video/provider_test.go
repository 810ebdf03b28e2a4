package video

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"consultd/internal/service/session"
)

func testKey(t *testing.T) (*rsa.PrivateKey, []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey error: %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return key, pemBytes
}

func TestNewProvider_RejectsBadInput(t *testing.T) {
	_, pemBytes := testKey(t)

	if _, err := NewProvider("", pemBytes, nil); err == nil {
		t.Fatalf("expected error for empty application id")
	}
	if _, err := NewProvider("app", []byte("not a key"), nil); err == nil {
		t.Fatalf("expected error for invalid key")
	}
}

func TestCreateSession_UniqueOpaqueIDs(t *testing.T) {
	_, pemBytes := testKey(t)
	p, err := NewProvider("app", pemBytes, nil)
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}

	a, err := p.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	b, err := p.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}
	if !strings.HasPrefix(a, "1_") {
		t.Fatalf("session id = %q, want 1_ prefix", a)
	}
	if a == b {
		t.Fatalf("expected distinct session ids, got %q twice", a)
	}
}

func TestMintToken_RoundTrip(t *testing.T) {
	key, pemBytes := testKey(t)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	p, err := NewProvider("app-1", pemBytes, func() time.Time { return now })
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}

	expire := now.Add(90 * time.Minute)
	signed, err := p.MintToken(context.Background(), "1_sess", session.TokenRequest{
		Role:     "publisher",
		ExpireAt: expire,
		Data:     `{"name":"Ada"}`,
	})
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}

	var got claims
	parsed, err := jwt.ParseWithClaims(signed, &got, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if !parsed.Valid {
		t.Fatalf("expected valid token")
	}

	if got.Issuer != "app-1" || got.ApplicationID != "app-1" {
		t.Fatalf("issuer/app = %q/%q, want app-1", got.Issuer, got.ApplicationID)
	}
	if got.Scope != "session.connect" {
		t.Fatalf("scope = %q, want session.connect", got.Scope)
	}
	if got.SessionID != "1_sess" {
		t.Fatalf("session id = %q, want 1_sess", got.SessionID)
	}
	if got.Role != "publisher" {
		t.Fatalf("role = %q, want publisher", got.Role)
	}
	if got.ConnectionData != `{"name":"Ada"}` {
		t.Fatalf("connection data = %q", got.ConnectionData)
	}
	if !got.ExpiresAt.Time.Equal(expire) {
		t.Fatalf("expires = %s, want %s", got.ExpiresAt.Time, expire)
	}
	if !got.IssuedAt.Time.Equal(now) {
		t.Fatalf("issued at = %s, want %s", got.IssuedAt.Time, now)
	}
	if got.ID == "" {
		t.Fatalf("expected a jti")
	}
}

func TestMintToken_DefaultsAndErrors(t *testing.T) {
	key, pemBytes := testKey(t)
	p, err := NewProvider("app", pemBytes, nil)
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}

	if _, err := p.MintToken(context.Background(), "", session.TokenRequest{ExpireAt: time.Now().Add(time.Hour)}); err == nil {
		t.Fatalf("expected error for empty session id")
	}

	signed, err := p.MintToken(context.Background(), "1_sess", session.TokenRequest{ExpireAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("MintToken error: %v", err)
	}
	var got claims
	if _, err := jwt.ParseWithClaims(signed, &got, func(tok *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"})); err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if got.Role != "publisher" {
		t.Fatalf("default role = %q, want publisher", got.Role)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.MintToken(cancelled, "1_sess", session.TokenRequest{}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}
