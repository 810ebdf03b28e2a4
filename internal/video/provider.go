// Package video implements the session provider as a local signer of
// Vonage-style client tokens: a session is an opaque channel identifier and
// a token is a signed JWT scoped to one session.
package video

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"consultd/internal/service/session"
)

type Provider struct {
	applicationID string
	key           *rsa.PrivateKey
	now           func() time.Time
}

type claims struct {
	jwt.RegisteredClaims
	ApplicationID  string `json:"application_id"`
	Scope          string `json:"scope"`
	SessionID      string `json:"session_id"`
	Role           string `json:"role"`
	ConnectionData string `json:"connection_data,omitempty"`
}

func NewProvider(applicationID string, privateKeyPEM []byte, now func() time.Time) (*Provider, error) {
	if applicationID == "" {
		return nil, errors.New("application id is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{applicationID: applicationID, key: key, now: now}, nil
}

// CreateSession allocates a new opaque session identifier. Session state
// lives entirely with the media plane; nothing is stored here.
func (p *Provider) CreateSession(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return "1_" + id.String(), nil
}

func (p *Provider) MintToken(ctx context.Context, sessionID string, req session.TokenRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if sessionID == "" {
		return "", errors.New("session id is required")
	}
	role := req.Role
	if role == "" {
		role = "publisher"
	}

	now := p.now().UTC()
	jti, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    p.applicationID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(req.ExpireAt.UTC()),
			ID:        jti.String(),
		},
		ApplicationID:  p.applicationID,
		Scope:          "session.connect",
		SessionID:      sessionID,
		Role:           role,
		ConnectionData: req.Data,
	})

	signed, err := token.SignedString(p.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
