// Package session issues time-bounded access tokens for the real-time
// session attached to a booked appointment.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/store"
)

// JoinWindow is how early before the appointment start a token may be
// issued. There is no restriction after the start.
const JoinWindow = 30 * time.Minute

// TokenGrace extends the token past the appointment end, so a running call
// is not cut off at the scheduled boundary.
const TokenGrace = 60 * time.Minute

var (
	ErrNotParty       = errors.New("account is not a party to this appointment")
	ErrNotScheduled   = errors.New("appointment is not scheduled")
	ErrNotProvisioned = errors.New("session has not been provisioned")
	ErrTooEarly       = errors.New("token can only be issued 30 minutes before the start time")
	ErrProvider       = errors.New("session provider failed")
)

// TokenMinter mints a publisher credential for one session with the
// external session provider.
type TokenMinter interface {
	MintToken(ctx context.Context, sessionID string, req TokenRequest) (string, error)
}

type TokenRequest struct {
	Role     string
	ExpireAt time.Time
	// Data is an opaque payload embedded into the token for the session
	// provider to expose to other participants.
	Data string
}

type connectionData struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
}

type IssuedToken struct {
	SessionID string
	Token     string
}

type Issuer struct {
	repo    store.ScheduleRepository
	minter  TokenMinter
	now     func() time.Time
	timeout time.Duration
}

func NewIssuer(repo store.ScheduleRepository, minter TokenMinter, now func() time.Time, timeout time.Duration) *Issuer {
	if now == nil {
		now = time.Now
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Issuer{repo: repo, minter: minter, now: now, timeout: timeout}
}

// IssueToken validates eligibility and mints a fresh token for the acting
// account. The token is persisted onto the appointment before being
// returned; re-issuance simply replaces the stored token.
func (i *Issuer) IssueToken(ctx context.Context, actingAccountID, appointmentID uuid.UUID) (IssuedToken, error) {
	acct, err := i.repo.GetAccount(ctx, actingAccountID)
	if err != nil {
		return IssuedToken{}, err
	}
	appt, err := i.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return IssuedToken{}, err
	}

	if !appt.Party(acct.ID) {
		return IssuedToken{}, ErrNotParty
	}
	if appt.Status != domain.AppointmentStatusScheduled {
		return IssuedToken{}, ErrNotScheduled
	}
	if appt.SessionID == "" {
		return IssuedToken{}, ErrNotProvisioned
	}

	now := i.now().UTC()
	if appt.StartTime.Sub(now) > JoinWindow {
		return IssuedToken{}, ErrTooEarly
	}

	data, err := json.Marshal(connectionData{
		AccountID: acct.ID.String(),
		Name:      acct.Name,
		Role:      string(acct.Role),
	})
	if err != nil {
		return IssuedToken{}, err
	}

	mintCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	token, err := i.minter.MintToken(mintCtx, appt.SessionID, TokenRequest{
		Role:     "publisher",
		ExpireAt: appt.EndTime.Add(TokenGrace),
		Data:     string(data),
	})
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	err = i.repo.InAccountsTransaction(ctx, []uuid.UUID{appt.ProviderID}, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.SetSessionToken(ctx, appt.ID, token)
	})
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{SessionID: appt.SessionID, Token: token}, nil
}
