package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"consultd/internal/domain"
	"consultd/internal/store"
	"consultd/internal/store/memory"
)

type fakeMinter struct {
	lastSessionID string
	lastReq       TokenRequest
	calls         int
	err           error
}

func (f *fakeMinter) MintToken(ctx context.Context, sessionID string, req TokenRequest) (string, error) {
	f.calls++
	f.lastSessionID = sessionID
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("tok-%d", f.calls), nil
}

type issuerEnv struct {
	issuer    *Issuer
	repo      *memory.ScheduleRepo
	minter    *fakeMinter
	now       time.Time
	provider  domain.Account
	requester domain.Account
	appt      domain.Appointment
}

func newIssuerEnv(t *testing.T) *issuerEnv {
	t.Helper()

	env := &issuerEnv{
		repo:   memory.NewScheduleRepo(),
		minter: &fakeMinter{},
	}

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	env.now = start.Add(-10 * time.Minute)
	env.issuer = NewIssuer(env.repo, env.minter, func() time.Time { return env.now }, 0)

	ctx := context.Background()
	err := env.repo.InAccountsTransaction(ctx, nil, func(ctx context.Context, tx store.ScheduleTx) error {
		provider, err := tx.InsertAccount(ctx, domain.Account{
			Role:      domain.AccountRoleProvider,
			Name:      "Dr. Okafor",
			Specialty: "cardiology",
		})
		if err != nil {
			return err
		}
		requester, err := tx.InsertAccount(ctx, domain.Account{
			Role: domain.AccountRoleRequester,
			Name: "Ada",
		})
		if err != nil {
			return err
		}
		appt, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID:  provider.ID,
			RequesterID: requester.ID,
			StartTime:   start,
			EndTime:     start.Add(30 * time.Minute),
			Status:      domain.AppointmentStatusScheduled,
			SessionID:   "1_sess",
		})
		if err != nil {
			return err
		}
		env.provider = provider
		env.requester = requester
		env.appt = appt
		return nil
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}
	return env
}

func TestIssueToken_MintsPersistsAndEmbedsIdentity(t *testing.T) {
	env := newIssuerEnv(t)

	issued, err := env.issuer.IssueToken(context.Background(), env.requester.ID, env.appt.ID)
	if err != nil {
		t.Fatalf("IssueToken error: %v", err)
	}
	if issued.SessionID != "1_sess" {
		t.Fatalf("session id = %q, want %q", issued.SessionID, "1_sess")
	}
	if issued.Token != "tok-1" {
		t.Fatalf("token = %q, want %q", issued.Token, "tok-1")
	}

	if env.minter.lastSessionID != "1_sess" {
		t.Fatalf("minted session = %q, want %q", env.minter.lastSessionID, "1_sess")
	}
	if env.minter.lastReq.Role != "publisher" {
		t.Fatalf("role = %q, want publisher", env.minter.lastReq.Role)
	}
	wantExpire := env.appt.EndTime.Add(TokenGrace)
	if !env.minter.lastReq.ExpireAt.Equal(wantExpire) {
		t.Fatalf("expire = %s, want %s", env.minter.lastReq.ExpireAt, wantExpire)
	}

	var data struct {
		AccountID string `json:"account_id"`
		Name      string `json:"name"`
		Role      string `json:"role"`
	}
	if err := json.Unmarshal([]byte(env.minter.lastReq.Data), &data); err != nil {
		t.Fatalf("connection data unmarshal error: %v", err)
	}
	if data.AccountID != env.requester.ID.String() || data.Name != "Ada" || data.Role != "requester" {
		t.Fatalf("connection data = %+v", data)
	}

	appt, err := env.repo.GetAppointment(context.Background(), env.appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment error: %v", err)
	}
	if appt.SessionToken != "tok-1" {
		t.Fatalf("stored token = %q, want %q", appt.SessionToken, "tok-1")
	}
}

func TestIssueToken_ReissueReplacesStoredToken(t *testing.T) {
	env := newIssuerEnv(t)
	ctx := context.Background()

	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, env.appt.ID); err != nil {
		t.Fatalf("first IssueToken error: %v", err)
	}
	issued, err := env.issuer.IssueToken(ctx, env.provider.ID, env.appt.ID)
	if err != nil {
		t.Fatalf("second IssueToken error: %v", err)
	}
	if issued.Token != "tok-2" {
		t.Fatalf("token = %q, want %q", issued.Token, "tok-2")
	}

	appt, err := env.repo.GetAppointment(ctx, env.appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment error: %v", err)
	}
	if appt.SessionToken != "tok-2" {
		t.Fatalf("stored token = %q, want %q", appt.SessionToken, "tok-2")
	}
}

func TestIssueToken_JoinWindowBoundary(t *testing.T) {
	env := newIssuerEnv(t)
	ctx := context.Background()

	env.now = env.appt.StartTime.Add(-JoinWindow - time.Minute)
	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, env.appt.ID); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("err = %v, want %v", err, ErrTooEarly)
	}

	// exactly at the window edge
	env.now = env.appt.StartTime.Add(-JoinWindow)
	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, env.appt.ID); err != nil {
		t.Fatalf("IssueToken at window edge error: %v", err)
	}

	// after the start time is always allowed while scheduled
	env.now = env.appt.StartTime.Add(10 * time.Minute)
	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, env.appt.ID); err != nil {
		t.Fatalf("IssueToken after start error: %v", err)
	}
}

func TestIssueToken_RequiresParty(t *testing.T) {
	env := newIssuerEnv(t)
	ctx := context.Background()

	var stranger domain.Account
	err := env.repo.InAccountsTransaction(ctx, nil, func(ctx context.Context, tx store.ScheduleTx) error {
		acct, err := tx.InsertAccount(ctx, domain.Account{Role: domain.AccountRoleRequester, Name: "Chi"})
		stranger = acct
		return err
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	if _, err := env.issuer.IssueToken(ctx, stranger.ID, env.appt.ID); !errors.Is(err, ErrNotParty) {
		t.Fatalf("err = %v, want %v", err, ErrNotParty)
	}
	if env.minter.calls != 0 {
		t.Fatalf("minter calls = %d, want 0", env.minter.calls)
	}
}

func TestIssueToken_RequiresScheduledStatus(t *testing.T) {
	env := newIssuerEnv(t)
	ctx := context.Background()

	err := env.repo.InAccountsTransaction(ctx, nil, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.TransitionAppointment(ctx, env.appt.ID, domain.AppointmentStatusScheduled, domain.AppointmentStatusCancelled)
	})
	if err != nil {
		t.Fatalf("transition error: %v", err)
	}

	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, env.appt.ID); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("err = %v, want %v", err, ErrNotScheduled)
	}
}

func TestIssueToken_RequiresProvisionedSession(t *testing.T) {
	env := newIssuerEnv(t)
	ctx := context.Background()

	var bare domain.Appointment
	err := env.repo.InAccountsTransaction(ctx, nil, func(ctx context.Context, tx store.ScheduleTx) error {
		appt, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID:  env.provider.ID,
			RequesterID: env.requester.ID,
			StartTime:   env.appt.EndTime,
			EndTime:     env.appt.EndTime.Add(30 * time.Minute),
			Status:      domain.AppointmentStatusScheduled,
		})
		bare = appt
		return err
	})
	if err != nil {
		t.Fatalf("seed error: %v", err)
	}

	env.now = bare.StartTime
	if _, err := env.issuer.IssueToken(ctx, env.requester.ID, bare.ID); !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("err = %v, want %v", err, ErrNotProvisioned)
	}
}

func TestIssueToken_ProviderFailure(t *testing.T) {
	env := newIssuerEnv(t)
	env.minter.err = errors.New("mint failed")

	_, err := env.issuer.IssueToken(context.Background(), env.requester.ID, env.appt.ID)
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("err = %v, want %v", err, ErrProvider)
	}

	appt, err := env.repo.GetAppointment(context.Background(), env.appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment error: %v", err)
	}
	if appt.SessionToken != "" {
		t.Fatalf("stored token = %q, want empty", appt.SessionToken)
	}
}
