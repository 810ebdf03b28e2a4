package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"consultd/internal/domain"
)

// ScheduleTx is the set of operations available inside one atomic
// transaction. Implementations guarantee that either every write made
// through the tx commits or none does.
type ScheduleTx interface {
	InsertAccount(ctx context.Context, acct domain.Account) (domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error)

	ReplaceAvailability(ctx context.Context, providerID uuid.UUID, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	// ListScheduledAppointments returns the provider's scheduled appointments
	// overlapping [windowStart, windowEnd), ordered by start time.
	ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	// TransitionAppointment updates the status only when the current status
	// matches from; otherwise it fails with ErrConflict.
	TransitionAppointment(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) error
	SetSessionToken(ctx context.Context, id uuid.UUID, token string) error

	// AppendLedgerEntry records one credit movement and applies its amount to
	// the account's materialized balance in the same statement scope. A debit
	// that would push the balance below zero fails with
	// ErrInsufficientCredits and writes nothing.
	AppendLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error)
}

// ScheduleRepository is the transactional store behind the scheduling
// engines. InAccountsTransaction is the sole mutation entry point: it runs fn
// atomically while serializing against all other transactions that involve
// any of the given account ids.
type ScheduleRepository interface {
	InAccountsTransaction(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, tx ScheduleTx) error) error

	GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListAccountAppointments(ctx context.Context, accountID uuid.UUID) ([]domain.Appointment, error)
	ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	GetOpenAvailability(ctx context.Context, providerID uuid.UUID) ([]domain.AvailabilityWindow, error)
	ListLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error)
}
