// Package scheduling implements the booking, cancellation, completion, and
// availability engines. The service is stateless; every mutation runs inside
// a single store transaction serialized on the involved accounts.
package scheduling

import (
	"context"
	"errors"
	"time"

	"consultd/internal/store"
)

// BookingCost is the fixed price of one consultation, debited from the
// requester and credited to the provider as two correlated ledger entries.
const BookingCost = 2

// InitialCredits is granted to every new requester account.
const InitialCredits = 2

var (
	ErrSlotUnavailable = errors.New("time slot is already booked")
	ErrNotParty        = errors.New("account is not a party to this appointment")
	ErrStateConflict   = errors.New("operation not allowed in current appointment state")
	ErrNoAvailability  = errors.New("no availability configured for provider")
	ErrSessionProvider = errors.New("session provider failed")
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SessionCreator provisions an opaque real-time session with the external
// session provider.
type SessionCreator interface {
	CreateSession(ctx context.Context) (string, error)
}

type Service struct {
	repo           store.ScheduleRepository
	sessions       SessionCreator
	now            func() time.Time
	horizonDays    int
	slotStep       time.Duration
	sessionTimeout time.Duration
}

type Options struct {
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// HorizonDays bounds slot generation; zero means the default of 4.
	HorizonDays int
	// SlotStep is the slot length; zero means the default of 30 minutes.
	SlotStep time.Duration
	// SessionTimeout bounds calls to the session provider; zero means 10s.
	SessionTimeout time.Duration
}

func NewService(repo store.ScheduleRepository, sessions SessionCreator, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.HorizonDays < 1 {
		opts.HorizonDays = 4
	}
	if opts.SlotStep <= 0 {
		opts.SlotStep = 30 * time.Minute
	}
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = 10 * time.Second
	}
	return &Service{
		repo:           repo,
		sessions:       sessions,
		now:            opts.Now,
		horizonDays:    opts.HorizonDays,
		slotStep:       opts.SlotStep,
		sessionTimeout: opts.SessionTimeout,
	}
}
