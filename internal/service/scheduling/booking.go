package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/store"
)

type BookInput struct {
	RequesterID uuid.UUID
	ProviderID  uuid.UUID
	StartTime   time.Time
	EndTime     time.Time
	Note        string
}

// Book reserves [StartTime, EndTime) with the provider, moving BookingCost
// credits from the requester to the provider. The session is created with
// the external provider before the store transaction; if the transaction
// then fails, the orphaned session is abandoned.
func (s *Service) Book(ctx context.Context, in BookInput) (domain.Appointment, error) {
	provider, err := s.providerAccount(ctx, in.ProviderID)
	if err != nil {
		return domain.Appointment{}, err
	}
	requester, err := s.requesterAccount(ctx, in.RequesterID)
	if err != nil {
		return domain.Appointment{}, err
	}

	start := in.StartTime.UTC()
	end := in.EndTime.UTC()
	if start.IsZero() || end.IsZero() {
		return domain.Appointment{}, validationError("start_time and end_time are required")
	}
	if !start.Before(end) {
		return domain.Appointment{}, validationError("end_time must be after start_time")
	}
	if start.Before(s.now().UTC()) {
		return domain.Appointment{}, validationError("start_time must not be in the past")
	}

	if requester.Credits < BookingCost {
		return domain.Appointment{}, store.ErrInsufficientCredits
	}

	sessionCtx, cancel := context.WithTimeout(ctx, s.sessionTimeout)
	defer cancel()
	sessionID, err := s.sessions.CreateSession(sessionCtx)
	if err != nil {
		return domain.Appointment{}, fmt.Errorf("%w: %v", ErrSessionProvider, err)
	}

	var out domain.Appointment
	err = s.repo.InAccountsTransaction(ctx, []uuid.UUID{provider.ID, requester.ID}, func(ctx context.Context, tx store.ScheduleTx) error {
		existing, err := tx.ListScheduledAppointments(ctx, provider.ID, start, end)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return ErrSlotUnavailable
		}

		appt, err := tx.InsertAppointment(ctx, domain.Appointment{
			ProviderID:    provider.ID,
			RequesterID:   requester.ID,
			StartTime:     start,
			EndTime:       end,
			Status:        domain.AppointmentStatusScheduled,
			RequesterNote: strings.TrimSpace(in.Note),
			SessionID:     sessionID,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrSlotUnavailable
			}
			return err
		}

		if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
			AccountID:     requester.ID,
			Amount:        -BookingCost,
			Reason:        domain.LedgerReasonBookingDebit,
			AppointmentID: &appt.ID,
		}); err != nil {
			return err
		}
		if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
			AccountID:     provider.ID,
			Amount:        BookingCost,
			Reason:        domain.LedgerReasonBookingCredit,
			AppointmentID: &appt.ID,
		}); err != nil {
			return err
		}

		out = appt
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

// Cancel marks a scheduled appointment cancelled and appends two ledger
// entries that exactly reverse the original booking. The refund is always
// the full cost, regardless of how close to the start time it happens.
func (s *Service) Cancel(ctx context.Context, actingAccountID, appointmentID uuid.UUID) error {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !appt.Party(actingAccountID) {
		return ErrNotParty
	}
	if appt.Status != domain.AppointmentStatusScheduled {
		return ErrStateConflict
	}

	return s.repo.InAccountsTransaction(ctx, []uuid.UUID{appt.ProviderID, appt.RequesterID}, func(ctx context.Context, tx store.ScheduleTx) error {
		if err := tx.TransitionAppointment(ctx, appt.ID, domain.AppointmentStatusScheduled, domain.AppointmentStatusCancelled); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrStateConflict
			}
			return err
		}

		if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
			AccountID:     appt.RequesterID,
			Amount:        BookingCost,
			Reason:        domain.LedgerReasonRefundCredit,
			AppointmentID: &appt.ID,
		}); err != nil {
			return err
		}
		if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
			AccountID:     appt.ProviderID,
			Amount:        -BookingCost,
			Reason:        domain.LedgerReasonRefundDebit,
			AppointmentID: &appt.ID,
		}); err != nil {
			return err
		}
		return nil
	})
}

// Complete transitions a scheduled appointment to completed. Only the
// provider may complete, and only once the end time has passed.
func (s *Service) Complete(ctx context.Context, actingAccountID, appointmentID uuid.UUID) error {
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}
	if appt.ProviderID != actingAccountID {
		return ErrNotParty
	}
	if appt.Status != domain.AppointmentStatusScheduled {
		return ErrStateConflict
	}
	if s.now().UTC().Before(appt.EndTime) {
		return ErrStateConflict
	}

	return s.repo.InAccountsTransaction(ctx, []uuid.UUID{appt.ProviderID}, func(ctx context.Context, tx store.ScheduleTx) error {
		if err := tx.TransitionAppointment(ctx, appt.ID, domain.AppointmentStatusScheduled, domain.AppointmentStatusCompleted); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrStateConflict
			}
			return err
		}
		return nil
	})
}

func (s *Service) providerAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if id == uuid.Nil {
		return domain.Account{}, validationError("provider_id is required")
	}
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if acct.Role != domain.AccountRoleProvider {
		return domain.Account{}, store.ErrNotFound
	}
	return acct, nil
}

func (s *Service) requesterAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if id == uuid.Nil {
		return domain.Account{}, validationError("requester_id is required")
	}
	acct, err := s.repo.GetAccount(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}
	if acct.Role != domain.AccountRoleRequester {
		return domain.Account{}, store.ErrNotFound
	}
	return acct, nil
}
