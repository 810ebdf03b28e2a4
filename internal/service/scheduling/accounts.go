package scheduling

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/store"
)

type CreateAccountInput struct {
	Role        domain.AccountRole
	Name        string
	Specialty   string
	Description string
}

// CreateAccount registers an account. Requesters start with InitialCredits,
// recorded as a grant ledger entry so the balance stays derivable from the
// ledger alone.
func (s *Service) CreateAccount(ctx context.Context, in CreateAccountInput) (domain.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Account{}, validationError("name is required")
	}
	if in.Role != domain.AccountRoleProvider && in.Role != domain.AccountRoleRequester {
		return domain.Account{}, validationError("role must be provider or requester")
	}
	if in.Role == domain.AccountRoleProvider && strings.TrimSpace(in.Specialty) == "" {
		return domain.Account{}, validationError("specialty is required for providers")
	}

	var out domain.Account
	err := s.repo.InAccountsTransaction(ctx, nil, func(ctx context.Context, tx store.ScheduleTx) error {
		acct, err := tx.InsertAccount(ctx, domain.Account{
			Role:        in.Role,
			Name:        name,
			Specialty:   strings.TrimSpace(in.Specialty),
			Description: strings.TrimSpace(in.Description),
		})
		if err != nil {
			return err
		}

		if acct.Role == domain.AccountRoleRequester && InitialCredits > 0 {
			if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
				AccountID: acct.ID,
				Amount:    InitialCredits,
				Reason:    domain.LedgerReasonGrant,
			}); err != nil {
				return err
			}
			acct.Credits = InitialCredits
		}

		out = acct
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return out, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	if id == uuid.Nil {
		return domain.Account{}, validationError("account_id is required")
	}
	return s.repo.GetAccount(ctx, id)
}

// GrantCredits tops up an account, for example after a subscription renewal.
func (s *Service) GrantCredits(ctx context.Context, accountID uuid.UUID, amount int64) (domain.Account, error) {
	if accountID == uuid.Nil {
		return domain.Account{}, validationError("account_id is required")
	}
	if amount <= 0 {
		return domain.Account{}, validationError("amount must be positive")
	}

	var out domain.Account
	err := s.repo.InAccountsTransaction(ctx, []uuid.UUID{accountID}, func(ctx context.Context, tx store.ScheduleTx) error {
		if _, err := tx.AppendLedgerEntry(ctx, domain.LedgerEntry{
			AccountID: accountID,
			Amount:    amount,
			Reason:    domain.LedgerReasonGrant,
		}); err != nil {
			return err
		}
		acct, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		out = acct
		return nil
	})
	if err != nil {
		return domain.Account{}, err
	}
	return out, nil
}

func (s *Service) ListLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListLedgerEntries(ctx, accountID)
}

// ListAppointments returns every appointment the account is a party to,
// ascending by start time.
func (s *Service) ListAppointments(ctx context.Context, accountID uuid.UUID) ([]domain.Appointment, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.repo.ListAccountAppointments(ctx, accountID)
}

func (s *Service) GetAppointment(ctx context.Context, actingAccountID, appointmentID uuid.UUID) (domain.Appointment, error) {
	if appointmentID == uuid.Nil {
		return domain.Appointment{}, validationError("appointment_id is required")
	}
	appt, err := s.repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !appt.Party(actingAccountID) {
		return domain.Appointment{}, ErrNotParty
	}
	return appt, nil
}
