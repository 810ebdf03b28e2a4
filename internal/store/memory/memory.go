// Package memory implements the schedule store on in-process maps. It backs
// unit tests and the -dev server mode. A single mutex serializes all
// transactions, and writes apply to a snapshot that replaces the live state
// only when the transaction function succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/store"
)

type ScheduleRepo struct {
	mu sync.Mutex
	st *state
}

type state struct {
	accounts     map[uuid.UUID]domain.Account
	availability map[uuid.UUID][]domain.AvailabilityWindow
	appointments map[uuid.UUID]domain.Appointment
	ledger       []domain.LedgerEntry
}

func NewScheduleRepo() *ScheduleRepo {
	return &ScheduleRepo{
		st: &state{
			accounts:     make(map[uuid.UUID]domain.Account),
			availability: make(map[uuid.UUID][]domain.AvailabilityWindow),
			appointments: make(map[uuid.UUID]domain.Appointment),
		},
	}
}

func (s *state) clone() *state {
	c := &state{
		accounts:     make(map[uuid.UUID]domain.Account, len(s.accounts)),
		availability: make(map[uuid.UUID][]domain.AvailabilityWindow, len(s.availability)),
		appointments: make(map[uuid.UUID]domain.Appointment, len(s.appointments)),
		ledger:       make([]domain.LedgerEntry, len(s.ledger)),
	}
	for id, a := range s.accounts {
		c.accounts[id] = a
	}
	for id, ws := range s.availability {
		c.availability[id] = append([]domain.AvailabilityWindow(nil), ws...)
	}
	for id, a := range s.appointments {
		c.appointments[id] = a
	}
	copy(c.ledger, s.ledger)
	return c
}

type scheduleTx struct {
	st *state
}

// InAccountsTransaction holds the repository mutex for the whole transaction,
// which serializes every operation, a stricter guarantee than the per-account
// locks of the Postgres repository.
func (r *ScheduleRepo) InAccountsTransaction(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.st.clone()
	if err := fn(ctx, scheduleTx{st: work}); err != nil {
		return err
	}
	r.st = work
	return nil
}

func (r *ScheduleRepo) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getAccount(r.st, id)
}

func (r *ScheduleRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getAppointment(r.st, id)
}

func (r *ScheduleRepo) ListAccountAppointments(ctx context.Context, accountID uuid.UUID) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Appointment, 0)
	for _, a := range r.st.appointments {
		if a.Party(accountID) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *ScheduleRepo) ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return listScheduled(r.st, providerID, windowStart, windowEnd), nil
}

func (r *ScheduleRepo) GetOpenAvailability(ctx context.Context, providerID uuid.UUID) ([]domain.AvailabilityWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AvailabilityWindow(nil), r.st.availability[providerID]...), nil
}

func (r *ScheduleRepo) ListLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.LedgerEntry, 0)
	for _, e := range r.st.ledger {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t scheduleTx) InsertAccount(ctx context.Context, acct domain.Account) (domain.Account, error) {
	if acct.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Account{}, err
		}
		acct.ID = id
	}
	if _, ok := t.st.accounts[acct.ID]; ok {
		return domain.Account{}, store.ErrConflict
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	t.st.accounts[acct.ID] = acct
	return acct, nil
}

func (t scheduleTx) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return getAccount(t.st, id)
}

func (t scheduleTx) ReplaceAvailability(ctx context.Context, providerID uuid.UUID, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error) {
	if w.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.AvailabilityWindow{}, err
		}
		w.ID = id
	}
	w.ProviderID = providerID
	now := time.Now().UTC()
	w.CreatedAt = now
	w.UpdatedAt = now
	t.st.availability[providerID] = []domain.AvailabilityWindow{w}
	return w, nil
}

func (t scheduleTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return getAppointment(t.st, id)
}

func (t scheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if appt.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Appointment{}, err
		}
		appt.ID = id
	}
	if _, ok := t.st.appointments[appt.ID]; ok {
		return domain.Appointment{}, store.ErrConflict
	}
	if appt.Status == domain.AppointmentStatusScheduled {
		for _, existing := range listScheduled(t.st, appt.ProviderID, appt.StartTime, appt.EndTime) {
			if existing.Overlaps(appt.StartTime, appt.EndTime) {
				return domain.Appointment{}, store.ErrConflict
			}
		}
	}
	now := time.Now().UTC()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	t.st.appointments[appt.ID] = appt
	return appt, nil
}

func (t scheduleTx) ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listScheduled(t.st, providerID, windowStart, windowEnd), nil
}

func (t scheduleTx) TransitionAppointment(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) error {
	appt, ok := t.st.appointments[id]
	if !ok {
		return store.ErrNotFound
	}
	if appt.Status != from {
		return store.ErrConflict
	}
	appt.Status = to
	appt.UpdatedAt = time.Now().UTC()
	t.st.appointments[id] = appt
	return nil
}

func (t scheduleTx) SetSessionToken(ctx context.Context, id uuid.UUID, token string) error {
	appt, ok := t.st.appointments[id]
	if !ok {
		return store.ErrNotFound
	}
	appt.SessionToken = token
	appt.UpdatedAt = time.Now().UTC()
	t.st.appointments[id] = appt
	return nil
}

func (t scheduleTx) AppendLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	acct, ok := t.st.accounts[entry.AccountID]
	if !ok {
		return domain.LedgerEntry{}, store.ErrNotFound
	}
	if acct.Credits+entry.Amount < 0 {
		return domain.LedgerEntry{}, store.ErrInsufficientCredits
	}
	if entry.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.LedgerEntry{}, err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	acct.Credits += entry.Amount
	acct.UpdatedAt = time.Now().UTC()
	t.st.accounts[entry.AccountID] = acct
	t.st.ledger = append(t.st.ledger, entry)
	return entry, nil
}

func getAccount(st *state, id uuid.UUID) (domain.Account, error) {
	acct, ok := st.accounts[id]
	if !ok {
		return domain.Account{}, store.ErrNotFound
	}
	return acct, nil
}

func getAppointment(st *state, id uuid.UUID) (domain.Appointment, error) {
	appt, ok := st.appointments[id]
	if !ok {
		return domain.Appointment{}, store.ErrNotFound
	}
	return appt, nil
}

func listScheduled(st *state, providerID uuid.UUID, windowStart, windowEnd time.Time) []domain.Appointment {
	out := make([]domain.Appointment, 0)
	for _, a := range st.appointments {
		if a.ProviderID != providerID || a.Status != domain.AppointmentStatusScheduled {
			continue
		}
		if a.StartTime.Before(windowEnd) && a.EndTime.After(windowStart) {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out
}

func sortByStart(appts []domain.Appointment) {
	sort.Slice(appts, func(i, j int) bool {
		return appts[i].StartTime.Before(appts[j].StartTime)
	})
}
