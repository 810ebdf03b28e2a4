package postgres

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"consultd/internal/domain"
	"consultd/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

// InAccountsTransaction runs fn inside one transaction after taking an
// advisory lock for every involved account. Locks are taken in sorted id
// order so two transactions touching the same accounts cannot deadlock; a
// booking locks both the provider (serializing overlap-check-then-insert)
// and the requester (pinning the balance snapshot).
func (r *ScheduleRepo) InAccountsTransaction(ctx context.Context, accountIDs []uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		ids := make([]string, 0, len(accountIDs))
		for _, id := range accountIDs {
			ids = append(ids, id.String())
		}
		sort.Strings(ids)
		for _, id := range ids {
			if _, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", id).Exec(ctx); err != nil {
				return err
			}
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
	return mapPgError(err)
}

func (r *ScheduleRepo) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var acct domain.Account
	err := r.db.NewSelect().
		Model(&acct).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

func (r *ScheduleRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *ScheduleRepo) ListAccountAppointments(ctx context.Context, accountID uuid.UUID) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("provider_id = ?", accountID).WhereOr("requester_id = ?", accountID)
		}).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listScheduled(ctx, r.db, providerID, windowStart, windowEnd)
}

func (r *ScheduleRepo) GetOpenAvailability(ctx context.Context, providerID uuid.UUID) ([]domain.AvailabilityWindow, error) {
	var rows []domain.AvailabilityWindow
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.AvailabilityStatusAvailable).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ScheduleRepo) ListLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	var rows []domain.LedgerEntry
	err := r.db.NewSelect().
		Model(&rows).
		Where("account_id = ?", accountID).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (t scheduleTx) InsertAccount(ctx context.Context, acct domain.Account) (domain.Account, error) {
	if _, err := t.tx.NewInsert().Model(&acct).Exec(ctx); err != nil {
		return domain.Account{}, mapPgError(err)
	}
	return acct, nil
}

func (t scheduleTx) GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	var acct domain.Account
	err := t.tx.NewSelect().
		Model(&acct).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Account{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

func (t scheduleTx) ReplaceAvailability(ctx context.Context, providerID uuid.UUID, w domain.AvailabilityWindow) (domain.AvailabilityWindow, error) {
	_, err := t.tx.NewDelete().
		Model((*domain.AvailabilityWindow)(nil)).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.AvailabilityStatusAvailable).
		Exec(ctx)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}

	w.ProviderID = providerID
	if _, err := t.tx.NewInsert().Model(&w).Exec(ctx); err != nil {
		return domain.AvailabilityWindow{}, mapPgError(err)
	}
	return w, nil
}

func (t scheduleTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := t.tx.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (t scheduleTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if _, err := t.tx.NewInsert().Model(&appt).Exec(ctx); err != nil {
		return domain.Appointment{}, mapPgError(err)
	}
	return appt, nil
}

func (t scheduleTx) ListScheduledAppointments(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	return listScheduled(ctx, t.tx, providerID, windowStart, windowEnd)
}

func (t scheduleTx) TransitionAppointment(ctx context.Context, id uuid.UUID, from, to domain.AppointmentStatus) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return mapPgError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrConflict
	}
	return nil
}

func (t scheduleTx) SetSessionToken(ctx context.Context, id uuid.UUID, token string) error {
	res, err := t.tx.NewUpdate().
		Model((*domain.Appointment)(nil)).
		Set("session_token = ?", token).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t scheduleTx) AppendLedgerEntry(ctx context.Context, entry domain.LedgerEntry) (domain.LedgerEntry, error) {
	res, err := t.tx.NewUpdate().
		Model((*domain.Account)(nil)).
		Set("credits = credits + ?", entry.Amount).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", entry.AccountID).
		Where("credits + ? >= 0", entry.Amount).
		Exec(ctx)
	if err != nil {
		return domain.LedgerEntry{}, mapPgError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	if affected == 0 {
		exists, err := t.tx.NewSelect().
			Model((*domain.Account)(nil)).
			Where("id = ?", entry.AccountID).
			Exists(ctx)
		if err != nil {
			return domain.LedgerEntry{}, err
		}
		if !exists {
			return domain.LedgerEntry{}, store.ErrNotFound
		}
		return domain.LedgerEntry{}, store.ErrInsufficientCredits
	}

	if _, err := t.tx.NewInsert().Model(&entry).Exec(ctx); err != nil {
		return domain.LedgerEntry{}, mapPgError(err)
	}
	return entry, nil
}

type selector interface {
	NewSelect() *bun.SelectQuery
}

func listScheduled(ctx context.Context, db selector, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.AppointmentStatusScheduled).
		Where("start_time < ?", windowEnd).
		Where("end_time > ?", windowStart).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23P01":
			if pgErr.ConstraintName == "appointments_no_overlap" {
				return store.ErrConflict
			}
		case "40001", "40P01":
			return store.ErrRetry
		}
	}
	return err
}
