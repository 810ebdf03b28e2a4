package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type LedgerReason string

const (
	LedgerReasonBookingDebit  LedgerReason = "booking_debit"
	LedgerReasonBookingCredit LedgerReason = "booking_credit"
	LedgerReasonRefundDebit   LedgerReason = "refund_debit"
	LedgerReasonRefundCredit  LedgerReason = "refund_credit"
	LedgerReasonGrant         LedgerReason = "grant"
)

// LedgerEntry is an immutable record of one credit movement. Entries are
// append-only; corrections are made by appending reversing entries, never by
// editing. The two entries of one booking (and of one refund) sum to zero.
type LedgerEntry struct {
	bun.BaseModel `bun:"table:ledger_entries"`

	ID            uuid.UUID    `bun:"id,pk,type:uuid"`
	AccountID     uuid.UUID    `bun:"account_id,notnull,type:uuid"`
	Amount        int64        `bun:"amount,notnull"`
	Reason        LedgerReason `bun:"reason,notnull"`
	AppointmentID *uuid.UUID   `bun:"appointment_id,type:uuid"`
	CreatedAt     time.Time    `bun:"created_at,notnull"`
}

func (e *LedgerEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	if _, ok := query.(*bun.InsertQuery); !ok {
		return nil
	}
	if e.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return nil
}
