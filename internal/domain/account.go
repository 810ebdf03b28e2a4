package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AccountRole string

const (
	AccountRoleProvider  AccountRole = "provider"
	AccountRoleRequester AccountRole = "requester"
)

// Account identifies one party to a consultation. The credits column is a
// materialized balance; it is only ever changed together with an appended
// ledger entry, inside the same transaction.
type Account struct {
	bun.BaseModel `bun:"table:accounts"`

	ID          uuid.UUID   `bun:"id,pk,type:uuid"`
	Role        AccountRole `bun:"role,notnull"`
	Name        string      `bun:"name,notnull"`
	Specialty   string      `bun:"specialty"`
	Description string      `bun:"description"`
	Credits     int64       `bun:"credits,notnull"`
	CreatedAt   time.Time   `bun:"created_at,notnull"`
	UpdatedAt   time.Time   `bun:"updated_at,notnull"`
}

func (a *Account) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}
