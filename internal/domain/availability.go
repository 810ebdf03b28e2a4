package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AvailabilityStatus string

const (
	AvailabilityStatusAvailable AvailabilityStatus = "available"
)

// AvailabilityWindow is a provider's recurring daily open interval. The
// start and end times are wall-clock instants on a reference day and are
// reprojected onto each calendar day by the slot generator. Windows are
// replaced, never mutated in place.
type AvailabilityWindow struct {
	bun.BaseModel `bun:"table:availability_windows"`

	ID         uuid.UUID          `bun:"id,pk,type:uuid"`
	ProviderID uuid.UUID          `bun:"provider_id,notnull,type:uuid"`
	StartTime  time.Time          `bun:"start_time,notnull"`
	EndTime    time.Time          `bun:"end_time,notnull"`
	Status     AvailabilityStatus `bun:"status,notnull"`
	CreatedAt  time.Time          `bun:"created_at,notnull"`
	UpdatedAt  time.Time          `bun:"updated_at,notnull"`
}

func (w *AvailabilityWindow) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if w.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			w.ID = id
		}
		if w.CreatedAt.IsZero() {
			w.CreatedAt = now
		}
		if w.UpdatedAt.IsZero() {
			w.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		w.UpdatedAt = now
	}
	return nil
}
