package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a booked consultation between one provider and one
// requester. For a fixed provider, no two scheduled appointments may have
// overlapping [StartTime, EndTime) intervals.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID            uuid.UUID         `bun:"id,pk,type:uuid"`
	ProviderID    uuid.UUID         `bun:"provider_id,notnull,type:uuid"`
	RequesterID   uuid.UUID         `bun:"requester_id,notnull,type:uuid"`
	StartTime     time.Time         `bun:"start_time,notnull"`
	EndTime       time.Time         `bun:"end_time,notnull"`
	Status        AppointmentStatus `bun:"status,notnull"`
	RequesterNote string            `bun:"requester_note"`
	ProviderNote  string            `bun:"provider_note"`
	SessionID     string            `bun:"session_id"`
	SessionToken  string            `bun:"session_token"`
	CreatedAt     time.Time         `bun:"created_at,notnull"`
	UpdatedAt     time.Time         `bun:"updated_at,notnull"`
}

// Party reports whether the given account is the appointment's provider or
// requester.
func (a Appointment) Party(accountID uuid.UUID) bool {
	return a.ProviderID == accountID || a.RequesterID == accountID
}

// Overlaps reports whether [start, end) shares any instant with the
// appointment's interval.
func (a Appointment) Overlaps(start, end time.Time) bool {
	return start.Before(a.EndTime) && a.StartTime.Before(end)
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
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
