package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/store"
)

// SetAvailability replaces the provider's open window with a new daily
// interval. Windows are never edited in place.
func (s *Service) SetAvailability(ctx context.Context, providerID uuid.UUID, startTime, endTime time.Time) (domain.AvailabilityWindow, error) {
	provider, err := s.providerAccount(ctx, providerID)
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}

	start := startTime.UTC()
	end := endTime.UTC()
	if start.IsZero() || end.IsZero() {
		return domain.AvailabilityWindow{}, validationError("start_time and end_time are required")
	}
	if !start.Before(end) {
		return domain.AvailabilityWindow{}, validationError("end_time must be after start_time")
	}

	var out domain.AvailabilityWindow
	err = s.repo.InAccountsTransaction(ctx, []uuid.UUID{provider.ID}, func(ctx context.Context, tx store.ScheduleTx) error {
		w, err := tx.ReplaceAvailability(ctx, provider.ID, domain.AvailabilityWindow{
			StartTime: start,
			EndTime:   end,
			Status:    domain.AvailabilityStatusAvailable,
		})
		if err != nil {
			return err
		}
		out = w
		return nil
	})
	if err != nil {
		return domain.AvailabilityWindow{}, err
	}
	return out, nil
}

func (s *Service) GetAvailability(ctx context.Context, providerID uuid.UUID) ([]domain.AvailabilityWindow, error) {
	provider, err := s.providerAccount(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetOpenAvailability(ctx, provider.ID)
}

// ListSlots generates the provider's bookable slots over the configured
// horizon. A provider with no open window is reported as ErrNoAvailability
// so callers can tell it apart from a fully booked schedule.
func (s *Service) ListSlots(ctx context.Context, providerID uuid.UUID) ([]domain.DaySlots, error) {
	provider, err := s.providerAccount(ctx, providerID)
	if err != nil {
		return nil, err
	}

	windows, err := s.repo.GetOpenAvailability(ctx, provider.ID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return nil, ErrNoAvailability
	}

	now := s.now().UTC()
	horizonEnd := now.AddDate(0, 0, s.horizonDays)
	scheduled, err := s.repo.ListScheduledAppointments(ctx, provider.ID, now, horizonEnd)
	if err != nil {
		return nil, err
	}

	return domain.GenerateSlots(windows[0], scheduled, now, s.horizonDays, s.slotStep)
}
