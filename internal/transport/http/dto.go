package http

import (
	"time"

	"consultd/internal/domain"
)

type createAccountRequest struct {
	Role        string `json:"role"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty,omitempty"`
	Description string `json:"description,omitempty"`
}

type grantCreditsRequest struct {
	Amount int64 `json:"amount"`
}

type setAvailabilityRequest struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type bookRequest struct {
	ProviderID string    `json:"provider_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Note       string    `json:"note,omitempty"`
}

type accountResponse struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Name        string    `json:"name"`
	Specialty   string    `json:"specialty,omitempty"`
	Description string    `json:"description,omitempty"`
	Credits     int64     `json:"credits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type balanceResponse struct {
	AccountID string `json:"account_id"`
	Credits   int64  `json:"credits"`
}

type ledgerEntryResponse struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Amount        int64     `json:"amount"`
	Reason        string    `json:"reason"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type availabilityResponse struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Status     string    `json:"status"`
}

type slotResponse struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Formatted string    `json:"formatted"`
	Day       string    `json:"day"`
}

type daySlotsResponse struct {
	Date        string         `json:"date"`
	DisplayDate string         `json:"display_date"`
	Slots       []slotResponse `json:"slots"`
}

type appointmentResponse struct {
	ID            string    `json:"id"`
	ProviderID    string    `json:"provider_id"`
	RequesterID   string    `json:"requester_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	RequesterNote string    `json:"requester_note,omitempty"`
	ProviderNote  string    `json:"provider_note,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type tokenResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func toAccountResponse(a domain.Account) accountResponse {
	return accountResponse{
		ID:          a.ID.String(),
		Role:        string(a.Role),
		Name:        a.Name,
		Specialty:   a.Specialty,
		Description: a.Description,
		Credits:     a.Credits,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

func toLedgerEntryResponse(e domain.LedgerEntry) ledgerEntryResponse {
	out := ledgerEntryResponse{
		ID:        e.ID.String(),
		AccountID: e.AccountID.String(),
		Amount:    e.Amount,
		Reason:    string(e.Reason),
		CreatedAt: e.CreatedAt,
	}
	if e.AppointmentID != nil {
		out.AppointmentID = e.AppointmentID.String()
	}
	return out
}

func toAvailabilityResponse(w domain.AvailabilityWindow) availabilityResponse {
	return availabilityResponse{
		ID:         w.ID.String(),
		ProviderID: w.ProviderID.String(),
		StartTime:  w.StartTime,
		EndTime:    w.EndTime,
		Status:     string(w.Status),
	}
}

func toDaySlotsResponse(d domain.DaySlots) daySlotsResponse {
	slots := make([]slotResponse, 0, len(d.Slots))
	for _, s := range d.Slots {
		slots = append(slots, slotResponse{
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Formatted: s.Formatted,
			Day:       s.Day,
		})
	}
	return daySlotsResponse{Date: d.Date, DisplayDate: d.DisplayDate, Slots: slots}
}

func toAppointmentResponse(a domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:            a.ID.String(),
		ProviderID:    a.ProviderID.String(),
		RequesterID:   a.RequesterID.String(),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        string(a.Status),
		RequesterNote: a.RequesterNote,
		ProviderNote:  a.ProviderNote,
		SessionID:     a.SessionID,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
