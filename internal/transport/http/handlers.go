package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"consultd/internal/domain"
	"consultd/internal/service/scheduling"
	"consultd/internal/service/session"
)

// accountHeader identifies the acting account on endpoints that gate access
// by party. Identity verification is assumed to happen upstream.
const accountHeader = "X-Account-ID"

type Scheduler interface {
	CreateAccount(ctx context.Context, in scheduling.CreateAccountInput) (domain.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (domain.Account, error)
	GrantCredits(ctx context.Context, accountID uuid.UUID, amount int64) (domain.Account, error)
	ListLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error)
	SetAvailability(ctx context.Context, providerID uuid.UUID, startTime, endTime time.Time) (domain.AvailabilityWindow, error)
	GetAvailability(ctx context.Context, providerID uuid.UUID) ([]domain.AvailabilityWindow, error)
	ListSlots(ctx context.Context, providerID uuid.UUID) ([]domain.DaySlots, error)
	Book(ctx context.Context, in scheduling.BookInput) (domain.Appointment, error)
	Cancel(ctx context.Context, actingAccountID, appointmentID uuid.UUID) error
	Complete(ctx context.Context, actingAccountID, appointmentID uuid.UUID) error
	ListAppointments(ctx context.Context, accountID uuid.UUID) ([]domain.Appointment, error)
	GetAppointment(ctx context.Context, actingAccountID, appointmentID uuid.UUID) (domain.Appointment, error)
}

type TokenIssuer interface {
	IssueToken(ctx context.Context, actingAccountID, appointmentID uuid.UUID) (session.IssuedToken, error)
}

type Handler struct {
	scheduler Scheduler
	issuer    TokenIssuer
	log       *slog.Logger
}

func NewHandler(scheduler Scheduler, issuer TokenIssuer, log *slog.Logger) *Handler {
	return &Handler{scheduler: scheduler, issuer: issuer, log: log}
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "createAccount"))

	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "invalid_input"})
		return
	}

	acct, err := h.scheduler.CreateAccount(r.Context(), scheduling.CreateAccountInput{
		Role:        domain.AccountRole(req.Role),
		Name:        req.Name,
		Specialty:   req.Specialty,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAccountResponse(acct))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "getAccount"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acct, err := h.scheduler.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "getBalance"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	acct, err := h.scheduler.GetAccount(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{AccountID: acct.ID.String(), Credits: acct.Credits})
}

func (h *Handler) listLedger(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "listLedger"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	entries, err := h.scheduler.ListLedgerEntries(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLedgerEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) grantCredits(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "grantCredits"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req grantCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "invalid_input"})
		return
	}
	acct, err := h.scheduler.GrantCredits(r.Context(), id, req.Amount)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(acct))
}

func (h *Handler) setAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "setAvailability"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req setAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "invalid_input"})
		return
	}
	window, err := h.scheduler.SetAvailability(r.Context(), id, req.StartTime, req.EndTime)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityResponse(window))
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "getAvailability"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	windows, err := h.scheduler.GetAvailability(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]availabilityResponse, 0, len(windows))
	for _, win := range windows {
		out = append(out, toAvailabilityResponse(win))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listSlots(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "listSlots"))

	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	days, err := h.scheduler.ListSlots(r.Context(), id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]daySlotsResponse, 0, len(days))
	for _, d := range days {
		out = append(out, toDaySlotsResponse(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "book"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Code: "invalid_input"})
		return
	}
	providerID, err := uuid.Parse(req.ProviderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "provider_id must be a valid UUID", Code: "invalid_input"})
		return
	}

	appt, err := h.scheduler.Book(r.Context(), scheduling.BookInput{
		RequesterID: acting,
		ProviderID:  providerID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) listAppointments(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "listAppointments"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	appts, err := h.scheduler.ListAppointments(r.Context(), acting)
	if err != nil {
		writeError(w, log, err)
		return
	}
	out := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "getAppointment"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	appt, err := h.scheduler.GetAppointment(r.Context(), acting, id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "cancelAppointment"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scheduler.Cancel(r.Context(), acting, id); err != nil {
		writeError(w, log, err)
		return
	}
	appt, err := h.scheduler.GetAppointment(r.Context(), acting, id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) completeAppointment(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "completeAppointment"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scheduler.Complete(r.Context(), acting, id); err != nil {
		writeError(w, log, err)
		return
	}
	appt, err := h.scheduler.GetAppointment(r.Context(), acting, id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(slog.String("handler", "issueToken"))

	acting, ok := actingAccount(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	issued, err := h.issuer.IssueToken(r.Context(), acting, id)
	if err != nil {
		writeError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{SessionID: issued.SessionID, Token: issued.Token})
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: param + " must be a valid UUID", Code: "invalid_input"})
		return uuid.Nil, false
	}
	return id, true
}

func actingAccount(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(accountHeader)
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: accountHeader + " header is required", Code: "unauthenticated"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: accountHeader + " must be a valid UUID", Code: "invalid_input"})
		return uuid.Nil, false
	}
	return id, true
}
