package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"consultd/internal/service/scheduling"
	"consultd/internal/service/session"
	"consultd/internal/store"
)

// writeError translates service and store errors into a JSON body with a
// stable machine-readable code. Unknown errors are logged and masked as a
// plain 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var verr *scheduling.ValidationError

	status := http.StatusInternalServerError
	code := "internal"
	msg := "internal server error"

	switch {
	case errors.As(err, &verr):
		status, code, msg = http.StatusBadRequest, "invalid_input", verr.Error()
	case errors.Is(err, store.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, scheduling.ErrNoAvailability):
		status, code, msg = http.StatusNotFound, "no_availability", err.Error()
	case errors.Is(err, scheduling.ErrNotParty), errors.Is(err, session.ErrNotParty):
		status, code, msg = http.StatusForbidden, "not_party", err.Error()
	case errors.Is(err, session.ErrTooEarly):
		status, code, msg = http.StatusForbidden, "too_early", err.Error()
	case errors.Is(err, store.ErrInsufficientCredits):
		status, code, msg = http.StatusPaymentRequired, "insufficient_credits", err.Error()
	case errors.Is(err, scheduling.ErrSlotUnavailable):
		status, code, msg = http.StatusConflict, "slot_unavailable", err.Error()
	case errors.Is(err, scheduling.ErrStateConflict), errors.Is(err, session.ErrNotScheduled):
		status, code, msg = http.StatusConflict, "state_conflict", err.Error()
	case errors.Is(err, session.ErrNotProvisioned):
		status, code, msg = http.StatusConflict, "session_not_provisioned", err.Error()
	case errors.Is(err, store.ErrRetry):
		status, code, msg = http.StatusConflict, "retry", err.Error()
	case errors.Is(err, scheduling.ErrSessionProvider), errors.Is(err, session.ErrProvider):
		status, code, msg = http.StatusBadGateway, "session_provider", err.Error()
	default:
		log.Error("unhandled error", slog.String("error", err.Error()))
	}

	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
