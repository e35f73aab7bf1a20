package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/trip-itinerary/backend/internal/activityform"
	"github.com/pkordes/trip-itinerary/backend/internal/domain"
	"github.com/pkordes/trip-itinerary/backend/internal/store"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure. Fields is set for form validation errors.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// writeError maps err onto a status code and error body. Unknown errors are
// logged and reported as a generic 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *activityform.ValidationError
	switch {
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve.Fields))
		for f, msg := range ve.Fields {
			fields[string(f)] = msg
		}
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: ErrorDetail{
			Code:    "validation_error",
			Message: "activity is invalid",
			Fields:  fields,
		}})
	case errors.Is(err, store.ErrReverted):
		s.log.ErrorContext(r.Context(), "optimistic change reverted", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusBadGateway, "reverted", "change could not be saved and was undone")
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", unwrapMessage(err, domain.ErrNotFound))
	case errors.Is(err, domain.ErrConflict):
		writeErrorBody(w, http.StatusConflict, "conflict", unwrapMessage(err, domain.ErrConflict))
	case errors.Is(err, store.ErrNotLoaded):
		writeErrorBody(w, http.StatusConflict, "not_loaded", "itinerary is not loaded")
	case errors.Is(err, activityform.ErrBusy):
		writeErrorBody(w, http.StatusConflict, "busy", activityform.ErrBusy.Error())
	default:
		s.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after the sentinel.
// e.g. "store.Store.AddDay: conflict: 2025-01-02 already belongs to day 2"
// → "2025-01-02 already belongs to day 2"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
