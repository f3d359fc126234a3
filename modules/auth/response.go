package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/uniserve/uniserve/pkg/auth"
	"github.com/uniserve/uniserve/pkg/validator"
	authsvc "github.com/uniserve/uniserve/svc/auth"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps domain errors onto HTTP statuses. Credential and token
// failures all collapse to 401 so the response does not leak which part of
// the check failed.
func respondError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, ve := range verrs {
			fields[ve.Field] = ve.Message
		}
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: fields})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrInvalidState),
		errors.Is(err, auth.ErrStateNotFound),
		errors.Is(err, authsvc.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountLocked),
		errors.Is(err, auth.ErrAccountDisabled),
		errors.Is(err, auth.ErrAccountUnverified),
		errors.Is(err, auth.ErrEmailDomainNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrEmailAlreadyRegistered),
		errors.Is(err, auth.ErrAlreadyVerified):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrPasswordMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrUnknownProvider):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrExternalProvider):
		status = http.StatusBadGateway
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	respondJSON(w, status, errorResponse{Error: msg})
}
