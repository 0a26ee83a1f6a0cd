package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"debtcrm/pkg/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Service) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

func (s *Service) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}

// respondStoreError maps the error taxonomy onto statuses: not-found 404,
// forbidden 403, already-verified 409, everything else 500.
func (s *Service) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, types.ErrDebtorNotFound),
		errors.Is(err, types.ErrPaymentNotFound),
		errors.Is(err, types.ErrFollowUpNotFound),
		errors.Is(err, types.ErrReportNotFound),
		errors.Is(err, types.ErrUserNotFound):
		s.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, types.ErrForbidden):
		s.respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, types.ErrPaymentVerified):
		s.respondError(w, http.StatusConflict, err.Error())
	default:
		s.logger.WithError(err).Error("store operation failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
