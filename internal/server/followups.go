package server

import (
	"encoding/json"
	"net/http"
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/pkg/types"
)

// handleFollowUpQueue returns the caller's visible debtors split into
// due-today and overdue buckets.
func (s *Service) handleFollowUpQueue(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	debtors, err := s.visibleDebtors(r.Context(), identity)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, ledger.PartitionFollowUps(debtors, time.Now()))
}

type recordFollowUpParams struct {
	Status           string `json:"status" validate:"required"`
	Notes            string `json:"notes"`
	NextFollowupDate string `json:"next_followup_date"` // YYYY-MM-DD, empty clears the schedule
}

// handleRecordFollowUp appends a follow-up log entry and rolls the debtor
// forward to the given stage and next date.
func (s *Service) handleRecordFollowUp(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	debtorID := r.PathValue("id")

	debtor, err := s.debtorsRepo.Debtor(r.Context(), debtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	// records outside the caller's book are indistinguishable from absent ones
	if !ledger.CanViewDebtor(identity, debtor) {
		s.respondError(w, http.StatusNotFound, types.ErrDebtorNotFound.Error())
		return
	}

	if identity.Role == types.RoleClient {
		s.respondError(w, http.StatusForbidden, types.ErrForbidden.Error())
		return
	}

	var params recordFollowUpParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(params); err != nil {
		s.respondError(w, http.StatusBadRequest, "status is required")
		return
	}

	if !types.ValidDealStage(params.Status) {
		s.respondError(w, http.StatusBadRequest, "unknown deal stage")
		return
	}

	var nextFollowup *time.Time
	if params.NextFollowupDate != "" {
		date, err := time.Parse(dateLayout, params.NextFollowupDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "next_followup_date must be YYYY-MM-DD")
			return
		}
		nextFollowup = &date
	}

	followUp := &types.FollowUp{
		DebtorID:     debtorID,
		AgentID:      identity.UserID,
		Status:       params.Status,
		Notes:        params.Notes,
		FollowUpDate: time.Now(),
	}

	if err := s.followUpsRepo.RecordFollowUp(r.Context(), followUp, nextFollowup); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, followUp)
}
