package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type debtorWithBalance struct {
	*types.Debtor
	Balance ledger.Balance `json:"balance"`
}

type debtorDetail struct {
	*types.Debtor
	Balance   ledger.Balance    `json:"balance"`
	Payments  []*types.Payment  `json:"payments"`
	FollowUps []*types.FollowUp `json:"follow_ups"`
}

// visibleDebtors fetches the full book and narrows it to the caller. The
// visibility predicate lives in the ledger so every screen filters the
// same way.
func (s *Service) visibleDebtors(ctx context.Context, identity types.Identity) ([]*types.Debtor, error) {
	debtors, err := s.debtorsRepo.Debtors(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.FilterVisibleDebtors(identity, debtors), nil
}

// balancesFor loads every payment for the given debtors in one query and
// computes each balance.
func (s *Service) balancesFor(ctx context.Context, debtors []*types.Debtor) (map[string]ledger.Balance, error) {
	ids := make([]string, 0, len(debtors))
	for _, d := range debtors {
		ids = append(ids, d.ID)
	}

	payments, err := s.paymentsRepo.PaymentsByDebtorIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byDebtor := make(map[string][]*types.Payment, len(debtors))
	for _, p := range payments {
		byDebtor[p.DebtorID] = append(byDebtor[p.DebtorID], p)
	}

	balances := make(map[string]ledger.Balance, len(debtors))
	for _, d := range debtors {
		balances[d.ID] = ledger.ComputeBalance(d, byDebtor[d.ID])
	}
	return balances, nil
}

func (s *Service) handleListDebtors(w http.ResponseWriter, r *http.Request) {
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

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		needle := strings.ToLower(q)
		matched := make([]*types.Debtor, 0, len(debtors))
		for _, d := range debtors {
			if strings.Contains(strings.ToLower(d.DebtorName), needle) {
				matched = append(matched, d)
			}
		}
		debtors = matched
	}

	balances, err := s.balancesFor(r.Context(), debtors)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	out := make([]debtorWithBalance, 0, len(debtors))
	for _, d := range debtors {
		out = append(out, debtorWithBalance{Debtor: d, Balance: balances[d.ID]})
	}

	s.respondJSON(w, http.StatusOK, out)
}

func (s *Service) handleGetDebtor(w http.ResponseWriter, r *http.Request) {
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

	if !ledger.CanViewDebtor(identity, debtor) {
		// hidden records look like missing records
		s.respondError(w, http.StatusNotFound, types.ErrDebtorNotFound.Error())
		return
	}

	payments, err := s.paymentsRepo.PaymentsByDebtor(r.Context(), debtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	followUps, err := s.followUpsRepo.FollowUpsByDebtor(r.Context(), debtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, debtorDetail{
		Debtor:    debtor,
		Balance:   ledger.ComputeBalance(debtor, payments),
		Payments:  payments,
		FollowUps: followUps,
	})
}

type createDebtorParams struct {
	DebtorName       string `json:"debtor_name" validate:"required"`
	DebtorPhone      string `json:"debtor_phone" validate:"required"`
	DebtorEmail      string `json:"debtor_email" validate:"omitempty,email"`
	Address          string `json:"address"`
	IDNumber         string `json:"id_number"`
	Client           string `json:"client" validate:"required"`
	ClientID         string `json:"client_id"`
	AssignedTo       string `json:"assigned_to"`
	DebtAmount       string `json:"debt_amount" validate:"required"`
	Product          string `json:"product" validate:"required"`
	LeadInterest     string `json:"lead_interest" validate:"omitempty,oneof=Hot Warm Cold"`
	BranchGroup      string `json:"branch_group"`
	DealStage        string `json:"deal_stage"`
	NextFollowupDate string `json:"next_followup_date"`
}

func (s *Service) handleCreateDebtor(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.Role == types.RoleClient {
		s.respondError(w, http.StatusForbidden, "clients may not create debtors")
		return
	}

	var params createDebtorParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.validate.Struct(params); err != nil {
		s.respondError(w, http.StatusBadRequest, "debtor_name, debtor_phone, client, product and debt_amount are required")
		return
	}

	amount, err := decimal.NewFromString(params.DebtAmount)
	if err != nil || amount.IsNegative() {
		s.respondError(w, http.StatusBadRequest, "debt_amount must be a non-negative number")
		return
	}

	dealStage := params.DealStage
	if dealStage == "" {
		dealStage = types.DealStageDefault
	}
	if !types.ValidDealStage(dealStage) {
		s.respondError(w, http.StatusBadRequest, "unknown deal stage")
		return
	}

	branchGroup := params.BranchGroup
	if branchGroup == "" {
		branchGroup = "Head Office"
	}

	nextFollowup := time.Now().UTC().Truncate(24 * time.Hour)
	if params.NextFollowupDate != "" {
		nextFollowup, err = time.Parse(dateLayout, params.NextFollowupDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "next_followup_date must be YYYY-MM-DD")
			return
		}
	}

	assignedTo := params.AssignedTo
	if assignedTo == "" && identity.Role == types.RoleAgent {
		assignedTo = identity.UserID
	}

	debtor := &types.Debtor{
		DebtorName:       params.DebtorName,
		DebtorPhone:      params.DebtorPhone,
		Client:           utils.StringPtr(params.Client),
		DebtAmount:       amount,
		DealStage:        dealStage,
		BranchGroup:      branchGroup,
		Product:          utils.StringPtr(params.Product),
		CreatedBy:        utils.StringPtr(identity.UserID),
		NextFollowupDate: utils.TimePtr(nextFollowup),
	}
	if params.DebtorEmail != "" {
		debtor.DebtorEmail = utils.StringPtr(params.DebtorEmail)
	}
	if params.Address != "" {
		debtor.Address = utils.StringPtr(params.Address)
	}
	if params.IDNumber != "" {
		debtor.IDNumber = utils.StringPtr(params.IDNumber)
	}
	if params.ClientID != "" {
		debtor.ClientID = utils.StringPtr(params.ClientID)
	}
	if assignedTo != "" {
		debtor.AssignedTo = utils.StringPtr(assignedTo)
	}
	if params.LeadInterest != "" {
		interest := types.LeadInterest(params.LeadInterest)
		debtor.LeadInterest = &interest
	}

	if err := s.debtorsRepo.CreateDebtor(r.Context(), debtor); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, debtor)
}

func (s *Service) handleUpdateDebtor(w http.ResponseWriter, r *http.Request) {
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

	var params types.UpdateDebtorParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !ledger.CanMutateDebtor(identity, debtor, params) {
		s.respondError(w, http.StatusForbidden, types.ErrForbidden.Error())
		return
	}

	fields, err := debtorUpdateFields(params)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(fields) == 0 {
		s.respondError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	if err := s.debtorsRepo.UpdateDebtor(r.Context(), debtorID, fields); err != nil {
		s.respondStoreError(w, err)
		return
	}

	updated, err := s.debtorsRepo.Debtor(r.Context(), debtorID)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Service) handleDeleteDebtor(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	// debtors are only ever removed by explicit admin action
	if !identity.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins may delete debtors")
		return
	}

	debtorID := r.PathValue("id")

	if err := s.debtorsRepo.DeleteDebtor(r.Context(), debtorID); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleListClients returns the distinct client companies on the book, used
// to fill the client dropdown when creating or importing debtors.
func (s *Service) handleListClients(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.Role == types.RoleClient {
		s.respondError(w, http.StatusForbidden, types.ErrForbidden.Error())
		return
	}

	names, err := s.debtorsRepo.ClientNames(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string][]string{"clients": names})
}
