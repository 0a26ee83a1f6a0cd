package server

import (
	"net/http"
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

type dashboardStats struct {
	Role             types.Role      `json:"role"`
	DebtorCount      int             `json:"debtor_count"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	TotalRecovered   decimal.Decimal `json:"total_recovered"`
	DueToday         int             `json:"due_today"`
	Overdue          int             `json:"overdue"`
}

// handleDashboard summarises the caller's book: admins see the whole
// portfolio, agents their assigned debtors, clients their own accounts.
func (s *Service) handleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var debtors []*types.Debtor
	switch identity.Role {
	case types.RoleAgent:
		debtors, err = s.debtorsRepo.DebtorsByAssignee(r.Context(), identity.UserID)
	case types.RoleClient:
		debtors, err = s.debtorsRepo.DebtorsByClient(r.Context(), identity.UserID)
	default:
		debtors, err = s.debtorsRepo.Debtors(r.Context())
	}
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	balances, err := s.balancesFor(r.Context(), debtors)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	stats := dashboardStats{
		Role:        identity.Role,
		DebtorCount: len(debtors),
	}
	for _, d := range debtors {
		bal := balances[d.ID]
		stats.TotalOutstanding = stats.TotalOutstanding.Add(bal.BalanceDue)
		stats.TotalRecovered = stats.TotalRecovered.Add(bal.VerifiedPaid)
	}

	queue := ledger.PartitionFollowUps(debtors, time.Now())
	stats.DueToday = len(queue.DueToday)
	stats.Overdue = len(queue.Overdue)

	s.respondJSON(w, http.StatusOK, stats)
}
