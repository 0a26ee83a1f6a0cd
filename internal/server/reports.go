package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/internal/report"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type debtorReportParams struct {
	Format       string `form:"format"`
	Client       string `form:"client"`
	AssignedTo   string `form:"assigned_to"`
	DealStage    string `form:"deal_stage"`
	LeadInterest string `form:"lead_interest"`
	MinAmount    string `form:"min_amount"`
	MaxAmount    string `form:"max_amount"`
}

// handleDebtorReport builds the filtered debtor report in the caller's
// format of choice. Filtering happens in SQL; role visibility is applied
// on top so a client can never export another client's book.
func (s *Service) handleDebtorReport(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var params debtorReportParams
	if err := decoder.Decode(&params, r.URL.Query()); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid query parameters")
		return
	}

	filter := types.ReportFilter{
		Client:       params.Client,
		AssignedTo:   params.AssignedTo,
		DealStage:    params.DealStage,
		LeadInterest: params.LeadInterest,
	}

	if params.DealStage != "" && !types.ValidDealStage(params.DealStage) {
		s.respondError(w, http.StatusBadRequest, "unknown deal stage")
		return
	}

	if params.MinAmount != "" {
		min, err := decimal.NewFromString(params.MinAmount)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "min_amount must be a number")
			return
		}
		filter.MinAmount = &min
	}

	if params.MaxAmount != "" {
		max, err := decimal.NewFromString(params.MaxAmount)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "max_amount must be a number")
			return
		}
		filter.MaxAmount = &max
	}

	debtors, err := s.debtorsRepo.DebtorsFiltered(r.Context(), filter)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	debtors = ledger.FilterVisibleDebtors(identity, debtors)

	rows, err := s.reportRows(r, debtors)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	format := strings.ToLower(params.Format)
	if format == "" {
		format = "json"
	}

	stamp := time.Now().UTC().Format(dateLayout)

	switch format {
	case "json":
		s.respondJSON(w, http.StatusOK, rows)

	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=debtors-%s.csv", stamp))
		if err := report.WriteCSV(w, rows); err != nil {
			s.logger.WithError(err).Error("failed to write csv report")
		}

	case "xlsx":
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=debtors-%s.xlsx", stamp))
		if err := report.WriteXLSX(w, rows); err != nil {
			s.logger.WithError(err).Error("failed to write xlsx report")
		}

	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=debtors-%s.pdf", stamp))
		if err := report.WritePDF(w, rows, time.Now()); err != nil {
			s.logger.WithError(err).Error("failed to write pdf report")
		}

	default:
		s.respondError(w, http.StatusBadRequest, "format must be one of json, csv, xlsx, pdf")
	}
}

// reportRows assembles report rows for the given debtors, resolving agent
// display names and per-debtor balances.
func (s *Service) reportRows(r *http.Request, debtors []*types.Debtor) ([]report.Row, error) {
	ids := make([]string, 0, len(debtors))
	for _, d := range debtors {
		ids = append(ids, d.ID)
	}

	payments, err := s.paymentsRepo.PaymentsByDebtorIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}

	byDebtor := make(map[string][]*types.Payment, len(debtors))
	for _, p := range payments {
		byDebtor[p.DebtorID] = append(byDebtor[p.DebtorID], p)
	}

	agentNames, err := s.agentNames(r)
	if err != nil {
		return nil, err
	}

	return report.BuildRows(debtors, byDebtor, agentNames), nil
}

func (s *Service) agentNames(r *http.Request) (map[string]string, error) {
	agents, err := s.usersRepo.UsersByRole(r.Context(), types.RoleAgent)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(agents))
	for _, a := range agents {
		names[a.ID] = a.FullName
	}
	return names, nil
}

func (s *Service) handleListReports(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var reports []*types.Report
	if identity.Role == types.RoleClient {
		reports, err = s.reportsRepo.ReportsByClient(r.Context(), identity.UserID)
	} else {
		reports, err = s.reportsRepo.Reports(r.Context())
	}
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, reports)
}

type monthlyReportParams struct {
	Month string `json:"month"` // YYYY-MM, defaults to the previous month
}

// handleGenerateMonthlyReport builds the month's workbook, archives it in
// the file store and records it so it shows up under /api/reports.
func (s *Service) handleGenerateMonthlyReport(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if !identity.IsAdmin() {
		s.respondError(w, http.StatusForbidden, "only admins may generate reports")
		return
	}

	var params monthlyReportParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if params.Month == "" {
		params.Month = time.Now().UTC().AddDate(0, -1, 0).Format("2006-01")
	}

	from, err := time.Parse("2006-01", params.Month)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "month must be formatted YYYY-MM")
		return
	}
	to := from.AddDate(0, 1, 0)

	monthPayments, err := s.paymentsRepo.PaymentsInRange(r.Context(), from, to)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	debtors, err := s.debtorsRepo.Debtors(r.Context())
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	rows, err := s.reportRows(r, debtors)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}

	debtorsByID := make(map[string]*types.Debtor, len(debtors))
	for _, d := range debtors {
		debtorsByID[d.ID] = d
	}
	paymentRows := report.BuildPaymentRows(monthPayments, debtorsByID)

	var buf bytes.Buffer
	if err := report.WriteMonthlyXLSX(&buf, rows, paymentRows, params.Month); err != nil {
		s.logger.WithError(err).Error("failed to build monthly workbook")
		s.respondError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	reportID := utils.NanoID()
	key := fmt.Sprintf("reports/monthly-%s-%s.xlsx", params.Month, reportID)

	fileURL, err := s.files.UploadFile(r.Context(), key, &buf, xlsxContentType)
	if err != nil {
		s.logger.WithError(err).Error("failed to upload monthly report")
		s.respondError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	rpt := &types.Report{
		ID:          reportID,
		ReportType:  "monthly",
		FileURL:     fileURL,
		GeneratedBy: identity.UserID,
	}

	if err := s.reportsRepo.CreateReport(r.Context(), rpt); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, rpt)
}
