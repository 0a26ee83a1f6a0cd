package server

import (
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

type importResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// handleImportDebtors ingests a CSV of debtors. The file carries
// name, phone, amount and an optional ID number per row; client, product
// and the other shared fields come from the form. Rows that fail to parse
// are skipped and counted, not fatal.
func (s *Service) handleImportDebtors(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identityFromContext(r.Context())
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if identity.Role == types.RoleClient {
		s.respondError(w, http.StatusForbidden, "clients may not import debtors")
		return
	}

	if err := r.ParseMultipartForm(30 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form")
		return
	}

	client := strings.TrimSpace(r.FormValue("client"))
	product := strings.TrimSpace(r.FormValue("product"))
	if client == "" || product == "" {
		s.respondError(w, http.StatusBadRequest, "client and product are required")
		return
	}

	dealStage := r.FormValue("deal_stage")
	if dealStage == "" {
		dealStage = types.DealStageDefault
	}
	if !types.ValidDealStage(dealStage) {
		s.respondError(w, http.StatusBadRequest, "unknown deal stage")
		return
	}

	branchGroup := r.FormValue("branch_group")
	if branchGroup == "" {
		branchGroup = "Head Office"
	}

	var leadInterest *types.LeadInterest
	switch interest := types.LeadInterest(r.FormValue("lead_interest")); interest {
	case types.LeadInterestHot, types.LeadInterestWarm, types.LeadInterestCold:
		leadInterest = &interest
	case "":
	default:
		s.respondError(w, http.StatusBadRequest, "lead_interest must be Hot, Warm or Cold")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing CSV file")
		return
	}
	defer file.Close()

	debtors, skipped, err := parseDebtorCSV(file, csvDefaults{
		Client:       client,
		Product:      product,
		DealStage:    dealStage,
		BranchGroup:  branchGroup,
		LeadInterest: leadInterest,
		CreatedBy:    identity.UserID,
	})
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(debtors) == 0 {
		s.respondError(w, http.StatusBadRequest, "no valid debtors found in the CSV")
		return
	}

	if identity.Role == types.RoleAgent {
		for _, d := range debtors {
			d.AssignedTo = utils.StringPtr(identity.UserID)
		}
	}

	if err := s.debtorsRepo.CreateDebtors(r.Context(), debtors); err != nil {
		s.respondStoreError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, importResult{Imported: len(debtors), Skipped: skipped})
}

type csvDefaults struct {
	Client       string
	Product      string
	DealStage    string
	BranchGroup  string
	LeadInterest *types.LeadInterest
	CreatedBy    string
}

// parseDebtorCSV decodes rows of "name,phone,amount[,id_number]". The
// header row is skipped, quoting is honored, and malformed rows are
// counted rather than aborting the import.
func parseDebtorCSV(r io.Reader, defaults csvDefaults) ([]*types.Debtor, int, error) {

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	today := time.Now().UTC().Truncate(24 * time.Hour)

	var debtors []*types.Debtor
	skipped := 0
	first := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// a structurally broken row; skip it and keep going
			skipped++
			continue
		}

		if first {
			first = false
			if looksLikeHeader(record) {
				continue
			}
		}

		if len(record) < 3 {
			skipped++
			continue
		}

		name := strings.TrimSpace(record[0])
		phone := strings.TrimSpace(record[1])
		amount, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if name == "" || phone == "" || err != nil || amount.IsNegative() {
			skipped++
			continue
		}

		debtor := &types.Debtor{
			DebtorName:       name,
			DebtorPhone:      phone,
			DebtAmount:       amount,
			Client:           utils.StringPtr(defaults.Client),
			Product:          utils.StringPtr(defaults.Product),
			DealStage:        defaults.DealStage,
			BranchGroup:      defaults.BranchGroup,
			LeadInterest:     defaults.LeadInterest,
			CreatedBy:        utils.StringPtr(defaults.CreatedBy),
			NextFollowupDate: utils.TimePtr(today),
		}

		if len(record) > 3 {
			if idNumber := strings.TrimSpace(record[3]); idNumber != "" {
				debtor.IDNumber = utils.StringPtr(idNumber)
			}
		}

		debtors = append(debtors, debtor)
	}

	return debtors, skipped, nil
}

func looksLikeHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(record[0]))
	return strings.Contains(first, "name")
}
