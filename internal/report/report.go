// Package report assembles filtered debtor standings and renders them as
// CSV, XLSX or PDF downloads.
package report

import (
	"time"

	"debtcrm/internal/ledger"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

// Row is one debtor line on the collections report, principal and derived
// balances side by side.
type Row struct {
	DebtorName    string          `json:"debtor_name"`
	Client        string          `json:"client"`
	DebtorPhone   string          `json:"debtor_phone"`
	DebtorEmail   string          `json:"debtor_email"`
	DealStage     string          `json:"deal_stage"`
	LeadInterest  string          `json:"lead_interest"`
	AssignedAgent string          `json:"assigned_agent"`
	DebtAmount    decimal.Decimal `json:"debt_amount"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	VerifiedPaid  decimal.Decimal `json:"verified_paid"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// PaymentRow is one payment line on the monthly collections sheet.
type PaymentRow struct {
	DebtorName string          `json:"debtor_name"`
	Client     string          `json:"client"`
	Amount     decimal.Decimal `json:"amount"`
	Verified   bool            `json:"verified"`
	UploadedAt time.Time       `json:"uploaded_at"`
}

// BuildRows joins debtors with their payments and resolves agent names.
// paymentsByDebtor may omit debtors with no payments; agentNames maps user
// ID to full name and unknown agents render as "Unassigned".
func BuildRows(debtors []*types.Debtor, paymentsByDebtor map[string][]*types.Payment, agentNames map[string]string) []Row {

	rows := make([]Row, 0, len(debtors))
	for _, d := range debtors {
		balance := ledger.ComputeBalance(d, paymentsByDebtor[d.ID])

		agent := "Unassigned"
		if d.AssignedTo != nil {
			if name, ok := agentNames[*d.AssignedTo]; ok {
				agent = name
			}
		}

		interest := ""
		if d.LeadInterest != nil {
			interest = string(*d.LeadInterest)
		}

		rows = append(rows, Row{
			DebtorName:    d.DebtorName,
			Client:        utils.PtrString(d.Client),
			DebtorPhone:   d.DebtorPhone,
			DebtorEmail:   utils.PtrString(d.DebtorEmail),
			DealStage:     d.DealStage,
			LeadInterest:  interest,
			AssignedAgent: agent,
			DebtAmount:    d.DebtAmount,
			TotalPaid:     balance.TotalPaid,
			VerifiedPaid:  balance.VerifiedPaid,
			BalanceDue:    balance.BalanceDue,
		})
	}

	return rows
}

// BuildPaymentRows flattens payments for the monthly sheet, resolving the
// debtor each one belongs to. Payments whose debtor is missing from the
// index are skipped.
func BuildPaymentRows(payments []*types.Payment, debtorsByID map[string]*types.Debtor) []PaymentRow {

	rows := make([]PaymentRow, 0, len(payments))
	for _, p := range payments {
		debtor, ok := debtorsByID[p.DebtorID]
		if !ok {
			continue
		}

		rows = append(rows, PaymentRow{
			DebtorName: debtor.DebtorName,
			Client:     utils.PtrString(debtor.Client),
			Amount:     p.Amount,
			Verified:   p.Verified,
			UploadedAt: p.UploadedAt,
		})
	}

	return rows
}

var columnHeaders = []string{
	"Debtor Name", "Client", "Phone", "Email", "Deal Stage", "Lead Interest",
	"Assigned Agent", "Debt Amount", "Total Paid", "Verified Paid", "Balance Due",
}

func (r Row) record() []string {
	return []string{
		r.DebtorName, r.Client, r.DebtorPhone, r.DebtorEmail, r.DealStage,
		r.LeadInterest, r.AssignedAgent,
		r.DebtAmount.StringFixed(2), r.TotalPaid.StringFixed(2),
		r.VerifiedPaid.StringFixed(2), r.BalanceDue.StringFixed(2),
	}
}
