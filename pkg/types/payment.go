package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is a proof-of-payment record uploaded by an agent. Rows are
// immutable after creation except for the verified flag (admin approval)
// and the proof file on re-upload, which clears verified back to false.
type Payment struct {
	ID          string          `db:"id" json:"id"`
	DebtorID    string          `db:"debtor_id" json:"debtor_id"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	PopURL      string          `db:"pop_url" json:"pop_url"`
	PopFileType string          `db:"pop_file_type" json:"pop_file_type"`
	Verified    bool            `db:"verified" json:"verified"`
	UploadedBy  string          `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt  time.Time       `db:"uploaded_at" json:"uploaded_at"`
	VerifiedAt  *time.Time      `db:"verified_at" json:"verified_at"`
	VerifiedBy  *string         `db:"verified_by" json:"verified_by"`
}

type FollowUp struct {
	ID           string    `db:"id" json:"id"`
	DebtorID     string    `db:"debtor_id" json:"debtor_id"`
	AgentID      string    `db:"agent_id" json:"agent_id"`
	Status       string    `db:"status" json:"status"`
	Notes        string    `db:"notes" json:"notes"`
	FollowUpDate time.Time `db:"follow_up_date" json:"follow_up_date"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Report is an archive entry for a generated export file.
type Report struct {
	ID          string    `db:"id" json:"id"`
	ReportType  string    `db:"report_type" json:"report_type"`
	ClientID    *string   `db:"client_id" json:"client_id"`
	FileURL     string    `db:"file_url" json:"file_url"`
	GeneratedBy string    `db:"generated_by" json:"generated_by"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
}
