package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type LeadInterest string

const (
	LeadInterestHot  LeadInterest = "Hot"
	LeadInterestWarm LeadInterest = "Warm"
	LeadInterestCold LeadInterest = "Cold"
)

type Debtor struct {
	ID          string  `db:"id" json:"id"`
	DebtorName  string  `db:"debtor_name" json:"debtor_name"`
	DebtorPhone string  `db:"debtor_phone" json:"debtor_phone"`
	DebtorEmail *string `db:"debtor_email" json:"debtor_email"`
	Address     *string `db:"address" json:"address"`
	IDNumber    *string `db:"id_number" json:"id_number"`

	// Client is the company the debt is owed to; ClientID links the
	// client's portal login when one exists.
	Client   *string `db:"client" json:"client"`
	ClientID *string `db:"client_id" json:"client_id"`

	AssignedTo *string `db:"assigned_to" json:"assigned_to"`
	CreatedBy  *string `db:"created_by" json:"created_by"`

	DebtAmount   decimal.Decimal `db:"debt_amount" json:"debt_amount"`
	DealStage    string          `db:"deal_stage" json:"deal_stage"`
	Product      *string         `db:"product" json:"product"`
	LeadInterest *LeadInterest   `db:"lead_interest" json:"lead_interest"`
	BranchGroup  string          `db:"branch_group" json:"branch_group"`

	NextFollowupDate     *time.Time `db:"next_followup_date" json:"next_followup_date"`
	CollectionUpdate     *string    `db:"collection_update" json:"collection_update"`
	CollectionUpdateDate *time.Time `db:"collection_update_date" json:"collection_update_date"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// UpdateDebtorParams carries a partial debtor update. Nil fields are left
// untouched. Agents may only set the follow-up subset; admins may set all.
type UpdateDebtorParams struct {
	DebtorName  *string `json:"debtor_name"`
	DebtorPhone *string `json:"debtor_phone"`
	DebtorEmail *string `json:"debtor_email"`
	Address     *string `json:"address"`
	IDNumber    *string `json:"id_number"`
	Client      *string `json:"client"`
	ClientID    *string `json:"client_id"`
	AssignedTo  *string `json:"assigned_to"`
	DebtAmount  *string `json:"debt_amount"`
	Product     *string `json:"product"`

	LeadInterest     *LeadInterest `json:"lead_interest"`
	DealStage        *string       `json:"deal_stage"`
	NextFollowupDate *string       `json:"next_followup_date"` // YYYY-MM-DD
	CollectionUpdate *string       `json:"collection_update"`
}

// IsFollowUpOnly reports whether the update touches only the fields an
// agent is allowed to change on an assigned debtor.
func (p UpdateDebtorParams) IsFollowUpOnly() bool {
	return p.DebtorName == nil &&
		p.DebtorPhone == nil &&
		p.DebtorEmail == nil &&
		p.Address == nil &&
		p.IDNumber == nil &&
		p.Client == nil &&
		p.ClientID == nil &&
		p.AssignedTo == nil &&
		p.DebtAmount == nil &&
		p.Product == nil
}
