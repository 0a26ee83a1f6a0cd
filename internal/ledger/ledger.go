package ledger

import (
	"time"

	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

// Balance is the derived standing of a debtor. BalanceDue is always
// debt_amount minus the sum of every payment row; approval never rewrites
// debt_amount, so payment rows stay the single source of truth and the
// figure cannot be double-counted.
type Balance struct {
	TotalPaid  decimal.Decimal `json:"total_paid"`
	BalanceDue decimal.Decimal `json:"balance_due"`

	// VerifiedPaid sums only admin-verified rows. Dashboards report it as
	// "recovered"; it never feeds BalanceDue.
	VerifiedPaid decimal.Decimal `json:"verified_paid"`
}

// ComputeBalance sums payments against the debtor's principal. It is a pure
// function of its inputs and safe to call concurrently. All payments are
// expected to reference the same debtor. An empty payment set yields a zero
// TotalPaid, and BalanceDue is not clamped: overpayment goes negative.
func ComputeBalance(debtor *types.Debtor, payments []*types.Payment) Balance {
	totalPaid := decimal.Zero
	verifiedPaid := decimal.Zero

	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
		if p.Verified {
			verifiedPaid = verifiedPaid.Add(p.Amount)
		}
	}

	return Balance{
		TotalPaid:    totalPaid,
		BalanceDue:   debtor.DebtAmount.Sub(totalPaid),
		VerifiedPaid: verifiedPaid,
	}
}

// FilterVisibleDebtors narrows debtors to the ones the caller may see.
// Admins see everything, agents their assignments, clients their own
// accounts. Input order is preserved.
func FilterVisibleDebtors(identity types.Identity, debtors []*types.Debtor) []*types.Debtor {
	if identity.Role == types.RoleAdmin {
		return debtors
	}

	visible := make([]*types.Debtor, 0, len(debtors))
	for _, d := range debtors {
		if CanViewDebtor(identity, d) {
			visible = append(visible, d)
		}
	}
	return visible
}

func CanViewDebtor(identity types.Identity, debtor *types.Debtor) bool {
	switch identity.Role {
	case types.RoleAdmin:
		return true
	case types.RoleAgent:
		return debtor.AssignedTo != nil && *debtor.AssignedTo == identity.UserID
	case types.RoleClient:
		return debtor.ClientID != nil && *debtor.ClientID == identity.UserID
	}
	return false
}

// CanMutateDebtor reports whether the caller may apply the update. Admins
// may change any field; agents only the follow-up fields of debtors
// assigned to them; clients are read-only.
func CanMutateDebtor(identity types.Identity, debtor *types.Debtor, params types.UpdateDebtorParams) bool {
	switch identity.Role {
	case types.RoleAdmin:
		return true
	case types.RoleAgent:
		if debtor.AssignedTo == nil || *debtor.AssignedTo != identity.UserID {
			return false
		}
		return params.IsFollowUpOnly()
	}
	return false
}

// Approve marks the payment verified. The transition is one-way: an
// already-verified payment returns ErrPaymentVerified; only ReplaceProof
// may clear the flag again.
func Approve(payment *types.Payment, verifierID string, now time.Time) error {
	if payment.Verified {
		return types.ErrPaymentVerified
	}

	payment.Verified = true
	payment.VerifiedAt = &now
	payment.VerifiedBy = &verifierID
	return nil
}

// ReplaceProof swaps the proof-of-payment file on an existing payment and
// re-opens it for review. Resetting verified on an approved payment is the
// deliberate re-open transition, not an error.
func ReplaceProof(payment *types.Payment, popURL, fileType string, now time.Time) {
	payment.PopURL = popURL
	payment.PopFileType = fileType
	payment.Verified = false
	payment.VerifiedAt = nil
	payment.VerifiedBy = nil
	payment.UploadedAt = now
}
