package types

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrDebtorNotFound   = errors.New("debtor not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrFollowUpNotFound = errors.New("follow up not found")
	ErrReportNotFound   = errors.New("report not found")

	// ErrPaymentVerified guards the one-way verified transition: approving
	// twice is rejected, and only a proof re-upload may clear the flag.
	ErrPaymentVerified = errors.New("payment already verified")

	ErrForbidden = errors.New("caller may not perform this action")
)
