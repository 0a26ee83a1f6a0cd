package types

import "github.com/shopspring/decimal"

// ReportFilter narrows the debtor report. Zero values mean "don't filter".
type ReportFilter struct {
	Client       string
	AssignedTo   string
	DealStage    string
	LeadInterest string
	MinAmount    *decimal.Decimal
	MaxAmount    *decimal.Decimal
}
