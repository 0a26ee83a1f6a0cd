package server

import (
	"fmt"
	"time"

	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
)

// debtorUpdateFields turns a partial update into the column map the store
// applies. It validates deal stages, dates and amounts; empty strings on
// nullable fields clear the column.
func debtorUpdateFields(params types.UpdateDebtorParams) (map[string]any, error) {
	fields := make(map[string]any)

	if params.DebtorName != nil {
		if *params.DebtorName == "" {
			return nil, fmt.Errorf("debtor_name cannot be empty")
		}
		fields["debtor_name"] = *params.DebtorName
	}
	if params.DebtorPhone != nil {
		if *params.DebtorPhone == "" {
			return nil, fmt.Errorf("debtor_phone cannot be empty")
		}
		fields["debtor_phone"] = *params.DebtorPhone
	}
	if params.DebtorEmail != nil {
		fields["debtor_email"] = nullableString(*params.DebtorEmail)
	}
	if params.Address != nil {
		fields["address"] = nullableString(*params.Address)
	}
	if params.IDNumber != nil {
		fields["id_number"] = nullableString(*params.IDNumber)
	}
	if params.Client != nil {
		fields["client"] = nullableString(*params.Client)
	}
	if params.ClientID != nil {
		fields["client_id"] = nullableString(*params.ClientID)
	}
	if params.AssignedTo != nil {
		fields["assigned_to"] = nullableString(*params.AssignedTo)
	}
	if params.Product != nil {
		fields["product"] = nullableString(*params.Product)
	}

	if params.DebtAmount != nil {
		amount, err := decimal.NewFromString(*params.DebtAmount)
		if err != nil || amount.IsNegative() {
			return nil, fmt.Errorf("debt_amount must be a non-negative number")
		}
		fields["debt_amount"] = amount
	}

	if params.LeadInterest != nil {
		switch *params.LeadInterest {
		case types.LeadInterestHot, types.LeadInterestWarm, types.LeadInterestCold:
			fields["lead_interest"] = *params.LeadInterest
		case "":
			fields["lead_interest"] = nil
		default:
			return nil, fmt.Errorf("lead_interest must be Hot, Warm or Cold")
		}
	}

	if params.DealStage != nil {
		if !types.ValidDealStage(*params.DealStage) {
			return nil, fmt.Errorf("unknown deal stage")
		}
		fields["deal_stage"] = *params.DealStage
	}

	if params.NextFollowupDate != nil {
		if *params.NextFollowupDate == "" {
			fields["next_followup_date"] = nil
		} else {
			date, err := time.Parse(dateLayout, *params.NextFollowupDate)
			if err != nil {
				return nil, fmt.Errorf("next_followup_date must be YYYY-MM-DD")
			}
			fields["next_followup_date"] = date
		}
	}

	if params.CollectionUpdate != nil {
		fields["collection_update"] = nullableString(*params.CollectionUpdate)
		fields["collection_update_date"] = time.Now()
	}

	return fields, nil
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
