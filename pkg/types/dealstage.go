package types

// DealStages is the fixed collections pipeline lookup. Debtor.deal_stage
// and FollowUp.status must hold one of these codes.
var DealStages = []string{
	"Pending",
	"New Lead",
	"Contact Attempted",
	"No Answer",
	"Wrong Number",
	"Left Message",
	"Contacted",
	"Follow-Up Scheduled",
	"Follow-Up Done",
	"Promise to Pay",
	"Broken Promise",
	"Partial Payment",
	"Payment Plan Agreed",
	"Payment Plan Active",
	"Payment Plan Defaulted",
	"PoP Received",
	"Awaiting Verification",
	"Payment Verified",
	"Dispute Raised",
	"Dispute Resolved",
	"Demand Letter Sent",
	"Escalated",
	"Handed to Legal",
	"In Court",
	"Settled",
	"Resolved",
	"Written Off",
}

const DealStageDefault = "Pending"

var dealStageSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(DealStages))
	for _, s := range DealStages {
		m[s] = struct{}{}
	}
	return m
}()

func ValidDealStage(stage string) bool {
	_, ok := dealStageSet[stage]
	return ok
}
