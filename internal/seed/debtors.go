package seed

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"debtcrm/internal/store"
	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var seedDebtorNames = []string{
	"Amina Yusuf", "Peter Otieno", "Mary Wanjiku", "Joseph Mwangi",
	"Fatuma Hassan", "Brian Kipchoge", "Esther Nyambura", "Samuel Ouma",
	"Janet Chebet", "David Njoroge", "Halima Abdi", "Kevin Omondi",
}

var seedProducts = []string{
	"Logbook Loan", "Salary Advance", "SME Working Capital", "Asset Finance",
}

var seedBranches = []string{
	"Head Office", "Westlands", "Mombasa Road", "Nakuru",
}

type weightedDealStage struct {
	Stage  string
	Weight int
}

var weightedDealStages = []weightedDealStage{
	{Stage: "Pending", Weight: 25},
	{Stage: "No Answer", Weight: 15},
	{Stage: "Promise to Pay", Weight: 15},
	{Stage: "Partial Payment", Weight: 12},
	{Stage: "Payment Plan Agreed", Weight: 10},
	{Stage: "Dispute Raised", Weight: 5},
	{Stage: "Handed to Legal", Weight: 5},
	{Stage: "Settled", Weight: 8},
	{Stage: "Written Off", Weight: 5},
}

// SeedDebtors fills the book with fake debtors for development, spread
// across the seed agents and clients with partial payment histories. Seeded
// rows are tagged with a "[seed] " prefix so reset can find them.
func SeedDebtors(
	ctx context.Context,
	pool *pgxpool.Pool,
	debtorsRepo *store.DebtorRepository,
	paymentsRepo *store.PaymentRepository,
	followUpsRepo *store.FollowUpRepository,
	count int,
	reset bool,
) error {
	if count <= 0 {
		fmt.Println("Skipping debtor seed because count <= 0")
		return nil
	}

	if reset {
		result, err := pool.Exec(ctx, `DELETE FROM debtcrm.debtors WHERE debtor_name LIKE '[seed] %'`)
		if err != nil {
			return fmt.Errorf("failed to reset seeded debtors: %w", err)
		}
		fmt.Printf("Reset seeded debtors: %d deleted\n", result.RowsAffected())
	}

	agentIDs := seedAgentIDs()
	if len(agentIDs) == 0 {
		return fmt.Errorf("no seed agents available; seed users first")
	}
	clients := seedClients()
	if len(clients) == 0 {
		return fmt.Errorf("no seed clients available; seed users first")
	}

	adminID := seedUsers[0].ID
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	created := 0
	paymentsCreated := 0
	for i := 0; i < count; i++ {
		stage := pickWeightedDealStage(rng)
		client := clients[rng.Intn(len(clients))]
		agentID := agentIDs[rng.Intn(len(agentIDs))]

		principal := decimal.NewFromInt(int64(rng.Intn(2400)+100) * 100)

		interest := types.LeadInterestCold
		switch rng.Intn(3) {
		case 0:
			interest = types.LeadInterestHot
		case 1:
			interest = types.LeadInterestWarm
		}

		// spread the follow-up dates a week either side of today so the
		// queue screen shows both buckets
		followupDate := time.Now().UTC().AddDate(0, 0, rng.Intn(14)-7)

		debtor := &types.Debtor{
			DebtorName:       fmt.Sprintf("[seed] %s", seedDebtorNames[rng.Intn(len(seedDebtorNames))]),
			DebtorPhone:      fmt.Sprintf("+25470%07d", rng.Intn(10000000)),
			Client:           utils.StringPtr(client.FullName),
			ClientID:         utils.StringPtr(client.ID),
			AssignedTo:       utils.StringPtr(agentID),
			CreatedBy:        utils.StringPtr(adminID),
			DebtAmount:       principal,
			DealStage:        stage,
			Product:          utils.StringPtr(seedProducts[rng.Intn(len(seedProducts))]),
			LeadInterest:     &interest,
			BranchGroup:      seedBranches[rng.Intn(len(seedBranches))],
			NextFollowupDate: utils.TimePtr(followupDate),
		}

		if err := debtorsRepo.CreateDebtor(ctx, debtor); err != nil {
			return fmt.Errorf("failed to create seed debtor %d: %w", i+1, err)
		}

		n, err := seedPaymentsFor(ctx, paymentsRepo, rng, debtor, agentID, adminID, stage)
		if err != nil {
			return err
		}
		paymentsCreated += n

		if rng.Intn(100) < 70 {
			followUp := &types.FollowUp{
				DebtorID:     debtor.ID,
				AgentID:      agentID,
				Status:       stage,
				Notes:        "Spoke with the debtor and agreed the next step.",
				FollowUpDate: time.Now().Add(-time.Duration(rng.Intn(10*24)) * time.Hour),
			}
			if err := followUpsRepo.RecordFollowUp(ctx, followUp, utils.TimePtr(followupDate)); err != nil {
				return fmt.Errorf("failed to create follow-up for seed debtor %s: %w", debtor.ID, err)
			}
		}

		created++
	}

	fmt.Printf("Seed debtors: %d created with %d payments\n", created, paymentsCreated)
	return nil
}

// seedPaymentsFor uploads zero or more payments sized to the deal stage:
// settled books get the full principal, active ones a partial history.
func seedPaymentsFor(
	ctx context.Context,
	paymentsRepo *store.PaymentRepository,
	rng *rand.Rand,
	debtor *types.Debtor,
	agentID, adminID, stage string,
) (int, error) {

	var target decimal.Decimal
	switch stage {
	case "Settled":
		target = debtor.DebtAmount
	case "Partial Payment", "Payment Plan Agreed", "Promise to Pay":
		target = debtor.DebtAmount.Mul(decimal.NewFromInt(int64(rng.Intn(60) + 10)).Div(decimal.NewFromInt(100)))
	default:
		return 0, nil
	}

	remaining := target
	created := 0
	for remaining.IsPositive() {
		amount := remaining
		if created < 2 && rng.Intn(2) == 0 {
			amount = remaining.Div(decimal.NewFromInt(2)).Round(2)
		}

		paymentID := utils.NanoID()
		payment := &types.Payment{
			ID:          paymentID,
			DebtorID:    debtor.ID,
			Amount:      amount,
			PopURL:      fmt.Sprintf("https://example.com/pops/%s/%s.pdf", debtor.ID, paymentID),
			PopFileType: "pdf",
			UploadedBy:  agentID,
			UploadedAt:  time.Now().Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
		}

		if err := paymentsRepo.CreatePayment(ctx, payment); err != nil {
			return created, fmt.Errorf("failed to create seed payment for debtor %s: %w", debtor.ID, err)
		}

		// verify most of the history so the recovered figures look lived-in
		if rng.Intn(100) < 75 {
			if err := paymentsRepo.ApprovePayment(ctx, payment.ID, adminID, time.Now()); err != nil {
				return created, fmt.Errorf("failed to verify seed payment %s: %w", payment.ID, err)
			}
		}

		remaining = remaining.Sub(amount)
		created++
	}

	return created, nil
}

func pickWeightedDealStage(rng *rand.Rand) string {
	total := 0
	for _, item := range weightedDealStages {
		total += item.Weight
	}

	roll := rng.Intn(total)
	running := 0
	for _, item := range weightedDealStages {
		running += item.Weight
		if roll < running {
			return item.Stage
		}
	}

	return types.DealStageDefault
}
