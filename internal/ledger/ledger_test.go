package ledger

import (
	"testing"
	"time"

	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func payment(debtorID, amount string, verified bool) *types.Payment {
	return &types.Payment{
		ID:       utils.NanoID(),
		DebtorID: debtorID,
		Amount:   dec(amount),
		Verified: verified,
	}
}

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name         string
		debtAmount   string
		payments     []*types.Payment
		wantPaid     string
		wantDue      string
		wantVerified string
	}{
		{
			name:         "no payments",
			debtAmount:   "10000",
			payments:     nil,
			wantPaid:     "0",
			wantDue:      "10000",
			wantVerified: "0",
		},
		{
			name:       "partial payments",
			debtAmount: "10000",
			payments: []*types.Payment{
				payment("d1", "3000", false),
				payment("d1", "2000", false),
			},
			wantPaid:     "5000",
			wantDue:      "5000",
			wantVerified: "0",
		},
		{
			name:       "overpayment goes negative",
			debtAmount: "1000",
			payments: []*types.Payment{
				payment("d1", "1500", false),
			},
			wantPaid:     "1500",
			wantDue:      "-500",
			wantVerified: "0",
		},
		{
			name:       "unverified rows still count toward balance",
			debtAmount: "7500.50",
			payments: []*types.Payment{
				payment("d1", "2500.25", true),
				payment("d1", "1000", false),
			},
			wantPaid:     "3500.25",
			wantDue:      "4000.25",
			wantVerified: "2500.25",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			debtor := &types.Debtor{ID: "d1", DebtAmount: dec(tt.debtAmount)}

			got := ComputeBalance(debtor, tt.payments)

			assert.True(t, got.TotalPaid.Equal(dec(tt.wantPaid)), "total paid %s", got.TotalPaid)
			assert.True(t, got.BalanceDue.Equal(dec(tt.wantDue)), "balance due %s", got.BalanceDue)
			assert.True(t, got.VerifiedPaid.Equal(dec(tt.wantVerified)), "verified paid %s", got.VerifiedPaid)
		})
	}
}

func TestComputeBalanceIsPure(t *testing.T) {
	debtor := &types.Debtor{ID: "d1", DebtAmount: dec("100")}
	payments := []*types.Payment{payment("d1", "40", true)}

	first := ComputeBalance(debtor, payments)
	second := ComputeBalance(debtor, payments)

	assert.True(t, first.BalanceDue.Equal(second.BalanceDue))
	assert.True(t, debtor.DebtAmount.Equal(dec("100")), "input debtor must not be mutated")
	assert.True(t, payments[0].Amount.Equal(dec("40")), "input payments must not be mutated")
}

func visibilityFixture() []*types.Debtor {
	return []*types.Debtor{
		{ID: "d1", AssignedTo: utils.StringPtr("agent-1"), ClientID: utils.StringPtr("client-1")},
		{ID: "d2", AssignedTo: utils.StringPtr("agent-2"), ClientID: utils.StringPtr("client-1")},
		{ID: "d3", AssignedTo: utils.StringPtr("agent-1")},
		{ID: "d4"},
	}
}

func TestFilterVisibleDebtors(t *testing.T) {
	debtors := visibilityFixture()

	tests := []struct {
		name     string
		identity types.Identity
		wantIDs  []string
	}{
		{
			name:     "admin sees all",
			identity: types.Identity{UserID: "whoever", Role: types.RoleAdmin},
			wantIDs:  []string{"d1", "d2", "d3", "d4"},
		},
		{
			name:     "agent sees assignments only",
			identity: types.Identity{UserID: "agent-1", Role: types.RoleAgent},
			wantIDs:  []string{"d1", "d3"},
		},
		{
			name:     "client sees own accounts only",
			identity: types.Identity{UserID: "client-1", Role: types.RoleClient},
			wantIDs:  []string{"d1", "d2"},
		},
		{
			name:     "agent with no assignments sees nothing",
			identity: types.Identity{UserID: "agent-9", Role: types.RoleAgent},
			wantIDs:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterVisibleDebtors(tt.identity, debtors)

			gotIDs := make([]string, 0, len(got))
			for _, d := range got {
				gotIDs = append(gotIDs, d.ID)
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestFilterVisibleDebtorsPreservesOrder(t *testing.T) {
	debtors := []*types.Debtor{
		{ID: "z", ClientID: utils.StringPtr("c")},
		{ID: "a", ClientID: utils.StringPtr("c")},
		{ID: "m", ClientID: utils.StringPtr("c")},
	}

	got := FilterVisibleDebtors(types.Identity{UserID: "c", Role: types.RoleClient}, debtors)

	require.Len(t, got, 3)
	assert.Equal(t, "z", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
	assert.Equal(t, "m", got[2].ID)
}

func TestCanMutateDebtor(t *testing.T) {
	assigned := &types.Debtor{ID: "d1", AssignedTo: utils.StringPtr("agent-1")}
	followUp := types.UpdateDebtorParams{
		DealStage:        utils.StringPtr("Promise to Pay"),
		NextFollowupDate: utils.StringPtr("2025-06-09"),
		CollectionUpdate: utils.StringPtr("debtor promised to settle by Friday"),
	}

	admin := types.Identity{UserID: "admin-1", Role: types.RoleAdmin}
	agent := types.Identity{UserID: "agent-1", Role: types.RoleAgent}
	otherAgent := types.Identity{UserID: "agent-2", Role: types.RoleAgent}
	client := types.Identity{UserID: "client-1", Role: types.RoleClient}

	fullUpdate := types.UpdateDebtorParams{DebtAmount: utils.StringPtr("5000")}

	assert.True(t, CanMutateDebtor(admin, assigned, fullUpdate))
	assert.True(t, CanMutateDebtor(agent, assigned, followUp))
	assert.False(t, CanMutateDebtor(agent, assigned, fullUpdate), "agents may not touch principal")
	assert.False(t, CanMutateDebtor(otherAgent, assigned, followUp), "not their assignment")
	assert.False(t, CanMutateDebtor(client, assigned, followUp), "clients are read-only")
}

func TestApprove(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	p := payment("d1", "3000", false)
	err := Approve(p, "admin-1", now)
	require.NoError(t, err)

	assert.True(t, p.Verified)
	require.NotNil(t, p.VerifiedAt)
	assert.Equal(t, now, *p.VerifiedAt)
	require.NotNil(t, p.VerifiedBy)
	assert.Equal(t, "admin-1", *p.VerifiedBy)

	// second approval is rejected
	err = Approve(p, "admin-2", now.Add(time.Hour))
	assert.ErrorIs(t, err, types.ErrPaymentVerified)
	assert.Equal(t, "admin-1", *p.VerifiedBy, "original verifier untouched")
}

func TestReplaceProofReopensVerifiedPayment(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	p := payment("d1", "3000", false)
	require.NoError(t, Approve(p, "admin-1", now))
	require.True(t, p.Verified)

	later := now.Add(48 * time.Hour)
	ReplaceProof(p, "https://files.example.com/pops/new.pdf", "pdf", later)

	assert.False(t, p.Verified, "re-upload re-opens review")
	assert.Nil(t, p.VerifiedAt)
	assert.Nil(t, p.VerifiedBy)
	assert.Equal(t, "https://files.example.com/pops/new.pdf", p.PopURL)
	assert.Equal(t, "pdf", p.PopFileType)
	assert.Equal(t, later, p.UploadedAt)
}

func TestPartitionFollowUps(t *testing.T) {
	today := time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

	due := &types.Debtor{ID: "due", NextFollowupDate: utils.TimePtr(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))}
	overdue := &types.Debtor{ID: "overdue", NextFollowupDate: utils.TimePtr(time.Date(2025, 5, 28, 0, 0, 0, 0, time.UTC))}
	future := &types.Debtor{ID: "future", NextFollowupDate: utils.TimePtr(time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC))}
	unscheduled := &types.Debtor{ID: "unscheduled"}

	q := PartitionFollowUps([]*types.Debtor{overdue, due, future, unscheduled}, today)

	require.Len(t, q.DueToday, 1)
	assert.Equal(t, "due", q.DueToday[0].ID)
	require.Len(t, q.Overdue, 1)
	assert.Equal(t, "overdue", q.Overdue[0].ID)
}

func TestPartitionFollowUpsSameDayDifferentClock(t *testing.T) {
	// a follow-up stamped late in the day still counts as due today
	today := time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC)
	d := &types.Debtor{ID: "d1", NextFollowupDate: utils.TimePtr(time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC))}

	q := PartitionFollowUps([]*types.Debtor{d}, today)

	require.Len(t, q.DueToday, 1)
	assert.Empty(t, q.Overdue)
}
