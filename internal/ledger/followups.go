package ledger

import (
	"time"

	"debtcrm/pkg/types"
)

// FollowUpQueue splits the visible debtors into the two buckets the
// follow-ups screen shows: calls due today and calls already missed.
type FollowUpQueue struct {
	DueToday []*types.Debtor `json:"due_today"`
	Overdue  []*types.Debtor `json:"overdue"`
}

// PartitionFollowUps buckets debtors by next_followup_date against today.
// Debtors with no scheduled follow-up, or one in the future, are excluded.
// Comparison is by calendar date in UTC, preserving input order within each
// bucket.
func PartitionFollowUps(debtors []*types.Debtor, today time.Time) FollowUpQueue {
	ref := truncateToDate(today)

	var q FollowUpQueue
	for _, d := range debtors {
		if d.NextFollowupDate == nil {
			continue
		}

		due := truncateToDate(*d.NextFollowupDate)
		switch {
		case due.Equal(ref):
			q.DueToday = append(q.DueToday, d)
		case due.Before(ref):
			q.Overdue = append(q.Overdue, d)
		}
	}
	return q
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
