package store

import (
	"context"
	"fmt"
	"time"

	"debtcrm/internal/utils"
	"debtcrm/pkg/types"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"
)

const followUpTableName = "debtcrm.follow_ups"

var followUpColumns = utils.StructTagValues(types.FollowUp{})

type FollowUpRepository struct {
	pool *pgxpool.Pool
}

func NewFollowUpRepository(pool *pgxpool.Pool) *FollowUpRepository {
	return &FollowUpRepository{pool: pool}
}

func (r *FollowUpRepository) FollowUpsByDebtor(ctx context.Context, debtorID string) ([]*types.FollowUp, error) {

	query, args, err := psql().Select(followUpColumns...).From(followUpTableName).
		Where(sq.Eq{"debtor_id": debtorID}).
		OrderBy("follow_up_date desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate follow ups by debtor query: %w", err)
	}

	var followUps = make([]*types.FollowUp, 0)
	err = pgxscan.Select(ctx, r.pool, &followUps, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch follow ups by debtor: %w", err)
	}

	return followUps, nil
}

// RecordFollowUp appends a follow-up log row and rolls the debtor's stage,
// next date and collection note forward in one transaction, so the
// append-only log never disagrees with the debtor record.
func (r *FollowUpRepository) RecordFollowUp(ctx context.Context, followUp *types.FollowUp, nextFollowupDate *time.Time) error {

	now := time.Now()
	if followUp.ID == "" {
		followUp.ID = utils.NanoID()
	}
	followUp.CreatedAt = now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin follow up transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertQuery, insertArgs, err := psql().Insert(followUpTableName).
		SetMap(utils.StructToMap(followUp)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert follow up query: %w", err)
	}

	if _, err := tx.Exec(ctx, insertQuery, insertArgs...); err != nil {
		return fmt.Errorf("failed to insert follow up: %w", err)
	}

	updateQuery, updateArgs, err := psql().Update(debtorTableName).
		SetMap(map[string]any{
			"deal_stage":             followUp.Status,
			"next_followup_date":     nextFollowupDate,
			"collection_update":      nullable(followUp.Notes),
			"collection_update_date": now,
			"updated_at":             now,
		}).
		Where(sq.Eq{"id": followUp.DebtorID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate debtor follow up update query: %w", err)
	}

	tag, err := tx.Exec(ctx, updateQuery, updateArgs...)
	if err != nil {
		return fmt.Errorf("failed to update debtor follow up fields: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDebtorNotFound
	}

	return tx.Commit(ctx)
}
