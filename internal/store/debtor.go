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

const debtorTableName = "debtcrm.debtors"

var debtorColumns = utils.StructTagValues(types.Debtor{})

type DebtorRepository struct {
	pool *pgxpool.Pool
}

func NewDebtorRepository(pool *pgxpool.Pool) *DebtorRepository {
	return &DebtorRepository{pool: pool}
}

func (r *DebtorRepository) Debtor(ctx context.Context, debtorID string) (*types.Debtor, error) {

	query, args, err := psql().Select(debtorColumns...).From(debtorTableName).
		Where(sq.Eq{"id": debtorID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate debtor query: %w", err)
	}

	var debtor = new(types.Debtor)
	err = pgxscan.Get(ctx, r.pool, debtor, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrDebtorNotFound
		}
		return nil, fmt.Errorf("failed to fetch debtor: %w", err)
	}

	return debtor, nil
}

func (r *DebtorRepository) Debtors(ctx context.Context) ([]*types.Debtor, error) {

	query, args, err := psql().Select(debtorColumns...).From(debtorTableName).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate debtors query: %w", err)
	}

	var debtors = make([]*types.Debtor, 0)
	err = pgxscan.Select(ctx, r.pool, &debtors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch debtors: %w", err)
	}

	return debtors, nil
}

func (r *DebtorRepository) DebtorsByAssignee(ctx context.Context, agentID string) ([]*types.Debtor, error) {

	query, args, err := psql().Select(debtorColumns...).From(debtorTableName).
		Where(sq.Eq{"assigned_to": agentID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate debtors by assignee query: %w", err)
	}

	var debtors = make([]*types.Debtor, 0)
	err = pgxscan.Select(ctx, r.pool, &debtors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch debtors by assignee: %w", err)
	}

	return debtors, nil
}

func (r *DebtorRepository) DebtorsByClient(ctx context.Context, clientID string) ([]*types.Debtor, error) {

	query, args, err := psql().Select(debtorColumns...).From(debtorTableName).
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("created_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate debtors by client query: %w", err)
	}

	var debtors = make([]*types.Debtor, 0)
	err = pgxscan.Select(ctx, r.pool, &debtors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch debtors by client: %w", err)
	}

	return debtors, nil
}

// DebtorsFiltered applies the report screen's filters server side.
func (r *DebtorRepository) DebtorsFiltered(ctx context.Context, filter types.ReportFilter) ([]*types.Debtor, error) {

	builder := psql().Select(debtorColumns...).From(debtorTableName).
		OrderBy("debtor_name asc")

	if filter.Client != "" {
		builder = builder.Where(sq.Eq{"client": filter.Client})
	}
	if filter.AssignedTo != "" {
		builder = builder.Where(sq.Eq{"assigned_to": filter.AssignedTo})
	}
	if filter.DealStage != "" {
		builder = builder.Where(sq.Eq{"deal_stage": filter.DealStage})
	}
	if filter.LeadInterest != "" {
		builder = builder.Where(sq.Eq{"lead_interest": filter.LeadInterest})
	}
	if filter.MinAmount != nil {
		builder = builder.Where(sq.GtOrEq{"debt_amount": *filter.MinAmount})
	}
	if filter.MaxAmount != nil {
		builder = builder.Where(sq.LtOrEq{"debt_amount": *filter.MaxAmount})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate filtered debtors query: %w", err)
	}

	var debtors = make([]*types.Debtor, 0)
	err = pgxscan.Select(ctx, r.pool, &debtors, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch filtered debtors: %w", err)
	}

	return debtors, nil
}

// ClientNames returns the distinct client companies present on the book,
// for the report screen's filter dropdown.
func (r *DebtorRepository) ClientNames(ctx context.Context) ([]string, error) {

	query, args, err := psql().Select("distinct client").From(debtorTableName).
		Where(sq.NotEq{"client": nil}).
		OrderBy("client asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate client names query: %w", err)
	}

	var names = make([]string, 0)
	err = pgxscan.Select(ctx, r.pool, &names, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client names: %w", err)
	}

	return names, nil
}

func (r *DebtorRepository) CreateDebtor(ctx context.Context, debtor *types.Debtor) error {

	now := time.Now()
	if debtor.ID == "" {
		debtor.ID = utils.NanoID()
	}
	debtor.CreatedAt = now
	debtor.UpdatedAt = now

	query, args, err := psql().Insert(debtorTableName).SetMap(utils.StructToMap(debtor)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert debtor query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create debtor")
}

// CreateDebtors inserts a batch of imported debtors in a single transaction
// so a bad row does not leave a partial import behind.
func (r *DebtorRepository) CreateDebtors(ctx context.Context, debtors []*types.Debtor) error {

	if len(debtors) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now()
	for _, debtor := range debtors {
		if debtor.ID == "" {
			debtor.ID = utils.NanoID()
		}
		debtor.CreatedAt = now
		debtor.UpdatedAt = now

		query, args, err := psql().Insert(debtorTableName).SetMap(utils.StructToMap(debtor)).ToSql()
		if err != nil {
			return fmt.Errorf("failed to generate insert debtor query: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert imported debtor %s: %w", debtor.DebtorName, err)
		}
	}

	return tx.Commit(ctx)
}

// UpdateDebtor persists a partial update. Columns absent from fields are
// untouched; updated_at is always refreshed.
func (r *DebtorRepository) UpdateDebtor(ctx context.Context, debtorID string, fields map[string]any) error {

	fields["updated_at"] = time.Now()

	query, args, err := psql().Update(debtorTableName).SetMap(fields).Where(sq.Eq{"id": debtorID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate update debtor query for debtor %s: %w", debtorID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update debtor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDebtorNotFound
	}

	return nil
}

func (r *DebtorRepository) DeleteDebtor(ctx context.Context, debtorID string) error {

	query, args, err := psql().Delete(debtorTableName).Where(sq.Eq{"id": debtorID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate delete debtor query for debtor %s: %w", debtorID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete debtor: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrDebtorNotFound
	}

	return nil
}
