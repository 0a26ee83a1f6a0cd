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

const reportTableName = "debtcrm.reports"

var reportColumns = utils.StructTagValues(types.Report{})

type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Reports(ctx context.Context) ([]*types.Report, error) {

	query, args, err := psql().Select(reportColumns...).From(reportTableName).
		OrderBy("generated_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reports query: %w", err)
	}

	var reports = make([]*types.Report, 0)
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}

	return reports, nil
}

func (r *ReportRepository) ReportsByClient(ctx context.Context, clientID string) ([]*types.Report, error) {

	query, args, err := psql().Select(reportColumns...).From(reportTableName).
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("generated_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate reports by client query: %w", err)
	}

	var reports = make([]*types.Report, 0)
	err = pgxscan.Select(ctx, r.pool, &reports, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports by client: %w", err)
	}

	return reports, nil
}

func (r *ReportRepository) CreateReport(ctx context.Context, report *types.Report) error {

	if report.ID == "" {
		report.ID = utils.NanoID()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	query, args, err := psql().Insert(reportTableName).SetMap(utils.StructToMap(report)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert report query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create report")
}
