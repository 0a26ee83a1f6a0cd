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

const paymentTableName = "debtcrm.payments"

var paymentColumns = utils.StructTagValues(types.Payment{})

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Payment(ctx context.Context, paymentID string) (*types.Payment, error) {

	query, args, err := psql().Select(paymentColumns...).From(paymentTableName).
		Where(sq.Eq{"id": paymentID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment query: %w", err)
	}

	var payment = new(types.Payment)
	err = pgxscan.Get(ctx, r.pool, payment, query, args...)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, types.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}

	return payment, nil
}

func (r *PaymentRepository) PaymentsByDebtor(ctx context.Context, debtorID string) ([]*types.Payment, error) {

	query, args, err := psql().Select(paymentColumns...).From(paymentTableName).
		Where(sq.Eq{"debtor_id": debtorID}).
		OrderBy("uploaded_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payments by debtor query: %w", err)
	}

	var payments = make([]*types.Payment, 0)
	err = pgxscan.Select(ctx, r.pool, &payments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments by debtor: %w", err)
	}

	return payments, nil
}

// PaymentsByDebtorIDs fetches the payment rows for a set of debtors in one
// round trip. List screens use it to compute balances per visible debtor.
func (r *PaymentRepository) PaymentsByDebtorIDs(ctx context.Context, debtorIDs []string) ([]*types.Payment, error) {

	if len(debtorIDs) == 0 {
		return []*types.Payment{}, nil
	}

	query, args, err := psql().Select(paymentColumns...).From(paymentTableName).
		Where(sq.Eq{"debtor_id": debtorIDs}).
		OrderBy("uploaded_at desc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payments by debtor ids query: %w", err)
	}

	var payments = make([]*types.Payment, 0)
	err = pgxscan.Select(ctx, r.pool, &payments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments by debtor ids: %w", err)
	}

	return payments, nil
}

// PaymentsInRange returns payments uploaded in [from, to), oldest first.
// The monthly report archive feeds on it.
func (r *PaymentRepository) PaymentsInRange(ctx context.Context, from, to time.Time) ([]*types.Payment, error) {

	query, args, err := psql().Select(paymentColumns...).From(paymentTableName).
		Where(sq.GtOrEq{"uploaded_at": from}).
		Where(sq.Lt{"uploaded_at": to}).
		OrderBy("uploaded_at asc").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payments in range query: %w", err)
	}

	var payments = make([]*types.Payment, 0)
	err = pgxscan.Select(ctx, r.pool, &payments, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payments in range: %w", err)
	}

	return payments, nil
}

func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *types.Payment) error {

	if payment.ID == "" {
		payment.ID = utils.NanoID()
	}
	payment.UploadedAt = time.Now()

	query, args, err := psql().Insert(paymentTableName).SetMap(utils.StructToMap(payment)).ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate insert payment query: %w", err)
	}

	_, err = r.pool.Exec(ctx, query, args...)
	return utils.ErrorWrapOrNil(err, "failed to create payment")
}

// ApprovePayment flips verified in a single guarded update. The
// verified = false predicate keeps the transition one-way under concurrent
// approvals: the second writer matches no row and gets ErrPaymentVerified.
func (r *PaymentRepository) ApprovePayment(ctx context.Context, paymentID, verifierID string, verifiedAt time.Time) error {

	query, args, err := psql().Update(paymentTableName).
		SetMap(map[string]any{
			"verified":    true,
			"verified_at": verifiedAt,
			"verified_by": verifierID,
		}).
		Where(sq.Eq{"id": paymentID, "verified": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate approve payment query for payment %s: %w", paymentID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to approve payment: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrPaymentVerified
	}

	return nil
}

// ReplaceProof swaps the proof file and re-opens the payment for review.
func (r *PaymentRepository) ReplaceProof(ctx context.Context, payment *types.Payment) error {

	query, args, err := psql().Update(paymentTableName).
		SetMap(map[string]any{
			"pop_url":       payment.PopURL,
			"pop_file_type": payment.PopFileType,
			"verified":      false,
			"verified_at":   nil,
			"verified_by":   nil,
			"uploaded_at":   payment.UploadedAt,
		}).
		Where(sq.Eq{"id": payment.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to generate replace proof query for payment %s: %w", payment.ID, err)
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to replace proof: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return types.ErrPaymentNotFound
	}

	return nil
}
