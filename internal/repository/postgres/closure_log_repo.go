package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ClosureLogRepository implements domain.ClosureLogRepository using PostgreSQL
type ClosureLogRepository struct {
	pool *pgxpool.Pool
}

// NewClosureLogRepository creates a new ClosureLogRepository
func NewClosureLogRepository(pool *pgxpool.Pool) *ClosureLogRepository {
	return &ClosureLogRepository{pool: pool}
}

// Create inserts a closure attempt
func (r *ClosureLogRepository) Create(ctx context.Context, entry *domain.ClosureLog) error {
	principal, err := decimalToPgNumeric(entry.Principal)
	if err != nil {
		return fmt.Errorf("invalid principal: %w", err)
	}
	interest, err := decimalToPgNumeric(entry.InterestAmount)
	if err != nil {
		return fmt.Errorf("invalid interest amount: %w", err)
	}
	total, err := decimalToPgNumeric(entry.TotalPayout)
	if err != nil {
		return fmt.Errorf("invalid total payout: %w", err)
	}

	var createdAt pgtype.Timestamptz
	createdAt.Time = entry.CreatedAt
	createdAt.Valid = !entry.CreatedAt.IsZero()

	var voucherKey pgtype.Text
	if entry.VoucherKey != nil {
		voucherKey.String = *entry.VoucherKey
		voucherKey.Valid = true
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO closure_logs
			(id, branch_id, account_id, operator_id, path, payment_mode, payment_reference,
			 is_matured, principal, interest_amount, total_payout, succeeded, message,
			 voucher_key, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12, $13,
			$14, COALESCE($15, now()))`,
		pgtype.UUID{Bytes: entry.ID, Valid: true}, entry.BranchID, entry.AccountID, entry.OperatorID,
		string(entry.Path), string(entry.PaymentMode), entry.PaymentReference, entry.IsMatured,
		principal, interest, total, entry.Succeeded, entry.Message, voucherKey, createdAt)
	return err
}

// ListByAccount returns the attempts recorded for an account, newest first
func (r *ClosureLogRepository) ListByAccount(ctx context.Context, branchID int32, accountID int32) ([]*domain.ClosureLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, branch_id, account_id, operator_id, path, payment_mode, payment_reference,
			is_matured, principal, interest_amount, total_payout, succeeded, message,
			voucher_key, created_at
		FROM closure_logs
		WHERE account_id = $1 AND ($2 = 0 OR branch_id = $2)
		ORDER BY created_at DESC`,
		accountID, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []*domain.ClosureLog{}
	for rows.Next() {
		var (
			entry                      domain.ClosureLog
			id                         pgtype.UUID
			path                       string
			paymentMode, reference     pgtype.Text
			principal, interest, total pgtype.Numeric
			voucherKey                 pgtype.Text
			createdAt                  pgtype.Timestamptz
		)
		err := rows.Scan(&id, &entry.BranchID, &entry.AccountID, &entry.OperatorID, &path,
			&paymentMode, &reference, &entry.IsMatured, &principal, &interest, &total,
			&entry.Succeeded, &entry.Message, &voucherKey, &createdAt)
		if err != nil {
			return nil, err
		}
		entry.ID = id.Bytes
		entry.Path = domain.SettlementPath(path)
		entry.PaymentMode = domain.PaymentMode(paymentMode.String)
		entry.PaymentReference = reference.String
		entry.Principal = pgNumericToDecimal(principal)
		entry.InterestAmount = pgNumericToDecimal(interest)
		entry.TotalPayout = pgNumericToDecimal(total)
		entry.VoucherKey = pgTextToPtr(voucherKey)
		entry.CreatedAt = createdAt.Time
		logs = append(logs, &entry)
	}
	return logs, rows.Err()
}
