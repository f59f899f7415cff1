package postgres

import (
	"context"
	"fmt"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MaturityPaymentRepository implements domain.MaturityPaymentGateway on the local
// database. The payment row and the account closure are written in one transaction.
type MaturityPaymentRepository struct {
	pool *pgxpool.Pool
}

// NewMaturityPaymentRepository creates a new MaturityPaymentRepository
func NewMaturityPaymentRepository(pool *pgxpool.Pool) *MaturityPaymentRepository {
	return &MaturityPaymentRepository{pool: pool}
}

// CreateMaturityPayment queues a digital payout and closes the account
func (r *MaturityPaymentRepository) CreateMaturityPayment(ctx context.Context, req domain.MaturityPaymentRequest) (*domain.OperationResult, error) {
	amount, err := decimalToPgNumeric(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if res, err := lockOpenAccount(ctx, tx, req.BranchID, req.AccountID); res != nil || err != nil {
		return res, err
	}

	var paymentID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO maturity_payments
			(account_id, branch_id, account_no, account_type, member_id, amount,
			 payment_method, description, reference_no, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), 'pending')
		RETURNING id`,
		req.AccountID, req.BranchID, req.AccountNo, string(req.AccountType), req.MemberID, amount,
		string(req.PaymentMethod), req.Description, req.ReferenceNo).Scan(&paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create maturity payment: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET
			status = 'Closed',
			date_of_close = now(),
			account_amount = 0,
			payout_amount = $2,
			payment_mode = $3,
			payment_reference = NULLIF($4, ''),
			updated_at = now()
		WHERE id = $1`,
		req.AccountID, amount, string(req.PaymentMethod), req.ReferenceNo)
	if err != nil {
		return nil, fmt.Errorf("failed to close account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &domain.OperationResult{
		Success: true,
		Message: fmt.Sprintf("Maturity payment #%d created", paymentID),
	}, nil
}
