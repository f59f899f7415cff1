package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const msgAccountAlreadyClosed = "Account is already closed"

const accountColumns = `id, branch_id, account_no, account_type, member_id, member_name,
	account_amount, interest_rate, duration, status, date_of_open, date_of_maturity,
	date_of_close, payout_amount, interest_paid, payment_mode, payment_reference,
	created_at, updated_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetByID retrieves an account by its ID within a branch
func (r *AccountRepository) GetByID(ctx context.Context, branchID int32, id int32) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE id = $1 AND ($2 = 0 OR branch_id = $2)`,
		id, branchID)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// List retrieves accounts for a branch, newest first
func (r *AccountRepository) List(ctx context.Context, branchID int32, filter domain.AccountFilter) ([]*domain.Account, error) {
	conditions := []string{"($1 = 0 OR branch_id = $1)"}
	args := []interface{}{branchID}

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AccountType != "" {
		args = append(args, string(filter.AccountType))
		conditions = append(conditions, fmt.Sprintf("account_type = $%d", len(args)))
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+accountColumns+` FROM accounts
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY created_at DESC, id DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*domain.Account{}
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateClosure marks the account closed and records the cash payout on it
func (r *AccountRepository) UpdateClosure(ctx context.Context, branchID int32, id int32, update domain.AccountClosureUpdate) (*domain.OperationResult, error) {
	accountAmount, err := decimalToPgNumeric(update.AccountAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid account amount: %w", err)
	}
	payoutAmount, err := decimalToPgNumeric(update.PayoutAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid payout amount: %w", err)
	}
	interestPaid, err := decimalToPgNumeric(update.InterestPaid)
	if err != nil {
		return nil, fmt.Errorf("invalid interest paid: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if res, err := lockOpenAccount(ctx, tx, branchID, id); res != nil || err != nil {
		return res, err
	}

	var dateOfClose pgtype.Timestamptz
	dateOfClose.Time = update.DateOfClose
	dateOfClose.Valid = true

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET
			status = $2,
			date_of_close = $3,
			account_amount = $4,
			payout_amount = $5,
			interest_paid = $6,
			payment_mode = $7,
			payment_reference = NULLIF($8, ''),
			updated_at = now()
		WHERE id = $1`,
		id, string(update.Status), dateOfClose, accountAmount, payoutAmount, interestPaid,
		update.PaymentMode, update.PaymentReference)
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.OperationResult{Success: true, Message: "Account updated successfully"}, nil
}

// Close marks a zero-balance account closed without recording a payout
func (r *AccountRepository) Close(ctx context.Context, branchID int32, id int32) (*domain.OperationResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if res, err := lockOpenAccount(ctx, tx, branchID, id); res != nil || err != nil {
		return res, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE accounts SET status = 'Closed', date_of_close = now(), updated_at = now()
		WHERE id = $1`,
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to close account: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &domain.OperationResult{Success: true, Message: "Account closed successfully"}, nil
}

// lockOpenAccount row-locks the account for the rest of tx. It returns a rejected
// result when the account is already closed and nil, nil when it may be settled.
func lockOpenAccount(ctx context.Context, tx pgx.Tx, branchID int32, id int32) (*domain.OperationResult, error) {
	var status string
	err := tx.QueryRow(ctx,
		`SELECT status FROM accounts
		WHERE id = $1 AND ($2 = 0 OR branch_id = $2)
		FOR UPDATE`,
		id, branchID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	if domain.AccountStatus(status) == domain.AccountStatusClosed {
		return &domain.OperationResult{Success: false, Message: msgAccountAlreadyClosed}, nil
	}
	return nil, nil
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                                         domain.Account
		accountType, status                       string
		accountAmount, interestRate               pgtype.Numeric
		payoutAmount, interestPaid                pgtype.Numeric
		dateOfOpen                                pgtype.Date
		dateOfMaturity                            pgtype.Date
		dateOfClose, createdAt, updatedAt         pgtype.Timestamptz
		duration                                  pgtype.Int4
		paymentMode, paymentReference, memberName pgtype.Text
	)

	err := row.Scan(
		&a.ID, &a.BranchID, &a.AccountNo, &accountType, &a.MemberID, &memberName,
		&accountAmount, &interestRate, &duration, &status, &dateOfOpen, &dateOfMaturity,
		&dateOfClose, &payoutAmount, &interestPaid, &paymentMode, &paymentReference,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AccountType = domain.AccountType(accountType)
	a.Status = domain.AccountStatus(status)
	a.MemberName = memberName.String
	a.AccountAmount = pgNumericToDecimal(accountAmount)
	a.InterestRate = pgNumericToDecimal(interestRate)
	if duration.Valid {
		a.Duration = duration.Int32
	}
	a.DateOfOpen = dateOfOpen.Time
	if dateOfMaturity.Valid {
		a.DateOfMaturity = &dateOfMaturity.Time
	}
	if dateOfClose.Valid {
		a.DateOfClose = &dateOfClose.Time
	}
	a.PayoutAmount = pgNumericToDecimalPtr(payoutAmount)
	a.InterestPaid = pgNumericToDecimalPtr(interestPaid)
	a.PaymentMode = pgTextToPtr(paymentMode)
	a.PaymentReference = pgTextToPtr(paymentReference)
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time
	return &a, nil
}
