package postgres

import (
	"context"
	"errors"

	"github.com/dafibh/coopbank/coopbank-backend/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OperatorRepository implements domain.OperatorRepository using PostgreSQL
type OperatorRepository struct {
	pool *pgxpool.Pool
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(pool *pgxpool.Pool) *OperatorRepository {
	return &OperatorRepository{pool: pool}
}

// GetByAuth0ID retrieves the operator linked to an Auth0 subject
func (r *OperatorRepository) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.Operator, error) {
	var (
		op        domain.Operator
		role      string
		createdAt pgtype.Timestamptz
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, auth0_id, branch_id, name, role, created_at
		FROM operators WHERE auth0_id = $1`,
		auth0ID).Scan(&op.ID, &op.Auth0ID, &op.BranchID, &op.Name, &role, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOperatorNotFound
		}
		return nil, err
	}
	op.Role = domain.OperatorRole(role)
	op.CreatedAt = createdAt.Time
	return &op, nil
}
