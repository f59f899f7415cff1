package domain

import (
	"context"
	"time"
)

type OperatorRole string

const (
	OperatorRoleAdmin OperatorRole = "admin"
	OperatorRoleAgent OperatorRole = "agent"
)

// Operator is a portal user acting on behalf of a branch
type Operator struct {
	ID        int32        `json:"id"`
	Auth0ID   string       `json:"auth0Id"`
	BranchID  int32        `json:"branchId"`
	Name      string       `json:"name"`
	Role      OperatorRole `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
}

type OperatorRepository interface {
	GetByAuth0ID(ctx context.Context, auth0ID string) (*Operator, error)
}
