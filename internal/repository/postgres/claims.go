package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
)

// ClaimRepository implements port.ClaimRepository using PostgreSQL.
//
// A user holds the data steward role while a claim row exists whose
// validity window covers the current instant and which has not been
// revoked.
type ClaimRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewClaimRepository wires a PostgreSQL-backed claim repository.
func NewClaimRepository(exec pgExecutor) *ClaimRepository {
	repo := &ClaimRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// RoleFor returns the role granted to the user through a currently valid
// claim record, or the empty string when none is granted.
func (r *ClaimRepository) RoleFor(ctx context.Context, userID string) (string, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("auth.claims").
		Where(squirrel.Eq{"user_id": userID, "visa_type": "https://www.ghga.de/GA4GH/VisaTypes/DataSteward/v1.0"}).
		Where(squirrel.Expr("revocation_date IS NULL")).
		Where(squirrel.Expr("valid_from <= NOW()")).
		Where(squirrel.Expr("valid_until > NOW()")).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select claims sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("scan claim count: %w", err)
	}

	if count > 0 {
		return domain.RoleDataSteward, nil
	}
	return "", nil
}

var _ port.ClaimRepository = (*ClaimRepository)(nil)
