package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/core/port"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

var userColumns = []string{
	"id",
	"ext_id",
	"name",
	"email",
	"title",
	"status",
	"registered_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user registry.
func NewUserRepository(exec pgExecutor) *UserRepository {
	repo := &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a new registry record.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	var titleValue any
	if user.Title != nil && *user.Title != "" {
		titleValue = *user.Title
	}

	stmt, args, err := r.builder.Insert("auth.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.ExtID,
			user.Name,
			user.Email,
			titleValue,
			user.Status,
			user.RegisteredAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by the internal identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// FindByExtID looks a user up by the external (IdP) identifier.
func (r *UserRepository) FindByExtID(ctx context.Context, extID string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"ext_id": extID})
}

func (r *UserRepository) getBy(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var (
		user  domain.User
		title sql.NullString
	)

	if err := row.Scan(
		&user.ID,
		&user.ExtID,
		&user.Name,
		&user.Email,
		&title,
		&user.Status,
		&user.RegisteredAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if title.Valid {
		val := title.String
		user.Title = &val
	}

	return &user, nil
}

// Update replaces the stored record for the user's id.
func (r *UserRepository) Update(ctx context.Context, user domain.User) error {
	var titleValue any
	if user.Title != nil && *user.Title != "" {
		titleValue = *user.Title
	}

	stmt, args, err := r.builder.Update("auth.users").
		Set("name", user.Name).
		Set("email", user.Email).
		Set("title", titleValue).
		Set("status", user.Status).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
