package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
	"github.com/ghga-de/auth-adapter/internal/repository"
)

func TestUserRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	registeredAt := time.Now().UTC()
	title := "Dr."
	user := domain.User{
		ID:           "user-123",
		ExtID:        "john@aai.org",
		Name:         "John Doe",
		Email:        "john@home.org",
		Title:        &title,
		Status:       domain.UserStatusActive,
		RegisteredAt: registeredAt,
	}

	mock.ExpectExec(`INSERT INTO auth\.users`).
		WithArgs(
			user.ID,
			user.ExtID,
			user.Name,
			user.Email,
			title,
			user.Status,
			user.RegisteredAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateDuplicateExtID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	user := domain.User{
		ID:           "user-123",
		ExtID:        "john@aai.org",
		Name:         "John Doe",
		Email:        "john@home.org",
		Status:       domain.UserStatusActive,
		RegisteredAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO auth\.users`).
		WithArgs(
			user.ID,
			user.ExtID,
			user.Name,
			user.Email,
			nil,
			user.Status,
			user.RegisteredAt,
		).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.Create(context.Background(), user)
	if !errors.Is(err, repository.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByExtID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	registeredAt := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"id", "ext_id", "name", "email", "title", "status", "registered_at",
	}).AddRow(
		"user-1", "john@aai.org", "John Doe", "john@home.org", nil, domain.UserStatusActive, registeredAt,
	)

	mock.ExpectQuery(`SELECT id, ext_id, name, email, title, status, registered_at FROM auth\.users`).
		WithArgs("john@aai.org").
		WillReturnRows(rows)

	user, err := repo.FindByExtID(context.Background(), "john@aai.org")
	if err != nil {
		t.Fatalf("FindByExtID returned error: %v", err)
	}

	if user.ID != "user-1" {
		t.Fatalf("unexpected user id: %s", user.ID)
	}
	if user.Name != "John Doe" {
		t.Fatalf("unexpected name: %s", user.Name)
	}
	if user.Title != nil {
		t.Fatalf("expected nil title, got %v", *user.Title)
	}
	if user.Status != domain.UserStatusActive {
		t.Fatalf("unexpected status: %s", user.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_FindByExtIDNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	mock.ExpectQuery(`SELECT id, ext_id, name, email, title, status, registered_at FROM auth\.users`).
		WithArgs("nobody@aai.org").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "ext_id", "name", "email", "title", "status", "registered_at",
		}))

	_, err = repo.FindByExtID(context.Background(), "nobody@aai.org")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_Update(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	user := domain.User{
		ID:     "user-1",
		ExtID:  "john@aai.org",
		Name:   "John Q. Doe",
		Email:  "john@home.org",
		Status: domain.UserStatusActive,
	}

	mock.ExpectExec(`UPDATE auth\.users SET`).
		WithArgs(user.Name, user.Email, nil, user.Status, user.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.Update(context.Background(), user); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserRepository_UpdateMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewUserRepository(mock)

	user := domain.User{
		ID:     "user-404",
		Name:   "Ghost",
		Email:  "ghost@home.org",
		Status: domain.UserStatusActive,
	}

	mock.ExpectExec(`UPDATE auth\.users SET`).
		WithArgs(user.Name, user.Email, nil, user.Status, user.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = repo.Update(context.Background(), user)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
