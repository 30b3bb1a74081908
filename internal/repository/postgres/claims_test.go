package postgres

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/ghga-de/auth-adapter/internal/core/domain"
)

func TestClaimRepository_RoleForGranted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewClaimRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM auth\.claims`).
		WithArgs("user-1", "https://www.ghga.de/GA4GH/VisaTypes/DataSteward/v1.0").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	role, err := repo.RoleFor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RoleFor returned error: %v", err)
	}

	if role != domain.RoleDataSteward {
		t.Fatalf("expected data steward role, got %q", role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClaimRepository_RoleForNone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewClaimRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM auth\.claims`).
		WithArgs("user-2", "https://www.ghga.de/GA4GH/VisaTypes/DataSteward/v1.0").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))

	role, err := repo.RoleFor(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("RoleFor returned error: %v", err)
	}

	if role != "" {
		t.Fatalf("expected empty role, got %q", role)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
