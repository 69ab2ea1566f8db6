package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

func TestActivityLogRepository_Log(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewActivityLogRepository(mock, "")

	createdAt := time.Now().UTC()
	entry := domain.ActivityEntry{
		ID:          "2b1c2f1e-5f0c-4a57-9b8a-0c9f7e2d1a11",
		Category:    domain.CategorySecurity,
		PrincipalID: "admin-1",
		Message:     "rate limit exceeded for login",
		Success:     false,
		Severity:    domain.SeverityWarning,
		CreatedAt:   createdAt,
	}

	mock.ExpectExec(`INSERT INTO hopehand\.activity_log`).
		WithArgs(entry.ID, "security", "admin-1", entry.Message, false, "warning", createdAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Log(context.Background(), entry); err != nil {
		t.Fatalf("Log returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActivityLogRepository_LogError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewActivityLogRepository(mock, "audit")
	mock.ExpectExec(`INSERT INTO audit\.activity_log`).
		WillReturnError(errors.New("connection reset"))

	if err := repo.Log(context.Background(), domain.ActivityEntry{ID: "x"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestActivityLogRepository_ListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewActivityLogRepository(mock, "hopehand")
	createdAt := time.Now().UTC()

	rows := pgxmock.NewRows([]string{"id", "category", "principal_id", "message", "success", "severity", "created_at"}).
		AddRow("id-2", "session", "admin-1", "session terminated after idle timeout", true, "info", createdAt).
		AddRow("id-1", "session", "admin-1", "session idle warning issued", true, "warning", createdAt.Add(-5*time.Minute))

	mock.ExpectQuery(`SELECT id, category, principal_id, message, success, severity, created_at FROM hopehand\.activity_log WHERE principal_id = \$1 ORDER BY created_at DESC LIMIT 10`).
		WithArgs("admin-1").
		WillReturnRows(rows)

	entries, err := repo.ListRecent(context.Background(), ActivityFilter{PrincipalID: "admin-1", Limit: 10})
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Category != domain.CategorySession || entries[1].Severity != domain.SeverityWarning {
		t.Fatalf("unexpected entries %+v", entries)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActivityLogRepository_ListRecentClampsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewActivityLogRepository(mock, "")
	mock.ExpectQuery(`FROM hopehand\.activity_log ORDER BY created_at DESC LIMIT 500`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "category", "principal_id", "message", "success", "severity", "created_at"}))

	entries, err := repo.ListRecent(context.Background(), ActivityFilter{Limit: 10_000})
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActivityLogRepository_EnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewActivityLogRepository(mock, "hopehand")
	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "hopehand"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS hopehand\.activity_log`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS activity_log_principal_created_idx`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
