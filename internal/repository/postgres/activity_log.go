package postgres

import (
	"context"
	"fmt"
	"strings"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Marina1234-cmd/HopeHand-sub000/internal/core/domain"
)

const (
	defaultSchema    = "hopehand"
	defaultListLimit = 50
	maxListLimit     = 500
	activityLogTable = "activity_log"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ActivityLogRepository stores audit entries in PostgreSQL.
type ActivityLogRepository struct {
	exec    pgExecutor
	schema  string
	builder squirrel.StatementBuilderType
}

// ActivityFilter narrows ListRecent results.
type ActivityFilter struct {
	PrincipalID string
	Severity    domain.Severity
	Limit       int
}

// NewActivityLogRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewActivityLogRepository(exec pgExecutor, schema string) *ActivityLogRepository {
	schema = strings.TrimSpace(schema)
	if schema == "" {
		schema = defaultSchema
	}
	return &ActivityLogRepository{
		exec:    exec,
		schema:  schema,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// EnsureSchema creates the schema and table when missing.
func (r *ActivityLogRepository) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, pgx.Identifier{r.schema}.Sanitize()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	category TEXT NOT NULL,
	principal_id TEXT NOT NULL,
	message TEXT NOT NULL,
	success BOOLEAN NOT NULL,
	severity TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`, r.table()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS activity_log_principal_created_idx ON %s (principal_id, created_at DESC)`, r.table()),
	}
	for _, stmt := range stmts {
		if _, err := r.exec.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure activity log schema: %w", err)
		}
	}
	return nil
}

// Log inserts one entry.
func (r *ActivityLogRepository) Log(ctx context.Context, entry domain.ActivityEntry) error {
	stmt, args, err := r.builder.Insert(r.table()).
		Columns("id", "category", "principal_id", "message", "success", "severity", "created_at").
		Values(entry.ID, string(entry.Category), entry.PrincipalID, entry.Message, entry.Success, string(entry.Severity), entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert activity sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *ActivityLogRepository) ListRecent(ctx context.Context, filter ActivityFilter) ([]domain.ActivityEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := r.builder.
		Select("id", "category", "principal_id", "message", "success", "severity", "created_at").
		From(r.table()).
		OrderBy("created_at DESC").
		Limit(uint64(limit))
	if filter.PrincipalID != "" {
		query = query.Where(squirrel.Eq{"principal_id": filter.PrincipalID})
	}
	if filter.Severity != "" {
		query = query.Where(squirrel.Eq{"severity": string(filter.Severity)})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list activity sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query activity entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ActivityEntry, 0, limit)
	for rows.Next() {
		var (
			entry    domain.ActivityEntry
			category string
			severity string
		)
		if err := rows.Scan(&entry.ID, &category, &entry.PrincipalID, &entry.Message, &entry.Success, &severity, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		entry.Category = domain.ActivityCategory(category)
		entry.Severity = domain.Severity(severity)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}

	return entries, nil
}

func (r *ActivityLogRepository) table() string {
	return r.schema + "." + activityLogTable
}
