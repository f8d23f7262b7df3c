package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/recipebook/recipebook-server/internal/domain"
	"github.com/recipebook/recipebook-server/internal/store"
)

// auditColumns is the ordered list of columns selected in audit queries.
// Must match the scan order in scanAuditEntry.
const auditColumns = `id, actor_id, action, target_type, target_id, reason, detail, created_at`

// AuditFilter narrows ListActions. Zero values match everything.
type AuditFilter struct {
	ActorID    string
	TargetType domain.AuditTarget
	TargetID   string
	Limit      int
	Offset     int
}

// scanAuditEntry scans a sql.Row (or sql.Rows via its Scan method) into a domain.AuditEntry.
func scanAuditEntry(scanner interface{ Scan(dest ...any) error }) (*domain.AuditEntry, error) {
	var e domain.AuditEntry

	var (
		action     string
		targetType string
		reason     sql.NullString
		detail     sql.NullString
		createdAt  string
	)

	err := scanner.Scan(
		&e.ID,
		&e.ActorID,
		&action,
		&targetType,
		&e.TargetID,
		&reason,
		&detail,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	e.Action = domain.AuditAction(action)
	e.TargetType = domain.AuditTarget(targetType)
	e.Reason = reason.String
	e.Detail = detail.String

	return &e, nil
}

// RecordAction appends an entry to the moderation log.
func (s *Store) RecordAction(ctx context.Context, e *domain.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO audit_log (`+auditColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.ActorID,
		string(e.Action),
		string(e.TargetType),
		e.TargetID,
		nullString(e.Reason),
		nullString(e.Detail),
		formatTime(e.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}

	if s.logger != nil {
		s.logger.Debug("audit entry recorded",
			"action", e.Action,
			"actor_id", e.ActorID,
			"target_id", e.TargetID,
		)
	}
	return nil
}

// ListActions returns matching entries, newest first, and the total number
// of matches ignoring limit and offset.
func (s *Store) ListActions(ctx context.Context, f AuditFilter) ([]*domain.AuditEntry, int, error) {
	var (
		where []string
		args  []any
	)
	if f.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.TargetType != "" {
		where = append(where, "target_type = ?")
		args = append(args, string(f.TargetType))
	}
	if f.TargetID != "" {
		where = append(where, "target_id = ?")
		args = append(args, f.TargetID)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + auditColumns + ` FROM audit_log` + clause +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
