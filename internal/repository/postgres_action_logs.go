package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cleantech-console/common/database"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

var actionLogsSchema = []string{`
CREATE TABLE IF NOT EXISTS console_action_logs (
	id          uuid PRIMARY KEY,
	session_id  text NOT NULL DEFAULT '',
	user_id     integer NOT NULL DEFAULT 0,
	user_name   text NOT NULL DEFAULT '',
	screen      text NOT NULL,
	action      text NOT NULL,
	entity_ids  bigint[] NOT NULL DEFAULT '{}',
	outcome     text NOT NULL,
	error       text,
	created_at  timestamptz NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS console_action_logs_created_at_idx ON console_action_logs (created_at DESC)`,
}

type PostgresActionLogsRepository struct {
	db *sql.DB
}

func NewPostgresActionLogsRepository(db *sql.DB) *PostgresActionLogsRepository {
	return &PostgresActionLogsRepository{db: db}
}

var _ ActionLogsRepository = (*PostgresActionLogsRepository)(nil)

// EnsureSchema creates the table and its index when they do not exist yet.
func (r *PostgresActionLogsRepository) EnsureSchema(ctx context.Context) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, stmt := range actionLogsSchema {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create console_action_logs: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresActionLogsRepository) CreateActionLog(ctx context.Context, entry ActionLog) (string, error) {
	if entry.Screen == "" || entry.Action == "" {
		return "", fmt.Errorf("screen and action are required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO console_action_logs
			(id, session_id, user_id, user_name, screen, action, entity_ids, outcome, error, created_at)
		VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.SessionID,
		entry.UserID,
		entry.UserName,
		entry.Screen,
		entry.Action,
		pq.Array(toInt64s(entry.IDs)),
		entry.Outcome,
		entry.Error,
		entry.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert action log: %w", err)
	}
	return entry.ID, nil
}

func (r *PostgresActionLogsRepository) ListActionLogs(ctx context.Context, filter ActionLogFilters, page, size int) ([]ActionLog, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	where := []string{"1=1"}
	args := []any{}
	argN := 1
	if filter.Screen != "" {
		where = append(where, fmt.Sprintf("screen = $%d", argN))
		args = append(args, filter.Screen)
		argN++
	}
	if filter.Action != "" {
		where = append(where, fmt.Sprintf("action = $%d", argN))
		args = append(args, filter.Action)
		argN++
	}
	if filter.UserID > 0 {
		where = append(where, fmt.Sprintf("user_id = $%d", argN))
		args = append(args, filter.UserID)
		argN++
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM console_action_logs WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count action logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id::text, session_id, user_id, user_name, screen, action, entity_ids,
		       outcome, COALESCE(error, ''), created_at
		FROM console_action_logs
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereSQL, argN, argN+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list action logs: %w", err)
	}
	defer rows.Close()

	out := []ActionLog{}
	for rows.Next() {
		var (
			l   ActionLog
			ids pq.Int64Array
		)
		if err := rows.Scan(&l.ID, &l.SessionID, &l.UserID, &l.UserName, &l.Screen, &l.Action,
			&ids, &l.Outcome, &l.Error, &l.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan action log: %w", err)
		}
		l.IDs = fromInt64s(ids)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}

func fromInt64s(ids []int64) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
