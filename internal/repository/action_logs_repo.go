package repository

import (
	"context"
	"time"
)

// ActionLog records one destructive or bulk action taken from the console.
type ActionLog struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	UserID    int       `json:"userId"`
	UserName  string    `json:"userName"`
	Screen    string    `json:"screen"`
	Action    string    `json:"action"`
	IDs       []int     `json:"ids"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ActionLogFilters narrows ListActionLogs. Zero values do not filter.
type ActionLogFilters struct {
	Screen string
	Action string
	UserID int
}

type ActionLogsRepository interface {
	// CreateActionLog stores entry and returns its id. ID and CreatedAt are
	// filled in when empty.
	CreateActionLog(ctx context.Context, entry ActionLog) (string, error)

	// ListActionLogs returns one page, newest first, and the total count.
	ListActionLogs(ctx context.Context, filter ActionLogFilters, page, size int) ([]ActionLog, int, error)
}
