package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryActionLogsRepo keeps the action log in process when no database is
// configured. Entries are lost on restart.
type MemoryActionLogsRepo struct {
	mu   sync.RWMutex
	logs []ActionLog
}

func NewMemoryActionLogsRepo() *MemoryActionLogsRepo {
	return &MemoryActionLogsRepo{}
}

var _ ActionLogsRepository = (*MemoryActionLogsRepo)(nil)

func (r *MemoryActionLogsRepo) CreateActionLog(_ context.Context, entry ActionLog) (string, error) {
	if entry.Screen == "" || entry.Action == "" {
		return "", fmt.Errorf("screen and action are required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.IDs = append([]int(nil), entry.IDs...)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
	return entry.ID, nil
}

func (r *MemoryActionLogsRepo) ListActionLogs(_ context.Context, filter ActionLogFilters, page, size int) ([]ActionLog, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]ActionLog, 0, len(r.logs))
	for _, l := range r.logs {
		if filter.Screen != "" && l.Screen != filter.Screen {
			continue
		}
		if filter.Action != "" && l.Action != filter.Action {
			continue
		}
		if filter.UserID > 0 && l.UserID != filter.UserID {
			continue
		}
		all = append(all, l)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}
