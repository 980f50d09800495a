package light

import (
	"context"
	"time"
)

// History query limits.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// HistoryEntry is one journaled state change.
type HistoryEntry struct {
	ID        int64     `json:"id"`
	Address   string    `json:"address"`
	State     State     `json:"state"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryReader retrieves journaled state changes, newest first.
type HistoryReader interface {
	GetHistory(ctx context.Context, address string, limit int) ([]HistoryEntry, error)
}
