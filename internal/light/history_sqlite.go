package light

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SQLiteHistory journals light state changes into the light_state_history
// table as JSON snapshots. It implements StateRecorder and HistoryReader.
//
// The journal is observability only: nothing is replayed at startup.
// Lights always boot with unknown confirmed state and are driven fresh by
// the first intent.
type SQLiteHistory struct {
	db *sql.DB
}

// NewSQLiteHistory creates a history journal over an open database.
func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// RecordStateChange inserts one journal entry for a light.
func (h *SQLiteHistory) RecordStateChange(ctx context.Context, address string, state State, source string) error {
	if address == "" {
		return fmt.Errorf("light address is required")
	}
	if source == "" {
		source = "controller"
	}

	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = h.db.ExecContext(ctx,
		"INSERT INTO light_state_history (address, state, source) VALUES (?, ?, ?)",
		address,
		string(stateJSON),
		source,
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns recent journal entries for a light, newest first.
// limit defaults to 50 and is capped at 200.
func (h *SQLiteHistory) GetHistory(ctx context.Context, address string, limit int) ([]HistoryEntry, error) {
	if address == "" {
		return nil, fmt.Errorf("light address is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := h.db.QueryContext(ctx,
		`SELECT id, address, state, source, created_at
		 FROM light_state_history
		 WHERE address = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		address,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var entry HistoryEntry
		var stateJSON string
		var createdAt string

		if err := rows.Scan(&entry.ID, &entry.Address, &stateJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning state history: %w", err)
		}
		if err := json.Unmarshal([]byte(stateJSON), &entry.State); err != nil {
			return nil, fmt.Errorf("unmarshalling state: %w", err)
		}
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			entry.CreatedAt = ts
		} else if ts, err := time.Parse("2006-01-02 15:04:05", createdAt); err == nil {
			entry.CreatedAt = ts
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}

	return entries, nil
}

// Prune deletes journal entries older than the retention window. Called
// periodically from the main loop.
func (h *SQLiteHistory) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format("2006-01-02 15:04:05")
	res, err := h.db.ExecContext(ctx,
		"DELETE FROM light_state_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning state history: %w", err)
	}
	return n, nil
}
