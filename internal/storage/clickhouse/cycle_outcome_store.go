package clickhouse

import (
	"context"
	"fmt"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// CycleOutcomeStore implements storage.CycleOutcomeStore using ClickHouse.
// Table cycle_outcomes is append-only MergeTree ordered by (bot_id, started_at).
type CycleOutcomeStore struct {
	conn *Conn
}

// NewCycleOutcomeStore creates a new CycleOutcomeStore.
func NewCycleOutcomeStore(conn *Conn) *CycleOutcomeStore {
	return &CycleOutcomeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.CycleOutcomeStore = (*CycleOutcomeStore)(nil)

const cycleColumns = `bot_id, started_at, duration_ms, result, mentions,
	mention_id, source_url, status, sleep_ms, error`

// Insert appends a cycle outcome.
func (s *CycleOutcomeStore) Insert(ctx context.Context, o *domain.CycleOutcome) error {
	if o == nil || o.BotID == "" {
		return storage.ErrInvalidInput
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO cycle_outcomes (`+cycleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.BotID,
		o.StartedAt,
		o.DurationMs,
		o.Result.String(),
		uint32(o.Mentions),
		o.MentionID,
		o.SourceURL,
		o.Status,
		o.SleepMs,
		o.Error,
	)
	if err != nil {
		return fmt.Errorf("insert cycle outcome: %w", err)
	}
	return nil
}

// ListRecent retrieves up to limit outcomes for botID, newest first.
func (s *CycleOutcomeStore) ListRecent(ctx context.Context, botID string, limit int) ([]*domain.CycleOutcome, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.conn.Query(ctx, `
		SELECT `+cycleColumns+`
		FROM cycle_outcomes
		WHERE bot_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, botID, uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query cycle outcomes: %w", err)
	}
	defer rows.Close()

	var result []*domain.CycleOutcome
	for rows.Next() {
		var (
			o        domain.CycleOutcome
			res      string
			mentions uint32
		)
		if err := rows.Scan(
			&o.BotID,
			&o.StartedAt,
			&o.DurationMs,
			&res,
			&mentions,
			&o.MentionID,
			&o.SourceURL,
			&o.Status,
			&o.SleepMs,
			&o.Error,
		); err != nil {
			return nil, fmt.Errorf("scan cycle outcome: %w", err)
		}
		o.Result = domain.CycleResult(res)
		o.Mentions = int(mentions)
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycle outcomes: %w", err)
	}

	return result, nil
}
