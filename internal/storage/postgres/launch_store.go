package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/storage"
)

// LaunchStore implements storage.LaunchStore using PostgreSQL.
type LaunchStore struct {
	pool *Pool
}

// NewLaunchStore creates a new LaunchStore.
func NewLaunchStore(pool *Pool) *LaunchStore {
	return &LaunchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LaunchStore = (*LaunchStore)(nil)

const launchColumns = `launch_id, mention_id, post_id, source_url, source_user,
	token_name, token_symbol, token_address, tx_hash, block_number, created_at`

// Insert adds a new launch. Returns ErrDuplicateKey if launch_id or source_url exists.
func (s *LaunchStore) Insert(ctx context.Context, l *domain.Launch) error {
	if l == nil || l.LaunchID == "" || l.SourceURL == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_launches (` + launchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query,
		l.LaunchID,
		l.MentionID,
		l.PostID,
		l.SourceURL,
		l.SourceUser,
		l.TokenName,
		l.TokenSymbol,
		l.TokenAddress,
		l.TransactionHash,
		int64(l.BlockNumber),
		l.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert launch: %w", err)
	}
	return nil
}

// GetBySourceURL retrieves the launch for a source post. Returns ErrNotFound if not exists.
func (s *LaunchStore) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.Launch, error) {
	query := `
		SELECT ` + launchColumns + `
		FROM token_launches
		WHERE source_url = $1
	`

	l, err := scanLaunch(s.pool.QueryRow(ctx, query, sourceURL))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get launch by source url: %w", err)
	}
	return l, nil
}

// ListRecent retrieves up to limit launches ordered by created_at DESC, launch_id ASC.
func (s *LaunchStore) ListRecent(ctx context.Context, limit int) ([]*domain.Launch, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + launchColumns + `
		FROM token_launches
		ORDER BY created_at DESC, launch_id ASC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list launches: %w", err)
	}
	defer rows.Close()

	var result []*domain.Launch
	for rows.Next() {
		l, err := scanLaunch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan launch: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func scanLaunch(row pgx.Row) (*domain.Launch, error) {
	var l domain.Launch
	var blockNumber int64
	err := row.Scan(
		&l.LaunchID,
		&l.MentionID,
		&l.PostID,
		&l.SourceURL,
		&l.SourceUser,
		&l.TokenName,
		&l.TokenSymbol,
		&l.TokenAddress,
		&l.TransactionHash,
		&blockNumber,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.BlockNumber = uint64(blockNumber)
	return &l, nil
}
