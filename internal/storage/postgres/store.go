package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"launchScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS launch_records (
	id          BIGSERIAL PRIMARY KEY,
	address     TEXT NOT NULL,
	amount      NUMERIC(38, 8) NOT NULL,
	block       BIGINT NOT NULL,
	tx_hash     TEXT NOT NULL,
	log_index   INTEGER NOT NULL,
	block_time  BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (tx_hash, log_index)
);

CREATE INDEX IF NOT EXISTS launch_records_address_idx ON launch_records (address);
CREATE INDEX IF NOT EXISTS launch_records_block_time_idx ON launch_records (block_time DESC);

CREATE TABLE IF NOT EXISTS sync_state (
	name          TEXT PRIMARY KEY,
	block_number  BIGINT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for launch records and sync cursors.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// InsertLaunchRecords inserts the batch in a single statement, ignoring rows
// whose (tx_hash, log_index) already exists.
func (s *Store) InsertLaunchRecords(ctx context.Context, records []model.LaunchRecord) error {
	if len(records) == 0 {
		return nil
	}

	addresses := make([]string, len(records))
	amounts := make([]string, len(records))
	blocks := make([]int64, len(records))
	txHashes := make([]string, len(records))
	logIndexes := make([]int32, len(records))
	times := make([]int64, len(records))
	for i, r := range records {
		addresses[i] = r.Address
		amounts[i] = r.Amount.String()
		blocks[i] = int64(r.Block)
		txHashes[i] = r.TxHash
		logIndexes[i] = int32(r.LogIndex)
		times[i] = r.Time
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO launch_records (address, amount, block, tx_hash, log_index, block_time)
		SELECT * FROM unnest($1::text[], $2::text[]::numeric[], $3::bigint[], $4::text[], $5::integer[], $6::bigint[])
		ON CONFLICT (tx_hash, log_index) DO NOTHING
	`, addresses, amounts, blocks, txHashes, logIndexes, times)
	if err != nil {
		return fmt.Errorf("insert launch records: %w", err)
	}
	return nil
}

// LastSynced returns the cursor value for name, or def when absent.
func (s *Store) LastSynced(ctx context.Context, name string, def uint64) (uint64, error) {
	if name == "" {
		return 0, fmt.Errorf("cursor name required")
	}
	var block int64
	row := s.pool.QueryRow(ctx, `SELECT block_number FROM sync_state WHERE name=$1`, name)
	if err := row.Scan(&block); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return def, nil
		}
		return 0, err
	}
	return uint64(block), nil
}

// SetLastSynced upserts the cursor. The stored value never decreases.
func (s *Store) SetLastSynced(ctx context.Context, name string, block uint64) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sync_state (name, block_number, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET block_number = GREATEST(sync_state.block_number, EXCLUDED.block_number), updated_at = now()
	`, name, int64(block))
	return err
}

// Stats summarizes the launch_records table.
func (s *Store) Stats(ctx context.Context) (model.Stats, error) {
	var (
		stats  model.Stats
		total  string
		latest int64
	)
	row := s.pool.QueryRow(ctx, `
		SELECT count(*), count(DISTINCT address), coalesce(sum(amount), 0)::text, coalesce(max(block), 0)
		FROM launch_records
	`)
	if err := row.Scan(&stats.Records, &stats.Addresses, &total, &latest); err != nil {
		return model.Stats{}, err
	}
	amount, err := decimal.NewFromString(total)
	if err != nil {
		return model.Stats{}, fmt.Errorf("parse total amount: %w", err)
	}
	stats.TotalAmount = amount
	stats.LatestBlock = uint64(latest)
	return stats, nil
}

// RecentRecords returns one page of records ordered by block time, newest first.
// page starts at 1.
func (s *Store) RecentRecords(ctx context.Context, page, pageSize int) ([]model.LaunchRecord, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	rows, err := s.pool.Query(ctx, `
		SELECT address, amount::text, block, tx_hash, log_index, block_time
		FROM launch_records
		ORDER BY block_time DESC, tx_hash, log_index
		OFFSET $1 LIMIT $2
	`, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.LaunchRecord
	for rows.Next() {
		var (
			r        model.LaunchRecord
			amount   string
			block    int64
			logIndex int32
		)
		if err := rows.Scan(&r.Address, &amount, &block, &r.TxHash, &logIndex, &r.Time); err != nil {
			return nil, err
		}
		r.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse amount: %w", err)
		}
		r.Block = uint64(block)
		r.LogIndex = uint32(logIndex)
		records = append(records, r)
	}
	return records, rows.Err()
}
