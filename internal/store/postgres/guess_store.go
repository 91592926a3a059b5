package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

// GuessStore implements domain.GuessStore using PostgreSQL.
type GuessStore struct {
	pool *pgxpool.Pool
}

// NewGuessStore creates a new GuessStore backed by the given connection pool.
func NewGuessStore(pool *pgxpool.Pool) *GuessStore {
	return &GuessStore{pool: pool}
}

var _ domain.GuessStore = (*GuessStore)(nil)

const guessSelectCols = `id, player, crypto, guessed_price::text, tx_hash,
	request_id::text, phase, actual_price::text, accuracy_bps, reward::text,
	won, tier, resolution_tx_hash, resolution_block, fail_reason,
	submitted_at, settled_at`

// bigStr renders a big.Int for a NUMERIC column, nil-safe.
func bigStr(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseBig(s *string) *big.Int {
	if s == nil {
		return nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil
	}
	return v
}

func scanGuessRows(rows pgx.Rows) ([]domain.GuessRecord, error) {
	var recs []domain.GuessRecord
	for rows.Next() {
		rec, err := scanGuess(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func scanGuess(row pgx.Row) (domain.GuessRecord, error) {
	var (
		rec                            domain.GuessRecord
		guessedPrice                   string
		requestID, actualPrice, reward *string
		accuracyBps                    *int64
		won                            *bool
		resolutionTxHash               string
		resolutionBlock                int64
	)
	err := row.Scan(
		&rec.ID, &rec.Player, &rec.Crypto, &guessedPrice, &rec.TxHash,
		&requestID, &rec.Phase, &actualPrice, &accuracyBps, &reward,
		&won, &rec.Tier, &resolutionTxHash, &resolutionBlock, &rec.FailReason,
		&rec.SubmittedAt, &rec.SettledAt,
	)
	if err != nil {
		return domain.GuessRecord{}, err
	}

	rec.GuessedPrice = parseBig(&guessedPrice)
	rec.RequestID = parseBig(requestID)

	// A resolved row carries the full resolution payload.
	if rec.Phase == domain.PhaseResolved && actualPrice != nil && accuracyBps != nil && reward != nil && won != nil {
		rec.Resolution = &domain.Resolution{
			RequestID:    rec.RequestID,
			Player:       rec.Player,
			Crypto:       rec.Crypto,
			GuessedPrice: rec.GuessedPrice,
			ActualPrice:  parseBig(actualPrice),
			AccuracyBps:  uint64(*accuracyBps),
			Reward:       parseBig(reward),
			Won:          *won,
			TxHash:       resolutionTxHash,
			BlockNumber:  uint64(resolutionBlock),
		}
	}
	return rec, nil
}

// Create inserts a fresh attempt row.
func (s *GuessStore) Create(ctx context.Context, rec domain.GuessRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO guesses (id, player, crypto, guessed_price, phase, fail_reason, submitted_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`,
		rec.ID, rec.Player, rec.Crypto, rec.GuessedPrice.String(),
		string(rec.Phase), rec.FailReason, rec.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create guess: %w", err)
	}
	return nil
}

// UpdateSubmitted records the transaction hash and, once confirmed, the
// assigned requestId.
func (s *GuessStore) UpdateSubmitted(ctx context.Context, id, txHash string, requestID string) error {
	var reqID *string
	if requestID != "" {
		reqID = &requestID
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE guesses
		SET tx_hash = $2, request_id = $3::numeric, phase = $4
		WHERE id = $1`,
		id, txHash, reqID, string(domain.PhaseAwaitingResolution),
	)
	if err != nil {
		return fmt.Errorf("postgres: update submitted guess: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update submitted guess %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// UpdateTerminal writes the terminal phase and, when resolved, the resolution
// payload and tier.
func (s *GuessStore) UpdateTerminal(ctx context.Context, rec domain.GuessRecord) error {
	var (
		actualPrice, reward *string
		accuracyBps         *int64
		won                 *bool
		resolutionTxHash    string
		resolutionBlock     int64
	)
	if rec.Resolution != nil {
		actualPrice = bigStr(rec.Resolution.ActualPrice)
		reward = bigStr(rec.Resolution.Reward)
		bps := int64(rec.Resolution.AccuracyBps)
		accuracyBps = &bps
		won = &rec.Resolution.Won
		resolutionTxHash = rec.Resolution.TxHash
		resolutionBlock = int64(rec.Resolution.BlockNumber)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE guesses
		SET phase = $2, tx_hash = $3, request_id = $4::numeric,
		    actual_price = $5::numeric, accuracy_bps = $6, reward = $7::numeric,
		    won = $8, tier = $9, resolution_tx_hash = $10, resolution_block = $11,
		    fail_reason = $12, settled_at = $13
		WHERE id = $1`,
		rec.ID, string(rec.Phase), rec.TxHash, bigStr(rec.RequestID),
		actualPrice, accuracyBps, reward,
		won, rec.Tier, resolutionTxHash, resolutionBlock,
		rec.FailReason, rec.SettledAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update terminal guess: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update terminal guess %s: %w", rec.ID, domain.ErrNotFound)
	}
	return nil
}

// GetByID returns one attempt row.
func (s *GuessStore) GetByID(ctx context.Context, id string) (domain.GuessRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+guessSelectCols+` FROM guesses WHERE id = $1`, id)
	rec, err := scanGuess(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.GuessRecord{}, fmt.Errorf("postgres: guess %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domain.GuessRecord{}, fmt.Errorf("postgres: get guess: %w", err)
	}
	return rec, nil
}

// ListByPlayer returns a player's attempts, newest first.
func (s *GuessStore) ListByPlayer(ctx context.Context, player string, opts domain.ListOpts) ([]domain.GuessRecord, error) {
	query := `SELECT ` + guessSelectCols + ` FROM guesses WHERE player = $1 ORDER BY submitted_at DESC`
	args := []any{player}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list guesses by player: %w", err)
	}
	defer rows.Close()

	recs, err := scanGuessRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan guesses by player: %w", err)
	}
	return recs, nil
}

// ListSettledBefore returns settled attempts older than the given time, for
// archiving.
func (s *GuessStore) ListSettledBefore(ctx context.Context, before time.Time) ([]domain.GuessRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+guessSelectCols+` FROM guesses
		 WHERE settled_at IS NOT NULL AND settled_at < $1
		 ORDER BY settled_at ASC`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list settled guesses: %w", err)
	}
	defer rows.Close()
	return scanGuessRows(rows)
}

// DeleteSettledBefore prunes settled attempts older than the given time.
// Returns the number deleted.
func (s *GuessStore) DeleteSettledBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM guesses WHERE settled_at IS NOT NULL AND settled_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete settled guesses: %w", err)
	}
	return tag.RowsAffected(), nil
}
