// internal/database/rounds.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/czar/internal/models"
)

const schema = `
	CREATE TABLE IF NOT EXISTS round_results (
		session_id   UUID        NOT NULL,
		round_number INT         NOT NULL,
		room_code    TEXT        NOT NULL,
		prompt_id    TEXT        NOT NULL DEFAULT '',
		prompt_text  TEXT        NOT NULL DEFAULT '',
		winner_id    TEXT        NOT NULL,
		winner_name  TEXT        NOT NULL,
		card_id      TEXT        NOT NULL,
		card_text    TEXT        NOT NULL,
		recorded_at  TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (session_id, round_number)
	)
`

// RoundStore persists judged rounds to PostgreSQL.
type RoundStore struct {
	pool *pgxpool.Pool
}

// NewRoundStore wraps pool.
func NewRoundStore(pool *pgxpool.Pool) *RoundStore {
	return &RoundStore{pool: pool}
}

// EnsureSchema creates the round_results table if it is missing.
func (s *RoundStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create round_results: %w", err)
	}
	return nil
}

// InsertRoundResults writes results in a single transaction. A round
// already stored is left as is, so redelivered queue entries are harmless.
func (s *RoundStore) InsertRoundResults(ctx context.Context, results []models.RoundResult) error {
	if len(results) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO round_results (
				session_id, round_number, room_code, prompt_id, prompt_text,
				winner_id, winner_name, card_id, card_text, recorded_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (session_id, round_number) DO NOTHING
		`
		for _, r := range results {
			_, err := tx.Exec(ctx, q,
				r.SessionID, r.RoundNumber, r.RoomCode, r.PromptID, r.PromptText,
				r.WinnerID, r.WinnerName, r.CardID, r.CardText, recordedAt(r),
			)
			if err != nil {
				return fmt.Errorf("insert round %d of %s: %w", r.RoundNumber, r.SessionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert round results: %w", err)
	}
	return nil
}

// WinCount is a player's tally of won rounds.
type WinCount struct {
	WinnerName string
	Wins       int
}

// TopWinners returns the names with the most won rounds, best first.
func (s *RoundStore) TopWinners(ctx context.Context, limit int) ([]WinCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT winner_name, COUNT(*) AS wins
		FROM round_results
		GROUP BY winner_name
		ORDER BY wins DESC, winner_name
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top winners: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (WinCount, error) {
		var wc WinCount
		err := row.Scan(&wc.WinnerName, &wc.Wins)
		return wc, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan top winners: %w", err)
	}
	return out, nil
}

func recordedAt(r models.RoundResult) time.Time {
	if r.Timestamp == 0 {
		return time.Now().UTC()
	}
	return time.UnixMilli(r.Timestamp).UTC()
}
