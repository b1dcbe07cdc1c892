package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rocketscienceinc/othello-backend/internal/entity"
)

const defaultResultsLimit = 50

type ResultRepository interface {
	Save(ctx context.Context, result entity.GameResult) error
	// List returns the newest results first.
	List(ctx context.Context, limit int) ([]entity.GameResult, error)
}

type resultRepository struct {
	conn *sql.DB
}

func NewResultRepository(conn *sql.DB) ResultRepository {
	return &resultRepository{
		conn: conn,
	}
}

func (that *resultRepository) Save(ctx context.Context, result entity.GameResult) error {
	query := `INSERT OR REPLACE INTO results
		(game_id, player1, player2, seq, score_player1, score_player2, winner, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := that.conn.ExecContext(ctx, query,
		result.GameID,
		result.Player1,
		result.Player2,
		result.Seq,
		result.ScorePlayer1,
		result.ScorePlayer2,
		result.Winner,
		result.FinishedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("can't save result: %w", err)
	}

	return nil
}

func (that *resultRepository) List(ctx context.Context, limit int) ([]entity.GameResult, error) {
	if limit <= 0 {
		limit = defaultResultsLimit
	}

	query := `SELECT game_id, player1, player2, seq, score_player1, score_player2, winner, finished_at
		FROM results ORDER BY finished_at DESC, game_id LIMIT ?`

	rows, err := that.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("can't list results: %w", err)
	}
	defer rows.Close()

	results := make([]entity.GameResult, 0, limit)
	for rows.Next() {
		var (
			result     entity.GameResult
			finishedAt int64
		)

		err = rows.Scan(
			&result.GameID,
			&result.Player1,
			&result.Player2,
			&result.Seq,
			&result.ScorePlayer1,
			&result.ScorePlayer2,
			&result.Winner,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("can't scan result: %w", err)
		}

		result.FinishedAt = time.UnixMilli(finishedAt).UTC()
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't iterate results: %w", err)
	}

	return results, nil
}
